package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodboard-backend/internal/presence"
)

func TestMergeDoesNotClobberOtherFields(t *testing.T) {
	s := NewStore()
	s.UpsertImage(Entity{"id": int64(1), "boardId": int64(5), "x": 10.0, "y": 20.0, "width": 300.0, "height": 200.0})

	// two concurrent edits touching disjoint fields, either order
	moveFirst := NewStore()
	moveFirst.UpsertImage(Entity{"id": int64(1), "boardId": int64(5), "x": 10.0, "y": 20.0, "width": 300.0, "height": 200.0})

	s.MergeImage(1, map[string]interface{}{"x": 50.0, "y": 60.0})
	s.MergeImage(1, map[string]interface{}{"width": 150.0})

	moveFirst.MergeImage(1, map[string]interface{}{"width": 150.0})
	moveFirst.MergeImage(1, map[string]interface{}{"x": 50.0, "y": 60.0})

	for _, store := range []*Store{s, moveFirst} {
		img, ok := store.Image(1)
		require.True(t, ok)
		assert.Equal(t, 50.0, img["x"])
		assert.Equal(t, 60.0, img["y"])
		assert.Equal(t, 150.0, img["width"])
		assert.Equal(t, 200.0, img["height"], "untouched field survives both orders")
	}
}

func TestMergeSameFieldLastWriteWins(t *testing.T) {
	s := NewStore()
	s.UpsertKeyword(Entity{"id": int64(3), "keyword": "calm", "offsetX": 1.0, "offsetY": 1.0})

	s.MergeKeyword(3, map[string]interface{}{"offsetX": 10.0, "offsetY": 10.0})
	s.MergeKeyword(3, map[string]interface{}{"offsetX": 99.0, "offsetY": 98.0})

	kw, ok := s.Keyword(3)
	require.True(t, ok)
	assert.Equal(t, 99.0, kw["offsetX"])
	assert.Equal(t, 98.0, kw["offsetY"])
}

func TestSelectionClearedOnRemoteDelete(t *testing.T) {
	s := NewStore()
	s.UpsertImage(Entity{"id": int64(1), "boardId": int64(5)})
	s.UpsertKeyword(Entity{"id": int64(7), "boardId": int64(5), "imageId": int64(1)})
	s.SelectImage(1)
	s.SelectKeyword(7)

	// another client deleted the image and its keywords
	s.DeleteImage(1, []int64{7})

	imageID, keywordID, _ := s.Selection()
	assert.Zero(t, imageID)
	assert.Zero(t, keywordID)

	_, ok := s.Keyword(7)
	assert.False(t, ok)
}

func TestParticipantListReplacedNotMerged(t *testing.T) {
	s := NewStore()
	s.ReplaceParticipants([]presence.Participant{
		{ConnID: "a", Username: "mina"},
		{ConnID: "b", Username: "joon"},
	})
	s.ReplaceParticipants([]presence.Participant{
		{ConnID: "b", Username: "joon"},
	})

	list := s.Participants()
	require.Len(t, list, 1)
	assert.Equal(t, "joon", list[0].Username, "the old list is gone, not unioned")
}

func TestBoardScopeGuard(t *testing.T) {
	s := NewStore()
	s.SetBoardScope(5)

	s.UpsertImage(Entity{"id": int64(1), "boardId": int64(5)})
	s.UpsertImage(Entity{"id": int64(2), "boardId": int64(9)})
	s.UpsertKeyword(Entity{"id": int64(3), "boardId": int64(9)})

	_, ok := s.Image(1)
	assert.True(t, ok)
	_, ok = s.Image(2)
	assert.False(t, ok, "events for another board are dropped")
	_, ok = s.Keyword(3)
	assert.False(t, ok)
}

func TestRemoveKeywordOffsetMirrorsServer(t *testing.T) {
	s := NewStore()
	s.UpsertKeyword(Entity{
		"id": int64(4), "keyword": "forest", "offsetX": 12.0, "offsetY": 30.0,
		"isSelected": true, "votes": []int64{1, 2},
	})

	s.RemoveKeywordOffset(4)

	kw, ok := s.Keyword(4)
	require.True(t, ok)
	assert.Nil(t, kw["offsetX"])
	assert.Nil(t, kw["offsetY"])
	assert.Equal(t, false, kw["isSelected"])
	assert.Equal(t, "forest", kw["keyword"], "the keyword itself stays")
}

func TestThreadIndexes(t *testing.T) {
	s := NewStore()
	s.UpsertThread(Entity{"id": int64(1), "boardId": int64(5), "value": "root"})
	s.UpsertThread(Entity{"id": int64(2), "boardId": int64(5), "parentId": int64(1), "value": "reply"})
	s.UpsertThread(Entity{"id": int64(3), "boardId": int64(5), "parentId": int64(1), "value": "reply 2"})

	assert.Equal(t, []int64{2, 3}, s.Children(1))

	s.DeleteThreads([]int64{1, 2, 3})
	assert.Empty(t, s.Children(1))
	_, ok := s.Thread(2)
	assert.False(t, ok)
}

func TestDeleteBoardDropsScopedEntities(t *testing.T) {
	s := NewStore()
	s.UpsertBoard(Entity{"id": int64(5), "name": "draft 1"})
	s.UpsertImage(Entity{"id": int64(1), "boardId": int64(5)})
	s.UpsertKeyword(Entity{"id": int64(2), "boardId": int64(5)})
	s.UpsertThread(Entity{"id": int64(3), "boardId": int64(5), "value": "note"})

	s.DeleteBoard(5)

	_, ok := s.Board(5)
	assert.False(t, ok)
	_, ok = s.Image(1)
	assert.False(t, ok)
	_, ok = s.Keyword(2)
	assert.False(t, ok)
	_, ok = s.Thread(3)
	assert.False(t, ok)
}

func TestMergeForUnknownEntityCreatesIt(t *testing.T) {
	s := NewStore()

	// a broadcast can outrun the hydrating GET
	s.MergeKeyword(11, map[string]interface{}{"isSelected": true})

	kw, ok := s.Keyword(11)
	require.True(t, ok)
	assert.EqualValues(t, 11, kw.ID())
	assert.Equal(t, true, kw["isSelected"])
}
