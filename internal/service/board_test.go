package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodboard-backend/internal/model"
)

func TestNextVersionName(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		existing []string
		want     string
	}{
		{"first clone", "Draft", []string{"Draft"}, "Draft (v2)"},
		{"increments past max", "Draft", []string{"Draft", "Draft (v2)", "Draft (v3)"}, "Draft (v4)"},
		{"cloning a clone keeps the base", "Draft (v2)", []string{"Draft", "Draft (v2)", "Draft (v3)"}, "Draft (v4)"},
		{"gaps do not matter", "Draft", []string{"Draft", "Draft (v5)"}, "Draft (v6)"},
		{"other bases ignored", "Draft", []string{"Draft", "Final (v9)"}, "Draft (v2)"},
		{"no siblings", "Draft", nil, "Draft (v2)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextVersionName(tt.source, tt.existing))
		})
	}
}

func TestCloneBoardCopiesContentWithFreshIDs(t *testing.T) {
	db := newTestDB(t)
	_, board := seedRoomAndBoard(t, db)

	images := NewImageService(db)
	keywords := NewKeywordService(db)
	boards := NewBoardService(db)

	img, err := images.CreateImage(board.ID, "https://cdn.test/a.png", "a.png", 10, 20, 300, 200, []KeywordDraft{
		{Type: model.KeywordTypeSubjectMatter.String(), Keyword: "lighthouse"},
		{Type: model.KeywordTypeThemeMood.String(), Keyword: "stormy"},
	})
	require.NoError(t, err)

	boardNote, err := keywords.CreateKeyword(board.ID, nil, model.KeywordTypeArrangement.String(), "rule of thirds", "dana", true, ptr(12.5), ptr(40.0))
	require.NoError(t, err)

	clone, err := boards.CloneBoard(board.ID)
	require.NoError(t, err)

	assert.Equal(t, "draft 1 (v2)", clone.Name)
	assert.NotEqual(t, board.ID, clone.ID)
	require.Len(t, clone.Images, 1)
	assert.NotEqual(t, img.ID, clone.Images[0].ID)
	assert.Equal(t, img.URL, clone.Images[0].URL)
	require.Len(t, clone.Images[0].Keywords, 2)
	for _, kw := range clone.Images[0].Keywords {
		assert.Equal(t, clone.Images[0].ID, *kw.ImageID)
		assert.Equal(t, clone.ID, kw.BoardID)
	}

	var cloneNotes []model.Keyword
	require.NoError(t, db.Where("board_id = ? AND image_id IS NULL", clone.ID).Find(&cloneNotes).Error)
	require.Len(t, cloneNotes, 1)
	assert.NotEqual(t, boardNote.ID, cloneNotes[0].ID)
	assert.Equal(t, boardNote.Keyword, cloneNotes[0].Keyword)
	assert.Equal(t, *boardNote.OffsetX, *cloneNotes[0].OffsetX)

	// the source board is untouched
	source, err := boards.GetBoardPopulated(board.ID)
	require.NoError(t, err)
	require.Len(t, source.Images, 1)
	assert.Equal(t, img.ID, source.Images[0].ID)
}

func TestCloneNamingMonotonicity(t *testing.T) {
	db := newTestDB(t)
	_, board := seedRoomAndBoard(t, db)
	boards := NewBoardService(db)

	first, err := boards.CloneBoard(board.ID)
	require.NoError(t, err)
	assert.Equal(t, "draft 1 (v2)", first.Name)

	second, err := boards.CloneBoard(board.ID)
	require.NoError(t, err)
	assert.Equal(t, "draft 1 (v3)", second.Name)

	// cloning a clone continues the same sequence
	third, err := boards.CloneBoard(second.ID)
	require.NoError(t, err)
	assert.Equal(t, "draft 1 (v4)", third.Name)
}

func TestDeleteBoardCascadeCompleteness(t *testing.T) {
	db := newTestDB(t)
	_, board := seedRoomAndBoard(t, db)

	images := NewImageService(db)
	keywords := NewKeywordService(db)
	threads := NewThreadService(db)
	boards := NewBoardService(db)

	img, err := images.CreateImage(board.ID, "https://cdn.test/a.png", "a.png", 0, 0, 100, 100, []KeywordDraft{
		{Type: model.KeywordTypeSubjectMatter.String(), Keyword: "harbor"},
	})
	require.NoError(t, err)
	require.Len(t, img.Keywords, 1)

	_, err = keywords.Vote(img.Keywords[0].ID, 7, model.VoteActionUpvote)
	require.NoError(t, err)

	root, err := threads.CreateThread(ThreadDraft{BoardID: board.ID, UserID: 7, Username: "mina", Value: "too dark?", PositionX: ptr(5.0), PositionY: ptr(6.0)})
	require.NoError(t, err)
	_, err = threads.CreateThread(ThreadDraft{ParentID: &root.ID, UserID: 8, Username: "joon", Value: "agreed"})
	require.NoError(t, err)

	_, err = boards.AddIteration(board.ID, []string{"a harbor at dusk"}, []string{"https://cdn.test/gen.png"}, nil)
	require.NoError(t, err)

	cascade, err := boards.DeleteBoard(board.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{img.ID}, cascade.ImageIDs)
	assert.Len(t, cascade.KeywordIDs, 1)
	assert.Len(t, cascade.ThreadIDs, 2)

	for _, m := range []interface{}{
		&model.Board{}, &model.Image{}, &model.Keyword{},
		&model.KeywordVote{}, &model.Thread{}, &model.BoardIteration{},
	} {
		var count int64
		require.NoError(t, db.Model(m).Count(&count).Error)
		assert.Zerof(t, count, "%T rows left behind", m)
	}

	_, err = boards.GetBoard(board.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateBoardPartialMerge(t *testing.T) {
	db := newTestDB(t)
	_, board := seedRoomAndBoard(t, db)
	boards := NewBoardService(db)

	updated, err := boards.UpdateBoard(board.ID, map[string]interface{}{"isStarred": true})
	require.NoError(t, err)
	assert.True(t, updated.IsStarred)
	assert.Equal(t, "draft 1", updated.Name, "fields absent from the change set keep their values")

	updated, err = boards.UpdateBoard(board.ID, map[string]interface{}{"name": "moody concepts"})
	require.NoError(t, err)
	assert.Equal(t, "moody concepts", updated.Name)
	assert.True(t, updated.IsStarred, "earlier change survives a later disjoint change")

	_, err = boards.UpdateBoard(board.ID, map[string]interface{}{"isVoting": true})
	assert.ErrorIs(t, err, ErrValidation, "voting mode only changes through ToggleVoting")
}

func TestToggleVoting(t *testing.T) {
	db := newTestDB(t)
	_, board := seedRoomAndBoard(t, db)
	boards := NewBoardService(db)

	on, err := boards.ToggleVoting(board.ID)
	require.NoError(t, err)
	assert.True(t, on.IsVoting)

	off, err := boards.ToggleVoting(board.ID)
	require.NoError(t, err)
	assert.False(t, off.IsVoting)
}
