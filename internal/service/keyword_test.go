package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodboard-backend/internal/model"
)

func TestVoteMutualExclusion(t *testing.T) {
	db := newTestDB(t)
	_, board := seedRoomAndBoard(t, db)
	keywords := NewKeywordService(db)

	kw, err := keywords.CreateKeyword(board.ID, nil, model.KeywordTypeThemeMood.String(), "serene", "mina", false, nil, nil)
	require.NoError(t, err)

	counts, err := keywords.Vote(kw.ID, 7, model.VoteActionUpvote)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, counts.Votes)
	assert.Empty(t, counts.Downvotes)

	// switching direction moves the user, never duplicates them
	counts, err = keywords.Vote(kw.ID, 7, model.VoteActionDownvote)
	require.NoError(t, err)
	assert.Empty(t, counts.Votes)
	assert.Equal(t, []int64{7}, counts.Downvotes)

	counts, err = keywords.Vote(kw.ID, 7, model.VoteActionUpvote)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, counts.Votes)
	assert.Empty(t, counts.Downvotes)

	// a second voter is independent
	counts, err = keywords.Vote(kw.ID, 9, model.VoteActionDownvote)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, counts.Votes)
	assert.Equal(t, []int64{9}, counts.Downvotes)

	counts, err = keywords.Vote(kw.ID, 7, model.VoteActionRemove)
	require.NoError(t, err)
	assert.Empty(t, counts.Votes)
	assert.Equal(t, []int64{9}, counts.Downvotes)

	var rows int64
	require.NoError(t, db.Model(&model.KeywordVote{}).Where("keyword_id = ?", kw.ID).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
}

func TestVoteRepeatedSameDirectionStaysSingle(t *testing.T) {
	db := newTestDB(t)
	_, board := seedRoomAndBoard(t, db)
	keywords := NewKeywordService(db)

	kw, err := keywords.CreateKeyword(board.ID, nil, model.KeywordTypeActionPose.String(), "leaping", "joon", false, nil, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		counts, err := keywords.Vote(kw.ID, 4, model.VoteActionUpvote)
		require.NoError(t, err)
		assert.Equal(t, []int64{4}, counts.Votes)
	}
}

func TestOffsetPresenceInvariant(t *testing.T) {
	db := newTestDB(t)
	_, board := seedRoomAndBoard(t, db)
	keywords := NewKeywordService(db)

	_, err := keywords.CreateKeyword(board.ID, nil, model.KeywordTypeThemeMood.String(), "warm", "mina", false, ptr(10.0), nil)
	assert.ErrorIs(t, err, ErrValidation)

	kw, err := keywords.CreateKeyword(board.ID, nil, model.KeywordTypeThemeMood.String(), "warm", "mina", false, nil, nil)
	require.NoError(t, err)

	_, err = keywords.UpdateOffset(kw.ID, nil, ptr(3.0))
	assert.ErrorIs(t, err, ErrValidation)

	placed, err := keywords.UpdateOffset(kw.ID, ptr(120.0), ptr(64.5))
	require.NoError(t, err)
	require.NotNil(t, placed.OffsetX)
	require.NotNil(t, placed.OffsetY)

	unplaced, err := keywords.UpdateOffset(kw.ID, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, unplaced.OffsetX)
	assert.Nil(t, unplaced.OffsetY)
}

func TestRemoveFromBoardKeepsKeyword(t *testing.T) {
	db := newTestDB(t)
	_, board := seedRoomAndBoard(t, db)
	keywords := NewKeywordService(db)

	kw, err := keywords.CreateKeyword(board.ID, nil, model.KeywordTypeSubjectMatter.String(), "forest", "dana", false, ptr(40.0), ptr(80.0))
	require.NoError(t, err)
	_, err = keywords.UpdateSelected(kw.ID, true)
	require.NoError(t, err)
	_, err = keywords.Vote(kw.ID, 3, model.VoteActionUpvote)
	require.NoError(t, err)

	removed, err := keywords.RemoveFromBoard(kw.ID)
	require.NoError(t, err)
	assert.Nil(t, removed.OffsetX)
	assert.Nil(t, removed.OffsetY)
	assert.False(t, removed.IsSelected)
	assert.Empty(t, removed.Votes)

	// the row itself survives
	again, err := keywords.GetKeyword(kw.ID)
	require.NoError(t, err)
	assert.Equal(t, "forest", again.Keyword)
}

func TestClearVotesBoardWide(t *testing.T) {
	db := newTestDB(t)
	_, board := seedRoomAndBoard(t, db)
	keywords := NewKeywordService(db)

	first, err := keywords.CreateKeyword(board.ID, nil, model.KeywordTypeThemeMood.String(), "minimal", "mina", false, nil, nil)
	require.NoError(t, err)
	second, err := keywords.CreateKeyword(board.ID, nil, model.KeywordTypeThemeMood.String(), "bold", "joon", false, nil, nil)
	require.NoError(t, err)

	_, err = keywords.Vote(first.ID, 1, model.VoteActionUpvote)
	require.NoError(t, err)
	_, err = keywords.Vote(second.ID, 2, model.VoteActionDownvote)
	require.NoError(t, err)

	ids, err := keywords.ClearVotes(board.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{first.ID, second.ID}, ids)

	var rows int64
	require.NoError(t, db.Model(&model.KeywordVote{}).Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestDeleteKeywordCascade(t *testing.T) {
	db := newTestDB(t)
	_, board := seedRoomAndBoard(t, db)
	keywords := NewKeywordService(db)
	threads := NewThreadService(db)

	kw, err := keywords.CreateKeyword(board.ID, nil, model.KeywordTypeArrangement.String(), "diagonal flow", "dana", true, nil, nil)
	require.NoError(t, err)
	_, err = keywords.Vote(kw.ID, 5, model.VoteActionUpvote)
	require.NoError(t, err)
	th, err := threads.CreateThread(ThreadDraft{BoardID: board.ID, KeywordID: &kw.ID, UserID: 5, Username: "mina", Value: "works for me"})
	require.NoError(t, err)
	reply, err := threads.CreateThread(ThreadDraft{BoardID: board.ID, ParentID: &th.ID, UserID: 6, Username: "joon", Value: "same"})
	require.NoError(t, err)

	cascade, err := keywords.DeleteKeyword(kw.ID)
	require.NoError(t, err)
	assert.Equal(t, kw.ID, cascade.KeywordID)
	assert.ElementsMatch(t, []int64{th.ID, reply.ID}, cascade.ThreadIDs)

	_, err = keywords.GetKeyword(kw.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var votes, anchored int64
	require.NoError(t, db.Model(&model.KeywordVote{}).Count(&votes).Error)
	require.NoError(t, db.Model(&model.Thread{}).Where("keyword_id = ?", kw.ID).Count(&anchored).Error)
	assert.Zero(t, votes)
	assert.Zero(t, anchored)
}

func TestCreateKeywordRejectsUnknownType(t *testing.T) {
	db := newTestDB(t)
	_, board := seedRoomAndBoard(t, db)
	keywords := NewKeywordService(db)

	_, err := keywords.CreateKeyword(board.ID, nil, "Vibes", "moody", "mina", false, nil, nil)
	assert.ErrorIs(t, err, ErrValidation)
}
