package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodboard-backend/internal/model"
)

func TestThreadSubtreeDeletion(t *testing.T) {
	db := newTestDB(t)
	_, board := seedRoomAndBoard(t, db)
	threads := NewThreadService(db)

	root, err := threads.CreateThread(ThreadDraft{BoardID: board.ID, UserID: 1, Username: "mina", Value: "palette feels off", PositionX: ptr(10.0), PositionY: ptr(20.0)})
	require.NoError(t, err)
	replyA, err := threads.CreateThread(ThreadDraft{ParentID: &root.ID, UserID: 2, Username: "joon", Value: "try warmer tones"})
	require.NoError(t, err)
	replyB, err := threads.CreateThread(ThreadDraft{ParentID: &root.ID, UserID: 3, Username: "dana", Value: "or desaturate"})
	require.NoError(t, err)
	nested, err := threads.CreateThread(ThreadDraft{ParentID: &replyA.ID, UserID: 1, Username: "mina", Value: "warmer worked"})
	require.NoError(t, err)

	sibling, err := threads.CreateThread(ThreadDraft{BoardID: board.ID, UserID: 2, Username: "joon", Value: "separate note", PositionX: ptr(1.0), PositionY: ptr(2.0)})
	require.NoError(t, err)

	deleted, err := threads.DeleteThread(root.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{root.ID, replyA.ID, replyB.ID, nested.ID}, deleted)
	assert.Equal(t, root.ID, deleted[0])

	var remaining []model.Thread
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, sibling.ID, remaining[0].ID)
}

func TestReplyInheritsAnchorAndDropsPosition(t *testing.T) {
	db := newTestDB(t)
	_, board := seedRoomAndBoard(t, db)
	images := NewImageService(db)
	threads := NewThreadService(db)

	img, err := images.CreateImage(board.ID, "https://cdn.test/a.png", "a.png", 0, 0, 100, 100, nil)
	require.NoError(t, err)

	root, err := threads.CreateThread(ThreadDraft{BoardID: board.ID, ImageID: &img.ID, UserID: 1, Username: "mina", Value: "crop tighter?"})
	require.NoError(t, err)

	reply, err := threads.CreateThread(ThreadDraft{ParentID: &root.ID, UserID: 2, Username: "joon", Value: "yes", PositionX: ptr(99.0), PositionY: ptr(99.0)})
	require.NoError(t, err)

	assert.Equal(t, board.ID, reply.BoardID)
	require.NotNil(t, reply.ImageID)
	assert.Equal(t, img.ID, *reply.ImageID)
	assert.Nil(t, reply.PositionX, "replies never carry a canvas position")
	assert.Nil(t, reply.PositionY)
}

func TestResolveHidesSubtreeButKeepsRows(t *testing.T) {
	db := newTestDB(t)
	_, board := seedRoomAndBoard(t, db)
	threads := NewThreadService(db)

	root, err := threads.CreateThread(ThreadDraft{BoardID: board.ID, UserID: 1, Username: "mina", Value: "done?", PositionX: ptr(0.0), PositionY: ptr(0.0)})
	require.NoError(t, err)
	reply, err := threads.CreateThread(ThreadDraft{ParentID: &root.ID, UserID: 2, Username: "joon", Value: "done"})
	require.NoError(t, err)

	open, err := threads.CreateThread(ThreadDraft{BoardID: board.ID, UserID: 3, Username: "dana", Value: "still open", PositionX: ptr(5.0), PositionY: ptr(5.0)})
	require.NoError(t, err)

	_, err = threads.UpdateThread(root.ID, map[string]interface{}{"isResolved": true})
	require.NoError(t, err)

	visible, err := threads.BoardThreads(board.ID, false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, open.ID, visible[0].ID)

	all, err := threads.BoardThreads(board.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// replying to a resolved thread stays allowed
	late, err := threads.CreateThread(ThreadDraft{ParentID: &root.ID, UserID: 3, Username: "dana", Value: "one more thing"})
	require.NoError(t, err)
	assert.Equal(t, reply.BoardID, late.BoardID)
}

func TestUpdateThreadPartialMerge(t *testing.T) {
	db := newTestDB(t)
	_, board := seedRoomAndBoard(t, db)
	threads := NewThreadService(db)

	root, err := threads.CreateThread(ThreadDraft{BoardID: board.ID, UserID: 1, Username: "mina", Value: "first pass", PositionX: ptr(10.0), PositionY: ptr(20.0)})
	require.NoError(t, err)

	updated, err := threads.UpdateThread(root.ID, map[string]interface{}{"value": "second pass"})
	require.NoError(t, err)
	assert.Equal(t, "second pass", updated.Value)
	require.NotNil(t, updated.PositionX)
	assert.Equal(t, 10.0, *updated.PositionX, "position untouched by a value-only change")

	_, err = threads.UpdateThread(root.ID, map[string]interface{}{"positionX": 50.0})
	assert.ErrorIs(t, err, ErrValidation, "half a position pair is rejected")

	_, err = threads.UpdateThread(root.ID, map[string]interface{}{"username": "other"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateThreadRejectsDoubleAnchor(t *testing.T) {
	db := newTestDB(t)
	_, board := seedRoomAndBoard(t, db)
	images := NewImageService(db)
	keywords := NewKeywordService(db)
	threads := NewThreadService(db)

	img, err := images.CreateImage(board.ID, "https://cdn.test/a.png", "a.png", 0, 0, 10, 10, nil)
	require.NoError(t, err)
	kw, err := keywords.CreateKeyword(board.ID, nil, model.KeywordTypeThemeMood.String(), "calm", "mina", false, nil, nil)
	require.NoError(t, err)

	_, err = threads.CreateThread(ThreadDraft{BoardID: board.ID, ImageID: &img.ID, KeywordID: &kw.ID, UserID: 1, Username: "mina", Value: "both?"})
	assert.ErrorIs(t, err, ErrValidation)
}
