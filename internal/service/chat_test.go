package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRecentMessagesChronological(t *testing.T) {
	db := newTestDB(t)
	room, board := seedRoomAndBoard(t, db)
	chat := NewChatService(db)

	for i := 1; i <= 5; i++ {
		_, err := chat.AppendMessage(room.ID, 1, "mina", fmt.Sprintf("message %d", i), nil)
		require.NoError(t, err)
	}
	_, err := chat.AppendMessage(room.ID, 2, "joon", "board note", &board.ID)
	require.NoError(t, err)

	messages, err := chat.RecentMessages(room.ID, 3)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "message 4", messages[0].Text)
	assert.Equal(t, "message 5", messages[1].Text)
	assert.Equal(t, "board note", messages[2].Text)
	assert.Equal(t, board.ID, *messages[2].BoardID)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	db := newTestDB(t)
	room, _ := seedRoomAndBoard(t, db)
	chat := NewChatService(db)

	_, err := chat.AppendMessage(room.ID, 1, "mina", "   ", nil)
	assert.ErrorIs(t, err, ErrValidation)
}
