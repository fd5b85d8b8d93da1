package service

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"moodboard-backend/internal/model"
)

// ChatService persists the room chat log
type ChatService struct {
	db *gorm.DB
}

// NewChatService creates a ChatService
func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{db: db}
}

// AppendMessage stores one chat message. boardID is nil for room-wide chat.
func (s *ChatService) AppendMessage(roomID, userID int64, username, text string, boardID *int64) (*model.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty chat message", ErrValidation)
	}

	msg := &model.ChatMessage{
		RoomID:   roomID,
		UserID:   userID,
		Username: username,
		BoardID:  boardID,
		Text:     text,
	}
	if err := s.db.Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

// RecentMessages returns the newest limit messages in chronological order.
func (s *ChatService) RecentMessages(roomID int64, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	var messages []model.ChatMessage
	err := s.db.
		Where("room_id = ?", roomID).
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// reverse into chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
