package service

import (
	"errors"
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"

	"moodboard-backend/internal/model"
)

// join codes avoid 0/O/1/I so they survive being read aloud
const (
	joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	joinCodeLength   = 6
	joinCodeRetries  = 5
)

// RoomService room lifecycle and design brief logic
type RoomService struct {
	db *gorm.DB
}

// NewRoomService creates a RoomService
func NewRoomService(db *gorm.DB) *RoomService {
	return &RoomService{db: db}
}

// GenerateJoinCode returns a fresh 6-char uppercase code.
func GenerateJoinCode() (string, error) {
	return gonanoid.Generate(joinCodeAlphabet, joinCodeLength)
}

// CreateRoom creates a room together with its initial blank board.
// Join code collisions are retried a few times before giving up.
func (s *RoomService) CreateRoom(name string) (*model.Room, *model.Board, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, fmt.Errorf("%w: room name is required", ErrValidation)
	}

	var room *model.Room
	var board *model.Board

	for attempt := 0; attempt < joinCodeRetries; attempt++ {
		code, err := GenerateJoinCode()
		if err != nil {
			return nil, nil, err
		}

		room = &model.Room{Name: name, JoinCode: code}
		board = &model.Board{Name: "draft 1"}

		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(room).Error; err != nil {
				return err
			}
			board.RoomID = room.ID
			return tx.Create(board).Error
		})
		if err == nil {
			return room, board, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil, err
		}
	}

	return nil, nil, fmt.Errorf("%w: could not allocate a join code", ErrDuplicate)
}

// GetRoom loads a room with its boards ordered by id.
func (s *RoomService) GetRoom(roomID int64) (*model.Room, error) {
	var room model.Room
	err := s.db.
		Preload("Boards", func(db *gorm.DB) *gorm.DB { return db.Order("boards.id ASC") }).
		First(&room, roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// GetRoomByJoinCode resolves a join code to a populated room.
func (s *RoomService) GetRoomByJoinCode(code string) (*model.Room, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != joinCodeLength {
		return nil, fmt.Errorf("%w: malformed join code", ErrValidation)
	}

	var room model.Room
	err := s.db.
		Preload("Boards", func(db *gorm.DB) *gorm.DB { return db.Order("boards.id ASC") }).
		Where("join_code = ?", code).
		First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// UpdateRoomName renames a room and returns the stored name.
func (s *RoomService) UpdateRoomName(roomID int64, name string) (*model.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: room name is required", ErrValidation)
	}

	res := s.db.Model(&model.Room{}).Where("id = ?", roomID).Update("name", name)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetRoom(roomID)
}

// UpdateDesignBrief persists one brief field. Intermediate keystrokes are
// broadcast-only and never reach this method.
func (s *RoomService) UpdateDesignBrief(roomID int64, field, value string) (*model.Room, error) {
	if !model.ValidBriefField(field) {
		return nil, fmt.Errorf("%w: unknown brief field %q", ErrValidation, field)
	}

	column := "brief_" + field
	res := s.db.Model(&model.Room{}).Where("id = ?", roomID).Update(column, value)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetRoom(roomID)
}
