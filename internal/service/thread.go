package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"moodboard-backend/internal/model"
)

// ThreadService threaded comments on boards, images and keywords
type ThreadService struct {
	db *gorm.DB
}

// NewThreadService creates a ThreadService
func NewThreadService(db *gorm.DB) *ThreadService {
	return &ThreadService{db: db}
}

// threadColumns wire field -> column whitelist for partial updates
var threadColumns = map[string]string{
	"value":      "value",
	"isResolved": "is_resolved",
	"positionX":  "position_x",
	"positionY":  "position_y",
}

// ThreadDraft the fields a client supplies when opening a thread
type ThreadDraft struct {
	BoardID   int64
	ImageID   *int64
	KeywordID *int64
	ParentID  *int64
	UserID    int64
	Username  string
	Value     string
	PositionX *float64
	PositionY *float64
}

// CreateThread opens a thread or appends a reply. Replies inherit their
// anchor from the parent and carry no position of their own. Replying to
// a resolved thread is allowed.
func (s *ThreadService) CreateThread(draft ThreadDraft) (*model.Thread, error) {
	if draft.Value == "" {
		return nil, fmt.Errorf("%w: thread value is required", ErrValidation)
	}
	if (draft.PositionX == nil) != (draft.PositionY == nil) {
		return nil, fmt.Errorf("%w: positionX and positionY must be set together", ErrValidation)
	}
	if draft.ImageID != nil && draft.KeywordID != nil {
		return nil, fmt.Errorf("%w: thread anchors to an image or a keyword, not both", ErrValidation)
	}

	thread := &model.Thread{
		BoardID:   draft.BoardID,
		ImageID:   draft.ImageID,
		KeywordID: draft.KeywordID,
		ParentID:  draft.ParentID,
		UserID:    draft.UserID,
		Username:  draft.Username,
		Value:     draft.Value,
		PositionX: draft.PositionX,
		PositionY: draft.PositionY,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if draft.ParentID != nil {
			var parent model.Thread
			if err := tx.First(&parent, *draft.ParentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return err
			}
			thread.BoardID = parent.BoardID
			thread.ImageID = parent.ImageID
			thread.KeywordID = parent.KeywordID
			thread.PositionX = nil
			thread.PositionY = nil
		} else {
			var count int64
			if err := tx.Model(&model.Board{}).Where("id = ?", thread.BoardID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrNotFound
			}
		}
		return tx.Create(thread).Error
	})
	if err != nil {
		return nil, err
	}
	return thread, nil
}

// GetThread loads one thread row.
func (s *ThreadService) GetThread(threadID int64) (*model.Thread, error) {
	var thread model.Thread
	err := s.db.First(&thread, threadID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// Children lists direct replies in creation order.
func (s *ThreadService) Children(threadID int64) ([]model.Thread, error) {
	var children []model.Thread
	err := s.db.Where("parent_id = ?", threadID).Order("id ASC").Find(&children).Error
	if err != nil {
		return nil, err
	}
	return children, nil
}

// UpdateThread applies a partial-field change set: value edits, resolve
// and unresolve, position moves.
func (s *ThreadService) UpdateThread(threadID int64, changes map[string]interface{}) (*model.Thread, error) {
	if len(changes) == 0 {
		return nil, fmt.Errorf("%w: empty change set", ErrValidation)
	}

	_, hasX := changes["positionX"]
	_, hasY := changes["positionY"]
	if hasX != hasY {
		return nil, fmt.Errorf("%w: positionX and positionY must be set together", ErrValidation)
	}

	updates := map[string]interface{}{}
	for field, value := range changes {
		column, ok := threadColumns[field]
		if !ok {
			return nil, fmt.Errorf("%w: thread has no updatable field %q", ErrValidation, field)
		}
		updates[column] = value
	}

	res := s.db.Model(&model.Thread{}).Where("id = ?", threadID).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetThread(threadID)
}

// DeleteThread removes a thread and every transitive reply in one
// transaction. Returns all removed ids, the root first.
func (s *ThreadService) DeleteThread(threadID int64) ([]int64, error) {
	var deleted []int64

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Thread{}).Where("id = ?", threadID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}

		ids, err := collectSubtree(tx, threadID)
		if err != nil {
			return err
		}
		deleted = ids
		return tx.Where("id IN ?", ids).Delete(&model.Thread{}).Error
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// collectSubtree walks replies depth-first from root.
func collectSubtree(tx *gorm.DB, root int64) ([]int64, error) {
	ids := []int64{root}
	frontier := []int64{root}

	for len(frontier) > 0 {
		next := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]

		var childIDs []int64
		if err := tx.Model(&model.Thread{}).Where("parent_id = ?", next).Order("id ASC").Pluck("id", &childIDs).Error; err != nil {
			return nil, err
		}
		ids = append(ids, childIDs...)
		frontier = append(frontier, childIDs...)
	}
	return ids, nil
}

// BoardThreads lists a board's threads. Resolved subtrees are filtered out
// of the default view but stay in storage; pass includeResolved to see them.
func (s *ThreadService) BoardThreads(boardID int64, includeResolved bool) ([]model.Thread, error) {
	var threads []model.Thread
	err := s.db.Where("board_id = ?", boardID).Order("id ASC").Find(&threads).Error
	if err != nil {
		return nil, err
	}
	if includeResolved {
		return threads, nil
	}

	// hide resolved roots along with every reply under them
	hidden := map[int64]bool{}
	for _, t := range threads {
		if t.IsResolved && t.ParentID == nil {
			hidden[t.ID] = true
		}
	}
	for changed := true; changed; {
		changed = false
		for _, t := range threads {
			if t.ParentID != nil && hidden[*t.ParentID] && !hidden[t.ID] {
				hidden[t.ID] = true
				changed = true
			}
		}
	}

	visible := make([]model.Thread, 0, len(threads))
	for _, t := range threads {
		if !hidden[t.ID] {
			visible = append(visible, t)
		}
	}
	return visible, nil
}
