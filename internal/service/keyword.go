package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"moodboard-backend/internal/model"
)

// KeywordService keyword placement, selection and voting
type KeywordService struct {
	db *gorm.DB
}

// NewKeywordService creates a KeywordService
func NewKeywordService(db *gorm.DB) *KeywordService {
	return &KeywordService{db: db}
}

// validateOffsets enforces the pairing rule: a keyword is either unplaced
// (both offsets nil) or placed (both set). Mixed pairs are rejected.
func validateOffsets(x, y *float64) error {
	if (x == nil) != (y == nil) {
		return fmt.Errorf("%w: offsetX and offsetY must be set together", ErrValidation)
	}
	return nil
}

// CreateKeyword inserts a keyword. imageID nil makes it a board-level note.
func (s *KeywordService) CreateKeyword(boardID int64, imageID *int64, keywordType, text, author string, isCustom bool, offsetX, offsetY *float64) (*model.Keyword, error) {
	if !model.ValidKeywordType(keywordType) {
		return nil, fmt.Errorf("%w: unknown keyword type %q", ErrValidation, keywordType)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: keyword text is required", ErrValidation)
	}
	if err := validateOffsets(offsetX, offsetY); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.Model(&model.Board{}).Where("id = ?", boardID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	kw := &model.Keyword{
		BoardID:  boardID,
		ImageID:  imageID,
		Type:     keywordType,
		Keyword:  text,
		Author:   author,
		IsCustom: isCustom,
		OffsetX:  offsetX,
		OffsetY:  offsetY,
	}
	if err := s.db.Create(kw).Error; err != nil {
		return nil, err
	}
	return kw, nil
}

// GetKeyword loads a keyword with its votes.
func (s *KeywordService) GetKeyword(keywordID int64) (*model.Keyword, error) {
	var kw model.Keyword
	err := s.db.Preload("Votes").First(&kw, keywordID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &kw, nil
}

// UpdateOffset places or unplaces a keyword on the canvas.
func (s *KeywordService) UpdateOffset(keywordID int64, offsetX, offsetY *float64) (*model.Keyword, error) {
	if err := validateOffsets(offsetX, offsetY); err != nil {
		return nil, err
	}

	res := s.db.Model(&model.Keyword{}).Where("id = ?", keywordID).Updates(map[string]interface{}{
		"offset_x": offsetX,
		"offset_y": offsetY,
	})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetKeyword(keywordID)
}

// UpdateSelected flips whether a keyword feeds prompt generation.
func (s *KeywordService) UpdateSelected(keywordID int64, selected bool) (*model.Keyword, error) {
	res := s.db.Model(&model.Keyword{}).Where("id = ?", keywordID).Update("is_selected", selected)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetKeyword(keywordID)
}

// RemoveFromBoard takes a keyword off the canvas without deleting it:
// offsets unset, deselected, votes cleared.
func (s *KeywordService) RemoveFromBoard(keywordID int64) (*model.Keyword, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Keyword{}).Where("id = ?", keywordID).Updates(map[string]interface{}{
			"offset_x":    nil,
			"offset_y":    nil,
			"is_selected": false,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("keyword_id = ?", keywordID).Delete(&model.KeywordVote{}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetKeyword(keywordID)
}

// VoteCounts the canonical voter lists broadcast after a vote mutation
type VoteCounts struct {
	KeywordID int64   `json:"keywordId"`
	Votes     []int64 `json:"votes"`
	Downvotes []int64 `json:"downvotes"`
}

// Vote applies one user's vote action. An upvote and a downvote by the
// same user can never coexist: the (keyword_id, user_id) row is unique and
// switching direction rewrites it in place.
func (s *KeywordService) Vote(keywordID, userID int64, action model.VoteAction) (*VoteCounts, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Keyword{}).Where("id = ?", keywordID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}

		switch action {
		case model.VoteActionUpvote, model.VoteActionDownvote:
			vote := &model.KeywordVote{
				KeywordID:  keywordID,
				UserID:     userID,
				IsDownvote: action == model.VoteActionDownvote,
			}
			return tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "keyword_id"}, {Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"is_downvote"}),
			}).Create(vote).Error
		case model.VoteActionRemove:
			return tx.Where("keyword_id = ? AND user_id = ?", keywordID, userID).Delete(&model.KeywordVote{}).Error
		default:
			return fmt.Errorf("%w: unknown vote action %q", ErrValidation, action)
		}
	})
	if err != nil {
		return nil, err
	}
	return s.voteCounts(keywordID)
}

func (s *KeywordService) voteCounts(keywordID int64) (*VoteCounts, error) {
	counts := &VoteCounts{KeywordID: keywordID, Votes: []int64{}, Downvotes: []int64{}}

	var votes []model.KeywordVote
	if err := s.db.Where("keyword_id = ?", keywordID).Order("id ASC").Find(&votes).Error; err != nil {
		return nil, err
	}
	for _, v := range votes {
		if v.IsDownvote {
			counts.Downvotes = append(counts.Downvotes, v.UserID)
		} else {
			counts.Votes = append(counts.Votes, v.UserID)
		}
	}
	return counts, nil
}

// ClearVotes wipes every vote on a board and returns the affected
// keyword ids so the broadcast can name them.
func (s *KeywordService) ClearVotes(boardID int64) ([]int64, error) {
	var keywordIDs []int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Keyword{}).Where("board_id = ?", boardID).Order("id ASC").Pluck("id", &keywordIDs).Error; err != nil {
			return err
		}
		if len(keywordIDs) == 0 {
			return nil
		}
		return tx.Where("keyword_id IN ?", keywordIDs).Delete(&model.KeywordVote{}).Error
	})
	if err != nil {
		return nil, err
	}
	if keywordIDs == nil {
		keywordIDs = []int64{}
	}
	return keywordIDs, nil
}

// KeywordCascade ids removed alongside a keyword, included in the
// delete broadcast
type KeywordCascade struct {
	KeywordID int64   `json:"id"`
	ThreadIDs []int64 `json:"threadIds"`
}

// DeleteKeyword removes a keyword, its votes and any threads anchored
// to it in one transaction, and reports the thread ids it took down.
// Replies inherit their parent's anchor, so the anchor match covers the
// whole subtree.
func (s *KeywordService) DeleteKeyword(keywordID int64) (*KeywordCascade, error) {
	cascade := &KeywordCascade{KeywordID: keywordID, ThreadIDs: []int64{}}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Keyword{}).Where("id = ?", keywordID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}

		if err := tx.Model(&model.Thread{}).Where("keyword_id = ?", keywordID).Order("id ASC").Pluck("id", &cascade.ThreadIDs).Error; err != nil {
			return err
		}

		if err := tx.Where("keyword_id = ?", keywordID).Delete(&model.KeywordVote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("keyword_id = ?", keywordID).Delete(&model.Thread{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Keyword{}, keywordID).Error
	})
	if err != nil {
		return nil, err
	}
	return cascade, nil
}

// SelectedKeywords lists a board's currently selected keywords with votes,
// the input to prompt generation.
func (s *KeywordService) SelectedKeywords(boardID int64) ([]model.Keyword, error) {
	var keywords []model.Keyword
	err := s.db.
		Preload("Votes").
		Where("board_id = ? AND is_selected = ?", boardID, true).
		Order("id ASC").
		Find(&keywords).Error
	if err != nil {
		return nil, err
	}
	return keywords, nil
}
