package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"moodboard-backend/internal/model"
)

// BoardService board lifecycle: CRUD, cloning, voting mode, iterations
type BoardService struct {
	db *gorm.DB
}

// NewBoardService creates a BoardService
func NewBoardService(db *gorm.DB) *BoardService {
	return &BoardService{db: db}
}

// boardColumns wire field -> column whitelist for partial updates
var boardColumns = map[string]string{
	"name":      "name",
	"isStarred": "is_starred",
}

// CreateBoard adds an empty board to a room.
func (s *BoardService) CreateBoard(roomID int64, name string) (*model.Board, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: board name is required", ErrValidation)
	}

	var count int64
	if err := s.db.Model(&model.Room{}).Where("id = ?", roomID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	board := &model.Board{RoomID: roomID, Name: name}
	if err := s.db.Create(board).Error; err != nil {
		return nil, err
	}
	return board, nil
}

// GetBoard loads a bare board row.
func (s *BoardService) GetBoard(boardID int64) (*model.Board, error) {
	var board model.Board
	err := s.db.First(&board, boardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &board, nil
}

// GetBoardPopulated loads a board with images (and their keywords and
// votes), board-level keywords, threads and iterations, all ordered by id.
func (s *BoardService) GetBoardPopulated(boardID int64) (*model.Board, error) {
	byID := func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }

	var board model.Board
	err := s.db.
		Preload("Images", byID).
		Preload("Images.Keywords", byID).
		Preload("Images.Keywords.Votes").
		Preload("Images.Feedback", byID).
		Preload("Keywords", byID).
		Preload("Keywords.Votes").
		Preload("Threads", byID).
		Preload("Iterations", byID).
		First(&board, boardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &board, nil
}

// UpdateBoard applies a partial-field change set. Unknown fields are
// rejected rather than dropped so a client typo cannot silently no-op.
func (s *BoardService) UpdateBoard(boardID int64, changes map[string]interface{}) (*model.Board, error) {
	if len(changes) == 0 {
		return nil, fmt.Errorf("%w: empty change set", ErrValidation)
	}

	updates := map[string]interface{}{}
	for field, value := range changes {
		column, ok := boardColumns[field]
		if !ok {
			return nil, fmt.Errorf("%w: board has no updatable field %q", ErrValidation, field)
		}
		updates[column] = value
	}

	res := s.db.Model(&model.Board{}).Where("id = ?", boardID).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetBoard(boardID)
}

// ToggleVoting flips voting mode and returns the new state.
func (s *BoardService) ToggleVoting(boardID int64) (*model.Board, error) {
	board, err := s.GetBoard(boardID)
	if err != nil {
		return nil, err
	}

	board.IsVoting = !board.IsVoting
	if err := s.db.Model(board).Update("is_voting", board.IsVoting).Error; err != nil {
		return nil, err
	}
	return board, nil
}

// BoardCascade ids removed alongside a board, included in the delete broadcast
type BoardCascade struct {
	BoardID    int64   `json:"boardId"`
	ImageIDs   []int64 `json:"imageIds"`
	KeywordIDs []int64 `json:"keywordIds"`
	ThreadIDs  []int64 `json:"threadIds"`
}

// DeleteBoard removes a board and everything hanging off it in one
// transaction, and reports the ids it took down.
func (s *BoardService) DeleteBoard(boardID int64) (*BoardCascade, error) {
	cascade := &BoardCascade{BoardID: boardID, ImageIDs: []int64{}, KeywordIDs: []int64{}, ThreadIDs: []int64{}}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var board model.Board
		if err := tx.First(&board, boardID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := tx.Model(&model.Image{}).Where("board_id = ?", boardID).Order("id ASC").Pluck("id", &cascade.ImageIDs).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Keyword{}).Where("board_id = ?", boardID).Order("id ASC").Pluck("id", &cascade.KeywordIDs).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Thread{}).Where("board_id = ?", boardID).Order("id ASC").Pluck("id", &cascade.ThreadIDs).Error; err != nil {
			return err
		}

		if len(cascade.KeywordIDs) > 0 {
			if err := tx.Where("keyword_id IN ?", cascade.KeywordIDs).Delete(&model.KeywordVote{}).Error; err != nil {
				return err
			}
		}
		if len(cascade.ImageIDs) > 0 {
			if err := tx.Where("image_id IN ?", cascade.ImageIDs).Delete(&model.ImageFeedback{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("board_id = ?", boardID).Delete(&model.Keyword{}).Error; err != nil {
			return err
		}
		if err := tx.Where("board_id = ?", boardID).Delete(&model.Image{}).Error; err != nil {
			return err
		}
		if err := tx.Where("board_id = ?", boardID).Delete(&model.Thread{}).Error; err != nil {
			return err
		}
		if err := tx.Where("board_id = ?", boardID).Delete(&model.BoardIteration{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Board{}, boardID).Error
	})
	if err != nil {
		return nil, err
	}
	return cascade, nil
}

var versionSuffix = regexp.MustCompile(`^(.*) \(v(\d+)\)$`)

// NextVersionName derives a clone name: strip any trailing " (vN)" from the
// source name, then increment past the highest suffix among existing names
// sharing the same base. The bare base counts as version 1.
func NextVersionName(source string, existing []string) string {
	base := source
	if m := versionSuffix.FindStringSubmatch(source); m != nil {
		base = m[1]
	}

	maxVersion := 0
	for _, name := range existing {
		if name == base {
			if maxVersion < 1 {
				maxVersion = 1
			}
			continue
		}
		m := versionSuffix.FindStringSubmatch(name)
		if m == nil || m[1] != base {
			continue
		}
		if n, err := strconv.Atoi(m[2]); err == nil && n > maxVersion {
			maxVersion = n
		}
	}

	return fmt.Sprintf("%s (v%d)", base, maxVersion+1)
}

// CloneBoard deep-copies a board: board-level keywords, images and each
// image's keywords all get fresh ids. The whole copy is one transaction.
// Votes, threads and iterations do not carry over.
func (s *BoardService) CloneBoard(boardID int64) (*model.Board, error) {
	var clone *model.Board

	err := s.db.Transaction(func(tx *gorm.DB) error {
		source, err := s.boardPopulatedTx(tx, boardID)
		if err != nil {
			return err
		}

		var siblingNames []string
		if err := tx.Model(&model.Board{}).Where("room_id = ?", source.RoomID).Pluck("name", &siblingNames).Error; err != nil {
			return err
		}

		clone = &model.Board{
			RoomID: source.RoomID,
			Name:   NextVersionName(source.Name, siblingNames),
		}
		if err := tx.Create(clone).Error; err != nil {
			return err
		}

		for i := range source.Images {
			src := source.Images[i]
			img := model.Image{
				BoardID:  clone.ID,
				URL:      src.URL,
				Filename: src.Filename,
				X:        src.X,
				Y:        src.Y,
				Width:    src.Width,
				Height:   src.Height,
			}
			if err := tx.Create(&img).Error; err != nil {
				return err
			}
			for j := range src.Keywords {
				kw := copyKeyword(&src.Keywords[j], clone.ID)
				kw.ImageID = &img.ID
				if err := tx.Create(kw).Error; err != nil {
					return err
				}
			}
		}

		for i := range source.Keywords {
			if source.Keywords[i].ImageID != nil {
				continue // copied with its image above
			}
			kw := copyKeyword(&source.Keywords[i], clone.ID)
			if err := tx.Create(kw).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetBoardPopulated(clone.ID)
}

func (s *BoardService) boardPopulatedTx(tx *gorm.DB, boardID int64) (*model.Board, error) {
	byID := func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }

	var board model.Board
	err := tx.
		Preload("Images", byID).
		Preload("Images.Keywords", byID).
		Preload("Keywords", byID).
		First(&board, boardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &board, nil
}

func copyKeyword(src *model.Keyword, boardID int64) *model.Keyword {
	return &model.Keyword{
		BoardID:       boardID,
		Type:          src.Type,
		Keyword:       src.Keyword,
		IsSelected:    src.IsSelected,
		IsCustom:      src.IsCustom,
		OffsetX:       src.OffsetX,
		OffsetY:       src.OffsetY,
		BoundingBoxes: src.BoundingBoxes,
		Author:        src.Author,
	}
}

// KeywordSnapshot the voted state of one keyword at generation time
type KeywordSnapshot struct {
	Keyword string `json:"keyword"`
	Type    string `json:"type"`
	Vote    int    `json:"vote"`
}

// AddIteration records one generation run against a board.
func (s *BoardService) AddIteration(boardID int64, prompts, imageURLs []string, snapshot []KeywordSnapshot) (*model.BoardIteration, error) {
	promptsJSON, err := json.Marshal(prompts)
	if err != nil {
		return nil, err
	}
	urlsJSON, err := json.Marshal(imageURLs)
	if err != nil {
		return nil, err
	}
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}

	iteration := &model.BoardIteration{
		BoardID:         boardID,
		Prompts:         string(promptsJSON),
		GeneratedImages: string(urlsJSON),
		Keywords:        string(snapshotJSON),
	}
	if err := s.db.Create(iteration).Error; err != nil {
		return nil, err
	}
	return iteration, nil
}

// Iterations lists a board's generation history, oldest first.
func (s *BoardService) Iterations(boardID int64) ([]model.BoardIteration, error) {
	var iterations []model.BoardIteration
	err := s.db.Where("board_id = ?", boardID).Order("id ASC").Find(&iterations).Error
	if err != nil {
		return nil, err
	}
	return iterations, nil
}
