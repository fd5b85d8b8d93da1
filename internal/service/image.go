package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"moodboard-backend/internal/model"
)

// ImageService image rows plus their dependent keywords and feedback
type ImageService struct {
	db *gorm.DB
}

// NewImageService creates an ImageService
func NewImageService(db *gorm.DB) *ImageService {
	return &ImageService{db: db}
}

// imageColumns wire field -> column whitelist for partial updates
var imageColumns = map[string]string{
	"x":      "x",
	"y":      "y",
	"width":  "width",
	"height": "height",
}

// KeywordDraft an extracted keyword awaiting insertion with its image
type KeywordDraft struct {
	Type          string
	Keyword       string
	BoundingBoxes string
}

// CreateImage inserts an image and its extracted keywords in one
// transaction. An empty draft list is fine: extraction failure still
// produces an image, just without keywords.
func (s *ImageService) CreateImage(boardID int64, url, filename string, x, y, width, height float64, drafts []KeywordDraft) (*model.Image, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: image url is required", ErrValidation)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: image dimensions must be positive", ErrValidation)
	}

	var count int64
	if err := s.db.Model(&model.Board{}).Where("id = ?", boardID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	image := &model.Image{
		BoardID:  boardID,
		URL:      url,
		Filename: filename,
		X:        x,
		Y:        y,
		Width:    width,
		Height:   height,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(image).Error; err != nil {
			return err
		}
		for _, draft := range drafts {
			if !model.ValidKeywordType(draft.Type) {
				return fmt.Errorf("%w: unknown keyword type %q", ErrValidation, draft.Type)
			}
			boxes := draft.BoundingBoxes
			if boxes == "" {
				boxes = "[]"
			}
			kw := &model.Keyword{
				BoardID:       boardID,
				ImageID:       &image.ID,
				Type:          draft.Type,
				Keyword:       draft.Keyword,
				BoundingBoxes: boxes,
			}
			if err := tx.Create(kw).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetImage(image.ID)
}

// GetImage loads an image with its keywords and votes.
func (s *ImageService) GetImage(imageID int64) (*model.Image, error) {
	var image model.Image
	err := s.db.
		Preload("Keywords", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Keywords.Votes").
		First(&image, imageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &image, nil
}

// UpdateImage applies a partial-field change set. The four spatial fields
// may arrive alone or together; whatever is absent keeps its stored value.
func (s *ImageService) UpdateImage(imageID int64, changes map[string]interface{}) (*model.Image, error) {
	if len(changes) == 0 {
		return nil, fmt.Errorf("%w: empty change set", ErrValidation)
	}

	updates := map[string]interface{}{}
	for field, value := range changes {
		column, ok := imageColumns[field]
		if !ok {
			return nil, fmt.Errorf("%w: image has no updatable field %q", ErrValidation, field)
		}
		updates[column] = value
	}

	res := s.db.Model(&model.Image{}).Where("id = ?", imageID).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetImage(imageID)
}

// ImageCascade ids removed alongside an image
type ImageCascade struct {
	ImageID    int64   `json:"imageId"`
	URL        string  `json:"-"`
	KeywordIDs []int64 `json:"keywordIds"`
	ThreadIDs  []int64 `json:"threadIds"`
}

// DeleteImage removes an image with its keywords, their votes, its
// feedback and anchored threads, all in one transaction. The URL comes
// back so the caller can drop the object from storage afterwards.
func (s *ImageService) DeleteImage(imageID int64) (*ImageCascade, error) {
	cascade := &ImageCascade{ImageID: imageID, KeywordIDs: []int64{}, ThreadIDs: []int64{}}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var image model.Image
		if err := tx.First(&image, imageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		cascade.URL = image.URL

		if err := tx.Model(&model.Keyword{}).Where("image_id = ?", imageID).Order("id ASC").Pluck("id", &cascade.KeywordIDs).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Thread{}).Where("image_id = ?", imageID).Order("id ASC").Pluck("id", &cascade.ThreadIDs).Error; err != nil {
			return err
		}
		if len(cascade.KeywordIDs) > 0 {
			var keywordThreadIDs []int64
			if err := tx.Model(&model.Thread{}).Where("keyword_id IN ?", cascade.KeywordIDs).Order("id ASC").Pluck("id", &keywordThreadIDs).Error; err != nil {
				return err
			}
			cascade.ThreadIDs = append(cascade.ThreadIDs, keywordThreadIDs...)
		}

		if len(cascade.KeywordIDs) > 0 {
			if err := tx.Where("keyword_id IN ?", cascade.KeywordIDs).Delete(&model.KeywordVote{}).Error; err != nil {
				return err
			}
			if err := tx.Where("keyword_id IN ?", cascade.KeywordIDs).Delete(&model.Thread{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("image_id = ?", imageID).Delete(&model.ImageFeedback{}).Error; err != nil {
			return err
		}
		if err := tx.Where("image_id = ?", imageID).Delete(&model.Thread{}).Error; err != nil {
			return err
		}
		if err := tx.Where("image_id = ?", imageID).Delete(&model.Keyword{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.Image{}, imageID).Error; err != nil {
			return err
		}

		// cloned boards share the object; only report the URL once the
		// last image row pointing at it is gone
		var shared int64
		if err := tx.Model(&model.Image{}).Where("url = ?", image.URL).Count(&shared).Error; err != nil {
			return err
		}
		if shared > 0 {
			cascade.URL = ""
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cascade, nil
}

// AddFeedback appends a feedback entry to an image.
func (s *ImageService) AddFeedback(imageID, userID int64, username, message string, keywordID *int64) (*model.ImageFeedback, error) {
	if message == "" {
		return nil, fmt.Errorf("%w: feedback message is required", ErrValidation)
	}

	var count int64
	if err := s.db.Model(&model.Image{}).Where("id = ?", imageID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	fb := &model.ImageFeedback{
		ImageID:   imageID,
		UserID:    userID,
		Username:  username,
		KeywordID: keywordID,
		Message:   message,
	}
	if err := s.db.Create(fb).Error; err != nil {
		return nil, err
	}
	return fb, nil
}
