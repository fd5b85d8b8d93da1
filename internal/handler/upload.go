package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"moodboard-backend/internal/ai"
	"moodboard-backend/internal/config"
	"moodboard-backend/internal/presence"
	"moodboard-backend/internal/relay"
	"moodboard-backend/internal/service"
	"moodboard-backend/internal/storage"
)

// UploadHandler the image ingestion pipeline: one full image plus nine
// tiled segments arrive as multipart parts. Tiles are captioned, captions
// distilled into keywords, the full image stored in S3, and the resulting
// entity broadcast to the uploader's room.
type UploadHandler struct {
	images   *service.ImageService
	storage  *storage.S3Storage
	caption  *ai.Captioner
	llm      *ai.LLM
	hub      *relay.Hub
	tracker  *presence.Tracker
	expected int
}

// NewUploadHandler creates an UploadHandler
func NewUploadHandler(images *service.ImageService, s3 *storage.S3Storage, caption *ai.Captioner, llm *ai.LLM, hub *relay.Hub, tracker *presence.Tracker, cfg config.UploadConfig) *UploadHandler {
	return &UploadHandler{
		images:   images,
		storage:  s3,
		caption:  caption,
		llm:      llm,
		hub:      hub,
		tracker:  tracker,
		expected: cfg.ExpectedImageCount,
	}
}

func formFloat(c *fiber.Ctx, key string, fallback float64) float64 {
	if v := c.FormValue(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Upload POST /api/upload
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	socketID := c.Get("Socket-Id")
	boardID, err := strconv.ParseInt(c.Get("Board-Id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing or invalid Board-Id header"})
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "expected multipart form"})
	}

	files := form.File["images"]
	if len(files) != h.expected {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "expected " + strconv.Itoa(h.expected) + " image parts (full image first, then tiles)",
		})
	}

	// part 0 is the full image; the rest are tiles for captioning
	fullImage, err := readPart(files[0])
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unreadable image part"})
	}
	tiles := make([][]byte, 0, len(files)-1)
	for _, fh := range files[1:] {
		tile, err := readPart(fh)
		if err != nil {
			continue // a broken tile costs its captions, nothing more
		}
		tiles = append(tiles, tile)
	}

	ctx := c.Context()
	drafts := h.extractKeywords(ctx, tiles)

	contentType := files[0].Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	key := storage.ObjectKey(boardID, files[0].Filename)
	url, err := h.storage.Upload(ctx, key, bytes.NewReader(fullImage), contentType)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store image"})
	}

	image, err := h.images.CreateImage(
		boardID,
		url,
		files[0].Filename,
		formFloat(c, "x", 0),
		formFloat(c, "y", 0),
		formFloat(c, "width", 400),
		formFloat(c, "height", 300),
		drafts,
	)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "board not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create image"})
	}

	// the uploader gets the entity here; the rest of the room by broadcast
	if roomID, ok := h.tracker.Room(socketID); ok {
		h.hub.Broadcast(roomID, socketID, relay.EventNewImage, image)
	}

	return c.Status(fiber.StatusCreated).JSON(image)
}

// extractKeywords captions the tiles and distills keywords. Both stages
// tolerate failure: an upload never dies because the AI side is down.
func (h *UploadHandler) extractKeywords(ctx context.Context, tiles [][]byte) []service.KeywordDraft {
	if h.caption == nil || h.llm == nil || !h.llm.Enabled() {
		return nil
	}

	captions := h.caption.CaptionAll(ctx, tiles)
	if len(captions) == 0 {
		return nil
	}

	extracted, err := h.llm.ExtractKeywords(ctx, captions)
	if err != nil {
		log.Printf("[Upload] keyword extraction failed: %v", err)
		return nil
	}

	drafts := make([]service.KeywordDraft, 0, len(extracted))
	for _, kw := range extracted {
		drafts = append(drafts, service.KeywordDraft{Type: kw.Type, Keyword: kw.Keyword})
	}
	return drafts
}
