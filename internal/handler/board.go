package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"moodboard-backend/internal/ai"
	"moodboard-backend/internal/service"
)

// BoardHandler board HTTP endpoints
type BoardHandler struct {
	boards   *service.BoardService
	threads  *service.ThreadService
	keywords *service.KeywordService
	llm      *ai.LLM
}

// NewBoardHandler creates a BoardHandler
func NewBoardHandler(boards *service.BoardService, threads *service.ThreadService, keywords *service.KeywordService, llm *ai.LLM) *BoardHandler {
	return &BoardHandler{boards: boards, threads: threads, keywords: keywords, llm: llm}
}

// Get GET /api/boards/:id returns the populated view a client hydrates from.
func (h *BoardHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid board id"})
	}

	board, err := h.boards.GetBoardPopulated(int64(id))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "board not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load board"})
	}

	includeResolved := c.QueryBool("resolved", false)
	visible, err := h.threads.BoardThreads(board.ID, includeResolved)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load threads"})
	}
	board.Threads = visible

	return c.JSON(board)
}

// Iterations GET /api/boards/:id/iterations
func (h *BoardHandler) Iterations(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid board id"})
	}

	iterations, err := h.boards.Iterations(int64(id))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load iterations"})
	}
	return c.JSON(iterations)
}

// Recommend GET /api/boards/:id/recommend suggests new keyword ideas
// seeded from the ones currently selected on the board.
func (h *BoardHandler) Recommend(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid board id"})
	}
	if h.llm == nil || !h.llm.Enabled() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "recommendations are not configured"})
	}

	selected, err := h.keywords.SelectedKeywords(int64(id))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load keywords"})
	}
	if len(selected) == 0 {
		return c.JSON([]ai.ExtractedKeyword{})
	}

	liked := make([]ai.ExtractedKeyword, 0, len(selected))
	for _, kw := range selected {
		liked = append(liked, ai.ExtractedKeyword{Type: kw.Type, Keyword: kw.Keyword})
	}

	recommended, err := h.llm.RecommendKeywords(c.Context(), liked)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "recommendation failed"})
	}
	if recommended == nil {
		recommended = []ai.ExtractedKeyword{}
	}
	return c.JSON(recommended)
}
