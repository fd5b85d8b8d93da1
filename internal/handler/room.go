package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"moodboard-backend/internal/cache"
	"moodboard-backend/internal/service"
)

// RoomHandler room HTTP endpoints
type RoomHandler struct {
	rooms *service.RoomService
	chat  *service.ChatService
	redis *cache.RedisClient // nil disables the chat cache
}

// NewRoomHandler creates a RoomHandler
func NewRoomHandler(rooms *service.RoomService, chat *service.ChatService, redis *cache.RedisClient) *RoomHandler {
	return &RoomHandler{rooms: rooms, chat: chat, redis: redis}
}

type createRoomRequest struct {
	Name string `json:"name"`
}

// Create POST /api/rooms/create
func (h *RoomHandler) Create(c *fiber.Ctx) error {
	var req createRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	room, board, err := h.rooms.CreateRoom(req.Name)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create room"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"room":  room,
		"board": board,
	})
}

// Join GET /api/rooms/join/:joinCode
func (h *RoomHandler) Join(c *fiber.Ctx) error {
	room, err := h.rooms.GetRoomByJoinCode(c.Params("joinCode"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed join code"})
		case errors.Is(err, service.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no room with that code"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to join room"})
	}
	return c.JSON(room)
}

// Get GET /api/rooms/:id
func (h *RoomHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid room id"})
	}

	room, err := h.rooms.GetRoom(int64(id))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "room not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load room"})
	}
	return c.JSON(room)
}

// Chat GET /api/rooms/:id/chat returns recent messages, cache first.
func (h *RoomHandler) Chat(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid room id"})
	}
	roomID := int64(id)
	limit := c.QueryInt("limit", 50)

	if h.redis != nil {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()
		if cached, err := h.redis.RecentChat(ctx, roomID, int64(limit)); err == nil && len(cached) > 0 {
			return c.JSON(cached)
		}
	}

	messages, err := h.chat.RecentMessages(roomID, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load chat"})
	}

	if h.redis != nil && len(messages) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		h.redis.WarmChat(ctx, roomID, messages)
		cancel()
	}
	return c.JSON(messages)
}
