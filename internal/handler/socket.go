package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"moodboard-backend/internal/ai"
	"moodboard-backend/internal/cache"
	"moodboard-backend/internal/model"
	"moodboard-backend/internal/presence"
	"moodboard-backend/internal/relay"
	"moodboard-backend/internal/service"
	"moodboard-backend/internal/storage"
)

// SocketHandler owns the websocket read loop and event dispatch. Every
// mutation intent is persisted through the service layer first; only the
// canonical result is broadcast, to everyone in the room except the
// sender, who gets an ack or an error instead.
type SocketHandler struct {
	hub     *relay.Hub
	tracker *presence.Tracker

	rooms    *service.RoomService
	boards   *service.BoardService
	images   *service.ImageService
	keywords *service.KeywordService
	threads  *service.ThreadService
	chat     *service.ChatService

	redis   *cache.RedisClient // nil disables the chat cache
	storage *storage.S3Storage // nil leaves deleted objects in place
	llm     *ai.LLM
}

// NewSocketHandler creates a SocketHandler
func NewSocketHandler(hub *relay.Hub, tracker *presence.Tracker, rooms *service.RoomService, boards *service.BoardService, images *service.ImageService, keywords *service.KeywordService, threads *service.ThreadService, chat *service.ChatService, redis *cache.RedisClient, s3 *storage.S3Storage, llm *ai.LLM) *SocketHandler {
	return &SocketHandler{
		hub:      hub,
		tracker:  tracker,
		rooms:    rooms,
		boards:   boards,
		images:   images,
		keywords: keywords,
		threads:  threads,
		chat:     chat,
		redis:    redis,
		storage:  s3,
		llm:      llm,
	}
}

// HandleWebSocket runs one connection until it closes.
func (h *SocketHandler) HandleWebSocket(c *websocket.Conn) {
	userID, ok1 := c.Locals("userId").(int64)
	username, ok2 := c.Locals("username").(string)
	if !ok1 || !ok2 {
		c.WriteMessage(websocket.TextMessage, []byte(`{"event":"error","payload":{"message":"invalid session"}}`))
		c.Close()
		return
	}

	connID := uuid.NewString()
	client := relay.NewClient(connID, userID, username, c)
	log.Printf("[Socket] connected: conn=%s user=%d", connID, userID)

	defer func() {
		h.dropConnection(client)
		c.Close()
		log.Printf("[Socket] disconnected: conn=%s user=%d", connID, userID)
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}

		var env relay.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			client.Send(relay.EventError, relay.ErrorPayload{Message: "malformed envelope"})
			continue
		}
		h.dispatch(client, env)
	}
}

// dropConnection removes the client from its room and tells the others.
func (h *SocketHandler) dropConnection(client *relay.Client) {
	roomID, remaining, ok := h.tracker.Leave(client.ID)
	if !ok {
		return
	}
	h.hub.Leave(roomID, client.ID)
	h.hub.BroadcastAll(roomID, relay.EventUpdateRoomUsers, remaining)
}

func (h *SocketHandler) dispatch(client *relay.Client, env relay.Envelope) {
	switch env.Event {
	case relay.EventJoinRoom:
		h.handleJoinRoom(client, env.Payload)
	case relay.EventLeaveRoom:
		h.dropConnection(client)
	case relay.EventUpdateRoomName:
		h.handleUpdateRoomName(client, env.Payload)
	case relay.EventDesignDetails:
		h.relayTransient(client, env)
	case relay.EventDesignDetailsDone:
		h.handleDesignDetailsDone(client, env.Payload)
	case relay.EventChatMessage:
		h.handleChatMessage(client, env.Payload)

	case relay.EventImageMoving, relay.EventImageTransform, relay.EventKeywordMoving:
		h.relayTransient(client, env)
	case relay.EventUpdateImage:
		h.handleUpdateImage(client, env.Payload)
	case relay.EventDeleteImage:
		h.handleDeleteImage(client, env.Payload)
	case relay.EventImageFeedback:
		h.handleImageFeedback(client, env.Payload)

	case relay.EventNewKeyword:
		h.handleNewKeyword(client, env.Payload)
	case relay.EventUpdateKeywordOffset:
		h.handleUpdateKeywordOffset(client, env.Payload)
	case relay.EventUpdateKeywordSelected:
		h.handleUpdateKeywordSelected(client, env.Payload)
	case relay.EventRemoveKeywordFromBoard:
		h.handleRemoveKeywordFromBoard(client, env.Payload)
	case relay.EventUpdateKeywordVotes:
		h.handleUpdateKeywordVotes(client, env.Payload)
	case relay.EventClearKeywordVotes:
		h.handleClearKeywordVotes(client, env.Payload)
	case relay.EventDeleteKeyword:
		h.handleDeleteKeyword(client, env.Payload)

	case relay.EventNewBoard:
		h.handleNewBoard(client, env.Payload)
	case relay.EventUpdateBoard:
		h.handleUpdateBoard(client, env.Payload)
	case relay.EventCloneBoard:
		h.handleCloneBoard(client, env.Payload)
	case relay.EventToggleVoting:
		h.handleToggleVoting(client, env.Payload)
	case relay.EventDeleteBoard:
		h.handleDeleteBoard(client, env.Payload)
	case relay.EventGenerateNewImage:
		h.handleGenerateNewImage(client, env.Payload)

	case relay.EventCreateThread:
		h.handleCreateThread(client, env.Payload)
	case relay.EventUpdateThread:
		h.handleUpdateThread(client, env.Payload)
	case relay.EventDeleteThread:
		h.handleDeleteThread(client, env.Payload)

	default:
		client.Send(relay.EventError, relay.ErrorPayload{Event: env.Event, Message: "unknown event"})
	}
}

// fail sends a sender-only error for a rejected intent.
func (h *SocketHandler) fail(client *relay.Client, event string, err error) {
	msg := "internal error"
	switch {
	case errors.Is(err, service.ErrNotFound):
		msg = "entity not found"
	case errors.Is(err, service.ErrValidation):
		msg = err.Error()
	default:
		log.Printf("[Socket] %s failed: %v", event, err)
	}
	client.Send(relay.EventError, relay.ErrorPayload{Event: event, Message: msg})
}

// ack confirms a create to the sender, carrying the stored entity.
func (h *SocketHandler) ack(client *relay.Client, event string, data interface{}) {
	client.Send(relay.EventAck, relay.AckPayload{Event: event, Data: data})
}

// roomOf resolves the sender's current room; intents before joinRoom fail.
func (h *SocketHandler) roomOf(client *relay.Client) (int64, bool) {
	roomID, ok := h.tracker.Room(client.ID)
	if !ok {
		client.Send(relay.EventError, relay.ErrorPayload{Message: "join a room first"})
	}
	return roomID, ok
}

// relayTransient forwards a broadcast-only event untouched. Nothing is
// persisted; late joiners reconstruct state from the stored entities.
func (h *SocketHandler) relayTransient(client *relay.Client, env relay.Envelope) {
	roomID, ok := h.roomOf(client)
	if !ok {
		return
	}
	h.hub.Broadcast(roomID, client.ID, env.Event, env.Payload)
}

type joinRoomPayload struct {
	RoomID int64 `json:"roomId"`
}

func (h *SocketHandler) handleJoinRoom(client *relay.Client, raw json.RawMessage) {
	var p joinRoomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.fail(client, relay.EventJoinRoom, service.ErrValidation)
		return
	}

	room, err := h.rooms.GetRoom(p.RoomID)
	if err != nil {
		h.fail(client, relay.EventJoinRoom, err)
		return
	}

	participants := h.tracker.Join(client.ID, room.ID, client.UserID, client.Username)
	h.hub.Join(room.ID, client)

	// the conn id comes back so HTTP requests (upload) can name their socket
	h.ack(client, relay.EventJoinRoom, map[string]interface{}{
		"connId": client.ID,
		"room":   room,
	})
	h.hub.BroadcastAll(room.ID, relay.EventUpdateRoomUsers, participants)
}

type updateRoomNamePayload struct {
	RoomID int64  `json:"roomId"`
	Name   string `json:"name"`
}

func (h *SocketHandler) handleUpdateRoomName(client *relay.Client, raw json.RawMessage) {
	roomID, ok := h.roomOf(client)
	if !ok {
		return
	}
	var p updateRoomNamePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.fail(client, relay.EventUpdateRoomName, service.ErrValidation)
		return
	}
	if p.RoomID == 0 {
		p.RoomID = roomID
	}

	room, err := h.rooms.UpdateRoomName(p.RoomID, p.Name)
	if err != nil {
		h.fail(client, relay.EventUpdateRoomName, err)
		return
	}
	h.hub.Broadcast(roomID, client.ID, relay.EventUpdateRoomName, relay.UpdatePayload{
		ID:      room.ID,
		Changes: map[string]interface{}{"name": room.Name},
	})
}

type designDetailsPayload struct {
	RoomID int64  `json:"roomId"`
	Field  string `json:"field"`
	Value  string `json:"value"`
}

func (h *SocketHandler) handleDesignDetailsDone(client *relay.Client, raw json.RawMessage) {
	roomID, ok := h.roomOf(client)
	if !ok {
		return
	}
	var p designDetailsPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.fail(client, relay.EventDesignDetailsDone, service.ErrValidation)
		return
	}
	if p.RoomID == 0 {
		p.RoomID = roomID
	}

	if _, err := h.rooms.UpdateDesignBrief(p.RoomID, p.Field, p.Value); err != nil {
		h.fail(client, relay.EventDesignDetailsDone, err)
		return
	}
	h.hub.Broadcast(roomID, client.ID, relay.EventDesignDetailsDone, p)
}

type chatPayload struct {
	Text    string `json:"text"`
	BoardID *int64 `json:"boardId,omitempty"`
}

func (h *SocketHandler) handleChatMessage(client *relay.Client, raw json.RawMessage) {
	roomID, ok := h.roomOf(client)
	if !ok {
		return
	}
	var p chatPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.fail(client, relay.EventChatMessage, service.ErrValidation)
		return
	}

	msg, err := h.chat.AppendMessage(roomID, client.UserID, client.Username, p.Text, p.BoardID)
	if err != nil {
		h.fail(client, relay.EventChatMessage, err)
		return
	}
	if h.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		h.redis.AppendChat(ctx, msg)
		cancel()
	}

	h.ack(client, relay.EventChatMessage, msg)
	h.hub.Broadcast(roomID, client.ID, relay.EventChatMessage, msg)
}

type idPayload struct {
	ID int64 `json:"id"`
}

func (h *SocketHandler) handleUpdateImage(client *relay.Client, raw json.RawMessage) {
	roomID, ok := h.roomOf(client)
	if !ok {
		return
	}
	var p relay.UpdatePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.fail(client, relay.EventUpdateImage, service.ErrValidation)
		return
	}

	if _, err := h.images.UpdateImage(p.ID, p.Changes); err != nil {
		h.fail(client, relay.EventUpdateImage, err)
		return
	}
	// relay only the fields that changed
	h.hub.Broadcast(roomID, client.ID, relay.EventUpdateImage, p)
}

func (h *SocketHandler) handleDeleteImage(client *relay.Client, raw json.RawMessage) {
	roomID, ok := h.roomOf(client)
	if !ok {
		return
	}
	var p idPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.fail(client, relay.EventDeleteImage, service.ErrValidation)
		return
	}

	cascade, err := h.images.DeleteImage(p.ID)
	if err != nil {
		h.fail(client, relay.EventDeleteImage, err)
		return
	}

	if h.storage != nil && cascade.URL != "" {
		go func(url string) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := h.storage.Delete(ctx, url); err != nil {
				log.Printf("[Socket] stored object not deleted: %v", err)
			}
		}(cascade.URL)
	}

	h.ack(client, relay.EventDeleteImage, cascade)
	h.hub.Broadcast(roomID, client.ID, relay.EventDeleteImage, cascade)
}

type imageFeedbackPayload struct {
	ImageID   int64  `json:"imageId"`
	KeywordID *int64 `json:"keywordId,omitempty"`
	Message   string `json:"message"`
}

func (h *SocketHandler) handleImageFeedback(client *relay.Client, raw json.RawMessage) {
	roomID, ok := h.roomOf(client)
	if !ok {
		return
	}
	var p imageFeedbackPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.fail(client, relay.EventImageFeedback, service.ErrValidation)
		return
	}

	fb, err := h.images.AddFeedback(p.ImageID, client.UserID, client.Username, p.Message, p.KeywordID)
	if err != nil {
		h.fail(client, relay.EventImageFeedback, err)
		return
	}
	h.ack(client, relay.EventImageFeedback, fb)
	h.hub.Broadcast(roomID, client.ID, relay.EventImageFeedback, fb)
}

type newKeywordPayload struct {
	BoardID  int64    `json:"boardId"`
	ImageID  *int64   `json:"imageId,omitempty"`
	Type     string   `json:"type"`
	Keyword  string   `json:"keyword"`
	IsCustom bool     `json:"isCustom"`
	OffsetX  *float64 `json:"offsetX,omitempty"`
	OffsetY  *float64 `json:"offsetY,omitempty"`
}

func (h *SocketHandler) handleNewKeyword(client *relay.Client, raw json.RawMessage) {
	roomID, ok := h.roomOf(client)
	if !ok {
		return
	}
	var p newKeywordPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.fail(client, relay.EventNewKeyword, service.ErrValidation)
		return
	}

	kw, err := h.keywords.CreateKeyword(p.BoardID, p.ImageID, p.Type, p.Keyword, client.Username, p.IsCustom, p.OffsetX, p.OffsetY)
	if err != nil {
		h.fail(client, relay.EventNewKeyword, err)
		return
	}

	h.ack(client, relay.EventNewKeyword, kw)
	h.hub.Broadcast(roomID, client.ID, relay.EventNewKeyword, kw)
}

type keywordOffsetPayload struct {
	ID      int64    `json:"id"`
	OffsetX *float64 `json:"offsetX"`
	OffsetY *float64 `json:"offsetY"`
}

func (h *SocketHandler) handleUpdateKeywordOffset(client *relay.Client, raw json.RawMessage) {
	roomID, ok := h.roomOf(client)
	if !ok {
		return
	}
	var p keywordOffsetPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.fail(client, relay.EventUpdateKeywordOffset, service.ErrValidation)
		return
	}

	kw, err := h.keywords.UpdateOffset(p.ID, p.OffsetX, p.OffsetY)
	if err != nil {
		h.fail(client, relay.EventUpdateKeywordOffset, err)
		return
	}
	h.hub.Broadcast(roomID, client.ID, relay.EventUpdateKeyword, relay.UpdatePayload{
		ID:      kw.ID,
		Changes: map[string]interface{}{"offsetX": kw.OffsetX, "offsetY": kw.OffsetY},
	})
}

type keywordSelectedPayload struct {
	ID         int64 `json:"id"`
	IsSelected bool  `json:"isSelected"`
}

func (h *SocketHandler) handleUpdateKeywordSelected(client *relay.Client, raw json.RawMessage) {
	roomID, ok := h.roomOf(client)
	if !ok {
		return
	}
	var p keywordSelectedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.fail(client, relay.EventUpdateKeywordSelected, service.ErrValidation)
		return
	}

	kw, err := h.keywords.UpdateSelected(p.ID, p.IsSelected)
	if err != nil {
		h.fail(client, relay.EventUpdateKeywordSelected, err)
		return
	}
	h.hub.Broadcast(roomID, client.ID, relay.EventUpdateKeyword, relay.UpdatePayload{
		ID:      kw.ID,
		Changes: map[string]interface{}{"isSelected": kw.IsSelected},
	})
}

func (h *SocketHandler) handleRemoveKeywordFromBoard(client *relay.Client, raw json.RawMessage) {
	roomID, ok := h.roomOf(client)
	if !ok {
		return
	}
	var p idPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.fail(client, relay.EventRemoveKeywordFromBoard, service.ErrValidation)
		return
	}

	kw, err := h.keywords.RemoveFromBoard(p.ID)
	if err != nil {
		h.fail(client, relay.EventRemoveKeywordFromBoard, err)
		return
	}
	h.hub.Broadcast(roomID, client.ID, relay.EventRemoveKeywordOffset, idPayload{ID: kw.ID})
}

type votePayload struct {
	KeywordID int64  `json:"keywordId"`
	Action    string `json:"action"`
}

func (h *SocketHandler) handleUpdateKeywordVotes(client *relay.Client, raw json.RawMessage) {
	roomID, ok := h.roomOf(client)
	if !ok {
		return
	}
	var p votePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.fail(client, relay.EventUpdateKeywordVotes, service.ErrValidation)
		return
	}

	counts, err := h.keywords.Vote(p.KeywordID, client.UserID, model.VoteAction(p.Action))
	if err != nil {
		h.fail(client, relay.EventUpdateKeywordVotes, err)
		return
	}

	// everyone, voter included, converges on the server's counts
	h.ack(client, relay.EventUpdateKeywordVotes, counts)
	h.hub.Broadcast(roomID, client.ID, relay.EventUpdateKeyword, relay.UpdatePayload{
		ID:      counts.KeywordID,
		Changes: map[string]interface{}{"votes": counts.Votes, "downvotes": counts.Downvotes},
	})
}

type boardIDPayload struct {
	BoardID int64 `json:"boardId"`
}

func (h *SocketHandler) handleClearKeywordVotes(client *relay.Client, raw json.RawMessage) {
	roomID, ok := h.roomOf(client)
	if !ok {
		return
	}
	var p boardIDPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.fail(client, relay.EventClearKeywordVotes, service.ErrValidation)
		return
	}

	keywordIDs, err := h.keywords.ClearVotes(p.BoardID)
	if err != nil {
		h.fail(client, relay.EventClearKeywordVotes, err)
		return
	}

	payload := map[string]interface{}{"boardId": p.BoardID, "keywordIds": keywordIDs}
	h.ack(client, relay.EventClearKeywordVotes, payload)
	h.hub.Broadcast(roomID, client.ID, relay.EventClearKeywordVotes, payload)
}

func (h *SocketHandler) handleDeleteKeyword(client *relay.Client, raw json.RawMessage) {
	roomID, ok := h.roomOf(client)
	if !ok {
		return
	}
	var p idPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.fail(client, relay.EventDeleteKeyword, service.ErrValidation)
		return
	}

	cascade, err := h.keywords.DeleteKeyword(p.ID)
	if err != nil {
		h.fail(client, relay.EventDeleteKeyword, err)
		return
	}
	h.ack(client, relay.EventDeleteKeyword, cascade)
	h.hub.Broadcast(roomID, client.ID, relay.EventDeleteKeyword, cascade)
}

type newBoardPayload struct {
	RoomID int64  `json:"roomId"`
	Name   string `json:"name"`
}

func (h *SocketHandler) handleNewBoard(client *relay.Client, raw json.RawMessage) {
	roomID, ok := h.roomOf(client)
	if !ok {
		return
	}
	var p newBoardPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.fail(client, relay.EventNewBoard, service.ErrValidation)
		return
	}
	if p.RoomID == 0 {
		p.RoomID = roomID
	}

	board, err := h.boards.CreateBoard(p.RoomID, p.Name)
	if err != nil {
		h.fail(client, relay.EventNewBoard, err)
		return
	}

	h.ack(client, relay.EventNewBoard, board)
	h.hub.Broadcast(roomID, client.ID, relay.EventNewBoard, board)
}

func (h *SocketHandler) handleUpdateBoard(client *relay.Client, raw json.RawMessage) {
	roomID, ok := h.roomOf(client)
	if !ok {
		return
	}
	var p relay.UpdatePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.fail(client, relay.EventUpdateBoard, service.ErrValidation)
		return
	}

	if _, err := h.boards.UpdateBoard(p.ID, p.Changes); err != nil {
		h.fail(client, relay.EventUpdateBoard, err)
		return
	}
	h.hub.Broadcast(roomID, client.ID, relay.EventUpdateBoard, p)
}

func (h *SocketHandler) handleCloneBoard(client *relay.Client, raw json.RawMessage) {
	roomID, ok := h.roomOf(client)
	if !ok {
		return
	}
	var p idPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.fail(client, relay.EventCloneBoard, service.ErrValidation)
		return
	}

	clone, err := h.boards.CloneBoard(p.ID)
	if err != nil {
		h.fail(client, relay.EventCloneBoard, err)
		return
	}

	h.ack(client, relay.EventCloneBoard, clone)
	h.hub.Broadcast(roomID, client.ID, relay.EventNewBoard, clone)
}

func (h *SocketHandler) handleToggleVoting(client *relay.Client, raw json.RawMessage) {
	roomID, ok := h.roomOf(client)
	if !ok {
		return
	}
	var p idPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.fail(client, relay.EventToggleVoting, service.ErrValidation)
		return
	}

	board, err := h.boards.ToggleVoting(p.ID)
	if err != nil {
		h.fail(client, relay.EventToggleVoting, err)
		return
	}

	update := relay.UpdatePayload{
		ID:      board.ID,
		Changes: map[string]interface{}{"isVoting": board.IsVoting},
	}
	h.ack(client, relay.EventToggleVoting, update)
	h.hub.Broadcast(roomID, client.ID, relay.EventUpdateBoard, update)
}

func (h *SocketHandler) handleDeleteBoard(client *relay.Client, raw json.RawMessage) {
	roomID, ok := h.roomOf(client)
	if !ok {
		return
	}
	var p idPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.fail(client, relay.EventDeleteBoard, service.ErrValidation)
		return
	}

	cascade, err := h.boards.DeleteBoard(p.ID)
	if err != nil {
		h.fail(client, relay.EventDeleteBoard, err)
		return
	}

	h.ack(client, relay.EventDeleteBoard, cascade)
	h.hub.Broadcast(roomID, client.ID, relay.EventDeleteBoard, cascade)
}

type createThreadPayload struct {
	BoardID   int64    `json:"boardId"`
	ImageID   *int64   `json:"imageId,omitempty"`
	KeywordID *int64   `json:"keywordId,omitempty"`
	ParentID  *int64   `json:"parentId,omitempty"`
	Value     string   `json:"value"`
	PositionX *float64 `json:"positionX,omitempty"`
	PositionY *float64 `json:"positionY,omitempty"`
}

func (h *SocketHandler) handleCreateThread(client *relay.Client, raw json.RawMessage) {
	roomID, ok := h.roomOf(client)
	if !ok {
		return
	}
	var p createThreadPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.fail(client, relay.EventCreateThread, service.ErrValidation)
		return
	}

	thread, err := h.threads.CreateThread(service.ThreadDraft{
		BoardID:   p.BoardID,
		ImageID:   p.ImageID,
		KeywordID: p.KeywordID,
		ParentID:  p.ParentID,
		UserID:    client.UserID,
		Username:  client.Username,
		Value:     p.Value,
		PositionX: p.PositionX,
		PositionY: p.PositionY,
	})
	if err != nil {
		h.fail(client, relay.EventCreateThread, err)
		return
	}

	h.ack(client, relay.EventCreateThread, thread)
	h.hub.Broadcast(roomID, client.ID, relay.EventAddThread, thread)
}

func (h *SocketHandler) handleUpdateThread(client *relay.Client, raw json.RawMessage) {
	roomID, ok := h.roomOf(client)
	if !ok {
		return
	}
	var p relay.UpdatePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.fail(client, relay.EventUpdateThread, service.ErrValidation)
		return
	}

	if _, err := h.threads.UpdateThread(p.ID, p.Changes); err != nil {
		h.fail(client, relay.EventUpdateThread, err)
		return
	}
	h.hub.Broadcast(roomID, client.ID, relay.EventUpdateThread, p)
}

func (h *SocketHandler) handleDeleteThread(client *relay.Client, raw json.RawMessage) {
	roomID, ok := h.roomOf(client)
	if !ok {
		return
	}
	var p idPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.fail(client, relay.EventDeleteThread, service.ErrValidation)
		return
	}

	deleted, err := h.threads.DeleteThread(p.ID)
	if err != nil {
		h.fail(client, relay.EventDeleteThread, err)
		return
	}

	payload := map[string]interface{}{"id": p.ID, "threadIds": deleted}
	h.ack(client, relay.EventDeleteThread, payload)
	h.hub.Broadcast(roomID, client.ID, relay.EventDeleteThread, payload)
}

type generatePayload struct {
	BoardID int64 `json:"boardId"`
	Count   int   `json:"count"`
}

// handleGenerateNewImage runs the generation pipeline off the read loop:
// prompts from the brief and voted keywords, one rendered image per
// prompt streamed as it lands, then the recorded iteration.
func (h *SocketHandler) handleGenerateNewImage(client *relay.Client, raw json.RawMessage) {
	roomID, ok := h.roomOf(client)
	if !ok {
		return
	}
	var p generatePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.fail(client, relay.EventGenerateNewImage, service.ErrValidation)
		return
	}
	if h.llm == nil || !h.llm.Enabled() {
		h.fail(client, relay.EventGenerateNewImage, service.ErrValidation)
		return
	}

	go h.runGeneration(client, roomID, p.BoardID, p.Count)
}

func (h *SocketHandler) runGeneration(client *relay.Client, roomID, boardID int64, count int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	progress := func(stage string) {
		h.hub.BroadcastAll(roomID, relay.EventImgGenProgress, map[string]interface{}{
			"boardId": boardID,
			"stage":   stage,
		})
	}

	board, err := h.boards.GetBoard(boardID)
	if err != nil {
		h.fail(client, relay.EventGenerateNewImage, err)
		return
	}
	room, err := h.rooms.GetRoom(board.RoomID)
	if err != nil {
		h.fail(client, relay.EventGenerateNewImage, err)
		return
	}

	selected, err := h.keywords.SelectedKeywords(boardID)
	if err != nil {
		h.fail(client, relay.EventGenerateNewImage, err)
		return
	}

	weighted := make([]ai.WeightedKeyword, 0, len(selected))
	snapshot := make([]service.KeywordSnapshot, 0, len(selected))
	for _, kw := range selected {
		score := 0
		for _, v := range kw.Votes {
			if v.IsDownvote {
				score--
			} else {
				score++
			}
		}
		weighted = append(weighted, ai.WeightedKeyword{Type: kw.Type, Keyword: kw.Keyword, Score: score})
		snapshot = append(snapshot, service.KeywordSnapshot{Keyword: kw.Keyword, Type: kw.Type, Vote: score})
	}

	brief := room.BriefObjective + "\n" + room.BriefAudience + "\n" + room.BriefConstraints + "\n" + room.BriefOthers

	progress("prompts")
	prompts, err := h.llm.GeneratePrompts(ctx, brief, weighted, count)
	if err != nil {
		h.fail(client, relay.EventGenerateNewImage, err)
		return
	}

	urls := make([]string, 0, len(prompts))
	for i, prompt := range prompts {
		progress("rendering")
		url, err := h.llm.GenerateImage(ctx, prompt)
		if err != nil {
			log.Printf("[Socket] generation %d/%d failed: %v", i+1, len(prompts), err)
			continue
		}
		urls = append(urls, url)
		h.hub.BroadcastAll(roomID, relay.EventNewGenImage, map[string]interface{}{
			"boardId": boardID,
			"url":     url,
			"prompt":  prompt,
		})
	}

	iteration, err := h.boards.AddIteration(boardID, prompts, urls, snapshot)
	if err != nil {
		h.fail(client, relay.EventGenerateNewImage, err)
		return
	}
	h.hub.BroadcastAll(roomID, relay.EventUpdateBoardIterations, iteration)
}
