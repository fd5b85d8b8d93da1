package relay

import (
	"encoding/json"
	"log"
	"sync"
)

// textMessage the websocket opcode for a text frame
const textMessage = 1

// Conn the write half of a websocket connection. Both gofiber's and
// gorilla's *websocket.Conn satisfy it; tests pass fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
}

// Client one connected websocket client
type Client struct {
	ID       string
	UserID   int64
	Username string

	conn    Conn
	writeMu sync.Mutex
}

// NewClient wraps a connection for use with the hub.
func NewClient(id string, userID int64, username string, conn Conn) *Client {
	return &Client{ID: id, UserID: userID, Username: username, conn: conn}
}

// Send marshals and writes one event to this client. Writes are
// serialized per connection.
func (c *Client) Send(event string, payload interface{}) error {
	return c.write(Message{Event: event, Payload: payload})
}

// Actor describes this client as the author of a mutation.
func (c *Client) Actor() *Actor {
	return &Actor{ID: c.UserID, Name: c.Username}
}

func (c *Client) write(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(textMessage, data)
}

// Room the set of clients subscribed to one collaboration room
type Room struct {
	ID      int64
	mu      sync.RWMutex
	clients map[string]*Client
}

// Hub routes events between rooms and their clients
type Hub struct {
	mu    sync.RWMutex
	rooms map[int64]*Room
}

// NewHub creates an empty Hub
func NewHub() *Hub {
	return &Hub{rooms: make(map[int64]*Room)}
}

// Join adds a client to a room, creating the room on first use.
func (h *Hub) Join(roomID int64, client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[roomID]
	if !ok {
		room = &Room{ID: roomID, clients: make(map[string]*Client)}
		h.rooms[roomID] = room
		log.Printf("[Hub] created room %d", roomID)
	}
	h.mu.Unlock()

	room.mu.Lock()
	room.clients[client.ID] = client
	room.mu.Unlock()
}

// Leave removes a client from a room; the room is dropped when empty.
func (h *Hub) Leave(roomID int64, clientID string) {
	h.mu.Lock()
	room, ok := h.rooms[roomID]
	if !ok {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	room.mu.Lock()
	delete(room.clients, clientID)
	empty := len(room.clients) == 0
	room.mu.Unlock()

	if empty {
		h.mu.Lock()
		if r, ok := h.rooms[roomID]; ok {
			r.mu.RLock()
			stillEmpty := len(r.clients) == 0
			r.mu.RUnlock()
			if stillEmpty {
				delete(h.rooms, roomID)
				log.Printf("[Hub] removed room %d", roomID)
			}
		}
		h.mu.Unlock()
	}
}

// Broadcast sends an event to every client in a room except the sender.
// The sender's identity rides along as the acting user so receivers can
// attribute the mutation. Pass an empty senderID to reach the whole room
// anonymously. Clients are snapshotted under the read lock; writes happen
// outside it.
func (h *Hub) Broadcast(roomID int64, senderID, event string, payload interface{}) {
	h.mu.RLock()
	room, ok := h.rooms[roomID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	var actor *Actor
	room.mu.RLock()
	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ID == senderID {
			actor = c.Actor()
			continue
		}
		clients = append(clients, c)
	}
	room.mu.RUnlock()

	msg := Message{Event: event, Payload: payload, User: actor}
	for _, client := range clients {
		if err := client.write(msg); err != nil {
			log.Printf("[Hub] room %d: send %s to %s failed: %v", roomID, event, client.ID, err)
		}
	}
}

// BroadcastAll sends an event to every client in a room, sender included.
func (h *Hub) BroadcastAll(roomID int64, event string, payload interface{}) {
	h.Broadcast(roomID, "", event, payload)
}

// ClientCount reports how many clients a room has.
func (h *Hub) ClientCount(roomID int64) int {
	h.mu.RLock()
	room, ok := h.rooms[roomID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}

	room.mu.RLock()
	defer room.mu.RUnlock()
	return len(room.clients)
}

// Client looks a client up by room and id.
func (h *Hub) Client(roomID int64, clientID string) (*Client, bool) {
	h.mu.RLock()
	room, ok := h.rooms[roomID]
	h.mu.RUnlock()
	if !ok {
		return nil, false
	}

	room.mu.RLock()
	defer room.mu.RUnlock()
	client, ok := room.clients[clientID]
	return client, ok
}
