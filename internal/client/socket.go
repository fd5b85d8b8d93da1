package client

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"moodboard-backend/internal/relay"
)

// Socket a relay client: dials the websocket endpoint, joins a room and
// feeds every broadcast into its Store.
type Socket struct {
	store *Store

	conn    *websocket.Conn
	writeMu sync.Mutex

	connID string
	acks   chan relay.AckPayload
	errs   chan relay.ErrorPayload
	done   chan struct{}
}

// Dial connects and authenticates with a bearer token.
func Dial(url, token string, store *Store) (*Socket, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	s := &Socket{
		store: store,
		conn:  conn,
		acks:  make(chan relay.AckPayload, 16),
		errs:  make(chan relay.ErrorPayload, 16),
		done:  make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Store returns the socket's backing store.
func (s *Socket) Store() *Store {
	return s.store
}

// ConnID returns the server-assigned connection id, known after JoinRoom.
func (s *Socket) ConnID() string {
	return s.connID
}

// Send emits one intent.
func (s *Socket) Send(event string, payload interface{}) error {
	data, err := json.Marshal(relay.Message{Event: event, Payload: payload})
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// JoinRoom joins a room and waits for the server's ack.
func (s *Socket) JoinRoom(roomID int64, timeout time.Duration) error {
	if err := s.Send(relay.EventJoinRoom, map[string]interface{}{"roomId": roomID}); err != nil {
		return err
	}

	ack, err := s.WaitAck(relay.EventJoinRoom, timeout)
	if err != nil {
		return err
	}

	if data, ok := ack.Data.(map[string]interface{}); ok {
		if connID, ok := data["connId"].(string); ok {
			s.connID = connID
		}
	}
	return nil
}

// WaitAck blocks for the next ack of the given event.
func (s *Socket) WaitAck(event string, timeout time.Duration) (*relay.AckPayload, error) {
	deadline := time.After(timeout)
	for {
		select {
		case ack := <-s.acks:
			if ack.Event == event {
				return &ack, nil
			}
		case e := <-s.errs:
			if e.Event == event || e.Event == "" {
				return nil, fmt.Errorf("server rejected %s: %s", event, e.Message)
			}
		case <-deadline:
			return nil, fmt.Errorf("timed out waiting for %s ack", event)
		case <-s.done:
			return nil, fmt.Errorf("connection closed")
		}
	}
}

func (s *Socket) readLoop() {
	defer close(s.done)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var env relay.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}

		switch env.Event {
		case relay.EventAck:
			var ack relay.AckPayload
			if json.Unmarshal(env.Payload, &ack) == nil {
				select {
				case s.acks <- ack:
				default:
				}
			}
		case relay.EventError:
			var e relay.ErrorPayload
			if json.Unmarshal(env.Payload, &e) == nil {
				select {
				case s.errs <- e:
				default:
				}
			}
		default:
			if err := Apply(s.store, env.Event, env.Payload, env.User); err != nil {
				log.Printf("[Client] apply %s failed: %v", env.Event, err)
			}
		}
	}
}

// Close tears the connection down.
func (s *Socket) Close() error {
	return s.conn.Close()
}
