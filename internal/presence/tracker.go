package presence

import (
	"sort"
	"sync"
)

// Participant one connected user as seen by the rest of the room
type Participant struct {
	ConnID   string `json:"connId"`
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// Tracker in-process presence registry keyed by connection id. State is
// deliberately ephemeral: a restart empties it and clients re-join.
type Tracker struct {
	mu     sync.RWMutex
	byConn map[string]Participant
	roomOf map[string]int64
	inRoom map[int64]map[string]struct{}
}

// NewTracker creates an empty Tracker
func NewTracker() *Tracker {
	return &Tracker{
		byConn: make(map[string]Participant),
		roomOf: make(map[string]int64),
		inRoom: make(map[int64]map[string]struct{}),
	}
}

// Join registers a connection in a room. A connection that joins a second
// room is moved, never duplicated. Returns the room's full participant list.
func (t *Tracker) Join(connID string, roomID, userID int64, username string) []Participant {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.roomOf[connID]; ok && prev != roomID {
		t.removeLocked(connID, prev)
	}

	t.byConn[connID] = Participant{ConnID: connID, UserID: userID, Username: username}
	t.roomOf[connID] = roomID
	if t.inRoom[roomID] == nil {
		t.inRoom[roomID] = make(map[string]struct{})
	}
	t.inRoom[roomID][connID] = struct{}{}

	return t.listLocked(roomID)
}

// Leave drops a connection. Returns the room it was in and that room's
// remaining participant list; ok is false for unknown connections.
func (t *Tracker) Leave(connID string) (roomID int64, remaining []Participant, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	roomID, ok = t.roomOf[connID]
	if !ok {
		return 0, nil, false
	}
	t.removeLocked(connID, roomID)
	return roomID, t.listLocked(roomID), true
}

// List returns the full participant list of a room, ordered by connection
// id for stable output. Consumers replace their local list wholesale.
func (t *Tracker) List(roomID int64) []Participant {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.listLocked(roomID)
}

// Room reports which room a connection is in.
func (t *Tracker) Room(connID string) (int64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	roomID, ok := t.roomOf[connID]
	return roomID, ok
}

// Count reports how many connections a room has.
func (t *Tracker) Count(roomID int64) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.inRoom[roomID])
}

func (t *Tracker) removeLocked(connID string, roomID int64) {
	delete(t.byConn, connID)
	delete(t.roomOf, connID)
	if conns := t.inRoom[roomID]; conns != nil {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(t.inRoom, roomID)
		}
	}
}

func (t *Tracker) listLocked(roomID int64) []Participant {
	participants := make([]Participant, 0, len(t.inRoom[roomID]))
	for connID := range t.inRoom[roomID] {
		participants = append(participants, t.byConn[connID])
	}
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].ConnID < participants[j].ConnID
	})
	return participants
}
