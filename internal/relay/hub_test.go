package relay

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records every frame written to it
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	f.frames = append(f.frames, cp)
	return nil
}

func (f *fakeConn) events(t *testing.T) []string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	var names []string
	for _, frame := range f.frames {
		var env Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		names = append(names, env.Event)
	}
	return names
}

func join(h *Hub, roomID int64, id string) (*Client, *fakeConn) {
	conn := &fakeConn{}
	client := NewClient(id, 0, id, conn)
	h.Join(roomID, client)
	return client, conn
}

func TestBroadcastExcludesSender(t *testing.T) {
	h := NewHub()
	sender, senderConn := join(h, 1, "conn-a")
	_, bConn := join(h, 1, "conn-b")
	_, cConn := join(h, 1, "conn-c")

	h.Broadcast(1, sender.ID, EventUpdateImage, UpdatePayload{ID: 5, Changes: map[string]interface{}{"x": 10.0}})

	assert.Empty(t, senderConn.events(t), "the sender already applied its change optimistically")
	assert.Equal(t, []string{EventUpdateImage}, bConn.events(t))
	assert.Equal(t, []string{EventUpdateImage}, cConn.events(t))
}

func TestBroadcastScopedToRoom(t *testing.T) {
	h := NewHub()
	sender, _ := join(h, 1, "conn-a")
	_, sameRoom := join(h, 1, "conn-b")
	_, otherRoom := join(h, 2, "conn-c")

	h.Broadcast(1, sender.ID, EventNewKeyword, map[string]interface{}{"id": 9})

	assert.Len(t, sameRoom.events(t), 1)
	assert.Empty(t, otherRoom.events(t), "events never leak across rooms")
}

func TestBroadcastAllReachesSender(t *testing.T) {
	h := NewHub()
	_, aConn := join(h, 1, "conn-a")
	_, bConn := join(h, 1, "conn-b")

	// presence lists go to the whole room, joiner included
	h.BroadcastAll(1, EventUpdateRoomUsers, []string{"mina", "joon"})

	assert.Equal(t, []string{EventUpdateRoomUsers}, aConn.events(t))
	assert.Equal(t, []string{EventUpdateRoomUsers}, bConn.events(t))
}

func TestAckGoesToSenderOnly(t *testing.T) {
	h := NewHub()
	sender, senderConn := join(h, 1, "conn-a")
	_, otherConn := join(h, 1, "conn-b")

	require.NoError(t, sender.Send(EventAck, AckPayload{Event: EventNewBoard, Data: map[string]interface{}{"id": 3}}))
	h.Broadcast(1, sender.ID, EventNewBoard, map[string]interface{}{"id": 3})

	assert.Equal(t, []string{EventAck}, senderConn.events(t))
	assert.Equal(t, []string{EventNewBoard}, otherConn.events(t))
}

func TestLeaveStopsDelivery(t *testing.T) {
	h := NewHub()
	_, aConn := join(h, 1, "conn-a")
	b, bConn := join(h, 1, "conn-b")

	h.Leave(1, b.ID)
	h.Broadcast(1, "", EventChatMessage, map[string]interface{}{"text": "hi"})

	assert.Len(t, aConn.events(t), 1)
	assert.Empty(t, bConn.events(t))
	assert.Equal(t, 1, h.ClientCount(1))
}

func TestEmptyRoomIsDropped(t *testing.T) {
	h := NewHub()
	a, _ := join(h, 1, "conn-a")
	h.Leave(1, a.ID)

	assert.Zero(t, h.ClientCount(1))
	_, ok := h.Client(1, a.ID)
	assert.False(t, ok)
}

func TestBroadcastCarriesActingUser(t *testing.T) {
	h := NewHub()
	sender := NewClient("conn-a", 7, "mina", &fakeConn{})
	h.Join(1, sender)
	_, bConn := join(h, 1, "conn-b")

	h.Broadcast(1, sender.ID, EventUpdateImage, UpdatePayload{ID: 5, Changes: map[string]interface{}{"x": 1.0}})

	require.Len(t, bConn.frames, 1)
	var env Envelope
	require.NoError(t, json.Unmarshal(bConn.frames[0], &env))
	require.NotNil(t, env.User, "receivers attribute the mutation to its author")
	assert.EqualValues(t, 7, env.User.ID)
	assert.Equal(t, "mina", env.User.Name)
}

func TestSenderlessFramesCarryNoActor(t *testing.T) {
	h := NewHub()
	sender, senderConn := join(h, 1, "conn-a")

	h.BroadcastAll(1, EventUpdateRoomUsers, []string{"mina"})
	require.NoError(t, sender.Send(EventAck, AckPayload{Event: EventNewBoard}))

	require.Len(t, senderConn.frames, 2)
	for _, frame := range senderConn.frames {
		var env Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		assert.Nil(t, env.User)
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	h := NewHub()
	_, conn := join(h, 1, "conn-a")

	h.BroadcastAll(1, EventUpdateKeyword, UpdatePayload{ID: 7, Changes: map[string]interface{}{"isSelected": true}})

	require.Len(t, conn.frames, 1)
	var env Envelope
	require.NoError(t, json.Unmarshal(conn.frames[0], &env))
	assert.Equal(t, EventUpdateKeyword, env.Event)

	var payload UpdatePayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.EqualValues(t, 7, payload.ID)
	assert.Equal(t, map[string]interface{}{"isSelected": true}, payload.Changes)
}
