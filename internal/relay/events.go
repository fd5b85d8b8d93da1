package relay

import "encoding/json"

// Event names. One name covers both directions where the canonical
// broadcast mirrors the intent; derived broadcasts have their own names.
const (
	// room
	EventJoinRoom          = "joinRoom"
	EventLeaveRoom         = "leaveRoom"
	EventUpdateRoomUsers   = "updateRoomUsers"
	EventUpdateRoomName    = "updateRoomName"
	EventDesignDetails     = "updateDesignDetails"
	EventDesignDetailsDone = "updateDesignDetailsDone"
	EventChatMessage       = "chatMessage"

	// image
	EventNewImage       = "newImage"
	EventImageMoving    = "imageMoving"
	EventImageTransform = "imageTransforming"
	EventUpdateImage    = "updateImage"
	EventDeleteImage    = "deleteImage"
	EventImageFeedback  = "imageFeedback"

	// keyword
	EventNewKeyword             = "newKeyword"
	EventKeywordMoving          = "keywordMoving"
	EventUpdateKeywordOffset    = "updateKeywordOffset"
	EventRemoveKeywordOffset    = "removeKeywordOffset"
	EventUpdateKeywordSelected  = "updateKeywordSelected"
	EventRemoveKeywordFromBoard = "removeKeywordFromBoard"
	EventUpdateKeywordVotes     = "updateKeywordVotes"
	EventUpdateKeyword          = "updateKeyword"
	EventClearKeywordVotes      = "clearKeywordVotes"
	EventDeleteKeyword          = "deleteKeyword"

	// board
	EventNewBoard              = "newBoard"
	EventUpdateBoard           = "updateBoard"
	EventCloneBoard            = "cloneBoard"
	EventToggleVoting          = "toggleVoting"
	EventDeleteBoard           = "deleteBoard"
	EventGenerateNewImage      = "generateNewImage"
	EventUpdateBoardIterations = "updateBoardIterations"
	EventImgGenProgress        = "addImgGenProgress"
	EventNewGenImage           = "newGenImage"

	// thread
	EventCreateThread = "createThread"
	EventAddThread    = "addThread"
	EventUpdateThread = "updateThread"
	EventDeleteThread = "deleteThread"

	// terminal outcomes
	EventAck   = "ack"
	EventError = "error"
)

// Actor the user behind a relayed mutation, attached to every broadcast
// so receiving clients can attribute the change
type Actor struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Envelope the wire frame: an event name, its payload and the acting user
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
	User    *Actor          `json:"user,omitempty"`
}

// Message an outbound event before marshaling
type Message struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
	User    *Actor      `json:"user,omitempty"`
}

// UpdatePayload a partial-field merge: id plus only the changed fields
type UpdatePayload struct {
	ID      int64                  `json:"id"`
	Changes map[string]interface{} `json:"changes"`
}

// AckPayload sender-only confirmation of a create, carrying the
// server-assigned entity
type AckPayload struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// ErrorPayload sender-only rejection of an intent
type ErrorPayload struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}
