package models

import "encoding/json"

// Wire event names. Room-scoped unless noted.
const (
	EventJoinRoom        = "joinRoom"
	EventLeaveRoom       = "leaveRoom"
	EventRoomUsers       = "roomUsers" // server -> joining client only
	EventUserJoined      = "userJoined"
	EventUserLeft        = "userLeft"
	EventTransformUpdate = "transformUpdate"
	EventSendMessage     = "sendMessage"
	EventNewMessage      = "newMessage"
	EventPing            = "ping"
	EventPong            = "pong"
)

// Envelope wraps every websocket frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals an event plus payload into a ready-to-send frame.
func NewEnvelope(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// TransformMode identifies which gizmo produced a transform tick.
type TransformMode string

const (
	ModeTranslate TransformMode = "translate"
	ModeRotate    TransformMode = "rotate"
	ModeScale     TransformMode = "scale"
)

// Vector3 is a wire-format 3-component vector.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion is a wire-format rotation.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// TransformMessage carries one manipulation tick for a named object.
// Position, rotation and scale are world-space regardless of how the
// object is nested locally. Rotation is a legacy Euler fallback; when
// Quaternion is present it always wins. Streamed continuously during a
// drag, consumed once per remote client, never persisted.
type TransformMessage struct {
	Name       string        `json:"name"`
	Position   Vector3       `json:"position"`
	Rotation   *Vector3      `json:"rotation,omitempty"`
	Quaternion *Quaternion   `json:"quaternion,omitempty"`
	Scale      Vector3       `json:"scale"`
	Mode       TransformMode `json:"mode,omitempty"`
	RoomID     string        `json:"roomId,omitempty"`
}

// JoinRoomPayload is sent for both joinRoom and leaveRoom.
type JoinRoomPayload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// RoomUsersPayload is the private snapshot reply to a joining client.
type RoomUsersPayload struct {
	Users []RoomUser `json:"users"`
}

// PresencePayload is broadcast as userJoined / userLeft. Users carries
// the roster snapshot so observers need no separate query.
type PresencePayload struct {
	UserID   string     `json:"userId"`
	UserName string     `json:"userName"`
	Message  string     `json:"message"`
	Users    []RoomUser `json:"users"`
}

// ChatPayload is the client's sendMessage request.
type ChatPayload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Message  string `json:"message"`
}

// ChatMessage is the newMessage broadcast, sender included.
type ChatMessage struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	UserID    string     `json:"userId"`
	UserName  string     `json:"userName"`
	Message   string     `json:"message"`
	CreatedAt string     `json:"createdAt"`
	Users     []RoomUser `json:"users"`
}
