package ws

import (
	"encoding/json"

	"github.com/christopherjohns/chatrelay/internal/message"
)

// Inbound frame types.
const (
	TypeJoin         = "join"
	TypeSendMessage  = "sendMessage"
	TypeSendLocation = "sendLocation"
)

// TypeAck is the outbound acknowledgement frame type.
const TypeAck = "ack"

// Envelope is the JSON structure sent over the WebSocket. ID is set by the
// client on requests that expect an ack.
type Envelope struct {
	Type    string          `json:"type" validate:"required"`
	ID      int64           `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinPayload is sent by the client to join a room. Empty values are
// rejected by the registry, not here.
type JoinPayload struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// ChatPayload is sent by the client to post a message.
type ChatPayload struct {
	Text string `json:"text"`
}

// LocationPayload is sent by the client to share its position.
type LocationPayload struct {
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
}

// Coords converts a validated payload.
func (p LocationPayload) Coords() message.Coords {
	return message.Coords{Latitude: *p.Latitude, Longitude: *p.Longitude}
}

// AckPayload settles one client request. Error is empty on success.
type AckPayload struct {
	ID    int64  `json:"id"`
	Error string `json:"error,omitempty"`
}
