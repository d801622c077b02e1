//go:generate go run go.uber.org/mock/mockgen -source=broadcast.go -destination=../../mocks/mock_broadcaster.go -package=mocks
package chat

// EventName identifies an outbound event.
type EventName string

const (
	EventMessage         EventName = "message"
	EventLocationMessage EventName = "locationMessage"
	EventRoomData        EventName = "roomData"
)

// Event is an outbound event. Payload is one of message.Message,
// message.LocationMessage or RoomData.
type Event struct {
	Name    EventName
	Payload any
}

// Member is one roster entry.
type Member struct {
	Username string `json:"username"`
}

// RoomData is the roster of a room, in join order.
type RoomData struct {
	Room  string   `json:"room"`
	Users []Member `json:"users"`
}

// Broadcaster delivers events to connections grouped by room. Delivery is
// fire-and-forget; implementations own buffering and backpressure.
type Broadcaster interface {
	// Subscribe adds the connection to the room's broadcast group.
	Subscribe(connID, room string)
	// Unsubscribe removes the connection from the room's broadcast group.
	Unsubscribe(connID, room string)
	// Emit sends to a single connection.
	Emit(connID string, evt Event)
	// BroadcastOthers sends to every subscriber of room except exceptConnID.
	BroadcastOthers(room, exceptConnID string, evt Event)
	// BroadcastRoom sends to every subscriber of room.
	BroadcastRoom(room string, evt Event)
}
