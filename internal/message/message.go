package message

import (
	"fmt"
	"strconv"
	"time"
)

// AdminName is the author of server-generated notices.
const AdminName = "Admin"

// Message is a timestamped chat message. CreatedAt is epoch milliseconds.
type Message struct {
	Username  string `json:"username"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
}

// LocationMessage carries a map link to a shared location.
type LocationMessage struct {
	Username  string `json:"username"`
	URL       string `json:"url"`
	CreatedAt int64  `json:"createdAt"`
}

// Coords is a latitude/longitude pair. Ranges are not checked.
type Coords struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Clock returns the current time.
type Clock func() time.Time

// Factory builds messages stamped with its clock. The zero value is not
// usable; use NewFactory.
type Factory struct {
	now Clock
}

// NewFactory creates a Factory. A nil clock means time.Now.
func NewFactory(now Clock) Factory {
	if now == nil {
		now = time.Now
	}
	return Factory{now: now}
}

// Message returns a message from username. The text is not inspected.
func (f Factory) Message(username, text string) Message {
	return Message{
		Username:  username,
		Text:      text,
		CreatedAt: f.now().UnixMilli(),
	}
}

// Location returns a location message linking to coords on a map.
func (f Factory) Location(username string, coords Coords) LocationMessage {
	return LocationMessage{
		Username:  username,
		URL:       MapURL(coords),
		CreatedAt: f.now().UnixMilli(),
	}
}

// Welcome is sent to a connection right after it joins.
func (f Factory) Welcome() Message {
	return f.Message(AdminName, "Welcome!")
}

// Joined announces username to the rest of the room.
func (f Factory) Joined(username string) Message {
	return f.Message(AdminName, fmt.Sprintf("%s has joined!", username))
}

// Left announces the departure of username.
func (f Factory) Left(username string) Message {
	return f.Message(AdminName, fmt.Sprintf("%s has left.", username))
}

// MapURL embeds the coordinates verbatim, in latitude,longitude order.
func MapURL(coords Coords) string {
	return "https://google.com/maps?q=" + formatCoord(coords.Latitude) + "," + formatCoord(coords.Longitude)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var defaultFactory = NewFactory(nil)

// Generate builds a message stamped with the wall clock.
func Generate(username, text string) Message {
	return defaultFactory.Message(username, text)
}

// GenerateLocation builds a location message stamped with the wall clock.
func GenerateLocation(username string, coords Coords) LocationMessage {
	return defaultFactory.Location(username, coords)
}
