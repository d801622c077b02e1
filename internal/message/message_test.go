package message

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func TestFactoryMessage(t *testing.T) {
	req := require.New(t)
	now := time.UnixMilli(1700000000123)
	f := NewFactory(fixedClock(now))

	msg := f.Message("alice", "hi")
	req.Equal(Message{Username: "alice", Text: "hi", CreatedAt: 1700000000123}, msg)
}

func TestFactoryMessageKeepsTextVerbatim(t *testing.T) {
	f := NewFactory(fixedClock(time.UnixMilli(0)))
	msg := f.Message("alice", "  <b>raw</b>  ")
	require.Equal(t, "  <b>raw</b>  ", msg.Text)
}

func TestGenerateNonDecreasingCreatedAt(t *testing.T) {
	req := require.New(t)

	before := time.Now().UnixMilli()
	first := Generate("alice", "hi")
	time.Sleep(time.Millisecond)
	second := Generate("alice", "hi")
	after := time.Now().UnixMilli()

	req.Equal("alice", first.Username)
	req.Equal("hi", first.Text)
	req.GreaterOrEqual(first.CreatedAt, before)
	req.GreaterOrEqual(second.CreatedAt, first.CreatedAt)
	req.LessOrEqual(second.CreatedAt, after)
}

func TestFactoryLocation(t *testing.T) {
	req := require.New(t)
	f := NewFactory(fixedClock(time.UnixMilli(42)))

	loc := f.Location("alice", Coords{Latitude: 40.7, Longitude: -74.0})
	req.Equal("alice", loc.Username)
	req.Equal(int64(42), loc.CreatedAt)
	req.Equal("https://google.com/maps?q=40.7,-74", loc.URL)

	lat := strings.Index(loc.URL, "40.7")
	lng := strings.Index(loc.URL, "-74")
	req.NotEqual(-1, lat)
	req.Greater(lng, lat)
}

func TestMapURLOutOfRangeCoordinates(t *testing.T) {
	// Coordinates are embedded as given.
	url := MapURL(Coords{Latitude: 123.456, Longitude: -500})
	require.Equal(t, "https://google.com/maps?q=123.456,-500", url)
}

func TestGenerateLocation(t *testing.T) {
	loc := GenerateLocation("bob", Coords{Latitude: 1.5, Longitude: 2})
	require.Equal(t, "https://google.com/maps?q=1.5,2", loc.URL)
	require.NotZero(t, loc.CreatedAt)
}

func TestFactoryNotices(t *testing.T) {
	req := require.New(t)
	f := NewFactory(fixedClock(time.UnixMilli(7)))

	req.Equal(Message{Username: AdminName, Text: "Welcome!", CreatedAt: 7}, f.Welcome())
	req.Equal("bob has joined!", f.Joined("bob").Text)
	req.Equal("bob has left.", f.Left("bob").Text)
	req.Equal(AdminName, f.Left("bob").Username)
}
