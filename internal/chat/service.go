package chat

import (
	"log/slog"
	"sync"

	"github.com/christopherjohns/chatrelay/internal/message"
	"github.com/christopherjohns/chatrelay/internal/user"
	"github.com/samber/lo"
)

// ProfanityCheck reports whether text must be rejected.
type ProfanityCheck func(text string) bool

// Service wires the user registry and the message factory to a Broadcaster
// and opens one Session per connection.
type Service struct {
	users   *user.Registry
	channel Broadcaster
	factory message.Factory
	profane ProfanityCheck
	log     *slog.Logger

	// membership serializes registry add/remove together with the matching
	// subscribe/unsubscribe and roster broadcast, so rosters reach every
	// connection in commit order.
	membership sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithFactory sets the message factory, typically to pin the clock in tests.
func WithFactory(f message.Factory) Option {
	return func(s *Service) {
		s.factory = f
	}
}

// WithProfanityCheck sets the predicate applied to outgoing text messages.
// Without it no message is rejected.
func WithProfanityCheck(check ProfanityCheck) Option {
	return func(s *Service) {
		s.profane = check
	}
}

// NewService creates a Service around an explicitly owned registry.
func NewService(users *user.Registry, channel Broadcaster, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		users:   users,
		channel: channel,
		factory: message.NewFactory(nil),
		log:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open starts an unjoined session for the given connection.
func (s *Service) Open(connID string) *Session {
	return &Session{svc: s, connID: connID, state: StateUnjoined}
}

// Roster returns the current roster of room.
func (s *Service) Roster(room string) RoomData {
	users := s.users.InRoom(room)
	return RoomData{
		Room: user.Normalize(room),
		Users: lo.Map(users, func(u user.User, _ int) Member {
			return Member{Username: u.Username}
		}),
	}
}

func (s *Service) rosterEvent(room string) Event {
	return Event{Name: EventRoomData, Payload: s.Roster(room)}
}
