package chat

import (
	"sync"

	"github.com/christopherjohns/chatrelay/internal/message"
	"github.com/christopherjohns/chatrelay/internal/user"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateUnjoined State = iota
	StateJoined
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnjoined:
		return "unjoined"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is the per-connection state machine: Unjoined, then Joined, then
// Closed. Closed is terminal. Each request-style method returns exactly one
// result, nil on success.
type Session struct {
	svc    *Service
	connID string

	mu    sync.Mutex
	state State
	room  string
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Join registers the connection as username in room. On failure the session
// stays unjoined and the registry error is returned.
func (s *Session) Join(username, room string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateJoined:
		return ErrAlreadyJoined
	case StateClosed:
		return ErrClosed
	}

	svc := s.svc
	svc.membership.Lock()
	defer svc.membership.Unlock()

	u, err := svc.users.Add(s.connID, username, room)
	if err != nil {
		svc.log.Debug("Join rejected", "conn_id", s.connID, "err", err)
		return err
	}
	s.state = StateJoined
	s.room = u.Room

	// Subscribe before anything is broadcast to the room so the joiner sees
	// its own roster update.
	svc.channel.Subscribe(s.connID, u.Room)
	svc.channel.Emit(s.connID, Event{Name: EventMessage, Payload: svc.factory.Welcome()})
	svc.channel.BroadcastOthers(u.Room, s.connID, Event{Name: EventMessage, Payload: svc.factory.Joined(u.Username)})
	svc.channel.BroadcastRoom(u.Room, svc.rosterEvent(u.Room))

	svc.log.Info("User joined", "conn_id", s.connID, "username", u.Username, "room", u.Room)
	return nil
}

// SendMessage broadcasts text to the whole room, sender included. Profane
// text is rejected with ErrProfanity and nothing is broadcast.
func (s *Session) SendMessage(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.joinedUser()
	if err != nil {
		return err
	}

	svc := s.svc
	if svc.profane != nil && svc.profane(text) {
		svc.log.Debug("Message rejected", "conn_id", s.connID, "room", u.Room, "err", ErrProfanity)
		return ErrProfanity
	}

	svc.channel.BroadcastRoom(u.Room, Event{Name: EventMessage, Payload: svc.factory.Message(u.Username, text)})
	return nil
}

// SendLocation broadcasts a map link for coords to the whole room, sender
// included.
func (s *Session) SendLocation(coords message.Coords) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.joinedUser()
	if err != nil {
		return err
	}

	svc := s.svc
	svc.channel.BroadcastRoom(u.Room, Event{Name: EventLocationMessage, Payload: svc.factory.Location(u.Username, coords)})
	return nil
}

// Disconnect closes the session. If the connection had joined, the remaining
// members get a departure notice and the updated roster. Safe to call more
// than once.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return
	}
	s.state = StateClosed

	svc := s.svc
	svc.membership.Lock()
	defer svc.membership.Unlock()

	u, ok := svc.users.Remove(s.connID)
	if !ok {
		return
	}

	svc.channel.Unsubscribe(s.connID, u.Room)
	svc.channel.BroadcastRoom(u.Room, Event{Name: EventMessage, Payload: svc.factory.Left(u.Username)})
	svc.channel.BroadcastRoom(u.Room, svc.rosterEvent(u.Room))

	svc.log.Info("User left", "conn_id", s.connID, "username", u.Username, "room", u.Room)
}

// joinedUser resolves the registry entry of a joined session. Must be called
// while holding mu.
func (s *Session) joinedUser() (user.User, error) {
	switch s.state {
	case StateUnjoined:
		return user.User{}, ErrNotJoined
	case StateClosed:
		return user.User{}, ErrClosed
	}

	u, ok := s.svc.users.Get(s.connID)
	if !ok {
		s.fault()
		return user.User{}, ErrInternalConsistency
	}
	return u, nil
}

// fault handles a joined session whose registry entry is gone. The session
// is closed as if the connection had dropped; the registry is left alone.
// Must be called while holding mu.
func (s *Session) fault() {
	svc := s.svc
	svc.log.Error("Joined session has no registered user",
		"conn_id", s.connID, "room", s.room, "err", ErrInternalConsistency)

	s.state = StateClosed

	svc.membership.Lock()
	svc.channel.Unsubscribe(s.connID, s.room)
	svc.membership.Unlock()
}
