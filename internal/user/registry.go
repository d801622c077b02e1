package user

import (
	"slices"
	"strings"
	"sync"
)

// RoomSummary describes an active room derived from the registry.
type RoomSummary struct {
	Name        string `json:"name"`
	ActiveUsers int    `json:"active_users"`
}

// Registry is the in-memory store of active users. It is the single source
// of truth for room membership and is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	users []User
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add normalizes username and room and stores a new user bound to connID.
// The uniqueness check and the append happen under the same lock, so of two
// concurrent joins with the same name in the same room exactly one succeeds.
func (r *Registry) Add(connID, username, room string) (User, error) {
	username = Normalize(username)
	room = Normalize(room)
	if username == "" || room == "" {
		return User{}, ErrValidation
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.ID == connID {
			return User{}, ErrConnectionBound
		}
		if u.Room == room && u.Username == username {
			return User{}, ErrDuplicateUsername
		}
	}

	u := User{ID: connID, Username: username, Room: room}
	r.users = append(r.users, u)
	return u, nil
}

// Remove deletes the user bound to connID and returns it. The second call
// for the same connID reports false.
func (r *Registry) Remove(connID string) (User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.IndexFunc(r.users, func(u User) bool { return u.ID == connID })
	if i == -1 {
		return User{}, false
	}
	u := r.users[i]
	r.users = slices.Delete(r.users, i, i+1)
	return u, true
}

// Get returns the user bound to connID.
func (r *Registry) Get(connID string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.ID == connID {
			return u, true
		}
	}
	return User{}, false
}

// InRoom returns the users in room in join order. The room name is
// normalized before matching.
func (r *Registry) InRoom(room string) []User {
	room = Normalize(room)

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]User, 0)
	for _, u := range r.users {
		if u.Room == room {
			result = append(result, u)
		}
	}
	return result
}

// Rooms returns all rooms with at least one user, sorted by active user
// count (descending) and then by name.
func (r *Registry) Rooms() []RoomSummary {
	r.mu.RLock()
	counts := make(map[string]int)
	for _, u := range r.users {
		counts[u.Room]++
	}
	r.mu.RUnlock()

	result := make([]RoomSummary, 0, len(counts))
	for name, n := range counts {
		result = append(result, RoomSummary{Name: name, ActiveUsers: n})
	}
	slices.SortFunc(result, func(a, b RoomSummary) int {
		if a.ActiveUsers != b.ActiveUsers {
			return b.ActiveUsers - a.ActiveUsers
		}
		return strings.Compare(a.Name, b.Name)
	})
	return result
}

// Count returns the number of active users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
