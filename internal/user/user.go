package user

import (
	"errors"
	"strings"
)

var (
	// ErrValidation is returned when the username or room is empty after
	// normalization.
	ErrValidation = errors.New("username and room are required")

	// ErrDuplicateUsername is returned when the room already has a user with
	// the same normalized username.
	ErrDuplicateUsername = errors.New("username is in use")

	// ErrConnectionBound is returned when the connection already owns a user.
	ErrConnectionBound = errors.New("connection has already joined")
)

// User represents one active chat participant bound to one connection.
// Username and Room are always normalized.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Room     string `json:"room"`
}

// Normalize trims surrounding whitespace and case-folds s. Usernames and room
// names are compared only in this form.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
