package chat

import (
	"errors"

	"github.com/christopherjohns/chatrelay/internal/user"
)

var (
	ErrProfanity           = errors.New("profanity is not allowed")
	ErrNotJoined           = errors.New("join a room first")
	ErrAlreadyJoined       = errors.New("already joined a room")
	ErrClosed              = errors.New("session is closed")
	ErrInternalConsistency = errors.New("session has no matching user")
)

// ErrorCode maps an operation result to a short stable code used in logs and
// metrics. A nil error is "ok".
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, user.ErrValidation):
		return "validation"
	case errors.Is(err, user.ErrDuplicateUsername):
		return "duplicate_username"
	case errors.Is(err, ErrProfanity):
		return "profanity"
	case errors.Is(err, ErrNotJoined):
		return "not_joined"
	case errors.Is(err, ErrAlreadyJoined), errors.Is(err, user.ErrConnectionBound):
		return "already_joined"
	case errors.Is(err, ErrClosed):
		return "closed"
	case errors.Is(err, ErrInternalConsistency):
		return "internal"
	default:
		return "error"
	}
}
