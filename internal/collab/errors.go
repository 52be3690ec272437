package collab

import (
	"errors"
	"fmt"

	"yuzu/interview/internal/store"
)

// ErrValidation marks requests rejected before any state changed.
var ErrValidation = errors.New("validation failed")

// ErrClientGone is returned for operations on a disconnected client.
var ErrClientGone = errors.New("client disconnected")

const msgSessionNotFound = "Session not found"

// Error carries a message that is sent back to the requesting client.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return ErrValidation }

func invalid(format string, args ...any) error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// userMessage maps an error onto the text sent in an error event. Internal
// errors have none.
func userMessage(err error) (string, bool) {
	if errors.Is(err, store.ErrNotFound) {
		return msgSessionNotFound, true
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message, true
	}
	return "", false
}
