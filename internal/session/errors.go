package session

import (
	"errors"
	"fmt"
)

var (
	ErrBusy          = errors.New("operation not allowed in current state")
	ErrMediaNotReady = errors.New("camera and microphone not ready")
	ErrEmptyName     = errors.New("display name is required")
	ErrEmptyRoom     = errors.New("room id is required")
	ErrNotJoined     = errors.New("not in a room")
	ErrRejected      = errors.New("relay rejected request")
	ErrRelayClosed   = errors.New("relay connection lost")
	ErrAborted       = errors.New("aborted by leave")
	ErrTimeout       = errors.New("timed out waiting for relay")
)

// Error is a failed session operation.
type Error struct {
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func wrapError(op string, err error, details string) *Error {
	return &Error{Op: op, Err: err, Details: details}
}
