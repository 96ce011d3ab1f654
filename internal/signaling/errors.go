package signaling

import (
	"errors"
	"fmt"
)

var (
	ErrMalformed   = errors.New("malformed relay message")
	ErrUnknownKind = errors.New("unknown event kind")
	ErrClosed      = errors.New("relay connection closed")
)

// DecodeError reports a relay frame that could not be turned into an Event.
type DecodeError struct {
	Kind Kind
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("decode: %v", e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
