package webrtc

import (
	"errors"
	"fmt"
)

var (
	ErrUnexpectedSignal = errors.New("unexpected signal type")
	ErrGatherTimeout    = errors.New("ICE gathering timed out")
	ErrClosed           = errors.New("peer connection closed")
)

// Error is a failed negotiation step.
type Error struct {
	Op   string
	Peer string
	Err  error
}

func (e *Error) Error() string {
	if e.Peer == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Peer, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
