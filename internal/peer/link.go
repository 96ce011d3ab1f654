package peer

import (
	"context"

	"github.com/codehiveofficial/codehive/internal/media"
	"github.com/codehiveofficial/codehive/internal/signaling"
)

// Role says which side of the offer/answer exchange this end plays.
type Role int

const (
	Initiator Role = iota
	Responder
)

func (r Role) String() string {
	if r == Initiator {
		return "initiator"
	}
	return "responder"
}

// State is the lifecycle of a link.
type State int

const (
	Pending State = iota
	Connected
	Failed
	Closed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Link is a snapshot of the connection to one remote participant.
type Link struct {
	ParticipantID string
	Role          Role
	State         State
	RemoteStream  media.Stream
}

// Signaler carries local envelopes to the remote side through the relay.
type Signaler interface {
	// Offer sends an initiator envelope (sending_signal).
	Offer(to string, sig signaling.Signal) error
	// Answer sends a responder envelope (returning_signal).
	Answer(to string, sig signaling.Signal) error
}

// Events are the callbacks a Conn reports through. They may be invoked
// from any goroutine.
type Events struct {
	OnSignal func(signaling.Signal)
	OnStream func(media.Stream)
	OnState  func(State)
}

// ConnConfig describes a connection to create.
type ConnConfig struct {
	ParticipantID string
	Role          Role
	// Local is attached for sending; the connection must not stop it.
	Local  media.Stream
	Events Events
}

// Conn is one media connection. An initiator emits its offer through
// Events.OnSignal after creation; a responder emits its answer after the
// offer is passed to Signal.
type Conn interface {
	Signal(signaling.Signal) error
	Close() error
}

// Connector creates connections.
type Connector interface {
	NewConn(ctx context.Context, cfg ConnConfig) (Conn, error)
}

// LocalSource yields the current local stream.
type LocalSource interface {
	Local() media.Stream
}
