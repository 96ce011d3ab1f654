// Package peertest provides an in-memory peer.Connector. Connections
// "connect" as soon as the offer/answer exchange completes and then expose
// a synthetic remote stream.
package peertest

import (
	"context"
	"errors"
	"sync"

	"github.com/codehiveofficial/codehive/internal/media"
	"github.com/codehiveofficial/codehive/internal/peer"
	"github.com/codehiveofficial/codehive/internal/signaling"
)

var ErrUnexpected = errors.New("unexpected signal")

// Connector records every connection it creates.
type Connector struct {
	mu    sync.Mutex
	conns []*Conn
	fail  error
}

// FailNext makes the next NewConn return err.
func (c *Connector) FailNext(err error) {
	c.mu.Lock()
	c.fail = err
	c.mu.Unlock()
}

func (c *Connector) NewConn(_ context.Context, cfg peer.ConnConfig) (peer.Conn, error) {
	c.mu.Lock()
	if err := c.fail; err != nil {
		c.fail = nil
		c.mu.Unlock()
		return nil, err
	}
	conn := &Conn{cfg: cfg}
	c.conns = append(c.conns, conn)
	c.mu.Unlock()

	if cfg.Role == peer.Initiator {
		cfg.Events.OnSignal(signaling.Signal{Type: "offer", SDP: "offer-for-" + cfg.ParticipantID})
	}
	return conn, nil
}

// Conns returns the connections created for id, oldest first.
func (c *Connector) Conns(id string) []*Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*Conn
	for _, conn := range c.conns {
		if conn.cfg.ParticipantID == id {
			out = append(out, conn)
		}
	}
	return out
}

// Last returns the newest connection for id, or nil.
func (c *Connector) Last(id string) *Conn {
	conns := c.Conns(id)
	if len(conns) == 0 {
		return nil
	}
	return conns[len(conns)-1]
}

// Conn is a fake connection.
type Conn struct {
	cfg peer.ConnConfig

	mu      sync.Mutex
	signals []signaling.Signal
	closed  bool
	remote  *media.BasicStream
}

func (c *Conn) Signal(sig signaling.Signal) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("connection closed")
	}
	c.signals = append(c.signals, sig)
	c.mu.Unlock()

	switch {
	case c.cfg.Role == peer.Responder && sig.Type == "offer":
		c.cfg.Events.OnSignal(signaling.Signal{Type: "answer", SDP: "answer-to-" + sig.SDP})
		c.connect()
	case c.cfg.Role == peer.Initiator && sig.Type == "answer":
		c.connect()
	default:
		return ErrUnexpected
	}
	return nil
}

func (c *Conn) connect() {
	id := c.cfg.ParticipantID
	remote := media.NewStream("remote-"+id,
		media.NewTrack(id+"-video", media.KindVideo, nil),
		media.NewTrack(id+"-audio", media.KindAudio, nil),
	)
	c.mu.Lock()
	c.remote = remote
	c.mu.Unlock()

	c.cfg.Events.OnStream(remote)
	c.cfg.Events.OnState(peer.Connected)
}

// Deliver hands s to the owner as a remote stream, as a late track event
// would.
func (c *Conn) Deliver(s media.Stream) {
	c.cfg.Events.OnStream(s)
}

// Fail reports a connection failure to the owner.
func (c *Conn) Fail() {
	c.cfg.Events.OnState(peer.Failed)
}

func (c *Conn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) Role() peer.Role { return c.cfg.Role }

// Local is the stream the owner attached.
func (c *Conn) Local() media.Stream { return c.cfg.Local }

// Signals returns the envelopes applied so far.
func (c *Conn) Signals() []signaling.Signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]signaling.Signal(nil), c.signals...)
}
