// Package docsync keeps the shared document. Every edit ships the whole
// text; the last snapshot delivered wins.
package docsync

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/codehiveofficial/codehive/internal/signaling"
	"github.com/codehiveofficial/codehive/internal/watch"
)

var ErrNotJoined = errors.New("not in a room")

// Sender delivers events to the relay.
type Sender interface {
	Send(signaling.Event) error
}

// Cursor is a caret position, 1-based as editors report it.
type Cursor struct {
	Line   int
	Column int
}

// State is the local copy of the document.
type State struct {
	Text   string
	Cursor *Cursor
}

// Channel holds the document and broadcasts local edits.
type Channel struct {
	log *slog.Logger

	mu     sync.Mutex
	state  State
	roomID string
	sender Sender

	updates watch.Broadcaster[State]
}

func New(log *slog.Logger) *Channel {
	if log == nil {
		log = slog.Default()
	}
	return &Channel{log: log.With("component", "docsync")}
}

// Bind attaches the channel to a joined room.
func (c *Channel) Bind(roomID string, s Sender) {
	c.mu.Lock()
	c.roomID = roomID
	c.sender = s
	c.mu.Unlock()
}

// Edit replaces the local document and sends the full snapshot to the room.
// The local copy is updated even when not joined.
func (c *Channel) Edit(text string, cursor *Cursor) error {
	c.mu.Lock()
	c.state = State{Text: text, Cursor: copyCursor(cursor)}
	state := c.state
	roomID, sender := c.roomID, c.sender
	c.mu.Unlock()

	c.updates.Publish(state)
	if sender == nil {
		return ErrNotJoined
	}

	ev := signaling.CodeChange{RoomID: roomID, Code: text}
	if cursor != nil {
		ev.CursorPosition = &signaling.Cursor{Line: cursor.Line, Column: cursor.Column}
	}
	return sender.Send(ev)
}

// Apply overwrites the local document with a remote snapshot. Local edits
// not yet echoed by others are lost; there is no merge.
func (c *Channel) Apply(ev signaling.ReceiveCodeChange) {
	var cursor *Cursor
	if ev.CursorPosition != nil {
		cursor = &Cursor{Line: ev.CursorPosition.Line, Column: ev.CursorPosition.Column}
	}

	c.mu.Lock()
	c.state = State{Text: ev.Code, Cursor: cursor}
	state := c.state
	c.mu.Unlock()

	c.log.Debug("remote snapshot applied", "bytes", len(ev.Code))
	c.updates.Publish(state)
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Text: c.state.Text, Cursor: copyCursor(c.state.Cursor)}
}

// Reset clears the document and detaches from the room.
func (c *Channel) Reset() {
	c.mu.Lock()
	c.state = State{}
	c.roomID = ""
	c.sender = nil
	c.mu.Unlock()
	c.updates.Publish(State{})
}

// Subscribe returns document updates; see watch.Broadcaster.
func (c *Channel) Subscribe() (<-chan State, func()) {
	return c.updates.Subscribe()
}

func copyCursor(cur *Cursor) *Cursor {
	if cur == nil {
		return nil
	}
	cp := *cur
	return &cp
}
