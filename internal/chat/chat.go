// Package chat is the room's text chat. Messages are appended only when the
// relay echoes them back, so every participant sees the same order.
package chat

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/codehiveofficial/codehive/internal/signaling"
	"github.com/codehiveofficial/codehive/internal/watch"
)

var (
	ErrNotJoined    = errors.New("not in a room")
	ErrEmptyMessage = errors.New("message is empty")
)

// Sender delivers events to the relay.
type Sender interface {
	Send(signaling.Event) error
}

type Message struct {
	SenderID   string
	SenderName string
	Text       string
	At         time.Time
}

// Channel holds the chat log of the current room.
type Channel struct {
	log *slog.Logger
	now func() time.Time

	mu       sync.Mutex
	messages []Message
	selfID   string
	selfName string
	sender   Sender

	updates watch.Broadcaster[[]Message]
}

func New(log *slog.Logger) *Channel {
	if log == nil {
		log = slog.Default()
	}
	return &Channel{log: log.With("component", "chat"), now: time.Now}
}

// Bind attaches the channel to a joined room as participant id/name.
func (c *Channel) Bind(id, name string, s Sender) {
	c.mu.Lock()
	c.selfID, c.selfName, c.sender = id, name, s
	c.mu.Unlock()
}

// Send broadcasts text to the room. Nothing is appended locally.
func (c *Channel) Send(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	id, name, sender := c.selfID, c.selfName, c.sender
	c.mu.Unlock()
	if sender == nil {
		return ErrNotJoined
	}
	return sender.Send(signaling.ChatMessage{UserID: id, UserName: name, Message: text})
}

// Receive appends a relayed message.
func (c *Channel) Receive(ev signaling.ReceiveMessage) {
	c.mu.Lock()
	c.messages = append(c.messages, Message{
		SenderID:   ev.UserID,
		SenderName: ev.UserName,
		Text:       ev.Message,
		At:         c.now(),
	})
	snapshot := c.snapshot()
	c.mu.Unlock()

	c.updates.Publish(snapshot)
}

// Messages returns the log in arrival order.
func (c *Channel) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Reset clears the log and detaches from the room.
func (c *Channel) Reset() {
	c.mu.Lock()
	c.messages = nil
	c.selfID, c.selfName, c.sender = "", "", nil
	c.mu.Unlock()
	c.updates.Publish(nil)
}

func (c *Channel) Subscribe() (<-chan []Message, func()) {
	return c.updates.Subscribe()
}

func (c *Channel) snapshot() []Message {
	return append([]Message(nil), c.messages...)
}
