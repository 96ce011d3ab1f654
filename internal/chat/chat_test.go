package chat

import (
	"errors"
	"testing"
	"time"

	"github.com/codehiveofficial/codehive/internal/signaling"
)

type captured struct{ events []signaling.Event }

func (c *captured) Send(ev signaling.Event) error {
	c.events = append(c.events, ev)
	return nil
}

func TestSend(t *testing.T) {
	c := New(nil)
	if err := c.Send("hi"); !errors.Is(err, ErrNotJoined) {
		t.Errorf("unjoined send: %v", err)
	}

	out := &captured{}
	c.Bind("u1", "ana", out)
	if err := c.Send("   "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("blank send: %v", err)
	}
	if err := c.Send("  hello  "); err != nil {
		t.Fatal(err)
	}

	want := signaling.ChatMessage{UserID: "u1", UserName: "ana", Message: "hello"}
	if len(out.events) != 1 || out.events[0] != want {
		t.Errorf("sent %+v", out.events)
	}
	if len(c.Messages()) != 0 {
		t.Errorf("send appended locally")
	}
}

func TestReceiveKeepsArrivalOrder(t *testing.T) {
	c := New(nil)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c.now = func() time.Time { return at }

	for _, text := range []string{"one", "two", "three"} {
		c.Receive(signaling.ReceiveMessage{UserID: "u2", UserName: "ben", Message: text})
	}
	msgs := c.Messages()
	if len(msgs) != 3 || msgs[0].Text != "one" || msgs[2].Text != "three" {
		t.Fatalf("messages %+v", msgs)
	}
	if msgs[1].SenderName != "ben" || !msgs[1].At.Equal(at) {
		t.Errorf("message %+v", msgs[1])
	}

	msgs[0].Text = "changed"
	if c.Messages()[0].Text != "one" {
		t.Errorf("Messages exposed internal slice")
	}
}

func TestReset(t *testing.T) {
	c := New(nil)
	updates, cancel := c.Subscribe()
	defer cancel()

	c.Bind("u1", "ana", &captured{})
	c.Receive(signaling.ReceiveMessage{Message: "x"})
	if got := <-updates; len(got) != 1 {
		t.Errorf("update %+v", got)
	}
	c.Reset()
	if got := <-updates; len(got) != 0 {
		t.Errorf("reset update %+v", got)
	}
	if len(c.Messages()) != 0 {
		t.Errorf("log not cleared")
	}
	if err := c.Send("x"); !errors.Is(err, ErrNotJoined) {
		t.Errorf("still bound: %v", err)
	}
}
