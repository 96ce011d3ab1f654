package signaling

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// echoServer writes every frame it receives back to the sender, plus one
// garbage frame up front.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"nope"}`))
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClientRoundTrip(t *testing.T) {
	for _, codec := range []Codec{JSON, Msgpack} {
		t.Run(codec.Name(), func(t *testing.T) {
			srv := echoServer(t)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			c, err := Dial(ctx, wsURL(srv), WithCodec(codec))
			if err != nil {
				t.Fatal(err)
			}
			defer c.Close()

			want := ChatMessage{UserID: "u1", UserName: "ana", Message: "hi"}
			if err := c.Send(want); err != nil {
				t.Fatal(err)
			}

			select {
			case ev := <-c.Incoming():
				if ev != want {
					t.Errorf("got %#v, want %#v", ev, want)
				}
			case <-ctx.Done():
				t.Fatal("timed out waiting for echo")
			}
		})
	}
}

func TestClientCloseIsIdempotent(t *testing.T) {
	srv := echoServer(t)
	c, err := Dial(context.Background(), wsURL(srv))
	if err != nil {
		t.Fatal(err)
	}
	c.Close()
	c.Close()

	if err := c.Send(CreateRoom{}); err != ErrClosed {
		t.Errorf("send after close = %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-c.Incoming():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("incoming channel never closed")
		}
	}
}

func TestDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := Dial(ctx, "ws://127.0.0.1:1/ws"); err == nil {
		t.Fatal("expected dial error")
	}
}
