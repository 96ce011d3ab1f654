package relay

import (
	"log/slog"
	"time"

	"github.com/codehiveofficial/codehive/internal/signaling"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Full SDP envelopes and document
	// snapshots both travel through here.
	maxMessageSize = 256 * 1024

	sendBuffer = 256
)

// Client is one websocket connection to the relay.
type Client struct {
	ID   string
	Name string

	hub  *Hub
	conn *websocket.Conn
	send chan frame
	log  *slog.Logger

	// fields below are owned by the hub goroutine
	roomID string
	codec  signaling.Codec
	closed bool
}

// NewClient wraps conn and assigns it a fresh participant id.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	id := uuid.NewString()
	return &Client{
		ID:    id,
		hub:   hub,
		conn:  conn,
		send:  make(chan frame, sendBuffer),
		log:   hub.log.With("client", id, "remote", conn.RemoteAddr().String()),
		codec: signaling.JSON,
	}
}

// Serve registers the client and runs its pumps until the connection ends.
func (c *Client) Serve() {
	if !c.hub.register(c) {
		c.conn.Close()
		return
	}
	go c.writePump()
	c.readPump()
}

// readPump decodes frames and hands them to the hub. It is the only reader
// of the connection.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("read failed", "error", err)
			}
			return
		}

		codec := signaling.CodecForFrame(typ)
		ev, err := codec.Decode(data)
		if !c.hub.deliver(&Message{Event: ev, Err: err, client: c, codec: codec}) {
			return
		}
	}
}

// writePump writes frames queued by the hub and pings the peer. It is the
// only writer of the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(f.typ, f.data); err != nil {
				c.log.Debug("write failed", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
