package signaling

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/codehiveofficial/codehive/internal/dns"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 256 * 1024
	sendBuffer     = 64
)

// Client manages the WebSocket connection to the relay.
type Client struct {
	conn     *websocket.Conn
	codec    Codec
	log      *slog.Logger
	incoming chan Event
	outgoing chan Event
	done     chan struct{}

	closeOnce sync.Once
}

// Option configures a Client.
type Option func(*dialOptions)

type dialOptions struct {
	codec    Codec
	log      *slog.Logger
	resolver *dns.Resolver
}

// WithCodec selects the wire codec. JSON is used when unset.
func WithCodec(c Codec) Option {
	return func(o *dialOptions) { o.codec = c }
}

// WithLogger sets the logger used for dropped or malformed frames.
func WithLogger(l *slog.Logger) Option {
	return func(o *dialOptions) { o.log = l }
}

// WithResolver routes host lookups through r instead of the system resolver.
func WithResolver(r *dns.Resolver) Option {
	return func(o *dialOptions) { o.resolver = r }
}

// Dial connects to the relay at serverURL and starts the read and write pumps.
func Dial(ctx context.Context, serverURL string, opts ...Option) (*Client, error) {
	o := dialOptions{codec: JSON, log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	dialer := *websocket.DefaultDialer
	if o.resolver != nil {
		dialer.NetDialContext = o.resolver.DialContext
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	c := &Client{
		conn:     conn,
		codec:    o.codec,
		log:      o.log.With("relay", u.Host),
		incoming: make(chan Event, sendBuffer),
		outgoing: make(chan Event, sendBuffer),
		done:     make(chan struct{}),
	}

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.readPump()
	go c.writePump()

	return c, nil
}

// readPump decodes frames from the connection. Frames that fail to decode
// are logged and skipped.
func (c *Client) readPump() {
	defer func() {
		c.Close()
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		frameType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("relay read failed", "error", err)
			}
			return
		}

		ev, err := CodecForFrame(frameType).Decode(data)
		if err != nil {
			c.log.Warn("dropping relay frame", "error", err)
			continue
		}

		select {
		case c.incoming <- ev:
		case <-c.done:
			return
		}
	}
}

// writePump writes queued events and sends periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev := <-c.outgoing:
			data, err := c.codec.Encode(ev)
			if err != nil {
				c.log.Error("encode failed", "kind", ev.Kind(), "error", err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(c.codec.FrameType(), data); err != nil {
				c.log.Warn("relay write failed", "kind", ev.Kind(), "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send queues ev for the write pump. It never blocks on network I/O.
func (c *Client) Send(ev Event) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.outgoing <- ev:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Incoming returns the channel of decoded events. It is closed when the
// connection ends.
func (c *Client) Incoming() <-chan Event {
	return c.incoming
}

// Close ends the connection. Calling it more than once is safe.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
