package relay

import (
	"context"
	"log/slog"
	"strings"

	"github.com/codehiveofficial/codehive/internal/signaling"
)

// Hub owns every room and client. All state is touched only by the Run
// goroutine; clients talk to it through channels.
type Hub struct {
	rooms   map[string]*Room
	clients map[*Client]struct{}

	registerCh   chan *Client
	unregisterCh chan *Client
	inbound      chan *Message
	done         chan struct{}

	metrics *Metrics
	log     *slog.Logger
}

// NewHub creates a hub. metrics and log may be nil.
func NewHub(metrics *Metrics, log *slog.Logger) *Hub {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		rooms:        make(map[string]*Room),
		clients:      make(map[*Client]struct{}),
		registerCh:   make(chan *Client),
		unregisterCh: make(chan *Client),
		inbound:      make(chan *Message, 64),
		done:         make(chan struct{}),
		metrics:      metrics,
		log:          log,
	}
}

func (h *Hub) register(c *Client) bool {
	select {
	case h.registerCh <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.unregisterCh <- c:
	case <-h.done:
	}
}

func (h *Hub) deliver(m *Message) bool {
	select {
	case h.inbound <- m:
		return true
	case <-h.done:
		return false
	}
}

// Run processes hub traffic until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for c := range h.clients {
			h.drop(c)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.registerCh:
			h.clients[c] = struct{}{}
			h.metrics.Clients.Inc()
			c.log.Debug("client registered")

		case c := <-h.unregisterCh:
			if _, ok := h.clients[c]; !ok {
				continue
			}
			h.leave(c)
			h.dropOwnedRooms(c)
			h.drop(c)
			delete(h.clients, c)
			h.metrics.Clients.Dec()
			c.log.Debug("client unregistered")

		case m := <-h.inbound:
			h.handle(m)
		}
	}
}

func (h *Hub) handle(m *Message) {
	c := m.client
	if _, ok := h.clients[c]; !ok {
		return
	}
	c.codec = m.codec

	if m.Err != nil {
		c.log.Warn("rejecting frame", "error", m.Err)
		h.reject(c, "malformed", "Malformed message")
		return
	}

	kind := m.Event.Kind()
	h.metrics.Events.WithLabelValues(string(kind)).Inc()

	switch ev := m.Event.(type) {
	case signaling.CreateRoom:
		h.createRoom(c)
	case signaling.JoinRoom:
		h.joinRoom(c, ev)
	default:
		room := h.roomOf(c)
		if room == nil {
			h.reject(c, "not_joined", "You must join a room first")
			return
		}
		h.relay(c, room, m.Event)
	}
}

func (h *Hub) createRoom(c *Client) {
	id := newRoomID(func(id string) bool {
		_, ok := h.rooms[id]
		return ok
	})
	h.rooms[id] = &Room{ID: id, owner: c}
	h.metrics.Rooms.Inc()
	c.log.Info("room created", "room", id)
	h.send(c, signaling.RoomCreated{RoomID: id})
}

func (h *Hub) joinRoom(c *Client, ev signaling.JoinRoom) {
	roomID := strings.TrimSpace(ev.RoomID)
	if roomID == "" {
		h.reject(c, "bad_room", "Room id is required")
		return
	}
	if c.roomID != "" {
		h.leave(c)
	}

	room, ok := h.rooms[roomID]
	if !ok {
		room = &Room{ID: roomID, owner: c}
		h.rooms[roomID] = room
		h.metrics.Rooms.Inc()
	}

	c.Name = strings.TrimSpace(ev.UserName)
	existing := room.roster()
	room.add(c)
	c.roomID = room.ID
	c.log.Info("joined room", "room", room.ID, "members", len(room.members))

	h.send(c, signaling.RoomJoined{RoomID: room.ID, UserID: c.ID, Users: existing})
	h.broadcast(room, c, signaling.UserJoined{UserID: c.ID, UserName: c.Name})
}

// relay forwards an in-room event. Sender identity always comes from the
// connection, never from the payload.
func (h *Hub) relay(c *Client, room *Room, ev signaling.Event) {
	switch ev := ev.(type) {
	case signaling.SendingSignal:
		target := room.member(ev.UserToSignal)
		if target == nil {
			h.reject(c, "unknown_peer", "Peer not in room")
			return
		}
		h.send(target, signaling.UserJoinedWithSignal{Signal: ev.Signal, CallerID: c.ID, UserName: c.Name})

	case signaling.ReturningSignal:
		target := room.member(ev.CallerID)
		if target == nil {
			h.reject(c, "unknown_peer", "Peer not in room")
			return
		}
		h.send(target, signaling.ReceivingReturnedSignal{Signal: ev.Signal, ID: c.ID})

	case signaling.CodeChange:
		h.broadcast(room, c, signaling.ReceiveCodeChange{
			RoomID:         room.ID,
			Code:           ev.Code,
			CursorPosition: ev.CursorPosition,
		})

	case signaling.ChatMessage:
		name := ev.UserName
		if name == "" {
			name = c.Name
		}
		// chat echoes to the sender too
		h.broadcast(room, nil, signaling.ReceiveMessage{UserID: c.ID, UserName: name, Message: ev.Message})

	case signaling.ToggleVideo:
		h.broadcast(room, c, signaling.ReceiveToggleVideo{UserID: c.ID, Enabled: ev.Enabled})

	case signaling.ToggleAudio:
		h.broadcast(room, c, signaling.ReceiveToggleAudio{UserID: c.ID, Enabled: ev.Enabled})

	default:
		h.reject(c, "unsupported", "Unsupported event "+string(ev.Kind()))
	}
}

// leave removes c from its room, tells the others and deletes the room once empty.
func (h *Hub) leave(c *Client) {
	room := h.roomOf(c)
	c.roomID = ""
	if room == nil || !room.remove(c) {
		return
	}
	c.log.Info("left room", "room", room.ID, "members", len(room.members))

	if room.empty() {
		h.deleteRoom(room)
		return
	}
	if room.owner == c {
		room.owner = nil
	}
	h.broadcast(room, nil, signaling.UserLeft{UserID: c.ID})
}

// dropOwnedRooms deletes rooms c created but nobody ever joined.
func (h *Hub) dropOwnedRooms(c *Client) {
	for _, room := range h.rooms {
		if room.owner == c && room.empty() {
			h.deleteRoom(room)
		}
	}
}

func (h *Hub) deleteRoom(room *Room) {
	delete(h.rooms, room.ID)
	h.metrics.Rooms.Dec()
	h.log.Info("room deleted", "room", room.ID)
}

func (h *Hub) roomOf(c *Client) *Room {
	if c.roomID == "" {
		return nil
	}
	return h.rooms[c.roomID]
}

func (h *Hub) reject(c *Client, reason, text string) {
	h.metrics.Rejected.WithLabelValues(reason).Inc()
	h.send(c, signaling.Failure{Reason: text})
}

// broadcast sends ev to every member of room except skip.
func (h *Hub) broadcast(room *Room, skip *Client, ev signaling.Event) {
	for _, m := range room.members {
		if m != skip {
			h.send(m, ev)
		}
	}
}

// send encodes ev with the codec the client last spoke and queues it. A
// client whose queue is full is disconnected.
func (h *Hub) send(c *Client, ev signaling.Event) {
	if c.closed {
		return
	}
	data, err := c.codec.Encode(ev)
	if err != nil {
		c.log.Error("encode failed", "kind", ev.Kind(), "error", err)
		return
	}
	select {
	case c.send <- frame{typ: c.codec.FrameType(), data: data}:
	default:
		c.log.Warn("send queue full, dropping client")
		h.drop(c)
	}
}

// drop closes the client's queue, which makes its write pump hang up.
func (h *Hub) drop(c *Client) {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
