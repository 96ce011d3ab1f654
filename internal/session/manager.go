// Package session coordinates one participant's view of a collaborative
// room: local media, the relay connection, the peer mesh, the shared
// document and chat.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/codehiveofficial/codehive/internal/chat"
	"github.com/codehiveofficial/codehive/internal/docsync"
	"github.com/codehiveofficial/codehive/internal/media"
	"github.com/codehiveofficial/codehive/internal/peer"
	"github.com/codehiveofficial/codehive/internal/signaling"
	"github.com/codehiveofficial/codehive/internal/watch"
)

// DefaultJoinTimeout bounds the wait for the relay's create/join acks.
const DefaultJoinTimeout = 15 * time.Second

// Relay is a connection to the message relay. signaling.Client implements it.
type Relay interface {
	Send(signaling.Event) error
	Incoming() <-chan signaling.Event
	Close()
}

// Dialer opens a relay connection.
type Dialer func(ctx context.Context) (Relay, error)

// Config holds the Manager's collaborators.
type Config struct {
	Dial        Dialer
	Acquirer    media.Acquirer
	Connector   peer.Connector
	Constraints media.Constraints
	JoinTimeout time.Duration
	Log         *slog.Logger
}

type result struct {
	ev  signaling.Event
	err error
}

// waiter is a create or join request expecting an ack of kind.
type waiter struct {
	kind signaling.Kind
	done chan result
}

// Manager is the session state machine. All methods are safe for
// concurrent use.
type Manager struct {
	cfg     Config
	log     *slog.Logger
	media   *media.Controller
	targets *media.Targets
	doc     *docsync.Channel
	chat    *chat.Channel

	mu           sync.Mutex
	state        State
	gen          uint64
	relay        Relay
	registry     *peer.Registry
	waiter       *waiter
	room         Room
	self         Participant
	participants []*Participant

	updates watch.Broadcaster[Update]
}

func New(cfg Config) *Manager {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = DefaultJoinTimeout
	}
	if cfg.Constraints == (media.Constraints{}) {
		cfg.Constraints = media.DefaultConstraints()
	}
	log := cfg.Log.With("component", "session")
	return &Manager{
		cfg:     cfg,
		log:     log,
		media:   media.NewController(cfg.Acquirer, cfg.Log),
		targets: media.NewTargets(),
		doc:     docsync.New(cfg.Log),
		chat:    chat.New(cfg.Log),
	}
}

// Media exposes the local media controller.
func (m *Manager) Media() *media.Controller { return m.media }

// Targets exposes the render targets of remote participants.
func (m *Manager) Targets() *media.Targets { return m.targets }

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Updates subscribes to view changes. Call the returned function to stop.
func (m *Manager) Updates() (<-chan Update, func()) {
	return m.updates.Subscribe()
}

// Start brings the session up to Ready by acquiring local media.
func (m *Manager) Start(ctx context.Context) error {
	return m.InitializeMedia(ctx)
}

// InitializeMedia acquires camera and microphone. It may be retried after
// a failure or from Ready, but not while in a room.
func (m *Manager) InitializeMedia(ctx context.Context) error {
	const op = "initialize media"

	m.mu.Lock()
	if m.state.inRoom() || m.state == Initializing {
		state := m.state
		m.mu.Unlock()
		return wrapError(op, ErrBusy, state.String())
	}
	m.state = Initializing
	gen := m.gen
	m.mu.Unlock()
	m.publish("initializing", nil)

	s, err := m.media.Open(ctx, m.cfg.Constraints)

	m.mu.Lock()
	if m.gen != gen || m.state != Initializing {
		m.mu.Unlock()
		if err == nil {
			media.StopAll(s)
		}
		return newError(op, ErrAborted)
	}
	if err != nil {
		m.state = Idle
		if m.media.Local() != nil {
			m.state = Ready
		}
		m.mu.Unlock()
		m.log.Warn("media access failed", "error", err)
		m.publish("media failed", err)
		return newError(op, err)
	}
	m.media.Adopt(s)
	m.state = Ready
	m.self.VideoEnabled = m.media.VideoEnabled()
	m.self.AudioEnabled = m.media.AudioEnabled()
	m.mu.Unlock()

	m.log.Info("media ready")
	m.publish("media ready", nil)
	return nil
}

// CreateRoom asks the relay for a new room and joins it.
func (m *Manager) CreateRoom(ctx context.Context, displayName string) (string, error) {
	const op = "create room"

	name := strings.TrimSpace(displayName)
	if err := m.begin(op, name, "-"); err != nil {
		return "", err
	}

	relay, err := m.connect(ctx, op)
	if err != nil {
		return "", err
	}

	ev, err := m.await(ctx, op, relay, signaling.CreateRoom{}, signaling.KindRoomCreated)
	if err != nil {
		return "", err
	}
	roomID := ev.(signaling.RoomCreated).RoomID

	if _, err := m.await(ctx, op, relay, signaling.JoinRoom{RoomID: roomID, UserName: name}, signaling.KindRoomJoined); err != nil {
		return "", err
	}
	return roomID, nil
}

// JoinRoom connects to the relay if needed and joins roomID. It returns
// once the relay acknowledges membership.
func (m *Manager) JoinRoom(ctx context.Context, roomID, displayName string) error {
	const op = "join room"

	name := strings.TrimSpace(displayName)
	roomID = strings.TrimSpace(roomID)
	if err := m.begin(op, name, roomID); err != nil {
		return err
	}

	relay, err := m.connect(ctx, op)
	if err != nil {
		return err
	}
	_, err = m.await(ctx, op, relay, signaling.JoinRoom{RoomID: roomID, UserName: name}, signaling.KindRoomJoined)
	return err
}

// begin checks join preconditions and moves to Joining. State is left
// untouched when a precondition fails.
func (m *Manager) begin(op, name, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.state == Idle || m.state == Initializing:
		return newError(op, ErrMediaNotReady)
	case m.state != Ready:
		return wrapError(op, ErrBusy, m.state.String())
	case name == "":
		return newError(op, ErrEmptyName)
	case roomID == "":
		return newError(op, ErrEmptyRoom)
	}

	m.state = Joining
	m.self.DisplayName = name
	return nil
}

// connect dials the relay and starts its dispatch loop.
func (m *Manager) connect(ctx context.Context, op string) (Relay, error) {
	m.mu.Lock()
	if m.relay != nil {
		r := m.relay
		m.mu.Unlock()
		return r, nil
	}
	gen := m.gen
	m.mu.Unlock()
	m.publish("connecting", nil)

	r, err := m.cfg.Dial(ctx)
	if err != nil {
		m.abortJoin(nil)
		return nil, newError(op, err)
	}

	m.mu.Lock()
	if m.gen != gen || m.state != Joining {
		m.mu.Unlock()
		r.Close()
		return nil, newError(op, ErrAborted)
	}
	m.relay = r
	m.mu.Unlock()

	go m.dispatch(r)
	return r, nil
}

// await sends ev and waits for the matching ack. Any failure returns the
// manager to Ready.
func (m *Manager) await(ctx context.Context, op string, r Relay, ev signaling.Event, ack signaling.Kind) (signaling.Event, error) {
	w := &waiter{kind: ack, done: make(chan result, 1)}

	m.mu.Lock()
	if m.state != Joining || m.relay != r {
		err := ErrAborted
		if m.state == Joining {
			err = ErrRelayClosed
		}
		m.mu.Unlock()
		m.abortJoin(r)
		return nil, newError(op, err)
	}
	m.waiter = w
	m.mu.Unlock()

	if err := r.Send(ev); err != nil {
		m.clearWaiter(w)
		m.abortJoin(r)
		return nil, newError(op, err)
	}

	timer := time.NewTimer(m.cfg.JoinTimeout)
	defer timer.Stop()

	var res result
	select {
	case res = <-w.done:
	case <-ctx.Done():
		res = m.settle(w, ctx.Err())
	case <-timer.C:
		res = m.settle(w, ErrTimeout)
	}

	if res.err != nil {
		m.abortJoin(r)
		if errors.Is(res.err, ErrAborted) {
			return nil, newError(op, ErrAborted)
		}
		var failure signaling.Failure
		if errors.As(res.err, &failure) {
			return nil, wrapError(op, ErrRejected, failure.Reason)
		}
		return nil, newError(op, res.err)
	}
	return res.ev, nil
}

// settle resolves a wait that ended without an ack. If the dispatch loop
// already took the waiter its result wins.
func (m *Manager) settle(w *waiter, err error) result {
	m.mu.Lock()
	if m.waiter == w {
		m.waiter = nil
		m.mu.Unlock()
		return result{err: err}
	}
	m.mu.Unlock()
	return <-w.done
}

func (m *Manager) clearWaiter(w *waiter) {
	m.mu.Lock()
	if m.waiter == w {
		m.waiter = nil
	}
	m.mu.Unlock()
}

// abortJoin drops a half-open join and returns to Ready.
func (m *Manager) abortJoin(r Relay) {
	m.mu.Lock()
	if m.state != Joining || (m.relay != nil && m.relay != r) {
		m.mu.Unlock()
		if r != nil {
			r.Close()
		}
		return
	}
	m.relay = nil
	m.self = Participant{VideoEnabled: m.media.VideoEnabled(), AudioEnabled: m.media.AudioEnabled()}
	m.state = Ready
	m.mu.Unlock()

	if r != nil {
		r.Close()
	}
	m.publish("join failed", nil)
}

// LeaveRoom tears down the session from any state: links, local media,
// relay, document and chat. Calling it again is a no-op.
func (m *Manager) LeaveRoom() {
	m.mu.Lock()
	if m.state == Idle && m.relay == nil && m.registry == nil && m.media.Local() == nil {
		m.mu.Unlock()
		return
	}
	m.state = Leaving
	m.gen++
	relay, reg, w := m.relay, m.registry, m.waiter
	m.relay, m.registry, m.waiter = nil, nil, nil
	room := m.room
	m.room = Room{}
	m.self = Participant{}
	m.participants = nil
	m.mu.Unlock()

	if w != nil {
		w.done <- result{err: ErrAborted}
	}
	m.publish("leaving", nil)

	if reg != nil {
		reg.Destroy()
	}
	m.media.Release()
	if relay != nil {
		relay.Close()
	}
	m.doc.Reset()
	m.chat.Reset()
	m.targets.Clear()

	m.mu.Lock()
	m.state = Idle
	m.mu.Unlock()

	m.log.Info("left session", "room", room.ID)
	m.publish("left", nil)
}

// ToggleVideo flips local video and tells the room.
func (m *Manager) ToggleVideo() (bool, error) {
	return m.toggle("toggle video", media.KindVideo)
}

// ToggleAudio flips local audio and tells the room.
func (m *Manager) ToggleAudio() (bool, error) {
	return m.toggle("toggle audio", media.KindAudio)
}

func (m *Manager) toggle(op string, kind media.Kind) (bool, error) {
	var (
		on  bool
		err error
	)
	if kind == media.KindVideo {
		on, err = m.media.ToggleVideo()
	} else {
		on, err = m.media.ToggleAudio()
	}
	if err != nil {
		return false, newError(op, ErrMediaNotReady)
	}

	m.mu.Lock()
	if kind == media.KindVideo {
		m.self.VideoEnabled = on
	} else {
		m.self.AudioEnabled = on
	}
	relay, roomID, joined := m.relay, m.room.ID, m.state == Joined
	m.mu.Unlock()

	if joined {
		var ev signaling.Event = signaling.ToggleVideo{RoomID: roomID, Enabled: on}
		if kind == media.KindAudio {
			ev = signaling.ToggleAudio{RoomID: roomID, Enabled: on}
		}
		if err := relay.Send(ev); err != nil {
			m.log.Warn("failed to announce toggle", "kind", kind, "error", err)
		}
	}
	m.publish(fmt.Sprintf("%s %v", kind, on), nil)
	return on, nil
}

// Edit replaces the shared document and broadcasts it.
func (m *Manager) Edit(text string, cursor *docsync.Cursor) error {
	if err := m.doc.Edit(text, cursor); err != nil {
		if errors.Is(err, docsync.ErrNotJoined) {
			return newError("edit", ErrNotJoined)
		}
		return newError("edit", err)
	}
	return nil
}

// SendMessage sends a chat message. It appears locally once the relay
// echoes it.
func (m *Manager) SendMessage(text string) error {
	if err := m.chat.Send(text); err != nil {
		if errors.Is(err, chat.ErrNotJoined) {
			return newError("send message", ErrNotJoined)
		}
		return newError("send message", err)
	}
	return nil
}

// Document returns the shared document.
func (m *Manager) Document() docsync.State {
	return m.doc.State()
}

// Snapshot returns a consistent copy of the session.
func (m *Manager) Snapshot() View {
	m.mu.Lock()
	v := View{
		State: m.state,
		Room:  m.room,
		Self:  m.self,
	}
	for _, p := range m.participants {
		v.Participants = append(v.Participants, *p)
	}
	reg := m.registry
	m.mu.Unlock()

	if reg != nil {
		v.Links = reg.Links()
	}
	v.Document = m.doc.State()
	v.Messages = m.chat.Messages()
	return v
}

func (m *Manager) publish(reason string, err error) {
	m.updates.Publish(Update{State: m.State(), Reason: reason, Err: err})
}
