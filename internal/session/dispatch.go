package session

import (
	"github.com/codehiveofficial/codehive/internal/media"
	"github.com/codehiveofficial/codehive/internal/peer"
	"github.com/codehiveofficial/codehive/internal/signaling"
)

// relaySignaler carries peer negotiation over the relay.
type relaySignaler struct {
	relay Relay
	self  string
}

func (s relaySignaler) Offer(to string, sig signaling.Signal) error {
	return s.relay.Send(signaling.SendingSignal{UserToSignal: to, CallerID: s.self, Signal: sig})
}

func (s relaySignaler) Answer(to string, sig signaling.Signal) error {
	return s.relay.Send(signaling.ReturningSignal{Signal: sig, CallerID: to})
}

// dispatch handles events from r until it closes.
func (m *Manager) dispatch(r Relay) {
	for ev := range r.Incoming() {
		m.handle(r, ev)
	}
	m.relayLost(r)
}

func (m *Manager) handle(r Relay, ev signaling.Event) {
	m.mu.Lock()
	if m.relay != r {
		m.mu.Unlock()
		return
	}

	switch ev := ev.(type) {
	case signaling.RoomCreated:
		m.resolve(ev, nil)
		m.mu.Unlock()

	case signaling.RoomJoined:
		if m.state != Joining || m.waiter == nil || m.waiter.kind != signaling.KindRoomJoined {
			m.mu.Unlock()
			m.log.Debug("unexpected room_joined", "room", ev.RoomID)
			return
		}
		m.enter(r, ev)
		m.resolve(ev, nil)
		m.mu.Unlock()
		m.log.Info("joined room", "room", ev.RoomID, "participants", len(ev.Users))
		m.publish("joined", nil)

	case signaling.Failure:
		if m.waiter != nil {
			m.resolve(nil, ev)
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()
		m.log.Warn("relay reported error", "reason", ev.Reason)

	default:
		if m.state != Joined {
			m.mu.Unlock()
			m.log.Debug("dropping event outside room", "kind", ev.Kind())
			return
		}
		reg := m.registry
		m.mu.Unlock()
		m.handleRoom(reg, ev)
	}
}

// handleRoom processes an event for the joined room. reg identifies the
// room the event was read for; writes are dropped once it is gone.
func (m *Manager) handleRoom(reg *peer.Registry, ev signaling.Event) {
	switch ev := ev.(type) {
	case signaling.UserJoined:
		if !m.addParticipant(reg, ev.UserID, ev.UserName) {
			return
		}
		if err := reg.Connect(ev.UserID); err != nil {
			m.log.Warn("failed to connect to participant", "peer", ev.UserID, "error", err)
		}

	case signaling.UserJoinedWithSignal:
		if !m.addParticipant(reg, ev.CallerID, ev.UserName) {
			return
		}
		if err := reg.Accept(ev.CallerID, ev.Signal); err != nil {
			m.log.Warn("failed to accept offer", "peer", ev.CallerID, "error", err)
		}

	case signaling.ReceivingReturnedSignal:
		if err := reg.Complete(ev.ID, ev.Signal); err != nil {
			m.log.Debug("ignoring answer", "peer", ev.ID, "error", err)
		}

	case signaling.UserLeft:
		m.removeParticipant(reg, ev.UserID)
		reg.Remove(ev.UserID)

	case signaling.ReceiveCodeChange:
		m.inLiveRoom(reg, "document changed", func() { m.doc.Apply(ev) })

	case signaling.ReceiveMessage:
		m.inLiveRoom(reg, "message", func() { m.chat.Receive(ev) })

	case signaling.ReceiveToggleVideo:
		m.inLiveRoom(reg, "participant media changed", func() {
			m.setFlags(ev.UserID, func(p *Participant) { p.VideoEnabled = ev.Enabled })
		})

	case signaling.ReceiveToggleAudio:
		m.inLiveRoom(reg, "participant media changed", func() {
			m.setFlags(ev.UserID, func(p *Participant) { p.AudioEnabled = ev.Enabled })
		})

	default:
		m.log.Debug("ignoring event", "kind", ev.Kind())
	}
}

// live reports whether reg still belongs to the joined room. m.mu must be
// held.
func (m *Manager) live(reg *peer.Registry) bool {
	return m.state == Joined && m.registry == reg
}

// inLiveRoom runs apply under m.mu if reg is still live, then publishes.
func (m *Manager) inLiveRoom(reg *peer.Registry, reason string, apply func()) {
	m.mu.Lock()
	if !m.live(reg) {
		m.mu.Unlock()
		return
	}
	apply()
	m.mu.Unlock()
	m.publish(reason, nil)
}

// enter sets up room state from the join ack. m.mu must be held.
func (m *Manager) enter(r Relay, ev signaling.RoomJoined) {
	m.room = Room{ID: ev.RoomID}
	m.self.ID = ev.UserID
	m.self.VideoEnabled = m.media.VideoEnabled()
	m.self.AudioEnabled = m.media.AudioEnabled()

	m.participants = m.participants[:0]
	for _, u := range ev.Users {
		if u.UserID == ev.UserID {
			continue
		}
		m.participants = append(m.participants, &Participant{
			ID:           u.UserID,
			DisplayName:  u.UserName,
			VideoEnabled: true,
			AudioEnabled: true,
		})
	}

	m.registry = peer.NewRegistry(peer.Config{
		Connector: m.cfg.Connector,
		Signaler:  relaySignaler{relay: r, self: ev.UserID},
		Local:     m.media,
		Targets:   m.targets,
		Log:       m.cfg.Log,
		OnStream: func(id string, s media.Stream, t *media.Target) {
			m.media.BindStream(s, t)
		},
		OnChange: func() { m.publish("links changed", nil) },
	})
	m.doc.Reset()
	m.chat.Reset()
	m.doc.Bind(ev.RoomID, r)
	m.chat.Bind(ev.UserID, m.self.DisplayName, r)
	m.state = Joined
}

// resolve hands an ack or failure to the pending waiter. m.mu must be held.
func (m *Manager) resolve(ev signaling.Event, err error) {
	w := m.waiter
	if w == nil {
		return
	}
	if err == nil && ev.Kind() != w.kind {
		return
	}
	m.waiter = nil
	w.done <- result{ev: ev, err: err}
}

func (m *Manager) addParticipant(reg *peer.Registry, id, name string) bool {
	m.mu.Lock()
	if !m.live(reg) {
		m.mu.Unlock()
		return false
	}
	for _, p := range m.participants {
		if p.ID == id {
			if name != "" {
				p.DisplayName = name
			}
			m.mu.Unlock()
			return true
		}
	}
	m.participants = append(m.participants, &Participant{
		ID:           id,
		DisplayName:  name,
		VideoEnabled: true,
		AudioEnabled: true,
	})
	m.mu.Unlock()
	m.log.Info("participant joined", "peer", id, "name", name)
	m.publish("participant joined", nil)
	return true
}

func (m *Manager) removeParticipant(reg *peer.Registry, id string) {
	m.mu.Lock()
	if !m.live(reg) {
		m.mu.Unlock()
		return
	}
	for i, p := range m.participants {
		if p.ID == id {
			m.participants = append(m.participants[:i], m.participants[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
	m.log.Info("participant left", "peer", id)
	m.publish("participant left", nil)
}

// setFlags updates a participant's media flags. m.mu must be held.
func (m *Manager) setFlags(id string, set func(*Participant)) {
	for _, p := range m.participants {
		if p.ID == id {
			set(p)
		}
	}
}

// relayLost handles the relay going away on its own. Room state is torn
// down and local media kept so the user can join again.
func (m *Manager) relayLost(r Relay) {
	m.mu.Lock()
	if m.relay != r {
		m.mu.Unlock()
		return
	}
	m.relay = nil

	if m.state == Joining {
		m.resolve(nil, ErrRelayClosed)
		m.mu.Unlock()
		return
	}

	reg := m.registry
	m.registry = nil
	roomID := m.room.ID
	m.room = Room{}
	m.participants = nil
	m.self = Participant{
		DisplayName:  m.self.DisplayName,
		VideoEnabled: m.self.VideoEnabled,
		AudioEnabled: m.self.AudioEnabled,
	}
	if m.state == Joined {
		m.state = Ready
	}
	m.mu.Unlock()

	if reg != nil {
		reg.Destroy()
	}
	m.doc.Reset()
	m.chat.Reset()
	m.targets.Clear()

	m.log.Warn("relay connection lost", "room", roomID)
	m.publish("relay lost", ErrRelayClosed)
}
