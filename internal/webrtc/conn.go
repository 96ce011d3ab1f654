package webrtc

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/codehiveofficial/codehive/internal/media"
	"github.com/codehiveofficial/codehive/internal/peer"
	"github.com/codehiveofficial/codehive/internal/signaling"
	pion "github.com/pion/webrtc/v4"
)

// sendable is implemented by local tracks that can be added to a peer
// connection.
type sendable interface {
	Local() pion.TrackLocal
}

// Conn is one pion peer connection.
type Conn struct {
	pc            *pion.PeerConnection
	cfg           peer.ConnConfig
	ctx           context.Context
	cancel        context.CancelFunc
	gatherTimeout time.Duration
	log           *slog.Logger

	// negotiation serialises offer/answer steps
	negotiation sync.Mutex

	remoteMu sync.Mutex
	remote   *remoteStream

	closeOnce sync.Once
}

// attachLocal adds every sendable local track and reports whether any was added.
func (c *Conn) attachLocal() (bool, error) {
	if c.cfg.Local == nil {
		return false, nil
	}
	added := false
	for _, t := range c.cfg.Local.Tracks() {
		s, ok := t.(sendable)
		if !ok {
			continue
		}
		sender, err := c.pc.AddTrack(s.Local())
		if err != nil {
			return false, &Error{Op: "add track", Peer: c.cfg.ParticipantID, Err: err}
		}
		added = true
		go drainRTCP(sender)
	}
	return added, nil
}

// drainRTCP reads incoming RTCP so interceptors such as NACK keep working.
func drainRTCP(sender *pion.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

func (c *Conn) addRecvOnly() {
	for _, kind := range []pion.RTPCodecType{pion.RTPCodecTypeVideo, pion.RTPCodecTypeAudio} {
		if _, err := c.pc.AddTransceiverFromKind(kind, pion.RTPTransceiverInit{
			Direction: pion.RTPTransceiverDirectionRecvonly,
		}); err != nil {
			c.log.Warn("add transceiver", "kind", kind, "error", err)
		}
	}
}

func (c *Conn) handleEvents() {
	c.pc.OnTrack(func(remote *pion.TrackRemote, _ *pion.RTPReceiver) {
		c.remoteMu.Lock()
		if c.remote == nil {
			c.remote = &remoteStream{id: remote.StreamID()}
		}
		s := c.remote
		c.remoteMu.Unlock()

		t := newRemoteTrack(remote)
		s.add(t)
		c.log.Debug("remote track", "kind", t.Kind(), "codec", remote.Codec().MimeType)
		go t.drain()

		c.cfg.Events.OnStream(s)
	})

	c.pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		c.log.Debug("connection state", "state", state.String())
		switch state {
		case pion.PeerConnectionStateConnected:
			c.cfg.Events.OnState(peer.Connected)
		case pion.PeerConnectionStateFailed:
			c.cfg.Events.OnState(peer.Failed)
		case pion.PeerConnectionStateClosed:
			c.cfg.Events.OnState(peer.Closed)
		}
	})
}

// offer creates the initiator's envelope once gathering completes.
func (c *Conn) offer() {
	c.negotiation.Lock()
	defer c.negotiation.Unlock()

	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		c.fail(&Error{Op: "create offer", Peer: c.cfg.ParticipantID, Err: err})
		return
	}
	if err := c.setLocal(offer); err != nil {
		c.fail(err)
		return
	}
	c.emitLocal()
}

// Signal applies a remote envelope. Validation happens immediately; the
// negotiation itself runs in the background and failures are reported as
// a Failed state.
func (c *Conn) Signal(sig signaling.Signal) error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}

	var sdpType pion.SDPType
	switch sig.Type {
	case "offer":
		if c.cfg.Role != peer.Responder {
			return &Error{Op: "handle signal", Peer: c.cfg.ParticipantID, Err: ErrUnexpectedSignal}
		}
		sdpType = pion.SDPTypeOffer
	case "answer":
		if c.cfg.Role != peer.Initiator {
			return &Error{Op: "handle signal", Peer: c.cfg.ParticipantID, Err: ErrUnexpectedSignal}
		}
		sdpType = pion.SDPTypeAnswer
	default:
		return &Error{Op: "handle signal", Peer: c.cfg.ParticipantID, Err: ErrUnexpectedSignal}
	}

	go c.applyRemote(pion.SessionDescription{Type: sdpType, SDP: sig.SDP})
	return nil
}

func (c *Conn) applyRemote(desc pion.SessionDescription) {
	c.negotiation.Lock()
	defer c.negotiation.Unlock()
	if c.ctx.Err() != nil {
		return
	}

	if err := c.pc.SetRemoteDescription(desc); err != nil {
		c.fail(&Error{Op: "set remote description", Peer: c.cfg.ParticipantID, Err: err})
		return
	}
	if desc.Type != pion.SDPTypeOffer {
		return
	}

	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		c.fail(&Error{Op: "create answer", Peer: c.cfg.ParticipantID, Err: err})
		return
	}
	if err := c.setLocal(answer); err != nil {
		c.fail(err)
		return
	}
	c.emitLocal()
}

// setLocal sets the local description and waits for ICE gathering.
func (c *Conn) setLocal(desc pion.SessionDescription) error {
	gathered := pion.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(desc); err != nil {
		return &Error{Op: "set local description", Peer: c.cfg.ParticipantID, Err: err}
	}

	timer := time.NewTimer(c.gatherTimeout)
	defer timer.Stop()
	select {
	case <-gathered:
	case <-timer.C:
		c.log.Warn("ICE gathering incomplete, sending partial candidates", "error", ErrGatherTimeout)
	case <-c.ctx.Done():
		return ErrClosed
	}
	return nil
}

func (c *Conn) emitLocal() {
	local := c.pc.LocalDescription()
	if local == nil || c.ctx.Err() != nil {
		return
	}
	c.cfg.Events.OnSignal(signaling.Signal{Type: local.Type.String(), SDP: local.SDP})
}

func (c *Conn) fail(err error) {
	if errors.Is(err, ErrClosed) || c.ctx.Err() != nil {
		return
	}
	c.log.Warn("negotiation failed", "error", err)
	c.cfg.Events.OnState(peer.Failed)
}

// Close tears the connection down. Local tracks are left running.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.pc.Close()
	})
	return err
}

type remoteStream struct {
	id string

	mu     sync.Mutex
	tracks []media.Track
}

func (s *remoteStream) ID() string { return s.id }

func (s *remoteStream) Tracks() []media.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]media.Track(nil), s.tracks...)
}

func (s *remoteStream) add(t media.Track) {
	s.mu.Lock()
	s.tracks = append(s.tracks, t)
	s.mu.Unlock()
}

// remoteTrack reads RTP off the wire. Nothing decodes it here; the
// byte count is what the UI shows.
type remoteTrack struct {
	*media.BasicTrack
	remote *pion.TrackRemote

	mu      sync.Mutex
	packets uint64
	bytes   uint64
}

func newRemoteTrack(remote *pion.TrackRemote) *remoteTrack {
	kind := media.KindAudio
	if remote.Kind() == pion.RTPCodecTypeVideo {
		kind = media.KindVideo
	}
	return &remoteTrack{
		BasicTrack: media.NewTrack(remote.ID(), kind, nil),
		remote:     remote,
	}
}

func (t *remoteTrack) drain() {
	buf := make([]byte, 1500)
	for {
		n, _, err := t.remote.Read(buf)
		if err != nil {
			return
		}
		if t.Stopped() {
			continue
		}
		t.mu.Lock()
		t.packets++
		t.bytes += uint64(n)
		t.mu.Unlock()
	}
}

// Received reports the packets and bytes read so far.
func (t *remoteTrack) Received() (packets, bytes uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.packets, t.bytes
}
