// Package peer keeps one media connection per remote participant and
// routes call-signaling envelopes to them.
package peer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/codehiveofficial/codehive/internal/media"
	"github.com/codehiveofficial/codehive/internal/signaling"
)

// Config wires a Registry to its collaborators. Connector and Signaler are
// required.
type Config struct {
	Connector Connector
	Signaler  Signaler
	Local     LocalSource
	Targets   *media.Targets
	Log       *slog.Logger

	// OnStream is called when a remote stream arrives for a live link, with
	// the render target attached for it. A target whose link goes away
	// during the call is detached afterwards.
	OnStream func(id string, s media.Stream, t *media.Target)
	// OnChange is called after any link is added, changes state or goes away.
	OnChange func()
}

type entry struct {
	link Link
	conn Conn

	// envelopes that arrived before the connection finished opening
	pending []signaling.Signal
}

// Registry is the set of live links, keyed by participant id. At most one
// link exists per id.
type Registry struct {
	cfg    Config
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	links     map[string]*entry
	destroyed bool
}

func NewRegistry(cfg Config) *Registry {
	if cfg.Targets == nil {
		cfg.Targets = media.NewTargets()
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		cfg:    cfg,
		log:    log.With("component", "peer"),
		ctx:    ctx,
		cancel: cancel,
		links:  make(map[string]*entry),
	}
}

// Connect opens an initiator link to id. Its offer goes out through
// Signaler.Offer. A second call for an id with a live link is ignored.
func (r *Registry) Connect(id string) error {
	return r.open(id, Initiator, nil)
}

// Accept opens a responder link for an incoming offer from id and applies
// the offer. The answer goes out through Signaler.Answer.
func (r *Registry) Accept(id string, offer signaling.Signal) error {
	return r.open(id, Responder, &offer)
}

func (r *Registry) open(id string, role Role, offer *signaling.Signal) error {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return nil
	}
	if e, ok := r.links[id]; ok && e.link.State != Closed {
		r.mu.Unlock()
		r.log.Debug("link exists, ignoring", "peer", id, "role", role)
		return nil
	}
	e := &entry{link: Link{ParticipantID: id, Role: role, State: Pending}}
	if offer != nil {
		e.pending = append(e.pending, *offer)
	}
	r.links[id] = e
	r.mu.Unlock()
	r.changed()

	var local media.Stream
	if r.cfg.Local != nil {
		local = r.cfg.Local.Local()
	}

	conn, err := r.cfg.Connector.NewConn(r.ctx, ConnConfig{
		ParticipantID: id,
		Role:          role,
		Local:         local,
		Events:        r.events(id, e),
	})
	if err != nil {
		r.drop(id, e, Failed)
		return fmt.Errorf("open link to %s: %w", id, err)
	}

	r.mu.Lock()
	if !r.current(id, e) {
		r.mu.Unlock()
		conn.Close()
		return nil
	}
	e.conn = conn
	queued := e.pending
	e.pending = nil
	r.mu.Unlock()

	r.log.Debug("link opened", "peer", id, "role", role)
	return r.apply(id, e, conn, queued)
}

// Complete hands a returned envelope to the initiator link for id. It is
// dropped when no such link exists.
func (r *Registry) Complete(id string, answer signaling.Signal) error {
	r.mu.Lock()
	e, ok := r.links[id]
	if !ok || r.destroyed {
		r.mu.Unlock()
		r.log.Debug("no link for returned signal, dropping", "peer", id)
		return nil
	}
	if e.link.Role != Initiator {
		r.mu.Unlock()
		r.log.Debug("returned signal for responder link, dropping", "peer", id)
		return nil
	}
	conn := e.conn
	if conn == nil {
		e.pending = append(e.pending, answer)
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	return r.apply(id, e, conn, []signaling.Signal{answer})
}

func (r *Registry) apply(id string, e *entry, conn Conn, sigs []signaling.Signal) error {
	for _, sig := range sigs {
		if err := conn.Signal(sig); err != nil {
			r.log.Warn("signal rejected", "peer", id, "type", sig.Type, "error", err)
			r.drop(id, e, Failed)
			return fmt.Errorf("apply %s from %s: %w", sig.Type, id, err)
		}
	}
	return nil
}

// Remove destroys the link for id and detaches its render target. Removing
// an unknown id does nothing.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	e, ok := r.links[id]
	r.mu.Unlock()
	if ok {
		r.drop(id, e, Closed)
	} else {
		r.cfg.Targets.Detach(id)
	}
}

// Destroy closes every link. The registry ignores all calls afterwards.
func (r *Registry) Destroy() {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	r.destroyed = true
	entries := r.links
	r.links = make(map[string]*entry)
	r.mu.Unlock()

	r.cancel()
	for id, e := range entries {
		r.closeEntry(id, e, Closed)
	}
	r.changed()
}

// Destroyed reports whether Destroy has run.
func (r *Registry) Destroyed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.destroyed
}

// Len returns the number of live links.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.links)
}

// Connected returns the number of links in the Connected state.
func (r *Registry) Connected() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.links {
		if e.link.State == Connected {
			n++
		}
	}
	return n
}

// Link returns a snapshot of the link for id.
func (r *Registry) Link(id string) (Link, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.links[id]
	if !ok {
		return Link{}, false
	}
	return e.link, true
}

// Links returns snapshots of every live link ordered by participant id.
func (r *Registry) Links() []Link {
	r.mu.Lock()
	links := make([]Link, 0, len(r.links))
	for _, e := range r.links {
		links = append(links, e.link)
	}
	r.mu.Unlock()

	sort.Slice(links, func(i, j int) bool {
		return links[i].ParticipantID < links[j].ParticipantID
	})
	return links
}

// events binds connection callbacks to one entry. Callbacks for an entry
// that has since been replaced or removed are ignored.
func (r *Registry) events(id string, e *entry) Events {
	return Events{
		OnSignal: func(sig signaling.Signal) {
			r.mu.Lock()
			live := r.current(id, e)
			role := e.link.Role
			r.mu.Unlock()
			if !live {
				return
			}

			send := r.cfg.Signaler.Offer
			if role == Responder {
				send = r.cfg.Signaler.Answer
			}
			if err := send(id, sig); err != nil {
				r.log.Warn("failed to send signal", "peer", id, "type", sig.Type, "error", err)
			}
		},

		OnStream: func(s media.Stream) {
			var target *media.Target
			r.mu.Lock()
			live := r.current(id, e)
			if live {
				e.link.RemoteStream = s
				target = r.cfg.Targets.Attach(id)
			}
			r.mu.Unlock()
			if !live {
				return
			}

			r.log.Debug("remote stream", "peer", id, "stream", s.ID())
			if r.cfg.OnStream != nil {
				r.cfg.OnStream(id, s, target)
			}

			r.mu.Lock()
			live = r.current(id, e)
			r.mu.Unlock()
			if !live {
				r.cfg.Targets.DetachTarget(target)
				return
			}
			r.changed()
		},

		OnState: func(s State) {
			switch s {
			case Connected:
				r.mu.Lock()
				live := r.current(id, e)
				if live {
					e.link.State = Connected
				}
				r.mu.Unlock()
				if live {
					r.log.Info("peer connected", "peer", id)
					r.changed()
				}
			case Failed, Closed:
				r.drop(id, e, s)
			}
		},
	}
}

// current reports whether e is still the live entry for id. r.mu must be held.
func (r *Registry) current(id string, e *entry) bool {
	return !r.destroyed && r.links[id] == e
}

// drop removes e if it is still the entry for id and closes it.
func (r *Registry) drop(id string, e *entry, final State) {
	r.mu.Lock()
	if !r.current(id, e) {
		r.mu.Unlock()
		return
	}
	delete(r.links, id)
	r.mu.Unlock()

	if final == Failed {
		r.log.Warn("peer connection failed", "peer", id)
	} else {
		r.log.Info("peer removed", "peer", id)
	}
	r.closeEntry(id, e, final)
	r.changed()
}

func (r *Registry) closeEntry(id string, e *entry, final State) {
	r.mu.Lock()
	e.link.State = final
	conn := e.conn
	e.conn = nil
	r.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			r.log.Debug("close link", "peer", id, "error", err)
		}
	}
	r.cfg.Targets.Detach(id)
}

func (r *Registry) changed() {
	if r.cfg.OnChange != nil {
		r.cfg.OnChange()
	}
}
