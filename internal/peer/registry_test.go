package peer_test

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/codehiveofficial/codehive/internal/media"
	"github.com/codehiveofficial/codehive/internal/peer"
	"github.com/codehiveofficial/codehive/internal/peer/peertest"
	"github.com/codehiveofficial/codehive/internal/signaling"
)

type sent struct {
	kind string
	to   string
	sig  signaling.Signal
}

type recorder struct {
	mu   sync.Mutex
	sent []sent
}

func (r *recorder) Offer(to string, sig signaling.Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{"offer", to, sig})
	return nil
}

func (r *recorder) Answer(to string, sig signaling.Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{"answer", to, sig})
	return nil
}

func (r *recorder) all() []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sent(nil), r.sent...)
}

type localStream struct{ s media.Stream }

func (l localStream) Local() media.Stream { return l.s }

type fixture struct {
	reg     *peer.Registry
	conns   *peertest.Connector
	sig     *recorder
	targets *media.Targets
	local   media.Stream
	streams map[string]media.Stream
	bound   map[string]*media.Target

	// during runs inside OnStream
	during func(id string)
}

func newFixture() *fixture {
	f := &fixture{
		conns:   &peertest.Connector{},
		sig:     &recorder{},
		targets: media.NewTargets(),
		local:   media.NewStream("local", media.NewTrack("v", media.KindVideo, nil), media.NewTrack("a", media.KindAudio, nil)),
		streams: make(map[string]media.Stream),
		bound:   make(map[string]*media.Target),
	}
	var mu sync.Mutex
	f.reg = peer.NewRegistry(peer.Config{
		Connector: f.conns,
		Signaler:  f.sig,
		Local:     localStream{f.local},
		Targets:   f.targets,
		OnStream: func(id string, s media.Stream, target *media.Target) {
			mu.Lock()
			f.streams[id] = s
			f.bound[id] = target
			during := f.during
			mu.Unlock()
			if during != nil {
				during(id)
			}
		},
	})
	return f
}

func TestConnectAndComplete(t *testing.T) {
	f := newFixture()
	if err := f.reg.Connect("b"); err != nil {
		t.Fatal(err)
	}

	sent := f.sig.all()
	if len(sent) != 1 || sent[0].kind != "offer" || sent[0].to != "b" {
		t.Fatalf("sent %+v", sent)
	}
	link, ok := f.reg.Link("b")
	if !ok || link.Role != peer.Initiator || link.State != peer.Pending {
		t.Fatalf("link %+v", link)
	}
	if f.conns.Last("b").Local() != f.local {
		t.Errorf("local stream not attached")
	}

	if err := f.reg.Complete("b", signaling.Signal{Type: "answer", SDP: "x"}); err != nil {
		t.Fatal(err)
	}
	link, _ = f.reg.Link("b")
	if link.State != peer.Connected || link.RemoteStream == nil {
		t.Errorf("after answer %+v", link)
	}
	if f.streams["b"] != link.RemoteStream {
		t.Errorf("OnStream not fired with remote stream")
	}
	if f.reg.Connected() != 1 || f.reg.Len() != 1 {
		t.Errorf("connected=%d len=%d", f.reg.Connected(), f.reg.Len())
	}
}

func TestAcceptAnswers(t *testing.T) {
	f := newFixture()
	if err := f.reg.Accept("a", signaling.Signal{Type: "offer", SDP: "o"}); err != nil {
		t.Fatal(err)
	}
	sent := f.sig.all()
	if len(sent) != 1 || sent[0].kind != "answer" || sent[0].to != "a" || sent[0].sig.SDP != "answer-to-o" {
		t.Fatalf("sent %+v", sent)
	}
	link, _ := f.reg.Link("a")
	if link.Role != peer.Responder || link.State != peer.Connected {
		t.Errorf("link %+v", link)
	}
}

func TestDuplicateGuard(t *testing.T) {
	f := newFixture()
	f.reg.Connect("b")
	f.reg.Connect("b")
	f.reg.Accept("b", signaling.Signal{Type: "offer"})

	if n := len(f.conns.Conns("b")); n != 1 {
		t.Errorf("%d connections for one participant", n)
	}
	if link, _ := f.reg.Link("b"); link.Role != peer.Initiator {
		t.Errorf("duplicate replaced link: %+v", link)
	}
}

func TestRemove(t *testing.T) {
	f := newFixture()
	f.reg.Connect("b")
	f.reg.Complete("b", signaling.Signal{Type: "answer"})
	if _, ok := f.targets.Get("b"); !ok {
		t.Fatal("target not attached")
	}
	conn := f.conns.Last("b")

	f.reg.Remove("b")
	f.reg.Remove("b")

	if f.reg.Len() != 0 || !conn.Closed() {
		t.Errorf("len=%d closed=%v", f.reg.Len(), conn.Closed())
	}
	if _, ok := f.targets.Get("b"); ok {
		t.Errorf("target still attached")
	}

	// late answer for the removed link is dropped
	if err := f.reg.Complete("b", signaling.Signal{Type: "answer"}); err != nil {
		t.Errorf("late answer: %v", err)
	}

	// a fresh link may be opened after removal
	f.reg.Connect("b")
	if len(f.conns.Conns("b")) != 2 {
		t.Errorf("reconnect after removal ignored")
	}
}

func TestStaleStreamLeavesNoTarget(t *testing.T) {
	tests := []struct {
		name string
		run  func(f *fixture)
	}{
		{"after remove", func(f *fixture) {
			f.reg.Connect("b")
			f.reg.Complete("b", signaling.Signal{Type: "answer"})
			conn := f.conns.Last("b")
			f.reg.Remove("b")
			conn.Deliver(media.NewStream("late"))
		}},
		{"removed during delivery", func(f *fixture) {
			f.during = func(id string) { f.reg.Remove(id) }
			f.reg.Connect("b")
			f.reg.Complete("b", signaling.Signal{Type: "answer"})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.run(f)

			if _, ok := f.targets.Get("b"); ok || f.targets.Len() != 0 {
				t.Errorf("stale target left behind: %v", f.targets.IDs())
			}
			if f.reg.Len() != 0 {
				t.Errorf("len = %d", f.reg.Len())
			}
		})
	}
}

func TestStreamTargetIsAttached(t *testing.T) {
	f := newFixture()
	f.reg.Accept("a", signaling.Signal{Type: "offer"})
	target, ok := f.targets.Get("a")
	if !ok || f.bound["a"] != target {
		t.Errorf("OnStream target %v not the attached one", f.bound["a"])
	}
}

func TestFailureIsIsolated(t *testing.T) {
	f := newFixture()
	for _, id := range []string{"b", "c"} {
		f.reg.Connect(id)
		f.reg.Complete(id, signaling.Signal{Type: "answer"})
	}

	f.conns.Last("b").Fail()

	if _, ok := f.reg.Link("b"); ok {
		t.Errorf("failed link kept")
	}
	if _, ok := f.targets.Get("b"); ok {
		t.Errorf("failed link target kept")
	}
	if link, ok := f.reg.Link("c"); !ok || link.State != peer.Connected {
		t.Errorf("other link disturbed: %+v", link)
	}
	if _, ok := f.targets.Get("c"); !ok {
		t.Errorf("other target detached")
	}
}

func TestConnectorError(t *testing.T) {
	f := newFixture()
	boom := errors.New("boom")
	f.conns.FailNext(boom)
	if err := f.reg.Connect("b"); !errors.Is(err, boom) {
		t.Errorf("got %v", err)
	}
	if f.reg.Len() != 0 {
		t.Errorf("failed link kept")
	}
}

func TestBadEnvelopeFailsLink(t *testing.T) {
	f := newFixture()
	if err := f.reg.Accept("a", signaling.Signal{Type: "answer"}); !errors.Is(err, peertest.ErrUnexpected) {
		t.Errorf("got %v", err)
	}
	if f.reg.Len() != 0 {
		t.Errorf("link kept after bad envelope")
	}
}

func TestDestroy(t *testing.T) {
	f := newFixture()
	f.reg.Connect("b")
	f.reg.Accept("c", signaling.Signal{Type: "offer"})
	oldB := f.conns.Last("b")

	f.reg.Destroy()
	f.reg.Destroy()

	if f.reg.Len() != 0 || f.targets.Len() != 0 || !oldB.Closed() {
		t.Fatalf("len=%d targets=%d", f.reg.Len(), f.targets.Len())
	}

	before := len(f.sig.all())
	f.reg.Connect("d")
	f.reg.Accept("e", signaling.Signal{Type: "offer"})
	f.reg.Complete("b", signaling.Signal{Type: "answer"})
	f.reg.Remove("b")
	if f.reg.Len() != 0 || len(f.conns.Conns("d")) != 0 || len(f.sig.all()) != before {
		t.Errorf("registry acted after destroy")
	}
}

// Under any interleaving of joins and leaves the registry holds exactly one
// link per participant still present.
func TestLiveCountMatchesPresence(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		f := newFixture()
		present := map[string]bool{}
		for step := 0; step < 40; step++ {
			id := fmt.Sprintf("p%d", rng.Intn(6))
			switch rng.Intn(4) {
			case 0:
				f.reg.Connect(id)
				f.reg.Complete(id, signaling.Signal{Type: "answer"})
				present[id] = true
			case 1:
				f.reg.Accept(id, signaling.Signal{Type: "offer"})
				present[id] = true
			case 2:
				// duplicate join notice
				if present[id] {
					f.reg.Connect(id)
				}
			default:
				f.reg.Remove(id)
				delete(present, id)
			}
		}
		if f.reg.Len() != len(present) || f.reg.Connected() != len(present) {
			t.Fatalf("round %d: len=%d connected=%d want %d", round, f.reg.Len(), f.reg.Connected(), len(present))
		}
		for id := range present {
			if _, ok := f.reg.Link(id); !ok {
				t.Fatalf("round %d: missing %s", round, id)
			}
		}
	}
}
