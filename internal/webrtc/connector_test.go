package webrtc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/codehiveofficial/codehive/internal/config"
	"github.com/codehiveofficial/codehive/internal/logging"
	"github.com/codehiveofficial/codehive/internal/media"
	"github.com/codehiveofficial/codehive/internal/peer"
	"github.com/codehiveofficial/codehive/internal/signaling"
	pion "github.com/pion/webrtc/v4"
)

func TestICEConfiguration(t *testing.T) {
	cfg := &config.Config{STUNServer: "stun:stun.example.org:3478"}
	ice := ICEConfiguration(cfg)
	if len(ice.ICEServers) != 1 || ice.ICETransportPolicy != pion.ICETransportPolicyAll {
		t.Errorf("stun only: %+v", ice)
	}

	cfg.TURNServer = "turn.example.org"
	cfg.TURNUser, cfg.TURNPass = "u", "p"
	cfg.ForceRelay = true
	ice = ICEConfiguration(cfg)
	if len(ice.ICEServers) != 2 || ice.ICEServers[1].Username != "u" {
		t.Errorf("turn servers: %+v", ice.ICEServers)
	}
	if ice.ICETransportPolicy != pion.ICETransportPolicyRelay {
		t.Errorf("policy %v", ice.ICETransportPolicy)
	}
}

func TestNATHeuristics(t *testing.T) {
	for name, want := range map[string]bool{"wg0": true, "tun1": true, "eth0": false, "en0": false} {
		if got := isTunnel(name); got != want {
			t.Errorf("isTunnel(%q) = %v", name, got)
		}
	}
	if !inCGNAT(&net.IPNet{IP: net.ParseIP("100.100.1.2")}) || inCGNAT(&net.IPAddr{IP: net.ParseIP("192.168.1.2")}) {
		t.Errorf("cgnat range")
	}
}

func TestErrorWraps(t *testing.T) {
	err := &Error{Op: "handle signal", Peer: "b", Err: ErrUnexpectedSignal}
	if !errors.Is(err, ErrUnexpectedSignal) || err.Error() != "handle signal (b): unexpected signal type" {
		t.Errorf("got %q", err.Error())
	}
}

// Two real pion connections negotiate over host candidates only.
func TestLoopbackNegotiation(t *testing.T) {
	if testing.Short() {
		t.Skip("starts ICE agents")
	}
	c, err := NewConnector(&config.Config{STUNServer: "stun:127.0.0.1:1"}, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	se := pion.SettingEngine{}
	se.SetIncludeLoopbackCandidate(true)
	se.SetNetworkTypes([]pion.NetworkType{pion.NetworkTypeUDP4})
	engine := &pion.MediaEngine{}
	if err := engine.RegisterDefaultCodecs(); err != nil {
		t.Fatal(err)
	}
	c.api = pion.NewAPI(pion.WithMediaEngine(engine), pion.WithSettingEngine(se))
	c.config = pion.Configuration{}
	c.gatherTimeout = 3 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connected := make(chan string, 2)
	offers := make(chan signaling.Signal, 1)
	answers := make(chan signaling.Signal, 1)

	events := func(name string, out chan signaling.Signal) peer.Events {
		return peer.Events{
			OnSignal: func(s signaling.Signal) { out <- s },
			OnStream: func(media.Stream) {},
			OnState: func(s peer.State) {
				if s == peer.Connected {
					connected <- name
				}
			},
		}
	}

	a, err := c.NewConn(ctx, peer.ConnConfig{ParticipantID: "b", Role: peer.Initiator, Events: events("a", offers)})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := c.NewConn(ctx, peer.ConnConfig{ParticipantID: "a", Role: peer.Responder, Events: events("b", answers)})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if err := b.Signal(signaling.Signal{Type: "answer"}); !errors.Is(err, ErrUnexpectedSignal) {
		t.Errorf("responder accepted an answer: %v", err)
	}

	timeout := time.After(20 * time.Second)
	select {
	case offer := <-offers:
		if offer.Type != "offer" || offer.SDP == "" {
			t.Fatalf("offer %+v", offer)
		}
		b.Signal(offer)
	case <-timeout:
		t.Fatal("no offer")
	}
	select {
	case answer := <-answers:
		a.Signal(answer)
	case <-timeout:
		t.Fatal("no answer")
	}
	for i := 0; i < 2; i++ {
		select {
		case <-connected:
		case <-timeout:
			t.Fatal("peers never connected")
		}
	}
}
