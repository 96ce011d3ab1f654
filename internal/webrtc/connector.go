// Package webrtc implements peer.Connector on pion/webrtc. Negotiation is
// non-trickle: each side sends one complete SDP after ICE gathering ends.
package webrtc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codehiveofficial/codehive/internal/config"
	"github.com/codehiveofficial/codehive/internal/logging"
	"github.com/codehiveofficial/codehive/internal/peer"
	"github.com/pion/interceptor"
	pion "github.com/pion/webrtc/v4"
)

// DefaultGatherTimeout bounds how long ICE gathering may take before an
// envelope is sent with whatever candidates were found.
const DefaultGatherTimeout = 10 * time.Second

// Connector builds pion peer connections sharing one API instance.
type Connector struct {
	api           *pion.API
	config        pion.Configuration
	gatherTimeout time.Duration
	log           *slog.Logger
}

// NewConnector prepares codecs, interceptors and ICE configuration from cfg.
func NewConnector(cfg *config.Config, log *slog.Logger) (*Connector, error) {
	if log == nil {
		log = slog.Default()
	}

	engine := &pion.MediaEngine{}
	if err := engine.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	registry := &interceptor.Registry{}
	if err := pion.RegisterDefaultInterceptors(engine, registry); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	se := pion.SettingEngine{LoggerFactory: logging.NewPionFactory(log)}
	// a brief NAT hiccup should not end the call
	se.SetICETimeouts(15*time.Second, 60*time.Second, 2*time.Second)

	api := pion.NewAPI(
		pion.WithMediaEngine(engine),
		pion.WithInterceptorRegistry(registry),
		pion.WithSettingEngine(se),
	)

	return &Connector{
		api:           api,
		config:        ICEConfiguration(cfg),
		gatherTimeout: DefaultGatherTimeout,
		log:           log.With("component", "webrtc"),
	}, nil
}

// ICEConfiguration turns the STUN/TURN settings into a pion configuration.
// Relay-only transport is used when forced or when the host looks to be
// behind a VPN or carrier-grade NAT and TURN is available.
func ICEConfiguration(cfg *config.Config) pion.Configuration {
	iceServers := []pion.ICEServer{{URLs: cfg.STUNServers()}}

	turnServers := cfg.TURNServers()
	if turnServers != nil {
		username, password := cfg.TURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if turnServers != nil && (cfg.ForceRelay || BehindRestrictiveNAT()) {
		policy = pion.ICETransportPolicyRelay
	}

	return pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	}
}

// NewConn implements peer.Connector.
func (c *Connector) NewConn(ctx context.Context, cfg peer.ConnConfig) (peer.Conn, error) {
	pc, err := c.api.NewPeerConnection(c.config)
	if err != nil {
		return nil, &Error{Op: "create peer connection", Peer: cfg.ParticipantID, Err: err}
	}

	ctx, cancel := context.WithCancel(ctx)
	conn := &Conn{
		pc:            pc,
		cfg:           cfg,
		ctx:           ctx,
		cancel:        cancel,
		gatherTimeout: c.gatherTimeout,
		log:           c.log.With("peer", cfg.ParticipantID, "role", cfg.Role),
	}

	sending, err := conn.attachLocal()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if !sending && cfg.Role == peer.Initiator {
		conn.addRecvOnly()
	}
	conn.handleEvents()

	if cfg.Role == peer.Initiator {
		go conn.offer()
	}
	return conn, nil
}
