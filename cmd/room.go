package cmd

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/codehiveofficial/codehive/internal/config"
	"github.com/codehiveofficial/codehive/internal/dns"
	"github.com/codehiveofficial/codehive/internal/media"
	"github.com/codehiveofficial/codehive/internal/media/device"
	"github.com/codehiveofficial/codehive/internal/session"
	"github.com/codehiveofficial/codehive/internal/signaling"
	"github.com/codehiveofficial/codehive/internal/ui"
	"github.com/codehiveofficial/codehive/internal/utils"
	"github.com/codehiveofficial/codehive/internal/webrtc"
)

var flagName string

// relayDialer connects to the configured relay with the configured codec.
func relayDialer(cfg *config.Config, log *slog.Logger) (session.Dialer, error) {
	codec, err := signaling.CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	resolver := dns.NewResolver()
	return func(ctx context.Context) (session.Relay, error) {
		c, err := signaling.Dial(ctx, cfg.RelayURL,
			signaling.WithCodec(codec),
			signaling.WithLogger(log),
			signaling.WithResolver(resolver),
		)
		if err != nil {
			return nil, err
		}
		return c, nil
	}, nil
}

// newManager wires a session to real devices, WebRTC and the relay, and
// opens the camera and microphone.
func newManager(ctx context.Context, cfg *config.Config) (*session.Manager, error) {
	log := slog.Default()

	dial, err := relayDialer(cfg, log)
	if err != nil {
		return nil, &session.Error{Op: "configure relay", Err: err}
	}
	connector, err := webrtc.NewConnector(cfg, log)
	if err != nil {
		return nil, &session.Error{Op: "configure webrtc", Err: err}
	}

	mgr := session.New(session.Config{
		Dial:        dial,
		Acquirer:    device.New(log),
		Connector:   connector,
		Constraints: media.DefaultConstraints(),
		JoinTimeout: cfg.SignalTimeout,
		Log:         log,
	})

	sp := ui.NewSimpleSpinner("Opening camera and microphone...")
	sp.Start()
	if err := mgr.Start(ctx); err != nil {
		sp.Error("Could not open camera and microphone")
		return nil, err
	}
	sp.Success("Camera and microphone ready")
	return mgr, nil
}

// runRoom hands the terminal to the room UI and prints a summary once the
// user leaves.
func runRoom(ctx context.Context, mgr *session.Manager) error {
	started := time.Now()
	updates, cancel := mgr.Updates()
	defer cancel()

	rec := &recordingSession{Manager: mgr, seen: map[string]bool{}}
	rec.Snapshot()

	err := ui.RunRoom(ctx, rec, updates)
	mgr.LeaveRoom()

	ui.RenderSummary(os.Stdout, ui.Summary{
		RoomID:       rec.last.Room.ID,
		Participants: len(rec.seen),
		Messages:     len(rec.last.Messages),
		Document:     len(rec.last.Document.Text),
		Duration:     utils.FormatTimeDuration(time.Since(started)),
	})
	return err
}

// recordingSession remembers the last in-room view the UI saw, so the
// summary still has room data after LeaveRoom clears it.
type recordingSession struct {
	*session.Manager
	last session.View
	seen map[string]bool
}

func (s *recordingSession) Snapshot() session.View {
	v := s.Manager.Snapshot()
	if v.Room.ID != "" {
		s.last = v
		for _, p := range v.Participants {
			s.seen[p.ID] = true
		}
	}
	return v
}
