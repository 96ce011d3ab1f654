//go:build linux

// Package device captures the local camera and microphone.
package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codehiveofficial/codehive/internal/media"
	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
)

// Acquirer opens V4L2 cameras and ALSA/Pulse microphones through
// pion/mediadevices, encoding to VP8 and Opus.
type Acquirer struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Acquirer {
	if log == nil {
		log = slog.Default()
	}
	return &Acquirer{log: log.With("component", "device")}
}

// Exclusive reports true: a V4L2 camera cannot be opened twice, so the
// controller releases the current stream before acquiring again.
func (a *Acquirer) Exclusive() bool { return true }

// Acquire implements media.Acquirer. Echo cancellation, noise suppression
// and gain control are left to the capture driver: mediadevices has no
// knobs for them. A retry while the previous stream is still open fails
// with the driver's busy error, which is why Exclusive is reported.
func (a *Acquirer) Acquire(ctx context.Context, c media.Constraints) (media.Stream, error) {
	devices := mediadevices.EnumerateDevices()
	if len(devices) == 0 {
		return nil, &media.AccessError{Err: media.ErrDeviceUnavailable, Details: "no media devices found"}
	}
	for _, d := range devices {
		a.log.Debug("media device", "kind", d.Kind, "label", d.Label)
	}

	vpxParams, err := vpx.NewVP8Params()
	if err != nil {
		return nil, fmt.Errorf("vp8 params: %w", err)
	}
	vpxParams.BitRate = 500_000
	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, fmt.Errorf("opus params: %w", err)
	}
	selector := mediadevices.NewCodecSelector(
		mediadevices.WithVideoEncoders(&vpxParams),
		mediadevices.WithAudioEncoders(&opusParams),
	)

	type result struct {
		stream mediadevices.MediaStream
		err    error
	}
	done := make(chan result, 1)
	go func() {
		s, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
			Codec: selector,
			Video: func(mc *mediadevices.MediaTrackConstraints) {
				// raw formats only; MJPEG nodes on some cameras poison the VP8 encoder
				mc.FrameFormat = prop.FrameFormatOneOf{frame.FormatYUYV, frame.FormatI420, frame.FormatRGBA}
				mc.Width = prop.Int(c.Width)
				mc.Height = prop.Int(c.Height)
				mc.FrameRate = prop.FloatRanged{Ideal: c.FrameRate, Max: c.MaxFrameRate}
			},
			Audio: func(*mediadevices.MediaTrackConstraints) {},
		})
		done <- result{s, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		go func() {
			if r := <-done; r.err == nil {
				for _, t := range r.stream.GetTracks() {
					t.Close()
				}
			}
		}()
		return nil, ctx.Err()
	}
	if res.err != nil {
		return nil, classify(res.err)
	}

	stream := &stream{id: fmt.Sprintf("local-%d", time.Now().UnixNano())}
	for _, src := range res.stream.GetTracks() {
		t, err := newTrack(src, stream.id, a.log)
		if err != nil {
			src.Close()
			a.log.Warn("skipping track", "kind", src.Kind(), "error", err)
			continue
		}
		stream.tracks = append(stream.tracks, t)
	}
	return stream, nil
}

func classify(err error) error {
	if errors.Is(err, os.ErrPermission) {
		return &media.AccessError{Err: media.ErrPermissionDenied, Details: err.Error()}
	}
	return &media.AccessError{Err: media.ErrDeviceUnavailable, Details: err.Error()}
}

type stream struct {
	id     string
	tracks []media.Track
}

func (s *stream) ID() string            { return s.id }
func (s *stream) Tracks() []media.Track { return s.tracks }

// track forwards encoded frames from a capture source into a sample track
// that peer connections can share. Disabled tracks drop frames instead of
// renegotiating.
type track struct {
	src   mediadevices.Track
	local *webrtc.TrackLocalStaticSample
	kind  media.Kind
	log   *slog.Logger

	enabled  atomic.Bool
	stopOnce sync.Once
}

func newTrack(src mediadevices.Track, streamID string, log *slog.Logger) (*track, error) {
	kind, mime := media.KindAudio, webrtc.MimeTypeOpus
	if src.Kind() == webrtc.RTPCodecTypeVideo {
		kind, mime = media.KindVideo, webrtc.MimeTypeVP8
	}

	reader, err := src.NewEncodedReader(mime)
	if err != nil {
		return nil, fmt.Errorf("encoder for %s: %w", mime, err)
	}
	local, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: mime}, src.ID(), streamID)
	if err != nil {
		reader.Close()
		return nil, err
	}

	t := &track{src: src, local: local, kind: kind, log: log.With("track", src.ID())}
	t.enabled.Store(true)
	go t.pump(reader)
	return t, nil
}

func (t *track) pump(r mediadevices.EncodedReadCloser) {
	defer r.Close()
	last := time.Now()
	for {
		buf, release, err := r.Read()
		if err != nil {
			t.log.Debug("capture ended", "error", err)
			return
		}
		now := time.Now()
		if t.enabled.Load() {
			if err := t.local.WriteSample(pionmedia.Sample{Data: buf.Data, Duration: now.Sub(last)}); err != nil {
				t.log.Debug("write sample", "error", err)
			}
		}
		last = now
		release()
	}
}

func (t *track) ID() string         { return t.src.ID() }
func (t *track) Kind() media.Kind   { return t.kind }
func (t *track) Enabled() bool      { return t.enabled.Load() }
func (t *track) SetEnabled(on bool) { t.enabled.Store(on) }

// Local is the pion track peer connections send.
func (t *track) Local() webrtc.TrackLocal { return t.local }

func (t *track) Stop() {
	t.stopOnce.Do(func() {
		if err := t.src.Close(); err != nil {
			t.log.Debug("close capture", "error", err)
		}
	})
}
