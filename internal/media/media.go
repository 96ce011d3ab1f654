// Package media owns local capture state: the camera and microphone stream,
// enable/disable toggles and the render targets remote streams are bound to.
package media

import (
	"context"
	"sync"
)

// Kind is the media type of a track.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// Track is one audio or video track. Disabling a track keeps it alive but
// stops its media from flowing.
type Track interface {
	ID() string
	Kind() Kind
	Enabled() bool
	SetEnabled(bool)
	Stop()
}

// Stream groups the tracks captured or received together.
type Stream interface {
	ID() string
	Tracks() []Track
}

// Constraints are capture hints passed to an Acquirer.
type Constraints struct {
	Width        int
	Height       int
	FrameRate    float32
	MaxFrameRate float32

	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// DefaultConstraints favours low bandwidth over quality: a small picture at
// a modest frame rate, with voice processing switched on.
func DefaultConstraints() Constraints {
	return Constraints{
		Width:            320,
		Height:           240,
		FrameRate:        15,
		MaxFrameRate:     20,
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
	}
}

// Acquirer opens the local camera and microphone.
type Acquirer interface {
	Acquire(ctx context.Context, c Constraints) (Stream, error)
}

// ExclusiveAcquirer is implemented by backends whose devices can be held by
// only one stream at a time.
type ExclusiveAcquirer interface {
	Exclusive() bool
}

// AcquirerFunc adapts a function to Acquirer.
type AcquirerFunc func(ctx context.Context, c Constraints) (Stream, error)

func (f AcquirerFunc) Acquire(ctx context.Context, c Constraints) (Stream, error) {
	return f(ctx, c)
}

// TracksOf returns the tracks of s with kind k.
func TracksOf(s Stream, k Kind) []Track {
	if s == nil {
		return nil
	}
	var out []Track
	for _, t := range s.Tracks() {
		if t.Kind() == k {
			out = append(out, t)
		}
	}
	return out
}

// StopAll stops every track of s. A nil stream is ignored.
func StopAll(s Stream) {
	if s == nil {
		return
	}
	for _, t := range s.Tracks() {
		t.Stop()
	}
}

// BasicTrack is a Track with no media behind it. Remote tracks and test
// streams use it.
type BasicTrack struct {
	id   string
	kind Kind

	mu      sync.Mutex
	enabled bool
	stopped bool
	onStop  func()
}

// NewTrack returns an enabled track. onStop, if not nil, runs once on the
// first Stop.
func NewTrack(id string, kind Kind, onStop func()) *BasicTrack {
	return &BasicTrack{id: id, kind: kind, enabled: true, onStop: onStop}
}

func (t *BasicTrack) ID() string { return t.id }
func (t *BasicTrack) Kind() Kind { return t.kind }

func (t *BasicTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *BasicTrack) SetEnabled(on bool) {
	t.mu.Lock()
	t.enabled = on
	t.mu.Unlock()
}

func (t *BasicTrack) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	onStop := t.onStop
	t.mu.Unlock()

	if onStop != nil {
		onStop()
	}
}

// Stopped reports whether Stop has been called.
func (t *BasicTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// BasicStream is a fixed set of tracks.
type BasicStream struct {
	id     string
	tracks []Track
}

func NewStream(id string, tracks ...Track) *BasicStream {
	return &BasicStream{id: id, tracks: tracks}
}

func (s *BasicStream) ID() string      { return s.id }
func (s *BasicStream) Tracks() []Track { return s.tracks }
