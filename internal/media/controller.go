package media

import (
	"context"
	"log/slog"
	"sync"
)

// Controller owns the local stream. It is the only component allowed to
// stop or replace it.
type Controller struct {
	acquirer Acquirer
	log      *slog.Logger

	mu       sync.Mutex
	local    Stream
	videoOn  bool
	audioOn  bool
	selfView *Target
}

func NewController(acquirer Acquirer, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		acquirer: acquirer,
		log:      log,
		videoOn:  true,
		audioOn:  true,
		selfView: &Target{ID: "self"},
	}
}

// Acquire opens camera and microphone and installs the result as the
// local stream. See Open and Adopt.
func (c *Controller) Acquire(ctx context.Context, cons Constraints) (Stream, error) {
	s, err := c.Open(ctx, cons)
	if err != nil {
		return nil, err
	}
	c.Adopt(s)
	return s, nil
}

// Open asks the backend for a stream without installing it. A stream
// lacking either kind of track is stopped and reported as an AccessError.
// For an exclusive backend the current local stream is released first,
// since the device cannot be opened twice.
func (c *Controller) Open(ctx context.Context, cons Constraints) (Stream, error) {
	if c.acquirer == nil {
		return nil, &AccessError{Err: ErrDeviceUnavailable, Details: "no capture backend"}
	}
	if x, ok := c.acquirer.(ExclusiveAcquirer); ok && x.Exclusive() {
		c.Release()
	}

	s, err := c.acquirer.Acquire(ctx, cons)
	if err != nil {
		return nil, err
	}
	if err := checkTracks(s); err != nil {
		StopAll(s)
		return nil, err
	}
	return s, nil
}

// Adopt installs s as the local stream with both kinds enabled. A previous,
// different local stream is stopped.
func (c *Controller) Adopt(s Stream) {
	c.mu.Lock()
	old := c.local
	c.local = s
	c.videoOn, c.audioOn = true, true
	c.mu.Unlock()

	if old != nil && old != s {
		StopAll(old)
	}
	c.BindStream(s, c.selfView)
	c.log.Debug("local media acquired", "stream", s.ID(), "tracks", len(s.Tracks()))
}

// Local returns the live local stream, or nil.
func (c *Controller) Local() Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local
}

// SelfView is the target the local stream is rendered to.
func (c *Controller) SelfView() *Target {
	return c.selfView
}

// ToggleVideo flips every local video track and returns the new state.
func (c *Controller) ToggleVideo() (bool, error) {
	return c.toggle(KindVideo)
}

// ToggleAudio flips every local audio track and returns the new state.
func (c *Controller) ToggleAudio() (bool, error) {
	return c.toggle(KindAudio)
}

func (c *Controller) toggle(k Kind) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.local == nil {
		return false, ErrNoStream
	}

	state := &c.videoOn
	if k == KindAudio {
		state = &c.audioOn
	}
	*state = !*state
	for _, t := range TracksOf(c.local, k) {
		t.SetEnabled(*state)
	}
	return *state, nil
}

// VideoEnabled reports the local video state.
func (c *Controller) VideoEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.videoOn
}

// AudioEnabled reports the local audio state.
func (c *Controller) AudioEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.audioOn
}

// BindStream renders s on t. Binding the stream already shown only
// re-applies the local enabled state. Otherwise the previously bound stream
// is stopped, except for the live local stream.
func (c *Controller) BindStream(s Stream, t *Target) {
	if t == nil {
		return
	}

	c.mu.Lock()
	local := c.local
	videoOn, audioOn := c.videoOn, c.audioOn
	c.mu.Unlock()

	if s != nil && s == local {
		for _, tr := range TracksOf(s, KindVideo) {
			tr.SetEnabled(videoOn)
		}
		for _, tr := range TracksOf(s, KindAudio) {
			tr.SetEnabled(audioOn)
		}
	}

	if t.Stream() == s {
		return
	}
	old := t.swap(s)
	if old != nil && old != local {
		StopAll(old)
	}
}

// Release stops the local stream and forgets it. Calling it again is a no-op.
func (c *Controller) Release() {
	c.mu.Lock()
	s := c.local
	c.local = nil
	c.videoOn, c.audioOn = true, true
	c.mu.Unlock()

	if s == nil {
		return
	}
	c.selfView.swap(nil)
	StopAll(s)
	c.log.Debug("local media released", "stream", s.ID())
}
