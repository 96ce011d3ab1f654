package media

import (
	"context"
	"errors"
	"testing"
)

func fakeStream(id string, kinds ...Kind) (*BasicStream, []*BasicTrack) {
	var tracks []Track
	var basics []*BasicTrack
	for i, k := range kinds {
		t := NewTrack(id+"-"+string(k)+string(rune('0'+i)), k, nil)
		tracks = append(tracks, t)
		basics = append(basics, t)
	}
	return NewStream(id, tracks...), basics
}

func acquirerOf(streams ...Stream) Acquirer {
	i := 0
	return AcquirerFunc(func(context.Context, Constraints) (Stream, error) {
		s := streams[i]
		i++
		return s, nil
	})
}

func TestAcquireRequiresBothKinds(t *testing.T) {
	tests := []struct {
		name  string
		kinds []Kind
		want  Kind
	}{
		{"no audio", []Kind{KindVideo}, KindAudio},
		{"no video", []Kind{KindAudio}, KindVideo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, tracks := fakeStream("cam", tt.kinds...)
			c := NewController(acquirerOf(s), nil)

			_, err := c.Acquire(context.Background(), DefaultConstraints())
			if !errors.Is(err, ErrMissingTrack) {
				t.Fatalf("got %v", err)
			}
			var ae *AccessError
			if !errors.As(err, &ae) || ae.Kind != tt.want {
				t.Errorf("access error %+v", ae)
			}
			if c.Local() != nil {
				t.Errorf("partial stream kept")
			}
			for _, tr := range tracks {
				if !tr.Stopped() {
					t.Errorf("track %s left running", tr.ID())
				}
			}
		})
	}
}

func TestAcquireErrorsPassThrough(t *testing.T) {
	denied := &AccessError{Err: ErrPermissionDenied}
	c := NewController(AcquirerFunc(func(context.Context, Constraints) (Stream, error) {
		return nil, denied
	}), nil)
	if _, err := c.Acquire(context.Background(), DefaultConstraints()); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("got %v", err)
	}
	if _, err := NewController(nil, nil).Acquire(context.Background(), DefaultConstraints()); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("nil acquirer: %v", err)
	}
}

func TestReacquireStopsPreviousStream(t *testing.T) {
	first, firstTracks := fakeStream("a", KindVideo, KindAudio)
	second, _ := fakeStream("b", KindVideo, KindAudio)
	c := NewController(acquirerOf(first, second), nil)

	if _, err := c.Acquire(context.Background(), DefaultConstraints()); err != nil {
		t.Fatal(err)
	}
	if c.SelfView().Stream() != first {
		t.Errorf("self view not bound")
	}
	if _, err := c.Acquire(context.Background(), DefaultConstraints()); err != nil {
		t.Fatal(err)
	}
	for _, tr := range firstTracks {
		if !tr.Stopped() {
			t.Errorf("old track %s still running", tr.ID())
		}
	}
	if c.Local() != second || c.SelfView().Stream() != second {
		t.Errorf("local stream not replaced")
	}
}

type exclusiveAcquirer struct {
	Acquirer
}

func (exclusiveAcquirer) Exclusive() bool { return true }

func TestOpenDoesNotInstall(t *testing.T) {
	first, _ := fakeStream("a", KindVideo, KindAudio)
	second, secondTracks := fakeStream("b", KindVideo, KindAudio)
	c := NewController(acquirerOf(first, second), nil)
	c.Acquire(context.Background(), DefaultConstraints())

	s, err := c.Open(context.Background(), DefaultConstraints())
	if err != nil || s != second {
		t.Fatalf("open = %v, %v", s, err)
	}
	if c.Local() != first || c.SelfView().Stream() != first {
		t.Errorf("open replaced the local stream")
	}
	for _, tr := range secondTracks {
		if tr.Stopped() {
			t.Errorf("opened track %s stopped", tr.ID())
		}
	}

	c.Adopt(s)
	if c.Local() != second || c.SelfView().Stream() != second {
		t.Errorf("adopt did not install")
	}
}

func TestExclusiveBackendReleasesFirst(t *testing.T) {
	tests := []struct {
		name      string
		exclusive bool
	}{
		{"shared", false},
		{"exclusive", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, firstTracks := fakeStream("a", KindVideo, KindAudio)
			second, _ := fakeStream("b", KindVideo, KindAudio)

			var c *Controller
			var stoppedBefore bool
			calls := 0
			var acq Acquirer = AcquirerFunc(func(context.Context, Constraints) (Stream, error) {
				calls++
				if calls == 1 {
					return first, nil
				}
				stoppedBefore = firstTracks[0].Stopped() && c.Local() == nil
				return second, nil
			})
			if tt.exclusive {
				acq = exclusiveAcquirer{acq}
			}
			c = NewController(acq, nil)

			if _, err := c.Acquire(context.Background(), DefaultConstraints()); err != nil {
				t.Fatal(err)
			}
			if _, err := c.Acquire(context.Background(), DefaultConstraints()); err != nil {
				t.Fatal(err)
			}
			if stoppedBefore != tt.exclusive {
				t.Errorf("previous stream released before acquire = %v", stoppedBefore)
			}
			if c.Local() != second {
				t.Errorf("local stream not replaced")
			}
		})
	}
}

func TestToggleIsInvolution(t *testing.T) {
	s, tracks := fakeStream("cam", KindVideo, KindVideo, KindAudio)
	c := NewController(acquirerOf(s), nil)
	if _, err := c.ToggleVideo(); !errors.Is(err, ErrNoStream) {
		t.Errorf("toggle without stream: %v", err)
	}
	c.Acquire(context.Background(), DefaultConstraints())

	on, err := c.ToggleVideo()
	if err != nil || on {
		t.Fatalf("first toggle = %v, %v", on, err)
	}
	if tracks[0].Enabled() || tracks[1].Enabled() {
		t.Errorf("video tracks still enabled")
	}
	if !tracks[2].Enabled() {
		t.Errorf("audio track touched by video toggle")
	}

	on, _ = c.ToggleVideo()
	if !on || !tracks[0].Enabled() || !tracks[1].Enabled() {
		t.Errorf("second toggle did not restore")
	}

	if on, _ := c.ToggleAudio(); on || tracks[2].Enabled() {
		t.Errorf("audio toggle")
	}
	for _, tr := range tracks {
		if tr.Stopped() {
			t.Errorf("toggle stopped track %s", tr.ID())
		}
	}
}

func TestBindStream(t *testing.T) {
	local, localTracks := fakeStream("local", KindVideo, KindAudio)
	c := NewController(acquirerOf(local), nil)
	c.Acquire(context.Background(), DefaultConstraints())
	c.ToggleAudio()

	target := NewTargets().Attach("peer")

	// rebinding the same local stream re-applies enabled state
	localTracks[1].SetEnabled(true)
	c.BindStream(local, target)
	c.BindStream(local, target)
	if localTracks[1].Enabled() {
		t.Errorf("audio state not re-applied")
	}

	remote, remoteTracks := fakeStream("remote", KindVideo, KindAudio)
	c.BindStream(remote, target)
	for _, tr := range localTracks {
		if tr.Stopped() {
			t.Errorf("live local track %s stopped by rebind", tr.ID())
		}
	}
	if target.Stream() != remote {
		t.Fatal("remote not bound")
	}

	next, _ := fakeStream("remote-2", KindVideo)
	c.BindStream(next, target)
	for _, tr := range remoteTracks {
		if !tr.Stopped() {
			t.Errorf("replaced remote track %s still running", tr.ID())
		}
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	stops := 0
	s := NewStream("cam",
		NewTrack("v", KindVideo, func() { stops++ }),
		NewTrack("a", KindAudio, func() { stops++ }),
	)
	c := NewController(acquirerOf(s), nil)
	c.Acquire(context.Background(), DefaultConstraints())

	c.Release()
	c.Release()
	if stops != 2 {
		t.Errorf("stops = %d", stops)
	}
	if c.Local() != nil || c.SelfView().Stream() != nil {
		t.Errorf("release left references")
	}
}

func TestTargets(t *testing.T) {
	ts := NewTargets()
	a := ts.Attach("a")
	if ts.Attach("a") != a {
		t.Errorf("attach not idempotent")
	}
	ts.Attach("b")
	a.swap(NewStream("s"))

	if !ts.Detach("a") || ts.Detach("a") {
		t.Errorf("detach results")
	}
	if a.Stream() != nil {
		t.Errorf("detached target kept stream")
	}
	if _, ok := ts.Get("a"); ok || ts.Len() != 1 {
		t.Errorf("len = %d", ts.Len())
	}
	ts.Clear()
	if ts.Len() != 0 {
		t.Errorf("clear left %d", ts.Len())
	}
}
