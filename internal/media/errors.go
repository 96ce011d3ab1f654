package media

import (
	"errors"
	"fmt"
)

var (
	ErrPermissionDenied  = errors.New("permission to use camera or microphone denied")
	ErrDeviceUnavailable = errors.New("camera or microphone unavailable")
	ErrMissingTrack      = errors.New("required track missing")
	ErrNoStream          = errors.New("no local stream")
)

// AccessError reports a failed attempt to open local media. It is
// recoverable: acquisition may be retried.
type AccessError struct {
	Kind    Kind // set for ErrMissingTrack
	Err     error
	Details string
}

func (e *AccessError) Error() string {
	msg := "media access"
	if e.Kind != "" {
		msg += " (" + string(e.Kind) + ")"
	}
	msg += ": " + e.Err.Error()
	if e.Details != "" {
		msg += fmt.Sprintf(" (%s)", e.Details)
	}
	return msg
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// checkTracks requires at least one video and one audio track.
func checkTracks(s Stream) error {
	if s == nil {
		return &AccessError{Err: ErrDeviceUnavailable, Details: "no stream returned"}
	}
	for _, k := range []Kind{KindVideo, KindAudio} {
		if len(TracksOf(s, k)) == 0 {
			return &AccessError{Kind: k, Err: ErrMissingTrack, Details: "no " + string(k) + " track available"}
		}
	}
	return nil
}
