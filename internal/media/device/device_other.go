//go:build !linux

// Package device captures the local camera and microphone.
package device

import (
	"context"
	"log/slog"

	"github.com/codehiveofficial/codehive/internal/media"
)

// Acquirer reports that capture is unavailable: the mediadevices drivers
// this build relies on exist only for Linux.
type Acquirer struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Acquirer {
	if log == nil {
		log = slog.Default()
	}
	return &Acquirer{log: log}
}

func (a *Acquirer) Acquire(context.Context, media.Constraints) (media.Stream, error) {
	a.log.Debug("local capture not supported on this platform")
	return nil, &media.AccessError{Err: media.ErrDeviceUnavailable, Details: "capture requires linux"}
}
