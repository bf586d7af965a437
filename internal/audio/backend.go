// Package audio provides the playback backend abstraction. The backend kind
// is selected once at construction; callers hold one Backend value and never
// probe it for optional capabilities afterwards.
package audio

import (
	"errors"
	"fmt"

	"github.com/friendsincode/skald/internal/config"
	"github.com/rs/zerolog"
)

// ErrNotSupported is returned by backends lacking an optional capability
// such as seeking.
var ErrNotSupported = errors.New("operation not supported by audio backend")

// Backend is the opaque playback primitive. Implementations own exactly one
// output; starting a new file replaces whatever is playing.
//
// Position and duration queries must be bounded: implementations either
// answer quickly or fail, they never park the caller on hardware I/O.
type Backend interface {
	// PlayFile starts playback of path. durationHintMS may be 0 when the
	// caller does not know the track length.
	PlayFile(path string, durationHintMS int64) error
	Pause() error
	Resume() error
	Stop() error
	Seek(seconds float64) error
	SetVolume(percent int) error
	PositionMS() (int64, error)
	DurationMS() (int64, error)
	// Busy reports whether the backend is still producing audio. The
	// playing→idle edge is the canonical end-of-track signal.
	Busy() bool
	// Kind names the backend implementation ("mpv", "null").
	Kind() string
	Close() error
}

// New constructs the backend named by the configuration.
func New(cfg *config.Config, logger zerolog.Logger) (Backend, error) {
	switch cfg.AudioBackend {
	case config.AudioMPV:
		return NewMPVBackend(cfg.MPVBin, cfg.MPVSocketDir, cfg.DefaultVolume, logger), nil
	case config.AudioNull:
		return NewNullBackend(cfg.DefaultVolume), nil
	default:
		return nil, fmt.Errorf("unknown audio backend: %s", cfg.AudioBackend)
	}
}
