/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"fmt"

	"github.com/friendsincode/skald/internal/audio"
	"github.com/friendsincode/skald/internal/models"
	"github.com/rs/zerolog"
)

// ErrInvalidVolume rejects volume values outside 0..100.
var ErrInvalidVolume = fmt.Errorf("volume must be within 0..100")

// Player wraps the audio backend and tracks local play/pause/stop state and
// volume. Like Session it is owned by the coordinator and is not safe for
// concurrent use on its own.
//
// Position and duration are served from samples taken by SampleBackend on
// the monitor tick, so status queries never wait on the backend. The
// staleness window is bounded by the monitor interval; paused positions are
// exact because the pause handler takes a final sample.
type Player struct {
	backend audio.Backend
	logger  zerolog.Logger

	status models.PlaybackStatus
	volume int
	posMS  int64
	durMS  int64
}

// NewPlayer creates a player over the given backend.
func NewPlayer(backend audio.Backend, volume int, logger zerolog.Logger) *Player {
	return &Player{
		backend: backend,
		volume:  volume,
		status:  models.StatusStopped,
		logger:  logger.With().Str("component", "player").Logger(),
	}
}

// PlayFile stops any current playback and starts path. The player
// transitions to playing only when the backend accepted the file; on
// failure it is left stopped, never in an intermediate state.
func (p *Player) PlayFile(path string, durationHintMS int64) error {
	p.stopBackend()

	if err := p.backend.PlayFile(path, durationHintMS); err != nil {
		p.status = models.StatusStopped
		p.posMS = 0
		p.durMS = 0
		return fmt.Errorf("backend play: %w", err)
	}

	if err := p.backend.SetVolume(p.volume); err != nil {
		p.logger.Debug().Err(err).Msg("volume apply failed")
	}

	p.status = models.StatusPlaying
	p.posMS = 0
	p.durMS = durationHintMS
	return nil
}

// Pause suspends playback; only valid while playing.
func (p *Player) Pause() bool {
	if p.status != models.StatusPlaying {
		return false
	}
	// Final sample before freezing so the paused position is exact.
	p.SampleBackend()
	if err := p.backend.Pause(); err != nil {
		p.logger.Warn().Err(err).Msg("backend pause failed")
		return false
	}
	p.status = models.StatusPaused
	return true
}

// Resume continues paused playback; only valid while paused.
func (p *Player) Resume() bool {
	if p.status != models.StatusPaused {
		return false
	}
	if err := p.backend.Resume(); err != nil {
		p.logger.Warn().Err(err).Msg("backend resume failed")
		return false
	}
	p.status = models.StatusPlaying
	return true
}

// TogglePause flips between playing and paused.
func (p *Player) TogglePause() bool {
	switch p.status {
	case models.StatusPlaying:
		return p.Pause()
	case models.StatusPaused:
		return p.Resume()
	}
	return false
}

// Stop ends playback. Always safe and idempotent.
func (p *Player) Stop() {
	p.stopBackend()
	p.status = models.StatusStopped
	p.posMS = 0
	p.durMS = 0
}

func (p *Player) stopBackend() {
	if err := p.backend.Stop(); err != nil {
		p.logger.Warn().Err(err).Msg("backend stop failed")
	}
}

// SetVolume validates and applies a volume; the prior value is retained on
// rejection.
func (p *Player) SetVolume(volume int) error {
	if volume < 0 || volume > 100 {
		return ErrInvalidVolume
	}
	p.volume = volume
	if err := p.backend.SetVolume(volume); err != nil {
		p.logger.Debug().Err(err).Msg("backend volume failed")
	}
	return nil
}

// Volume returns the last accepted volume.
func (p *Player) Volume() int {
	return p.volume
}

// Seek jumps to an absolute position in seconds.
func (p *Player) Seek(seconds float64) error {
	if p.status == models.StatusStopped {
		return fmt.Errorf("nothing playing")
	}
	if err := p.backend.Seek(seconds); err != nil {
		return fmt.Errorf("backend seek: %w", err)
	}
	p.posMS = int64(seconds * 1000)
	return nil
}

// Status returns the local playback status.
func (p *Player) Status() models.PlaybackStatus {
	return p.status
}

// PositionMS returns the cached playback position.
func (p *Player) PositionMS() int64 {
	return p.posMS
}

// DurationMS returns the cached track duration.
func (p *Player) DurationMS() int64 {
	return p.durMS
}

// SampleBackend refreshes the cached position and duration. Called from the
// monitor tick; a failed query keeps the previous sample.
func (p *Player) SampleBackend() {
	if p.status == models.StatusStopped {
		return
	}
	if pos, err := p.backend.PositionMS(); err == nil {
		p.posMS = pos
	}
	if dur, err := p.backend.DurationMS(); err == nil && dur > 0 {
		p.durMS = dur
	}
}

// Finished detects the backend's busy→idle edge while the local state still
// says playing. Side-effecting: the first detection transitions the player
// to stopped, so the edge fires exactly once per track. This is the
// canonical end-of-track signal.
func (p *Player) Finished() bool {
	if p.status != models.StatusPlaying {
		return false
	}
	if p.backend.Busy() {
		return false
	}
	p.status = models.StatusStopped
	p.posMS = 0
	return true
}
