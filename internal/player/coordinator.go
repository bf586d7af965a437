/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/friendsincode/skald/internal/events"
	"github.com/friendsincode/skald/internal/models"
	"github.com/rs/zerolog"
)

// ErrNoPlayableTracks is returned when a playlist loads but no track
// survives path resolution.
var ErrNoPlayableTracks = errors.New("playlist has no playable tracks")

// Library supplies persisted playlists. Track file paths are unresolved in
// the returned snapshot.
type Library interface {
	GetPlaylist(ctx context.Context, id string) (*models.PlaylistSnapshot, error)
}

// PathResolver verifies track files on disk.
type PathResolver interface {
	ResolvePath(filename string) (string, bool)
}

// Coordinator orchestrates the playback session and the audio player. It is
// the single mutual-exclusion domain for playback state: every command and
// every monitor tick serializes through its mutex, and no Session or Player
// call happens without holding it.
//
// State changes are published on the event bus; the coordinator holds no
// reference to any broadcast consumer.
type Coordinator struct {
	mu       sync.Mutex
	session  *Session
	player   *Player
	library  Library
	resolver PathResolver
	bus      *events.Bus
	logger   zerolog.Logger
}

// NewCoordinator wires the playback state machine together.
func NewCoordinator(session *Session, player *Player, library Library, resolver PathResolver, bus *events.Bus, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		session:  session,
		player:   player,
		library:  library,
		resolver: resolver,
		bus:      bus,
		logger:   logger.With().Str("component", "coordinator").Logger(),
	}
}

// Play starts or resumes playback.
//
// Paused playback resumes in place — it never restarts the track. From
// stopped, the current track (or the start of the loaded playlist) begins.
func (c *Coordinator) Play() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.player.Status() {
	case models.StatusPlaying:
		return true
	case models.StatusPaused:
		ok := c.player.Resume()
		if ok {
			c.emitState()
		}
		return ok
	}

	track, ok := c.session.Current()
	if !ok {
		return false
	}
	return c.startTrackLocked(track)
}

// Pause suspends playback.
func (c *Coordinator) Pause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.player.Pause() {
		return false
	}
	c.emitState()
	return true
}

// Resume continues paused playback.
func (c *Coordinator) Resume() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.player.Resume() {
		return false
	}
	c.emitState()
	return true
}

// TogglePause flips play/pause; from stopped it attempts to start playback,
// so the first button press on the appliance starts the loaded playlist.
func (c *Coordinator) TogglePause() bool {
	c.mu.Lock()

	if c.player.Status() != models.StatusStopped {
		ok := c.player.TogglePause()
		if ok {
			c.emitState()
		}
		c.mu.Unlock()
		return ok
	}
	c.mu.Unlock()

	return c.Play()
}

// Stop ends playback. Idempotent; stopping an already stopped player
// changes nothing and broadcasts nothing.
func (c *Coordinator) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.player.Status() == models.StatusStopped {
		return true
	}
	c.player.Stop()
	c.emitState()
	return true
}

// Next advances to the next track and plays it. At the end of the playlist
// with repeat off it stops and reports failure.
func (c *Coordinator) Next() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextLocked()
}

func (c *Coordinator) nextLocked() bool {
	track, ok := c.session.MoveNext()
	if !ok {
		c.stopAtBoundaryLocked()
		return false
	}
	return c.startTrackLocked(track)
}

// Previous steps back one track and plays it.
func (c *Coordinator) Previous() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	track, ok := c.session.MovePrevious()
	if !ok {
		c.stopAtBoundaryLocked()
		return false
	}
	return c.startTrackLocked(track)
}

// Goto jumps to a 1-based track number and plays it.
func (c *Coordinator) Goto(trackNumber int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	track, ok := c.session.MoveTo(trackNumber - 1)
	if !ok {
		return false
	}
	return c.startTrackLocked(track)
}

// PlayTrack plays the track with the given id from the active playlist.
func (c *Coordinator) PlayTrack(trackID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	playlist := c.session.Playlist()
	if playlist == nil {
		return false
	}
	for i := range playlist.Tracks {
		if playlist.Tracks[i].ID == trackID {
			track, ok := c.session.MoveTo(i)
			if !ok {
				return false
			}
			return c.startTrackLocked(track)
		}
	}
	return false
}

// SetVolume validates and applies the volume.
func (c *Coordinator) SetVolume(volume int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.player.SetVolume(volume); err != nil {
		return err
	}
	c.bus.Publish(events.EventVolumeChanged, events.Payload{
		"volume":   volume,
		"snapshot": c.snapshotLocked(),
	})
	c.emitState()
	return nil
}

// Seek jumps to an absolute position in the current track.
func (c *Coordinator) Seek(seconds float64) error {
	if seconds < 0 {
		return fmt.Errorf("seek position must not be negative")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.player.Seek(seconds); err != nil {
		return err
	}
	c.emitState()
	return nil
}

// SetRepeat switches the repeat mode.
func (c *Coordinator) SetRepeat(mode models.RepeatMode) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.session.SetRepeat(mode) {
		return false
	}
	c.emitState()
	return true
}

// SetShuffle toggles shuffle mode.
func (c *Coordinator) SetShuffle(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session.SetShuffle(enabled)
	c.emitState()
}

// LoadPlaylist queries the library, resolves track paths, drops unplayable
// tracks, and makes the playlist active. Any current playback stops. The
// library query runs outside the playback lock.
func (c *Coordinator) LoadPlaylist(ctx context.Context, playlistID string) error {
	source, err := c.library.GetPlaylist(ctx, playlistID)
	if err != nil {
		return fmt.Errorf("load playlist %s: %w", playlistID, err)
	}

	snapshot := &models.PlaylistSnapshot{ID: source.ID, Title: source.Title}
	for _, track := range source.Tracks {
		path, ok := c.resolver.ResolvePath(track.Filename)
		if !ok {
			c.logger.Warn().
				Str("playlist", source.ID).
				Str("track", track.ID).
				Str("filename", track.Filename).
				Msg("dropping unplayable track")
			continue
		}
		track.FilePath = path
		snapshot.Tracks = append(snapshot.Tracks, track)
	}

	if len(snapshot.Tracks) == 0 {
		return fmt.Errorf("playlist %s: %w", playlistID, ErrNoPlayableTracks)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.player.Stop()
	c.session.SetPlaylist(snapshot, 0)

	c.logger.Info().
		Str("playlist", snapshot.ID).
		Str("title", snapshot.Title).
		Int("tracks", len(snapshot.Tracks)).
		Msg("playlist loaded")

	c.bus.Publish(events.EventPlaylistLoaded, events.Payload{
		"playlist_id":    snapshot.ID,
		"playlist_title": snapshot.Title,
		"track_count":    len(snapshot.Tracks),
		"snapshot":       c.snapshotLocked(),
	})
	c.emitState()
	return nil
}

// Status returns the canonical merged snapshot.
func (c *Coordinator) Status() models.PlayerSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Tick runs one monitor step: refresh the position sample, detect the
// end-of-track edge, and advance exactly once per edge. Returns whether an
// advance happened and whether the playlist ran out.
func (c *Coordinator) Tick() (advanced, finished bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.player.Status() != models.StatusPlaying {
		return false, false
	}

	c.player.SampleBackend()
	if !c.player.Finished() {
		return false, false
	}

	track, ok := c.session.MoveNext()
	if !ok {
		playlist := c.session.Playlist()
		payload := events.Payload{"snapshot": c.snapshotLocked()}
		if playlist != nil {
			payload["playlist_id"] = playlist.ID
		}
		c.bus.Publish(events.EventPlaylistFinished, payload)
		c.emitState()
		return false, true
	}

	return c.startTrackLocked(track), false
}

// startTrackLocked loads the track into the player. Backend failures are
// expected to be rare; they are logged here and force a safe stop so they
// never propagate into the monitor loop.
func (c *Coordinator) startTrackLocked(track *models.TrackInfo) bool {
	if track.FilePath == "" {
		c.logger.Error().Str("track", track.ID).Msg("track has no resolved path")
		c.player.Stop()
		c.emitState()
		return false
	}

	if err := c.player.PlayFile(track.FilePath, track.DurationMS); err != nil {
		c.logger.Error().Err(err).Str("track", track.ID).Msg("playback failed")
		c.player.Stop()
		c.emitState()
		return false
	}

	c.bus.Publish(events.EventTrackChanged, events.Payload{
		"track":       track,
		"playlist_id": c.session.Playlist().ID,
		"snapshot":    c.snapshotLocked(),
	})
	c.emitState()
	return true
}

// stopAtBoundaryLocked stops playback after a failed navigation, emitting
// state only when something actually changed.
func (c *Coordinator) stopAtBoundaryLocked() {
	if c.player.Status() == models.StatusStopped {
		return
	}
	c.player.Stop()
	c.emitState()
}

func (c *Coordinator) emitState() {
	snap := c.snapshotLocked()
	payload := events.Payload{"snapshot": snap}
	if snap.ActivePlaylistID != "" {
		payload["playlist_id"] = snap.ActivePlaylistID
	}
	c.bus.Publish(events.EventPlayerState, payload)
}

func (c *Coordinator) snapshotLocked() models.PlayerSnapshot {
	status := c.player.Status()
	snap := models.PlayerSnapshot{
		IsPlaying:      status == models.StatusPlaying,
		IsPaused:       status == models.StatusPaused,
		Status:         status,
		PositionMS:     c.player.PositionMS(),
		DurationMS:     c.player.DurationMS(),
		Volume:         c.player.Volume(),
		RepeatMode:     c.session.Repeat(),
		ShuffleEnabled: c.session.Shuffle(),
		TrackCount:     c.session.TrackCount(),
		CanNext:        c.session.CanNext(),
		CanPrev:        c.session.CanPrevious(),
	}

	if playlist := c.session.Playlist(); playlist != nil {
		snap.ActivePlaylistID = playlist.ID
		snap.ActivePlaylistTitle = playlist.Title
		snap.TrackIndex = c.session.Index() + 1
	}
	if track, ok := c.session.Current(); ok {
		snap.ActiveTrack = track
		snap.ActiveTrackID = track.ID
	}
	return snap
}
