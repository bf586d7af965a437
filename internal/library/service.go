/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/
package library

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/friendsincode/skald/internal/events"
	"github.com/friendsincode/skald/internal/models"
)

// ErrNotFound is returned when a playlist or track does not exist.
var ErrNotFound = errors.New("library: not found")

// Service owns playlist and track persistence. It returns immutable
// snapshots so callers never share mutable rows with the playback layer.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger
}

func New(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "library").Logger(),
	}
}

// PlaylistSummary is the list view of a playlist.
type PlaylistSummary struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	TrackCount int    `json:"track_count"`
}

// ListPlaylists returns summaries of every playlist ordered by title.
func (s *Service) ListPlaylists(ctx context.Context) ([]PlaylistSummary, error) {
	var playlists []models.Playlist
	if err := s.db.WithContext(ctx).Preload("Tracks").Order("title").Find(&playlists).Error; err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}

	out := make([]PlaylistSummary, 0, len(playlists))
	for _, p := range playlists {
		out = append(out, PlaylistSummary{ID: p.ID, Title: p.Title, TrackCount: len(p.Tracks)})
	}
	return out, nil
}

// GetPlaylist loads one playlist with its tracks in play order.
func (s *Service) GetPlaylist(ctx context.Context, id string) (*models.PlaylistSnapshot, error) {
	var playlist models.Playlist
	err := s.db.WithContext(ctx).
		Preload("Tracks", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&playlist, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get playlist %s: %w", id, err)
	}

	snap := &models.PlaylistSnapshot{
		ID:     playlist.ID,
		Title:  playlist.Title,
		Tracks: make([]models.TrackInfo, 0, len(playlist.Tracks)),
	}
	for _, t := range playlist.Tracks {
		snap.Tracks = append(snap.Tracks, models.TrackInfo{
			ID:         t.ID,
			Title:      t.Title,
			Artist:     t.Artist,
			Album:      t.Album,
			Filename:   t.Filename,
			DurationMS: t.DurationMS,
		})
	}
	return snap, nil
}

// CreatePlaylist stores a new empty playlist.
func (s *Service) CreatePlaylist(ctx context.Context, title string) (*models.Playlist, error) {
	if title == "" {
		return nil, errors.New("library: playlist title required")
	}
	playlist := &models.Playlist{ID: uuid.NewString(), Title: title}
	if err := s.db.WithContext(ctx).Create(playlist).Error; err != nil {
		return nil, fmt.Errorf("create playlist: %w", err)
	}
	s.publishUpdated(playlist.ID)
	return playlist, nil
}

// DeletePlaylist removes a playlist and its tracks.
func (s *Service) DeletePlaylist(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Select("Tracks").Delete(&models.Playlist{ID: id})
	if res.Error != nil {
		return fmt.Errorf("delete playlist %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.publishUpdated(id)
	return nil
}

// AddTrack appends a track to the end of a playlist.
func (s *Service) AddTrack(ctx context.Context, playlistID string, info models.TrackInfo) (*models.Track, error) {
	var playlist models.Playlist
	if err := s.db.WithContext(ctx).First(&playlist, "id = ?", playlistID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("add track: %w", err)
	}

	var maxPos int
	s.db.WithContext(ctx).Model(&models.Track{}).
		Where("playlist_id = ?", playlistID).
		Select("COALESCE(MAX(position), -1)").Scan(&maxPos)

	track := &models.Track{
		ID:         uuid.NewString(),
		PlaylistID: playlistID,
		Position:   maxPos + 1,
		Title:      info.Title,
		Artist:     info.Artist,
		Album:      info.Album,
		Filename:   info.Filename,
		DurationMS: info.DurationMS,
	}
	if track.Title == "" {
		track.Title = track.Filename
	}
	if err := s.db.WithContext(ctx).Create(track).Error; err != nil {
		return nil, fmt.Errorf("add track: %w", err)
	}
	s.publishUpdated(playlistID)
	return track, nil
}

// RemoveTrack deletes a track and closes the position gap it leaves.
func (s *Service) RemoveTrack(ctx context.Context, playlistID, trackID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var track models.Track
		if err := tx.First(&track, "id = ? AND playlist_id = ?", trackID, playlistID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Delete(&track).Error; err != nil {
			return err
		}
		return tx.Model(&models.Track{}).
			Where("playlist_id = ? AND position > ?", playlistID, track.Position).
			UpdateColumn("position", gorm.Expr("position - 1")).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("remove track %s: %w", trackID, err)
	}
	s.publishUpdated(playlistID)
	return nil
}

// manifest is the on-disk import format: one playlist with its tracks.
type manifest struct {
	Title  string `yaml:"title"`
	Tracks []struct {
		Title      string `yaml:"title"`
		Artist     string `yaml:"artist"`
		Album      string `yaml:"album"`
		Filename   string `yaml:"filename"`
		DurationMS int64  `yaml:"duration_ms"`
	} `yaml:"tracks"`
}

// ImportManifest reads a YAML playlist manifest and stores it as a new
// playlist. Existing playlists with the same title are left untouched; the
// import always creates a fresh playlist.
func (s *Service) ImportManifest(ctx context.Context, path string) (*models.PlaylistSnapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return s.ImportManifestBytes(ctx, raw)
}

func parseManifest(raw []byte) (*manifest, error) {
	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Title == "" {
		return nil, errors.New("library: manifest missing title")
	}
	if len(m.Tracks) == 0 {
		return nil, errors.New("library: manifest has no tracks")
	}
	for i, t := range m.Tracks {
		if t.Filename == "" {
			return nil, fmt.Errorf("library: manifest track %d missing filename", i+1)
		}
	}
	return &m, nil
}

// ImportManifestBytes parses and stores a YAML manifest payload.
func (s *Service) ImportManifestBytes(ctx context.Context, raw []byte) (*models.PlaylistSnapshot, error) {
	m, err := parseManifest(raw)
	if err != nil {
		return nil, err
	}

	playlist := models.Playlist{ID: uuid.NewString(), Title: m.Title}
	for i, t := range m.Tracks {
		title := t.Title
		if title == "" {
			title = t.Filename
		}
		playlist.Tracks = append(playlist.Tracks, models.Track{
			ID:         uuid.NewString(),
			PlaylistID: playlist.ID,
			Position:   i,
			Title:      title,
			Artist:     t.Artist,
			Album:      t.Album,
			Filename:   t.Filename,
			DurationMS: t.DurationMS,
		})
	}

	if err := s.db.WithContext(ctx).Create(&playlist).Error; err != nil {
		return nil, fmt.Errorf("store manifest playlist: %w", err)
	}
	s.logger.Info().Str("playlist_id", playlist.ID).Str("title", playlist.Title).
		Int("tracks", len(playlist.Tracks)).Msg("playlist imported")
	s.publishUpdated(playlist.ID)

	return s.GetPlaylist(ctx, playlist.ID)
}

func (s *Service) publishUpdated(playlistID string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.EventLibraryUpdated, events.Payload{"playlist_id": playlistID})
}
