/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package nfc maps physical tag scans to playback actions. A scan of a
// bound tag loads the bound playlist and starts playing; a scan during an
// open association session binds the tag instead.
package nfc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/skald/internal/events"
	"github.com/friendsincode/skald/internal/models"
)

var (
	// ErrBindingNotFound is returned when a tag UID has no binding.
	ErrBindingNotFound = errors.New("nfc: binding not found")
	// ErrAssociationNotFound is returned for unknown or expired sessions.
	ErrAssociationNotFound = errors.New("nfc: association not found")
	// ErrAssociationActive is returned when starting a second session
	// while one is already open.
	ErrAssociationActive = errors.New("nfc: association already in progress")
)

// associationTTL bounds how long a session waits for a tag before it
// expires on its own.
const associationTTL = 60 * time.Second

// Playback is the slice of the playback coordinator a scan needs.
type Playback interface {
	LoadPlaylist(ctx context.Context, playlistID string) error
	Play() bool
}

// Association is an open bind-next-scan session.
type Association struct {
	ID         string    `json:"id"`
	PlaylistID string    `json:"playlist_id"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Service owns tag bindings and association sessions. At most one
// association session is open at a time; scans during it bind rather
// than play.
type Service struct {
	db       *gorm.DB
	bus      *events.Bus
	playback Playback
	logger   zerolog.Logger
	now      func() time.Time

	mu    sync.Mutex
	assoc *Association
	timer *time.Timer
}

func New(db *gorm.DB, bus *events.Bus, playback Playback, logger zerolog.Logger) *Service {
	return &Service{
		db:       db,
		bus:      bus,
		playback: playback,
		logger:   logger.With().Str("component", "nfc").Logger(),
		now:      time.Now,
	}
}

// ListBindings returns every tag binding.
func (s *Service) ListBindings(ctx context.Context) ([]models.TagBinding, error) {
	var bindings []models.TagBinding
	if err := s.db.WithContext(ctx).Order("uid").Find(&bindings).Error; err != nil {
		return nil, fmt.Errorf("list bindings: %w", err)
	}
	return bindings, nil
}

// GetBinding looks up the binding for one tag UID.
func (s *Service) GetBinding(ctx context.Context, uid string) (*models.TagBinding, error) {
	var binding models.TagBinding
	err := s.db.WithContext(ctx).First(&binding, "uid = ?", uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBindingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get binding %s: %w", uid, err)
	}
	return &binding, nil
}

// Bind writes or overwrites the binding for a tag UID.
func (s *Service) Bind(ctx context.Context, uid, playlistID string) (*models.TagBinding, error) {
	if uid == "" || playlistID == "" {
		return nil, errors.New("nfc: uid and playlist_id required")
	}
	binding := &models.TagBinding{UID: uid, PlaylistID: playlistID}
	err := s.db.WithContext(ctx).
		Where("uid = ?", uid).
		Assign(models.TagBinding{PlaylistID: playlistID}).
		FirstOrCreate(binding).Error
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", uid, err)
	}
	binding.PlaylistID = playlistID
	s.bus.Publish(events.EventTagBound, events.Payload{
		"uid":         uid,
		"playlist_id": playlistID,
	})
	return binding, nil
}

// Unbind removes the binding for a tag UID.
func (s *Service) Unbind(ctx context.Context, uid string) error {
	res := s.db.WithContext(ctx).Delete(&models.TagBinding{}, "uid = ?", uid)
	if res.Error != nil {
		return fmt.Errorf("unbind %s: %w", uid, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrBindingNotFound
	}
	return nil
}

// StartAssociation opens a session that binds the next scanned tag to the
// given playlist. Only one session may be open at a time.
func (s *Service) StartAssociation(playlistID string) (*Association, error) {
	if playlistID == "" {
		return nil, errors.New("nfc: playlist_id required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.assoc != nil {
		return nil, ErrAssociationActive
	}

	assoc := &Association{
		ID:         uuid.NewString(),
		PlaylistID: playlistID,
		ExpiresAt:  s.now().Add(associationTTL),
	}
	s.assoc = assoc
	s.timer = time.AfterFunc(associationTTL, func() { s.expire(assoc.ID) })

	s.logger.Info().Str("assoc_id", assoc.ID).Str("playlist_id", playlistID).Msg("association started")
	s.bus.Publish(events.EventAssocStarted, events.Payload{
		"assoc_id":    assoc.ID,
		"playlist_id": playlistID,
		"expires_at":  assoc.ExpiresAt.Unix(),
	})
	out := *assoc
	return &out, nil
}

// CancelAssociation closes the session without binding anything.
func (s *Service) CancelAssociation(assocID string) error {
	return s.endAssociation(assocID, "cancelled", "")
}

func (s *Service) expire(assocID string) {
	if err := s.endAssociation(assocID, "expired", ""); err == nil {
		s.logger.Info().Str("assoc_id", assocID).Msg("association expired")
	}
}

func (s *Service) endAssociation(assocID, outcome, uid string) error {
	s.mu.Lock()
	if s.assoc == nil || s.assoc.ID != assocID {
		s.mu.Unlock()
		return ErrAssociationNotFound
	}
	assoc := s.assoc
	s.assoc = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	payload := events.Payload{
		"assoc_id":    assoc.ID,
		"playlist_id": assoc.PlaylistID,
		"outcome":     outcome,
	}
	if uid != "" {
		payload["uid"] = uid
	}
	s.bus.Publish(events.EventAssocEnded, payload)
	return nil
}

// ActiveAssociation returns the open session, or nil.
func (s *Service) ActiveAssociation() *Association {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assoc == nil {
		return nil
	}
	out := *s.assoc
	return &out
}

// ScanResult describes what a scan did.
type ScanResult struct {
	UID        string `json:"uid"`
	Action     string `json:"action"` // "play", "bound" or "unknown"
	PlaylistID string `json:"playlist_id,omitempty"`
	AssocID    string `json:"assoc_id,omitempty"`
}

// HandleScan processes one tag read. During an open association session
// the tag is bound to the session's playlist and the session closes.
// Otherwise a bound tag loads its playlist and starts playback, and an
// unbound tag only emits an event so the UI can offer binding.
func (s *Service) HandleScan(ctx context.Context, uid string) (*ScanResult, error) {
	if uid == "" {
		return nil, errors.New("nfc: uid required")
	}
	s.bus.Publish(events.EventTagScanned, events.Payload{"uid": uid})

	s.mu.Lock()
	assoc := s.assoc
	s.mu.Unlock()

	if assoc != nil {
		if _, err := s.Bind(ctx, uid, assoc.PlaylistID); err != nil {
			return nil, err
		}
		if err := s.endAssociation(assoc.ID, "bound", uid); err != nil {
			// Session raced to expiry between the check and the bind;
			// the binding itself still stands.
			s.logger.Warn().Str("assoc_id", assoc.ID).Err(err).Msg("association closed during bind")
		}
		s.logger.Info().Str("uid", uid).Str("playlist_id", assoc.PlaylistID).Msg("tag bound via association")
		return &ScanResult{UID: uid, Action: "bound", PlaylistID: assoc.PlaylistID, AssocID: assoc.ID}, nil
	}

	binding, err := s.GetBinding(ctx, uid)
	if errors.Is(err, ErrBindingNotFound) {
		s.logger.Info().Str("uid", uid).Msg("unknown tag scanned")
		s.bus.Publish(events.EventTagUnknown, events.Payload{"uid": uid})
		return &ScanResult{UID: uid, Action: "unknown"}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.playback.LoadPlaylist(ctx, binding.PlaylistID); err != nil {
		return nil, fmt.Errorf("load playlist for tag %s: %w", uid, err)
	}
	s.playback.Play()
	s.logger.Info().Str("uid", uid).Str("playlist_id", binding.PlaylistID).Msg("tag scan started playback")
	return &ScanResult{UID: uid, Action: "play", PlaylistID: binding.PlaylistID}, nil
}

// Close cancels any open association session.
func (s *Service) Close() {
	s.mu.Lock()
	assocID := ""
	if s.assoc != nil {
		assocID = s.assoc.ID
	}
	s.mu.Unlock()
	if assocID != "" {
		_ = s.CancelAssociation(assocID)
	}
}
