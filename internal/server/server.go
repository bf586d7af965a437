/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires the services together and owns their lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/skald/internal/api"
	"github.com/friendsincode/skald/internal/audio"
	"github.com/friendsincode/skald/internal/config"
	"github.com/friendsincode/skald/internal/db"
	"github.com/friendsincode/skald/internal/eventbus"
	"github.com/friendsincode/skald/internal/events"
	"github.com/friendsincode/skald/internal/library"
	"github.com/friendsincode/skald/internal/logbuffer"
	"github.com/friendsincode/skald/internal/nfc"
	"github.com/friendsincode/skald/internal/player"
	"github.com/friendsincode/skald/internal/resolver"
	"github.com/friendsincode/skald/internal/statesync"
	"github.com/friendsincode/skald/internal/telemetry"
)

// Server bundles the playback services and the HTTP API.
type Server struct {
	cfg    *config.Config
	logger zerolog.Logger

	database    *gorm.DB
	backend     audio.Backend
	bus         *events.Bus
	coordinator *player.Coordinator
	monitor     *player.Monitor
	library     *library.Service
	nfc         *nfc.Service
	syncer      *statesync.Synchronizer
	translator  *statesync.Translator
	mirror      *eventbus.NATSMirror
	api         *api.API

	cancel context.CancelFunc
}

// New builds the full service graph. Nothing runs until Start.
func New(cfg *config.Config, logBuf *logbuffer.Buffer, logger zerolog.Logger) (*Server, error) {
	database, err := db.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.Migrate(database); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	pathResolver, err := resolver.New(cfg.MediaRoot, logger)
	if err != nil {
		return nil, fmt.Errorf("media resolver: %w", err)
	}

	backend, err := audio.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("audio backend: %w", err)
	}

	bus := events.NewBus()
	librarySvc := library.New(database, bus, logger)

	session := player.NewSession()
	plr := player.NewPlayer(backend, cfg.DefaultVolume, logger)
	coordinator := player.NewCoordinator(session, plr, librarySvc, pathResolver, bus, logger)
	monitor := player.NewMonitor(coordinator, cfg.PollInterval, logger)

	nfcSvc := nfc.New(database, bus, coordinator, logger)

	var mirror *eventbus.NATSMirror
	if cfg.NATSURL != "" {
		mirror, err = eventbus.NewNATSMirror(cfg.NATSURL, logger)
		if err != nil {
			return nil, fmt.Errorf("nats mirror: %w", err)
		}
	}

	s := &Server{
		cfg:         cfg,
		logger:      logger.With().Str("component", "server").Logger(),
		database:    database,
		backend:     backend,
		bus:         bus,
		coordinator: coordinator,
		monitor:     monitor,
		library:     librarySvc,
		nfc:         nfcSvc,
		mirror:      mirror,
	}

	var mirrorIface statesync.Mirror
	if mirror != nil {
		mirrorIface = mirror
	}
	s.syncer = statesync.New(s.roomSnapshot, mirrorIface, logger)
	s.translator = statesync.NewTranslator(bus, s.syncer, logger)
	s.api = api.New(coordinator, librarySvc, nfcSvc, s.syncer, backend, logBuf, logger)

	return s, nil
}

// Start launches the auto-advance monitor and the event translator.
func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.monitor.Start(ctx)
	s.translator.Run(ctx)
	s.logger.Info().
		Str("audio_backend", s.backend.Kind()).
		Dur("poll_interval", s.cfg.PollInterval).
		Msg("playback services started")
}

// roomSnapshot builds the authoritative snapshot for one sync room.
func (s *Server) roomSnapshot(ctx context.Context, room string) (any, error) {
	switch kind, id := statesync.ParseRoom(room); kind {
	case statesync.RoomGlobal:
		playlists, err := s.library.ListPlaylists(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"player":    s.coordinator.Status(),
			"playlists": playlists,
		}, nil

	case statesync.RoomPlaylist:
		playlist, err := s.library.GetPlaylist(ctx, id)
		if err != nil {
			if errors.Is(err, library.ErrNotFound) {
				return map[string]any{"player": s.coordinator.Status()}, nil
			}
			return nil, err
		}
		return map[string]any{
			"player":   s.coordinator.Status(),
			"playlist": playlist,
		}, nil

	case statesync.RoomAssociation:
		return map[string]any{"association": s.nfc.ActiveAssociation()}, nil

	default:
		return map[string]any{"player": s.coordinator.Status()}, nil
	}
}

// HTTPServer builds the HTTP server for the API routes.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.HTTPBind, s.cfg.HTTPPort),
		Handler:           s.api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// MetricsServer builds the optional Prometheus endpoint server. Returns
// nil when no metrics bind address is configured.
func (s *Server) MetricsServer() *http.Server {
	if s.cfg.MetricsBind == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())
	return &http.Server{
		Addr:              s.cfg.MetricsBind,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Close stops the background workers and releases the audio backend,
// database and mirror connections.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.monitor.Stop()
	s.nfc.Close()

	var firstErr error
	if err := s.backend.Close(); err != nil {
		firstErr = err
	}
	if s.mirror != nil {
		s.mirror.Close()
	}
	if err := db.Close(s.database); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
