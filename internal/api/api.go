/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald/internal/audio"
	"github.com/friendsincode/skald/internal/library"
	"github.com/friendsincode/skald/internal/logbuffer"
	"github.com/friendsincode/skald/internal/nfc"
	"github.com/friendsincode/skald/internal/player"
	"github.com/friendsincode/skald/internal/statesync"
	"github.com/friendsincode/skald/internal/telemetry"
)

// API exposes HTTP handlers.
type API struct {
	coordinator *player.Coordinator
	library     *library.Service
	nfc         *nfc.Service
	syncer      *statesync.Synchronizer
	backend     audio.Backend
	logBuffer   *logbuffer.Buffer
	logger      zerolog.Logger
}

// New creates the API router wrapper.
func New(coordinator *player.Coordinator, librarySvc *library.Service, nfcSvc *nfc.Service, syncer *statesync.Synchronizer, backend audio.Backend, logBuf *logbuffer.Buffer, logger zerolog.Logger) *API {
	return &API{
		coordinator: coordinator,
		library:     librarySvc,
		nfc:         nfcSvc,
		syncer:      syncer,
		backend:     backend,
		logBuffer:   logBuf,
		logger:      logger.With().Str("component", "api").Logger(),
	}
}

// Router builds the full route tree.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(telemetry.MetricsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Route("/player", func(r chi.Router) {
			r.Get("/status", a.handlePlayerStatus)
			r.Post("/play", a.handlePlay)
			r.Post("/pause", a.handlePause)
			r.Post("/resume", a.handleResume)
			r.Post("/toggle", a.handleTogglePause)
			r.Post("/stop", a.handleStop)
			r.Post("/next", a.handleNext)
			r.Post("/previous", a.handlePrevious)
			r.Post("/goto", a.handleGoto)
			r.Post("/track", a.handlePlayTrack)
			r.Post("/volume", a.handleVolume)
			r.Post("/seek", a.handleSeek)
			r.Post("/repeat", a.handleRepeat)
			r.Post("/shuffle", a.handleShuffle)
		})

		r.Route("/playlists", func(r chi.Router) {
			r.Get("/", a.handlePlaylistsList)
			r.Post("/", a.handlePlaylistCreate)
			r.Post("/import", a.handlePlaylistImport)
			r.Route("/{playlistID}", func(r chi.Router) {
				r.Get("/", a.handlePlaylistGet)
				r.Delete("/", a.handlePlaylistDelete)
				r.Post("/load", a.handlePlaylistLoad)
				r.Post("/tracks", a.handleTrackAdd)
				r.Delete("/tracks/{trackID}", a.handleTrackRemove)
			})
		})

		r.Route("/nfc", func(r chi.Router) {
			r.Get("/bindings", a.handleBindingsList)
			r.Post("/bindings", a.handleBind)
			r.Delete("/bindings/{uid}", a.handleUnbind)
			r.Post("/scan", a.handleScan)
			r.Route("/associate", func(r chi.Router) {
				r.Get("/", a.handleAssociationGet)
				r.Post("/", a.handleAssociationStart)
				r.Delete("/{assocID}", a.handleAssociationCancel)
			})
		})

		r.Get("/logs", a.handleLogs)
		r.Get("/ws", a.handleWebSocket)
	})

	r.Handle("/metrics", telemetry.Handler())

	return r
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := a.syncer.Health()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"audio_backend": a.backend.Kind(),
		"sync":          health,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
