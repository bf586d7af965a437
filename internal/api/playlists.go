/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/skald/internal/library"
	"github.com/friendsincode/skald/internal/models"
	"github.com/friendsincode/skald/internal/player"
	"github.com/friendsincode/skald/internal/telemetry"
)

func (a *API) handlePlaylistsList(w http.ResponseWriter, r *http.Request) {
	playlists, err := a.library.ListPlaylists(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("list playlists")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"playlists": playlists})
}

func (a *API) handlePlaylistGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "playlistID")
	playlist, err := a.library.GetPlaylist(r.Context(), id)
	if errors.Is(err, library.ErrNotFound) {
		writeError(w, http.StatusNotFound, "playlist_not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("playlist_id", id).Msg("get playlist")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

type playlistCreateRequest struct {
	Title string `json:"title"`
}

func (a *API) handlePlaylistCreate(w http.ResponseWriter, r *http.Request) {
	var req playlistCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title required")
		return
	}
	playlist, err := a.library.CreatePlaylist(r.Context(), req.Title)
	if err != nil {
		a.logger.Error().Err(err).Msg("create playlist")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusCreated, playlist)
}

func (a *API) handlePlaylistDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "playlistID")
	err := a.library.DeletePlaylist(r.Context(), id)
	if errors.Is(err, library.ErrNotFound) {
		writeError(w, http.StatusNotFound, "playlist_not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("playlist_id", id).Msg("delete playlist")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePlaylistImport accepts a raw YAML manifest body.
func (a *API) handlePlaylistImport(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read_failed")
		return
	}
	playlist, err := a.library.ImportManifestBytes(r.Context(), raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, playlist)
}

func (a *API) handlePlaylistLoad(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "playlistID")
	err := a.coordinator.LoadPlaylist(r.Context(), id)
	switch {
	case errors.Is(err, library.ErrNotFound):
		telemetry.CommandsTotal.WithLabelValues("load", "rejected").Inc()
		writeError(w, http.StatusNotFound, "playlist_not_found")
		return
	case errors.Is(err, player.ErrNoPlayableTracks):
		telemetry.CommandsTotal.WithLabelValues("load", "rejected").Inc()
		writeError(w, http.StatusConflict, "no_playable_tracks")
		return
	case err != nil:
		a.logger.Error().Err(err).Str("playlist_id", id).Msg("load playlist")
		writeError(w, http.StatusInternalServerError, "load_failed")
		return
	}
	telemetry.CommandsTotal.WithLabelValues("load", "applied").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"applied": true, "state": a.coordinator.Status()})
}

type trackAddRequest struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	Filename   string `json:"filename"`
	DurationMS int64  `json:"duration_ms"`
}

func (a *API) handleTrackAdd(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "playlistID")
	var req trackAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Filename == "" {
		writeError(w, http.StatusBadRequest, "filename required")
		return
	}
	track, err := a.library.AddTrack(r.Context(), id, models.TrackInfo{
		Title:      req.Title,
		Artist:     req.Artist,
		Album:      req.Album,
		Filename:   req.Filename,
		DurationMS: req.DurationMS,
	})
	if errors.Is(err, library.ErrNotFound) {
		writeError(w, http.StatusNotFound, "playlist_not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("playlist_id", id).Msg("add track")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusCreated, track)
}

func (a *API) handleTrackRemove(w http.ResponseWriter, r *http.Request) {
	playlistID := chi.URLParam(r, "playlistID")
	trackID := chi.URLParam(r, "trackID")
	err := a.library.RemoveTrack(r.Context(), playlistID, trackID)
	if errors.Is(err, library.ErrNotFound) {
		writeError(w, http.StatusNotFound, "track_not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("track_id", trackID).Msg("remove track")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
