/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/skald/internal/library"
	"github.com/friendsincode/skald/internal/nfc"
	"github.com/friendsincode/skald/internal/player"
)

func (a *API) handleBindingsList(w http.ResponseWriter, r *http.Request) {
	bindings, err := a.nfc.ListBindings(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("list bindings")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bindings": bindings})
}

type bindRequest struct {
	UID        string `json:"uid"`
	PlaylistID string `json:"playlist_id"`
}

func (a *API) handleBind(w http.ResponseWriter, r *http.Request) {
	var req bindRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.UID == "" || req.PlaylistID == "" {
		writeError(w, http.StatusBadRequest, "uid and playlist_id required")
		return
	}
	if _, err := a.library.GetPlaylist(r.Context(), req.PlaylistID); err != nil {
		if errors.Is(err, library.ErrNotFound) {
			writeError(w, http.StatusNotFound, "playlist_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	binding, err := a.nfc.Bind(r.Context(), req.UID, req.PlaylistID)
	if err != nil {
		a.logger.Error().Err(err).Str("uid", req.UID).Msg("bind tag")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusCreated, binding)
}

func (a *API) handleUnbind(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	err := a.nfc.Unbind(r.Context(), uid)
	if errors.Is(err, nfc.ErrBindingNotFound) {
		writeError(w, http.StatusNotFound, "binding_not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("uid", uid).Msg("unbind tag")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type scanRequest struct {
	UID string `json:"uid"`
}

// handleScan is the reader daemon's entry point: one POST per physical
// tag read.
func (a *API) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.UID == "" {
		writeError(w, http.StatusBadRequest, "uid required")
		return
	}
	result, err := a.nfc.HandleScan(r.Context(), req.UID)
	if err != nil {
		if errors.Is(err, player.ErrNoPlayableTracks) {
			writeError(w, http.StatusConflict, "no_playable_tracks")
			return
		}
		a.logger.Error().Err(err).Str("uid", req.UID).Msg("handle scan")
		writeError(w, http.StatusInternalServerError, "scan_failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleAssociationGet(w http.ResponseWriter, r *http.Request) {
	assoc := a.nfc.ActiveAssociation()
	if assoc == nil {
		writeError(w, http.StatusNotFound, "no_active_association")
		return
	}
	writeJSON(w, http.StatusOK, assoc)
}

type associationStartRequest struct {
	PlaylistID string `json:"playlist_id"`
}

func (a *API) handleAssociationStart(w http.ResponseWriter, r *http.Request) {
	var req associationStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.PlaylistID == "" {
		writeError(w, http.StatusBadRequest, "playlist_id required")
		return
	}
	if _, err := a.library.GetPlaylist(r.Context(), req.PlaylistID); err != nil {
		if errors.Is(err, library.ErrNotFound) {
			writeError(w, http.StatusNotFound, "playlist_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	assoc, err := a.nfc.StartAssociation(req.PlaylistID)
	if errors.Is(err, nfc.ErrAssociationActive) {
		writeError(w, http.StatusConflict, "association_in_progress")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "association_failed")
		return
	}
	writeJSON(w, http.StatusCreated, assoc)
}

func (a *API) handleAssociationCancel(w http.ResponseWriter, r *http.Request) {
	assocID := chi.URLParam(r, "assocID")
	err := a.nfc.CancelAssociation(assocID)
	if errors.Is(err, nfc.ErrAssociationNotFound) {
		writeError(w, http.StatusNotFound, "association_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cancel_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
