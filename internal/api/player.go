/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/friendsincode/skald/internal/models"
	"github.com/friendsincode/skald/internal/player"
	"github.com/friendsincode/skald/internal/telemetry"
)

func (a *API) handlePlayerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.coordinator.Status())
}

// command wraps the no-argument transport commands. A false return means
// the command was legal but had no effect in the current state; the caller
// still gets the authoritative snapshot to converge on.
func (a *API) command(w http.ResponseWriter, name string, fn func() bool) {
	applied := fn()
	outcome := "applied"
	if !applied {
		outcome = "noop"
	}
	telemetry.CommandsTotal.WithLabelValues(name, outcome).Inc()
	writeJSON(w, http.StatusOK, map[string]any{
		"applied": applied,
		"state":   a.coordinator.Status(),
	})
}

func (a *API) handlePlay(w http.ResponseWriter, r *http.Request) {
	a.command(w, "play", a.coordinator.Play)
}

func (a *API) handlePause(w http.ResponseWriter, r *http.Request) {
	a.command(w, "pause", a.coordinator.Pause)
}

func (a *API) handleResume(w http.ResponseWriter, r *http.Request) {
	a.command(w, "resume", a.coordinator.Resume)
}

func (a *API) handleTogglePause(w http.ResponseWriter, r *http.Request) {
	a.command(w, "toggle", a.coordinator.TogglePause)
}

func (a *API) handleStop(w http.ResponseWriter, r *http.Request) {
	a.command(w, "stop", a.coordinator.Stop)
}

func (a *API) handleNext(w http.ResponseWriter, r *http.Request) {
	a.command(w, "next", a.coordinator.Next)
}

func (a *API) handlePrevious(w http.ResponseWriter, r *http.Request) {
	a.command(w, "previous", a.coordinator.Previous)
}

type gotoRequest struct {
	Track int `json:"track"` // 1-based
}

func (a *API) handleGoto(w http.ResponseWriter, r *http.Request) {
	var req gotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Track < 1 {
		writeError(w, http.StatusBadRequest, "track must be >= 1")
		return
	}
	a.command(w, "goto", func() bool { return a.coordinator.Goto(req.Track) })
}

type playTrackRequest struct {
	TrackID string `json:"track_id"`
}

func (a *API) handlePlayTrack(w http.ResponseWriter, r *http.Request) {
	var req playTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.TrackID == "" {
		writeError(w, http.StatusBadRequest, "track_id required")
		return
	}
	a.command(w, "play_track", func() bool { return a.coordinator.PlayTrack(req.TrackID) })
}

type volumeRequest struct {
	Volume int `json:"volume"`
}

func (a *API) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := a.coordinator.SetVolume(req.Volume); err != nil {
		telemetry.CommandsTotal.WithLabelValues("volume", "rejected").Inc()
		if errors.Is(err, player.ErrInvalidVolume) {
			writeError(w, http.StatusBadRequest, "volume must be 0-100")
			return
		}
		writeError(w, http.StatusInternalServerError, "volume_failed")
		return
	}
	telemetry.CommandsTotal.WithLabelValues("volume", "applied").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"applied": true, "state": a.coordinator.Status()})
}

type seekRequest struct {
	Position float64 `json:"position"` // seconds
}

func (a *API) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Position < 0 {
		writeError(w, http.StatusBadRequest, "position must be >= 0")
		return
	}
	if err := a.coordinator.Seek(req.Position); err != nil {
		telemetry.CommandsTotal.WithLabelValues("seek", "rejected").Inc()
		writeError(w, http.StatusConflict, "seek_failed")
		return
	}
	telemetry.CommandsTotal.WithLabelValues("seek", "applied").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"applied": true, "state": a.coordinator.Status()})
}

type repeatRequest struct {
	Mode models.RepeatMode `json:"mode"`
}

func (a *API) handleRepeat(w http.ResponseWriter, r *http.Request) {
	var req repeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if !req.Mode.Valid() {
		writeError(w, http.StatusBadRequest, "mode must be none, one or all")
		return
	}
	a.command(w, "repeat", func() bool { return a.coordinator.SetRepeat(req.Mode) })
}

type shuffleRequest struct {
	Enabled bool `json:"enabled"`
}

func (a *API) handleShuffle(w http.ResponseWriter, r *http.Request) {
	var req shuffleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	a.command(w, "shuffle", func() bool {
		a.coordinator.SetShuffle(req.Enabled)
		return true
	})
}
