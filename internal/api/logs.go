/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/friendsincode/skald/internal/logbuffer"
)

// handleLogs serves the in-memory log ring with optional filters:
// ?level=, ?component=, ?search=, ?since=RFC3339, ?limit=, ?order=desc.
func (a *API) handleLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := logbuffer.QueryParams{
		Level:      q.Get("level"),
		Component:  q.Get("component"),
		Search:     q.Get("search"),
		Descending: q.Get("order") == "desc",
		Limit:      200,
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 2000 {
			writeError(w, http.StatusBadRequest, "limit must be 1-2000")
			return
		}
		params.Limit = limit
	}

	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		params.Since = since
	}

	entries := a.logBuffer.Query(params)
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}
