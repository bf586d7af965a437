/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package statesync

import (
	"context"

	"github.com/friendsincode/skald/internal/events"
	"github.com/rs/zerolog"
)

// Translator consumes domain events from the in-process bus and turns them
// into room broadcasts. It is the only coupling between the playback side
// and the synchronizer, keeping ownership one-directional.
type Translator struct {
	bus    *events.Bus
	syncer *Synchronizer
	logger zerolog.Logger
}

// NewTranslator creates a translator.
func NewTranslator(bus *events.Bus, syncer *Synchronizer, logger zerolog.Logger) *Translator {
	return &Translator{
		bus:    bus,
		syncer: syncer,
		logger: logger.With().Str("component", "statesync-translator").Logger(),
	}
}

// Run forwards events until context cancellation.
func (t *Translator) Run(ctx context.Context) {
	forward := func(eventType events.EventType, handle func(events.Payload)) {
		sub := t.bus.Subscribe(eventType)
		go func() {
			for {
				select {
				case <-ctx.Done():
					t.bus.Unsubscribe(eventType, sub)
					return
				case payload, ok := <-sub:
					if !ok {
						return
					}
					handle(payload)
				}
			}
		}()
	}

	forward(events.EventPlayerState, t.onPlayerState)
	forward(events.EventTrackChanged, t.onTrackChanged)
	forward(events.EventVolumeChanged, func(p events.Payload) {
		t.syncer.Broadcast(GlobalRoom, "volume_changed", p)
	})
	forward(events.EventPlaylistLoaded, t.onPlaylistLoaded)
	forward(events.EventPlaylistFinished, t.onPlaylistFinished)
	forward(events.EventLibraryUpdated, func(p events.Payload) {
		t.syncer.Broadcast(GlobalRoom, "playlists_updated", p)
	})
	forward(events.EventTagScanned, func(p events.Payload) {
		t.syncer.Broadcast(GlobalRoom, "nfc_scan", p)
	})
	forward(events.EventTagUnknown, func(p events.Payload) {
		t.syncer.Broadcast(GlobalRoom, "nfc_unknown", p)
	})
	forward(events.EventTagBound, t.onTagBound)
	forward(events.EventAssocStarted, t.onAssociation("nfc_assoc_started"))
	forward(events.EventAssocEnded, t.onAssociation("nfc_assoc_ended"))
}

func (t *Translator) onPlayerState(payload events.Payload) {
	t.syncer.Broadcast(GlobalRoom, "player_state", payload["snapshot"])
	if playlistID, ok := payload["playlist_id"].(string); ok && playlistID != "" {
		t.syncer.Broadcast(PlaylistRoom(playlistID), "state_update", payload["snapshot"])
	}
}

func (t *Translator) onTrackChanged(payload events.Payload) {
	if playlistID, ok := payload["playlist_id"].(string); ok && playlistID != "" {
		t.syncer.Broadcast(PlaylistRoom(playlistID), "track_changed", payload)
	}
}

func (t *Translator) onPlaylistLoaded(payload events.Payload) {
	t.syncer.Broadcast(GlobalRoom, "playlist_loaded", payload)
	if playlistID, ok := payload["playlist_id"].(string); ok && playlistID != "" {
		t.syncer.Broadcast(PlaylistRoom(playlistID), "playlist_loaded", payload)
	}
}

func (t *Translator) onPlaylistFinished(payload events.Payload) {
	t.syncer.Broadcast(GlobalRoom, "playlist_finished", payload)
	if playlistID, ok := payload["playlist_id"].(string); ok && playlistID != "" {
		t.syncer.Broadcast(PlaylistRoom(playlistID), "playlist_finished", payload)
	}
}

// onTagBound serves both bind paths: direct binds carry no association,
// scan-driven binds also notify the session's room.
func (t *Translator) onTagBound(payload events.Payload) {
	t.syncer.Broadcast(GlobalRoom, "nfc_bound", payload)
	if assocID, ok := payload["assoc_id"].(string); ok && assocID != "" {
		t.syncer.Broadcast(AssociationRoom(assocID), "nfc_bound", payload)
	}
}

func (t *Translator) onAssociation(eventType string) func(events.Payload) {
	return func(payload events.Payload) {
		assocID, ok := payload["assoc_id"].(string)
		if !ok || assocID == "" {
			t.logger.Warn().Str("event", eventType).Msg("association event without assoc_id")
			return
		}
		t.syncer.Broadcast(AssociationRoom(assocID), eventType, payload)
	}
}
