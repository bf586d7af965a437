/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	EventPlayerState      EventType = "player.state"
	EventTrackChanged     EventType = "player.track_changed"
	EventVolumeChanged    EventType = "player.volume_changed"
	EventPlaylistLoaded   EventType = "player.playlist_loaded"
	EventPlaylistFinished EventType = "player.playlist_finished"

	EventLibraryUpdated EventType = "library.updated"

	EventTagScanned    EventType = "nfc.tag_scanned"
	EventTagBound      EventType = "nfc.tag_bound"
	EventTagUnknown    EventType = "nfc.tag_unknown"
	EventAssocStarted  EventType = "nfc.assoc_started"
	EventAssocEnded    EventType = "nfc.assoc_ended"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Bus implements a simple in-process pubsub. The playback coordinator
// publishes into it and never holds a reference to any consumer, so the
// coordinator/synchronizer dependency stays one-directional.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 16)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers. Never blocks the publisher; a
// subscriber that cannot keep up misses the event and must resync.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[eventType]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[eventType] = subs
	close(sub)
}
