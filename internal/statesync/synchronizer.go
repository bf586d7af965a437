/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package statesync keeps every connected client converged on the playback
// state. It owns room membership and the per-room sequence counters, and is
// the only component allowed to mutate either.
package statesync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/friendsincode/skald/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GlobalRoom is the cross-cutting room carrying player-wide events. Its
// counter is the global sequence space; every other room counts
// independently.
const GlobalRoom = "playlists"

// PlaylistRoom names the room scoped to one playlist.
func PlaylistRoom(playlistID string) string {
	return "playlist:" + playlistID
}

// AssociationRoom names the room scoped to one NFC association session.
func AssociationRoom(assocID string) string {
	return "nfc:" + assocID
}

// RoomKind classifies a room name.
type RoomKind string

const (
	RoomGlobal      RoomKind = "global"
	RoomPlaylist    RoomKind = "playlist"
	RoomAssociation RoomKind = "nfc"
	RoomOther       RoomKind = "other"
)

// ParseRoom splits a room name into its kind and scoping id. The global
// room has no id.
func ParseRoom(room string) (RoomKind, string) {
	switch {
	case room == GlobalRoom:
		return RoomGlobal, ""
	case strings.HasPrefix(room, "playlist:"):
		return RoomPlaylist, strings.TrimPrefix(room, "playlist:")
	case strings.HasPrefix(room, "nfc:"):
		return RoomAssociation, strings.TrimPrefix(room, "nfc:")
	}
	return RoomOther, ""
}

// Envelope is the wire format of every outbound message.
type Envelope struct {
	EventType string  `json:"event_type"`
	ServerSeq uint64  `json:"server_seq"`
	Data      any     `json:"data"`
	Timestamp float64 `json:"timestamp"`
	EventID   string  `json:"event_id"`
	Room      string  `json:"room"`
}

// SnapshotFunc builds a complete, self-sufficient state representation for
// a room. Snapshots are total and idempotent: applying one resynchronizes a
// client without replaying history.
type SnapshotFunc func(ctx context.Context, room string) (any, error)

// Mirror republishes envelopes to an external system (e.g. NATS). Called
// outside the synchronizer lock.
type Mirror interface {
	Publish(room string, env Envelope)
}

// Health is the read-only synchronizer status.
type Health struct {
	GlobalSeq   uint64 `json:"global_seq"`
	Rooms       int    `json:"rooms"`
	Subscribers int    `json:"subscribers"`
}

const sessionSendBuffer = 64

type session struct {
	id    string
	send  chan Envelope
	rooms map[string]struct{}
}

// Synchronizer is the server-authoritative broadcaster. Membership and
// counter mutation serialize through one mutex; delivery decouples through
// per-session buffered queues so one slow client never stalls the rest.
type Synchronizer struct {
	mu       sync.Mutex
	sessions map[string]*session
	rooms    map[string]map[string]*session
	seqs     map[string]uint64

	snapshot SnapshotFunc
	mirror   Mirror
	logger   zerolog.Logger
}

// New creates a synchronizer. mirror may be nil.
func New(snapshot SnapshotFunc, mirror Mirror, logger zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		sessions: make(map[string]*session),
		rooms:    make(map[string]map[string]*session),
		seqs:     make(map[string]uint64),
		snapshot: snapshot,
		mirror:   mirror,
		logger:   logger.With().Str("component", "statesync").Logger(),
	}
}

// Register creates a session and returns its delivery channel. The channel
// closes when the session unregisters or is dropped as a slow consumer.
func (s *Synchronizer) Register(sessionID string) (<-chan Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sessionID]; exists {
		return nil, fmt.Errorf("session already registered: %s", sessionID)
	}

	sess := &session{
		id:    sessionID,
		send:  make(chan Envelope, sessionSendBuffer),
		rooms: make(map[string]struct{}),
	}
	s.sessions[sessionID] = sess
	return sess.send, nil
}

// Unregister removes a session from every room and closes its channel.
// This is the disconnect path.
func (s *Synchronizer) Unregister(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeSessionLocked(sessionID)
}

func (s *Synchronizer) removeSessionLocked(sessionID string) {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	for room := range sess.rooms {
		s.leaveRoomLocked(sess, room)
	}
	delete(s.sessions, sessionID)
	close(sess.send)
}

func (s *Synchronizer) leaveRoomLocked(sess *session, room string) {
	if members, ok := s.rooms[room]; ok {
		delete(members, sess.id)
		if len(members) == 0 {
			delete(s.rooms, room)
		}
	}
	delete(sess.rooms, room)
	telemetry.SubscribersGauge.Dec()
}

// Subscribe adds the session to a room and immediately delivers a full
// snapshot tagged with the room's current sequence number. A late joiner
// starts counting from that snapshot, not from zero.
func (s *Synchronizer) Subscribe(ctx context.Context, sessionID, room string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("unknown session: %s", sessionID)
	}
	if _, already := sess.rooms[room]; already {
		return nil
	}

	sess.rooms[room] = struct{}{}
	if s.rooms[room] == nil {
		s.rooms[room] = make(map[string]*session)
	}
	s.rooms[room][sessionID] = sess
	telemetry.SubscribersGauge.Inc()

	// Snapshot built under the lock: no broadcast can interleave between
	// the membership becoming visible and the snapshot being queued, which
	// is what keeps the subscriber's sequence view gap-free.
	if err := s.sendSnapshotLocked(ctx, sess, room); err != nil {
		return err
	}

	s.logger.Debug().Str("session", sessionID).Str("room", room).Msg("subscribed")
	return nil
}

// Unsubscribe removes the session from one room.
func (s *Synchronizer) Unsubscribe(sessionID, room string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	if _, member := sess.rooms[room]; !member {
		return
	}
	s.leaveRoomLocked(sess, room)
	s.logger.Debug().Str("session", sessionID).Str("room", room).Msg("unsubscribed")
}

// Broadcast stamps a sequence number and delivers the event to every
// current subscriber of the room. The room counter advances exactly once
// per call, whether or not anyone is listening.
func (s *Synchronizer) Broadcast(room, eventType string, data any) {
	s.mu.Lock()

	s.seqs[room]++
	env := Envelope{
		EventType: eventType,
		ServerSeq: s.seqs[room],
		Data:      data,
		Timestamp: nowUnix(),
		EventID:   uuid.NewString(),
		Room:      room,
	}
	if room == GlobalRoom {
		telemetry.GlobalSequence.Set(float64(env.ServerSeq))
	}
	telemetry.BroadcastsTotal.WithLabelValues(roomKind(room)).Inc()

	var dropped []string
	for id, sess := range s.rooms[room] {
		select {
		case sess.send <- env:
		default:
			// Buffer full: the client stopped draining. Dropping it is
			// safer than blocking every other subscriber; it will
			// reconnect and resync from a snapshot.
			dropped = append(dropped, id)
		}
	}
	for _, id := range dropped {
		s.logger.Warn().Str("session", id).Str("room", room).Msg("dropping slow subscriber")
		s.removeSessionLocked(id)
	}
	s.mu.Unlock()

	if s.mirror != nil {
		s.mirror.Publish(room, env)
	}
}

// Resync resends a full snapshot for every room the session is subscribed
// to whose counter moved past lastKnownSeq. Snapshots are idempotent, so no
// delta replay is needed.
func (s *Synchronizer) Resync(ctx context.Context, sessionID string, lastKnownSeq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("unknown session: %s", sessionID)
	}

	for room := range sess.rooms {
		if s.seqs[room] <= lastKnownSeq {
			continue
		}
		if err := s.sendSnapshotLocked(ctx, sess, room); err != nil {
			return err
		}
	}
	return nil
}

// Health returns the read-only synchronizer status.
func (s *Synchronizer) Health() Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Health{
		GlobalSeq:   s.seqs[GlobalRoom],
		Rooms:       len(s.rooms),
		Subscribers: len(s.sessions),
	}
}

func (s *Synchronizer) sendSnapshotLocked(ctx context.Context, sess *session, room string) error {
	data, err := s.snapshot(ctx, room)
	if err != nil {
		return fmt.Errorf("snapshot for %s: %w", room, err)
	}

	env := Envelope{
		EventType: "snapshot",
		ServerSeq: s.seqs[room],
		Data:      data,
		Timestamp: nowUnix(),
		EventID:   uuid.NewString(),
		Room:      room,
	}

	select {
	case sess.send <- env:
		return nil
	default:
		return fmt.Errorf("session %s send buffer full", sess.id)
	}
}

func nowUnix() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

func roomKind(room string) string {
	kind, _ := ParseRoom(room)
	return string(kind)
}
