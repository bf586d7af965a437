/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus mirrors outbound state events onto NATS so sibling
// appliances and external automation can follow playback without holding
// a websocket open.
package eventbus

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald/internal/statesync"
)

const subjectPrefix = "skald.events."

// NATSMirror publishes every broadcast envelope to a NATS subject derived
// from the room name. Publishing is fire-and-forget; a NATS outage never
// affects local subscribers.
type NATSMirror struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

var _ statesync.Mirror = (*NATSMirror)(nil)

// NewNATSMirror connects to the NATS server at url.
func NewNATSMirror(url string, logger zerolog.Logger) (*NATSMirror, error) {
	log := logger.With().Str("component", "eventbus").Logger()

	conn, err := nats.Connect(url,
		nats.Name("skald"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}

	log.Info().Str("url", url).Msg("event mirror connected")
	return &NATSMirror{conn: conn, logger: log}, nil
}

// Publish mirrors one envelope. Errors are logged, not returned; the
// local synchronizer already delivered the event.
func (m *NATSMirror) Publish(room string, env statesync.Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		m.logger.Error().Err(err).Str("room", room).Msg("marshal envelope")
		return
	}
	if err := m.conn.Publish(subjectPrefix+subjectToken(room), payload); err != nil {
		m.logger.Warn().Err(err).Str("room", room).Msg("mirror publish failed")
	}
}

// Close drains buffered publishes and closes the connection.
func (m *NATSMirror) Close() {
	if err := m.conn.Drain(); err != nil {
		m.conn.Close()
	}
}

// subjectToken maps a room name to a NATS subject token. Room names use
// ':' as their separator, which NATS subjects reserve, so it becomes '.'.
func subjectToken(room string) string {
	return strings.ReplaceAll(room, ":", ".")
}
