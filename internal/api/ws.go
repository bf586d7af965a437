/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	ws "nhooyr.io/websocket"

	"github.com/friendsincode/skald/internal/models"
	"github.com/friendsincode/skald/internal/statesync"
	"github.com/friendsincode/skald/internal/telemetry"
)

// wsMessage is the client-to-server websocket frame.
type wsMessage struct {
	Action  string  `json:"action"` // subscribe, unsubscribe, resync, command, ping
	Room    string  `json:"room,omitempty"`
	LastSeq uint64  `json:"last_seq,omitempty"`
	Command string  `json:"command,omitempty"`
	Track   int     `json:"track,omitempty"`
	Volume  int     `json:"volume,omitempty"`
	Seconds float64 `json:"seconds,omitempty"`
	Mode    string  `json:"mode,omitempty"`
	Enabled bool    `json:"enabled,omitempty"`
}

func (a *API) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	sessionID := uuid.NewString()
	envCh, err := a.syncer.Register(sessionID)
	if err != nil {
		a.logger.Error().Err(err).Msg("session register failed")
		conn.Close(ws.StatusInternalError, "register failed")
		return
	}
	defer a.syncer.Unregister(sessionID)

	telemetry.WSSessions.Inc()
	defer telemetry.WSSessions.Dec()

	a.logger.Debug().Str("session", sessionID).Msg("websocket connected")

	ctx := r.Context()

	// Every session starts in the global room; clients join playlist and
	// association rooms explicitly.
	if err := a.syncer.Subscribe(ctx, sessionID, statesync.GlobalRoom); err != nil {
		a.logger.Error().Err(err).Msg("global subscribe failed")
		conn.Close(ws.StatusInternalError, "subscribe failed")
		return
	}

	done := make(chan struct{})
	messageCh := make(chan wsMessage, 16)

	go func() {
		defer close(done)
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				if ws.CloseStatus(err) == ws.StatusNormalClosure {
					return
				}
				a.logger.Debug().Err(err).Msg("websocket read error")
				return
			}

			var msg wsMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				a.logger.Warn().Err(err).Msg("invalid websocket message")
				continue
			}

			select {
			case messageCh <- msg:
			default:
				a.logger.Warn().Str("session", sessionID).Msg("message channel full, dropping")
			}
		}
	}()

	pingTicker := time.NewTicker(15 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "context cancelled")
			return

		case <-done:
			conn.Close(ws.StatusNormalClosure, "client disconnected")
			return

		case <-pingTicker.C:
			if err := conn.Ping(ctx); err != nil {
				conn.Close(ws.StatusNormalClosure, "ping failed")
				return
			}

		case env, ok := <-envCh:
			if !ok {
				// Dropped as a slow consumer; the client reconnects and
				// resyncs from a snapshot.
				conn.Close(ws.StatusPolicyViolation, "too slow")
				return
			}
			if err := a.sendEnvelope(ctx, conn, env); err != nil {
				a.logger.Debug().Err(err).Msg("websocket send failed")
				conn.Close(ws.StatusInternalError, "send failed")
				return
			}

		case msg := <-messageCh:
			if err := a.handleWSMessage(ctx, conn, sessionID, msg); err != nil {
				a.sendWSError(ctx, conn, msg.Action, err.Error())
			}
		}
	}
}

func (a *API) sendEnvelope(ctx context.Context, conn *ws.Conn, env statesync.Envelope) error {
	bytes, err := json.Marshal(env)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Write(writeCtx, ws.MessageText, bytes)
}

func (a *API) handleWSMessage(ctx context.Context, conn *ws.Conn, sessionID string, msg wsMessage) error {
	switch msg.Action {
	case "subscribe":
		return a.syncer.Subscribe(ctx, sessionID, msg.Room)
	case "unsubscribe":
		a.syncer.Unsubscribe(sessionID, msg.Room)
		return nil
	case "resync":
		return a.syncer.Resync(ctx, sessionID, msg.LastSeq)
	case "command":
		return a.handleWSCommand(ctx, msg)
	case "ping":
		return a.sendPong(ctx, conn)
	default:
		a.logger.Warn().Str("action", msg.Action).Msg("unknown websocket action")
		return nil
	}
}

// handleWSCommand mirrors the REST command surface. State changes come
// back through the broadcast channel, not as a direct reply.
func (a *API) handleWSCommand(ctx context.Context, msg wsMessage) error {
	var applied bool
	switch msg.Command {
	case "play":
		applied = a.coordinator.Play()
	case "pause":
		applied = a.coordinator.Pause()
	case "resume":
		applied = a.coordinator.Resume()
	case "toggle":
		applied = a.coordinator.TogglePause()
	case "stop":
		applied = a.coordinator.Stop()
	case "next":
		applied = a.coordinator.Next()
	case "previous":
		applied = a.coordinator.Previous()
	case "goto":
		applied = a.coordinator.Goto(msg.Track)
	case "volume":
		if err := a.coordinator.SetVolume(msg.Volume); err != nil {
			telemetry.CommandsTotal.WithLabelValues("volume", "rejected").Inc()
			return err
		}
		applied = true
	case "seek":
		if err := a.coordinator.Seek(msg.Seconds); err != nil {
			telemetry.CommandsTotal.WithLabelValues("seek", "rejected").Inc()
			return err
		}
		applied = true
	case "repeat":
		mode := models.RepeatMode(msg.Mode)
		if !mode.Valid() {
			return fmt.Errorf("unknown repeat mode: %s", msg.Mode)
		}
		applied = a.coordinator.SetRepeat(mode)
	case "shuffle":
		a.coordinator.SetShuffle(msg.Enabled)
		applied = true
	default:
		a.logger.Warn().Str("command", msg.Command).Msg("unknown websocket command")
		return nil
	}

	outcome := "applied"
	if !applied {
		outcome = "noop"
	}
	telemetry.CommandsTotal.WithLabelValues(msg.Command, outcome).Inc()
	return nil
}

func (a *API) sendPong(ctx context.Context, conn *ws.Conn) error {
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Write(writeCtx, ws.MessageText, []byte(`{"event_type":"pong"}`))
}

func (a *API) sendWSError(ctx context.Context, conn *ws.Conn, action, message string) {
	bytes, err := json.Marshal(map[string]string{
		"event_type": "error",
		"action":     action,
		"message":    message,
	})
	if err != nil {
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_ = conn.Write(writeCtx, ws.MessageText, bytes)
}
