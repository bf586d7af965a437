/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"sync"
	"time"

	"github.com/friendsincode/skald/internal/telemetry"
	"github.com/rs/zerolog"
)

// Monitor polls for track completion on a short interval, independent of
// the command path. All shared state access goes through Coordinator.Tick,
// so the monitor and commands serialize on the same mutex.
type Monitor struct {
	coordinator *Coordinator
	interval    time.Duration
	logger      zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewMonitor creates an auto-advance monitor.
func NewMonitor(coordinator *Coordinator, interval time.Duration, logger zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Monitor{
		coordinator: coordinator,
		interval:    interval,
		logger:      logger.With().Str("component", "monitor").Logger(),
	}
}

// Start launches the monitor loop. Calling Start on a running monitor is a
// no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.run(ctx, m.done)
	m.logger.Debug().Dur("interval", m.interval).Msg("auto-advance monitor started")
}

// Stop signals the loop and waits for it to exit. The join is bounded by
// one tick, so switching playlists never races a stale completion trigger.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	m.logger.Debug().Msg("auto-advance monitor stopped")
}

// Running reports whether the loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

// tick runs one coordinator step. A panic from a misbehaving backend must
// not kill the loop.
func (m *Monitor) tick() {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Interface("panic", r).Msg("monitor tick panicked")
		}
	}()

	advanced, finished := m.coordinator.Tick()
	if advanced {
		telemetry.AutoAdvancesTotal.Inc()
		m.logger.Debug().Msg("auto-advanced to next track")
	}
	if finished {
		m.logger.Info().Msg("playlist finished")
	}
}
