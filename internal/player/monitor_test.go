package player

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestMonitorStartIsIdempotent(t *testing.T) {
	f := newCoordinatorFixture()
	m := NewMonitor(f.coordinator, 5*time.Millisecond, zerolog.Nop())

	ctx := context.Background()
	m.Start(ctx)
	m.Start(ctx)
	if !m.Running() {
		t.Fatal("monitor not running after Start")
	}
	m.Stop()
	if m.Running() {
		t.Fatal("monitor still running after Stop")
	}
	// Stop on a stopped monitor is a no-op.
	m.Stop()
}

func TestMonitorAdvancesOnTrackEnd(t *testing.T) {
	f := newCoordinatorFixture()
	m := NewMonitor(f.coordinator, 5*time.Millisecond, zerolog.Nop())

	f.load(t, "pl-1")
	f.coordinator.Play()

	m.Start(context.Background())
	defer m.Stop()

	f.backend.finish()
	waitFor(t, time.Second, func() bool {
		return f.coordinator.Status().TrackIndex == 2
	})

	if got := f.coordinator.Status(); !got.IsPlaying {
		t.Fatalf("not playing after auto-advance: %+v", got)
	}
	// One end, one advance: the first track played once, the second once.
	if f.backend.playCount() != 2 {
		t.Fatalf("play count = %d, want 2", f.backend.playCount())
	}
}

func TestMonitorStopsAtPlaylistEnd(t *testing.T) {
	f := newCoordinatorFixture()
	m := NewMonitor(f.coordinator, 5*time.Millisecond, zerolog.Nop())

	f.load(t, "pl-1")
	f.coordinator.Play()
	f.coordinator.Goto(3)

	m.Start(context.Background())
	defer m.Stop()

	f.backend.finish()
	waitFor(t, time.Second, func() bool {
		return f.coordinator.Status().Status == "stopped"
	})

	// Nothing more to do: the index stays at the last track.
	if got := f.coordinator.Status(); got.TrackIndex != 3 {
		t.Fatalf("index moved after playlist end: %d", got.TrackIndex)
	}
}

func TestMonitorStopIsBounded(t *testing.T) {
	f := newCoordinatorFixture()
	m := NewMonitor(f.coordinator, 5*time.Millisecond, zerolog.Nop())

	m.Start(context.Background())

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not join the monitor loop")
	}
}
