package audio

import (
	"testing"
	"time"
)

func TestNullBackendFinishesAfterDuration(t *testing.T) {
	b := NewNullBackend(50)
	if err := b.PlayFile("fake.mp3", 30); err != nil {
		t.Fatalf("play: %v", err)
	}
	if !b.Busy() {
		t.Fatal("expected backend busy right after play")
	}

	deadline := time.Now().Add(time.Second)
	for b.Busy() {
		if time.Now().After(deadline) {
			t.Fatal("backend never went idle")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNullBackendPauseFreezesPosition(t *testing.T) {
	b := NewNullBackend(50)
	if err := b.PlayFile("fake.mp3", 60_000); err != nil {
		t.Fatalf("play: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := b.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}

	p1, _ := b.PositionMS()
	time.Sleep(30 * time.Millisecond)
	p2, _ := b.PositionMS()
	if p1 != p2 {
		t.Fatalf("position moved while paused: %d -> %d", p1, p2)
	}
	if !b.Busy() {
		t.Fatal("paused track must still count as busy")
	}

	if err := b.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	p3, _ := b.PositionMS()
	if p3 <= p2 {
		t.Fatalf("position did not advance after resume: %d -> %d", p2, p3)
	}
}

func TestNullBackendStopIsIdempotent(t *testing.T) {
	b := NewNullBackend(50)
	if err := b.Stop(); err != nil {
		t.Fatalf("stop on idle backend: %v", err)
	}
	if err := b.PlayFile("fake.mp3", 60_000); err != nil {
		t.Fatalf("play: %v", err)
	}
	if err := b.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := b.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if b.Busy() {
		t.Fatal("expected idle after stop")
	}
}

func TestNullBackendSeek(t *testing.T) {
	b := NewNullBackend(50)
	if err := b.Seek(10); err == nil {
		t.Fatal("seek while stopped must fail")
	}
	if err := b.PlayFile("fake.mp3", 60_000); err != nil {
		t.Fatalf("play: %v", err)
	}
	if err := b.Seek(12); err != nil {
		t.Fatalf("seek: %v", err)
	}
	pos, _ := b.PositionMS()
	if pos < 12_000 || pos > 13_000 {
		t.Fatalf("unexpected position after seek: %d", pos)
	}
}
