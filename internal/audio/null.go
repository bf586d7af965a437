package audio

import (
	"sync"
	"time"
)

const defaultNullDurationMS = 180_000

// NullBackend simulates playback on a timer without touching any audio
// device. Used on rigs without a DAC and by integration tests.
type NullBackend struct {
	mu        sync.Mutex
	playing   bool
	paused    bool
	startedAt time.Time
	elapsed   time.Duration
	duration  time.Duration
	volume    int
}

// NewNullBackend creates a silent backend.
func NewNullBackend(volume int) *NullBackend {
	return &NullBackend{volume: volume}
}

// PlayFile starts a simulated track. The duration hint bounds the simulated
// playback; without one a default track length applies.
func (b *NullBackend) PlayFile(path string, durationHintMS int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if durationHintMS <= 0 {
		durationHintMS = defaultNullDurationMS
	}
	b.playing = true
	b.paused = false
	b.elapsed = 0
	b.startedAt = time.Now()
	b.duration = time.Duration(durationHintMS) * time.Millisecond
	return nil
}

func (b *NullBackend) position() time.Duration {
	pos := b.elapsed
	if b.playing && !b.paused {
		pos += time.Since(b.startedAt)
	}
	if pos > b.duration {
		pos = b.duration
	}
	return pos
}

// expireLocked flips the backend idle once the simulated track ran out.
func (b *NullBackend) expireLocked() {
	if b.playing && !b.paused && b.position() >= b.duration {
		b.playing = false
	}
}

// Pause freezes the simulated position.
func (b *NullBackend) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.playing && !b.paused {
		b.elapsed += time.Since(b.startedAt)
		b.paused = true
	}
	return nil
}

// Resume continues from the frozen position.
func (b *NullBackend) Resume() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.playing && b.paused {
		b.startedAt = time.Now()
		b.paused = false
	}
	return nil
}

// Stop ends the simulated track.
func (b *NullBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.playing = false
	b.paused = false
	b.elapsed = 0
	return nil
}

// Seek jumps to an absolute position in seconds.
func (b *NullBackend) Seek(seconds float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.playing {
		return ErrNotSupported
	}
	b.elapsed = time.Duration(seconds * float64(time.Second))
	b.startedAt = time.Now()
	return nil
}

// SetVolume records the volume.
func (b *NullBackend) SetVolume(percent int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.volume = percent
	return nil
}

// PositionMS returns the simulated position.
func (b *NullBackend) PositionMS() (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expireLocked()
	return b.position().Milliseconds(), nil
}

// DurationMS returns the simulated track length.
func (b *NullBackend) DurationMS() (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.duration.Milliseconds(), nil
}

// Busy reports whether the simulated track is still running.
func (b *NullBackend) Busy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expireLocked()
	return b.playing
}

func (b *NullBackend) Kind() string { return "null" }

// Close is a no-op.
func (b *NullBackend) Close() error {
	return b.Stop()
}
