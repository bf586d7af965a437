package player

import (
	"errors"
	"sync"
)

// fakeBackend is an in-memory audio.Backend for tests. finish() simulates
// the track running out.
type fakeBackend struct {
	mu      sync.Mutex
	busy    bool
	paused  bool
	path    string
	volume  int
	posMS   int64
	durMS   int64
	plays   []string
	playErr error
	seekErr error
}

func (f *fakeBackend) PlayFile(path string, durationHintMS int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	f.path = path
	f.plays = append(f.plays, path)
	f.busy = true
	f.paused = false
	f.posMS = 0
	f.durMS = durationHintMS
	return nil
}

func (f *fakeBackend) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.busy {
		return errors.New("not playing")
	}
	f.paused = true
	return nil
}

func (f *fakeBackend) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.busy {
		return errors.New("not playing")
	}
	f.paused = false
	return nil
}

func (f *fakeBackend) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = false
	f.paused = false
	f.path = ""
	f.posMS = 0
	return nil
}

func (f *fakeBackend) Seek(seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seekErr != nil {
		return f.seekErr
	}
	f.posMS = int64(seconds * 1000)
	return nil
}

func (f *fakeBackend) SetVolume(percent int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = percent
	return nil
}

func (f *fakeBackend) PositionMS() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posMS, nil
}

func (f *fakeBackend) DurationMS() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.durMS, nil
}

func (f *fakeBackend) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

func (f *fakeBackend) Kind() string { return "fake" }

func (f *fakeBackend) Close() error { return f.Stop() }

// finish simulates the backend reaching end of track.
func (f *fakeBackend) finish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = false
}

// setPosition fakes playback progress.
func (f *fakeBackend) setPosition(ms int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posMS = ms
}

func (f *fakeBackend) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.plays)
}
