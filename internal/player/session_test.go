package player

import (
	"testing"

	"github.com/friendsincode/skald/internal/models"
)

func testPlaylist(n int) *models.PlaylistSnapshot {
	p := &models.PlaylistSnapshot{ID: "pl-1", Title: "Test"}
	for i := 0; i < n; i++ {
		p.Tracks = append(p.Tracks, models.TrackInfo{
			ID:       string(rune('a' + i)),
			Title:    "Track",
			Filename: "track.mp3",
			FilePath: "/media/track.mp3",
		})
	}
	return p
}

func TestSetPlaylistRejectsEmpty(t *testing.T) {
	s := NewSession()
	if s.SetPlaylist(&models.PlaylistSnapshot{}, 0) {
		t.Fatal("empty playlist must be rejected")
	}
	if s.SetPlaylist(nil, 0) {
		t.Fatal("nil playlist must be rejected")
	}

	// A rejected load leaves the previous playlist active.
	if !s.SetPlaylist(testPlaylist(3), 0) {
		t.Fatal("valid playlist rejected")
	}
	if s.SetPlaylist(&models.PlaylistSnapshot{}, 0) {
		t.Fatal("empty playlist must be rejected")
	}
	if s.TrackCount() != 3 {
		t.Fatalf("previous playlist lost, count = %d", s.TrackCount())
	}
}

func TestSetPlaylistClampsStartIndex(t *testing.T) {
	s := NewSession()
	s.SetPlaylist(testPlaylist(3), 99)
	if s.Index() != 2 {
		t.Fatalf("start index not clamped, got %d", s.Index())
	}
	s.SetPlaylist(testPlaylist(3), -5)
	if s.Index() != 0 {
		t.Fatalf("negative start index not clamped, got %d", s.Index())
	}
}

func TestSequentialNavigationRepeatNone(t *testing.T) {
	s := NewSession()
	s.SetPlaylist(testPlaylist(3), 0)

	if _, ok := s.MoveNext(); !ok || s.Index() != 1 {
		t.Fatalf("next failed, index = %d", s.Index())
	}
	if _, ok := s.MoveNext(); !ok || s.Index() != 2 {
		t.Fatalf("next failed, index = %d", s.Index())
	}
	if s.CanNext() {
		t.Fatal("CanNext must be false at the last track with repeat off")
	}
	if _, ok := s.MoveNext(); ok {
		t.Fatal("next past the end must fail with repeat off")
	}
	// Failed navigation leaves the index in place.
	if s.Index() != 2 {
		t.Fatalf("index moved on failed next: %d", s.Index())
	}

	if _, ok := s.MovePrevious(); !ok || s.Index() != 1 {
		t.Fatalf("previous failed, index = %d", s.Index())
	}
	s.MovePrevious()
	if s.CanPrevious() {
		t.Fatal("CanPrevious must be false at the first track with repeat off")
	}
	if _, ok := s.MovePrevious(); ok {
		t.Fatal("previous past the start must fail with repeat off")
	}
}

func TestRepeatAllWraps(t *testing.T) {
	s := NewSession()
	s.SetPlaylist(testPlaylist(3), 2)
	s.SetRepeat(models.RepeatAll)

	track, ok := s.MoveNext()
	if !ok || s.Index() != 0 {
		t.Fatalf("repeat-all next did not wrap, index = %d", s.Index())
	}
	if track.ID != "a" {
		t.Fatalf("wrapped to wrong track: %s", track.ID)
	}

	track, ok = s.MovePrevious()
	if !ok || s.Index() != 2 {
		t.Fatalf("repeat-all previous did not wrap, index = %d", s.Index())
	}
	if track.ID != "c" {
		t.Fatalf("wrapped to wrong track: %s", track.ID)
	}

	if !s.CanNext() || !s.CanPrevious() {
		t.Fatal("repeat-all must always allow navigation")
	}
}

func TestRepeatOneStaysPut(t *testing.T) {
	s := NewSession()
	s.SetPlaylist(testPlaylist(3), 1)
	s.SetRepeat(models.RepeatOne)

	track, ok := s.MoveNext()
	if !ok || track.ID != "b" || s.Index() != 1 {
		t.Fatalf("repeat-one next must return the current track, got %v at %d", track, s.Index())
	}
	track, ok = s.MovePrevious()
	if !ok || track.ID != "b" {
		t.Fatalf("repeat-one previous must return the current track, got %v", track)
	}
	if !s.CanNext() || !s.CanPrevious() {
		t.Fatal("repeat-one must report navigation available")
	}
}

func TestSetRepeatRejectsUnknownMode(t *testing.T) {
	s := NewSession()
	if s.SetRepeat("bogus") {
		t.Fatal("unknown repeat mode accepted")
	}
	if s.Repeat() != models.RepeatNone {
		t.Fatalf("mode changed on rejection: %s", s.Repeat())
	}
}

func TestMoveToRejectsOutOfRange(t *testing.T) {
	s := NewSession()
	s.SetPlaylist(testPlaylist(3), 0)
	if _, ok := s.MoveTo(3); ok {
		t.Fatal("out-of-range index accepted")
	}
	if _, ok := s.MoveTo(-1); ok {
		t.Fatal("negative index accepted")
	}
	if track, ok := s.MoveTo(2); !ok || track.ID != "c" {
		t.Fatalf("valid MoveTo failed: %v", track)
	}
}

func TestShuffleOrderStartsWithCurrentTrack(t *testing.T) {
	s := NewSession()
	s.SetPlaylist(testPlaylist(8), 3)
	s.SetShuffle(true)

	if s.order[0] != 3 {
		t.Fatalf("shuffle order must start at the current index, got %d", s.order[0])
	}
	if s.orderPos != 0 {
		t.Fatalf("orderPos must reset, got %d", s.orderPos)
	}

	// The order is a permutation: every index exactly once.
	seen := make(map[int]bool)
	for _, idx := range s.order {
		if idx < 0 || idx >= 8 || seen[idx] {
			t.Fatalf("order is not a permutation: %v", s.order)
		}
		seen[idx] = true
	}
	if len(seen) != 8 {
		t.Fatalf("order missing indices: %v", s.order)
	}
}

func TestShuffleWalksWholeOrderOnce(t *testing.T) {
	s := NewSession()
	s.SetPlaylist(testPlaylist(5), 0)
	s.SetShuffle(true)

	visited := map[int]bool{s.Index(): true}
	for {
		if _, ok := s.MoveNext(); !ok {
			break
		}
		if visited[s.Index()] {
			t.Fatalf("track %d visited twice before exhaustion", s.Index())
		}
		visited[s.Index()] = true
	}
	if len(visited) != 5 {
		t.Fatalf("shuffle covered %d of 5 tracks", len(visited))
	}
}

func TestShuffleRepeatAllWrapsOrder(t *testing.T) {
	s := NewSession()
	s.SetPlaylist(testPlaylist(3), 0)
	s.SetRepeat(models.RepeatAll)
	s.SetShuffle(true)

	first := s.order[0]
	s.MoveNext()
	s.MoveNext()
	if _, ok := s.MoveNext(); !ok {
		t.Fatal("repeat-all shuffle must wrap")
	}
	if s.Index() != first {
		t.Fatalf("wrap must restart the order, got index %d want %d", s.Index(), first)
	}
}

func TestDisableShuffleKeepsPosition(t *testing.T) {
	s := NewSession()
	s.SetPlaylist(testPlaylist(5), 2)
	s.SetShuffle(true)
	s.MoveNext()
	at := s.Index()

	s.SetShuffle(false)
	if s.Index() != at {
		t.Fatalf("disabling shuffle moved the index: %d != %d", s.Index(), at)
	}
	if s.order != nil {
		t.Fatal("order must be cleared when shuffle is disabled")
	}
}
