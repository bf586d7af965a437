package player

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald/internal/events"
	"github.com/friendsincode/skald/internal/models"
)

type fakeLibrary struct {
	playlists map[string]*models.PlaylistSnapshot
	err       error
}

func (l *fakeLibrary) GetPlaylist(_ context.Context, id string) (*models.PlaylistSnapshot, error) {
	if l.err != nil {
		return nil, l.err
	}
	p, ok := l.playlists[id]
	if !ok {
		return nil, errors.New("not found")
	}
	// Copy: the coordinator mutates FilePath during resolution.
	out := &models.PlaylistSnapshot{ID: p.ID, Title: p.Title}
	out.Tracks = append(out.Tracks, p.Tracks...)
	return out, nil
}

type fakeResolver struct {
	missing map[string]bool
}

func (r *fakeResolver) ResolvePath(filename string) (string, bool) {
	if r.missing[filename] {
		return "", false
	}
	return "/media/" + filename, true
}

func libraryPlaylist(id string, filenames ...string) *models.PlaylistSnapshot {
	p := &models.PlaylistSnapshot{ID: id, Title: "Playlist " + id}
	for i, name := range filenames {
		p.Tracks = append(p.Tracks, models.TrackInfo{
			ID:         id + "-t" + string(rune('0'+i)),
			Title:      name,
			Filename:   name,
			DurationMS: 180000,
		})
	}
	return p
}

type coordinatorFixture struct {
	coordinator *Coordinator
	backend     *fakeBackend
	library     *fakeLibrary
	resolver    *fakeResolver
	bus         *events.Bus
}

func newCoordinatorFixture() *coordinatorFixture {
	backend := &fakeBackend{}
	lib := &fakeLibrary{playlists: map[string]*models.PlaylistSnapshot{
		"pl-1": libraryPlaylist("pl-1", "a.mp3", "b.mp3", "c.mp3"),
	}}
	res := &fakeResolver{missing: map[string]bool{}}
	bus := events.NewBus()

	coordinator := NewCoordinator(
		NewSession(),
		NewPlayer(backend, 50, zerolog.Nop()),
		lib, res, bus, zerolog.Nop(),
	)
	return &coordinatorFixture{coordinator: coordinator, backend: backend, library: lib, resolver: res, bus: bus}
}

func (f *coordinatorFixture) load(t *testing.T, id string) {
	t.Helper()
	if err := f.coordinator.LoadPlaylist(context.Background(), id); err != nil {
		t.Fatalf("load %s: %v", id, err)
	}
}

func TestLoadPlaylistDropsUnresolvableTracks(t *testing.T) {
	f := newCoordinatorFixture()
	f.resolver.missing["b.mp3"] = true

	f.load(t, "pl-1")
	status := f.coordinator.Status()
	if status.TrackCount != 2 {
		t.Fatalf("track count = %d, want 2 after dropping one", status.TrackCount)
	}
}

func TestLoadPlaylistRejectsAllUnplayable(t *testing.T) {
	f := newCoordinatorFixture()
	f.resolver.missing["a.mp3"] = true
	f.resolver.missing["b.mp3"] = true
	f.resolver.missing["c.mp3"] = true

	err := f.coordinator.LoadPlaylist(context.Background(), "pl-1")
	if !errors.Is(err, ErrNoPlayableTracks) {
		t.Fatalf("expected ErrNoPlayableTracks, got %v", err)
	}
}

func TestLoadPlaylistStopsCurrentPlayback(t *testing.T) {
	f := newCoordinatorFixture()
	f.load(t, "pl-1")
	f.coordinator.Play()

	f.library.playlists["pl-2"] = libraryPlaylist("pl-2", "x.mp3")
	f.load(t, "pl-2")

	status := f.coordinator.Status()
	if status.Status != models.StatusStopped {
		t.Fatalf("loading a playlist must stop playback, got %s", status.Status)
	}
	if status.ActivePlaylistID != "pl-2" || status.TrackIndex != 1 {
		t.Fatalf("new playlist not active: %s at %d", status.ActivePlaylistID, status.TrackIndex)
	}
}

func TestPlayPauseResumeFlow(t *testing.T) {
	f := newCoordinatorFixture()

	if f.coordinator.Play() {
		t.Fatal("play with no playlist must fail")
	}

	f.load(t, "pl-1")
	if !f.coordinator.Play() {
		t.Fatal("play failed")
	}
	if got := f.coordinator.Status(); !got.IsPlaying || got.ActiveTrackID != "pl-1-t0" {
		t.Fatalf("unexpected state: %+v", got)
	}

	if !f.coordinator.Pause() {
		t.Fatal("pause failed")
	}
	if !f.coordinator.Play() {
		t.Fatal("play from paused failed")
	}
	if got := f.coordinator.Status(); !got.IsPlaying {
		t.Fatalf("not playing after resume: %+v", got)
	}
	// Play from paused resumes in place; it never restarts the file.
	if f.backend.playCount() != 1 {
		t.Fatalf("play from paused restarted the track: %d plays", f.backend.playCount())
	}
}

func TestNextAtBoundaryStops(t *testing.T) {
	f := newCoordinatorFixture()
	f.load(t, "pl-1")
	f.coordinator.Play()
	f.coordinator.Goto(3)

	if f.coordinator.Next() {
		t.Fatal("next at the last track with repeat off must fail")
	}
	status := f.coordinator.Status()
	if status.Status != models.StatusStopped {
		t.Fatalf("boundary next must stop, got %s", status.Status)
	}
	if status.TrackIndex != 3 {
		t.Fatalf("boundary next moved the index: %d", status.TrackIndex)
	}
}

func TestNextWithRepeatAllWraps(t *testing.T) {
	f := newCoordinatorFixture()
	f.load(t, "pl-1")
	f.coordinator.SetRepeat(models.RepeatAll)
	f.coordinator.Goto(3)

	if !f.coordinator.Next() {
		t.Fatal("repeat-all next failed at the boundary")
	}
	if got := f.coordinator.Status(); got.TrackIndex != 1 {
		t.Fatalf("did not wrap to the first track: %d", got.TrackIndex)
	}
}

func TestGotoValidatesRange(t *testing.T) {
	f := newCoordinatorFixture()
	f.load(t, "pl-1")

	if f.coordinator.Goto(0) {
		t.Fatal("track numbers are 1-based; 0 must fail")
	}
	if f.coordinator.Goto(4) {
		t.Fatal("out-of-range track number accepted")
	}
	if !f.coordinator.Goto(2) {
		t.Fatal("valid goto failed")
	}
	if got := f.coordinator.Status(); got.ActiveTrackID != "pl-1-t1" {
		t.Fatalf("wrong track active: %s", got.ActiveTrackID)
	}
}

func TestPlayTrackByID(t *testing.T) {
	f := newCoordinatorFixture()
	f.load(t, "pl-1")

	if f.coordinator.PlayTrack("nope") {
		t.Fatal("unknown track id accepted")
	}
	if !f.coordinator.PlayTrack("pl-1-t2") {
		t.Fatal("play by id failed")
	}
	if got := f.coordinator.Status(); got.TrackIndex != 3 || !got.IsPlaying {
		t.Fatalf("unexpected state: %+v", got)
	}
}

func TestStopIsIdempotentAndSilent(t *testing.T) {
	f := newCoordinatorFixture()
	f.load(t, "pl-1")

	stateCh := f.bus.Subscribe(events.EventPlayerState)
	defer f.bus.Unsubscribe(events.EventPlayerState, stateCh)

	// Already stopped: allowed, but nothing is broadcast.
	if !f.coordinator.Stop() {
		t.Fatal("stop must always succeed")
	}
	select {
	case p := <-stateCh:
		t.Fatalf("stop of a stopped player broadcast state: %v", p)
	default:
	}
}

func TestSetVolumePublishesEvent(t *testing.T) {
	f := newCoordinatorFixture()
	volumeCh := f.bus.Subscribe(events.EventVolumeChanged)
	defer f.bus.Unsubscribe(events.EventVolumeChanged, volumeCh)

	if err := f.coordinator.SetVolume(75); err != nil {
		t.Fatalf("set volume: %v", err)
	}
	select {
	case payload := <-volumeCh:
		if payload["volume"] != 75 {
			t.Fatalf("bad volume payload: %v", payload)
		}
	default:
		t.Fatal("no volume event published")
	}

	if err := f.coordinator.SetVolume(150); !errors.Is(err, ErrInvalidVolume) {
		t.Fatalf("expected ErrInvalidVolume, got %v", err)
	}
	if got := f.coordinator.Status(); got.Volume != 75 {
		t.Fatalf("rejected volume changed state: %d", got.Volume)
	}
}

func TestTickAdvancesExactlyOncePerTrackEnd(t *testing.T) {
	f := newCoordinatorFixture()
	f.load(t, "pl-1")
	f.coordinator.Play()

	// Track still running: no advance.
	if advanced, finished := f.coordinator.Tick(); advanced || finished {
		t.Fatal("tick advanced while the track was busy")
	}

	f.backend.finish()
	advanced, finished := f.coordinator.Tick()
	if !advanced || finished {
		t.Fatalf("expected a single advance, got advanced=%v finished=%v", advanced, finished)
	}
	if got := f.coordinator.Status(); got.TrackIndex != 2 || !got.IsPlaying {
		t.Fatalf("unexpected state after advance: %+v", got)
	}

	// The new track is busy again; extra ticks must not re-advance.
	for i := 0; i < 5; i++ {
		if advanced, _ := f.coordinator.Tick(); advanced {
			t.Fatal("duplicate advance for one track end")
		}
	}
}

func TestTickFinishesPlaylist(t *testing.T) {
	f := newCoordinatorFixture()
	finishedCh := f.bus.Subscribe(events.EventPlaylistFinished)
	defer f.bus.Unsubscribe(events.EventPlaylistFinished, finishedCh)

	f.load(t, "pl-1")
	f.coordinator.Play()
	f.coordinator.Goto(3)

	f.backend.finish()
	advanced, finished := f.coordinator.Tick()
	if advanced || !finished {
		t.Fatalf("expected playlist end, got advanced=%v finished=%v", advanced, finished)
	}
	if got := f.coordinator.Status(); got.Status != models.StatusStopped {
		t.Fatalf("playlist end must stop the player, got %s", got.Status)
	}

	select {
	case payload := <-finishedCh:
		if payload["playlist_id"] != "pl-1" {
			t.Fatalf("bad finish payload: %v", payload)
		}
	default:
		t.Fatal("no playlist_finished event published")
	}
}

func TestTickRepeatOneReplaysTrack(t *testing.T) {
	f := newCoordinatorFixture()
	f.load(t, "pl-1")
	f.coordinator.SetRepeat(models.RepeatOne)
	f.coordinator.Play()
	before := f.backend.playCount()

	f.backend.finish()
	advanced, finished := f.coordinator.Tick()
	if !advanced || finished {
		t.Fatalf("repeat-one must replay, got advanced=%v finished=%v", advanced, finished)
	}
	status := f.coordinator.Status()
	if status.TrackIndex != 1 {
		t.Fatalf("repeat-one moved the index: %d", status.TrackIndex)
	}
	if f.backend.playCount() != before+1 {
		t.Fatalf("track not restarted: %d plays", f.backend.playCount())
	}
}

func TestTrackChangedEventCarriesTrack(t *testing.T) {
	f := newCoordinatorFixture()
	trackCh := f.bus.Subscribe(events.EventTrackChanged)
	defer f.bus.Unsubscribe(events.EventTrackChanged, trackCh)

	f.load(t, "pl-1")
	f.coordinator.Play()

	select {
	case payload := <-trackCh:
		track, ok := payload["track"].(*models.TrackInfo)
		if !ok || track.ID != "pl-1-t0" {
			t.Fatalf("bad track payload: %v", payload)
		}
		if payload["playlist_id"] != "pl-1" {
			t.Fatalf("bad playlist id: %v", payload["playlist_id"])
		}
	default:
		t.Fatal("no track_changed event published")
	}
}

func TestSnapshotCapabilityFlags(t *testing.T) {
	f := newCoordinatorFixture()
	f.load(t, "pl-1")

	got := f.coordinator.Status()
	if !got.CanNext || got.CanPrev {
		t.Fatalf("at the first track: can_next=%v can_prev=%v", got.CanNext, got.CanPrev)
	}

	f.coordinator.Goto(3)
	got = f.coordinator.Status()
	if got.CanNext || !got.CanPrev {
		t.Fatalf("at the last track: can_next=%v can_prev=%v", got.CanNext, got.CanPrev)
	}

	f.coordinator.SetRepeat(models.RepeatAll)
	got = f.coordinator.Status()
	if !got.CanNext || !got.CanPrev {
		t.Fatal("repeat-all must enable both directions")
	}
}
