package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func newTestResolver(t *testing.T) (*Resolver, string) {
	t.Helper()
	root := t.TempDir()
	r, err := New(root, zerolog.Nop())
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return r, root
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestResolvePathFindsFileUnderRoot(t *testing.T) {
	r, root := newTestResolver(t)
	want := writeFile(t, root, "albums/morning.mp3")

	got, ok := r.ResolvePath("albums/morning.mp3")
	if !ok {
		t.Fatal("expected resolution to succeed")
	}
	if got != want {
		t.Fatalf("resolved %q, want %q", got, want)
	}
}

func TestResolvePathRejectsTraversal(t *testing.T) {
	r, root := newTestResolver(t)
	writeFile(t, filepath.Dir(root), "outside.mp3")

	for _, name := range []string{"../outside.mp3", "a/../../outside.mp3", ""} {
		if _, ok := r.ResolvePath(name); ok {
			t.Fatalf("expected %q to be rejected", name)
		}
	}
}

func TestResolvePathRejectsMissingAndNonRegular(t *testing.T) {
	r, root := newTestResolver(t)

	if _, ok := r.ResolvePath("missing.mp3"); ok {
		t.Fatal("expected missing file to be rejected")
	}

	if err := os.MkdirAll(filepath.Join(root, "folder.mp3"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, ok := r.ResolvePath("folder.mp3"); ok {
		t.Fatal("expected directory to be rejected")
	}
}

func TestValidatePath(t *testing.T) {
	r, root := newTestResolver(t)
	path := writeFile(t, root, "track.flac")

	if !r.ValidatePath(path) {
		t.Fatal("expected existing file to validate")
	}
	if r.ValidatePath(filepath.Join(root, "gone.flac")) {
		t.Fatal("expected missing file to fail validation")
	}
}
