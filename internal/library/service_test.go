package library

import (
	"strings"
	"testing"
)

const sampleManifest = `
title: Bedtime Songs
tracks:
  - title: Moonlight
    artist: The Lanterns
    album: Night Sky
    filename: moonlight.mp3
    duration_ms: 214000
  - filename: lullaby.flac
    duration_ms: 183000
`

func TestParseManifest(t *testing.T) {
	m, err := parseManifest([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Title != "Bedtime Songs" {
		t.Fatalf("title = %q", m.Title)
	}
	if len(m.Tracks) != 2 {
		t.Fatalf("tracks = %d, want 2", len(m.Tracks))
	}
	if m.Tracks[0].Artist != "The Lanterns" || m.Tracks[0].DurationMS != 214000 {
		t.Fatalf("first track parsed wrong: %+v", m.Tracks[0])
	}
	if m.Tracks[1].Filename != "lullaby.flac" {
		t.Fatalf("second track parsed wrong: %+v", m.Tracks[1])
	}
}

func TestParseManifestRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"missing title", "tracks:\n  - filename: a.mp3\n", "missing title"},
		{"no tracks", "title: Empty\n", "no tracks"},
		{"track without filename", "title: X\ntracks:\n  - title: Nameless\n", "missing filename"},
		{"not yaml", "{{{", "parse manifest"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseManifest([]byte(tc.raw))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}
