package logbuffer

import (
	"testing"
	"time"
)

func TestBufferEvictsOldestWhenFull(t *testing.T) {
	b := New(3)
	for _, msg := range []string{"one", "two", "three", "four"} {
		b.Add(Entry{Message: msg, Timestamp: time.Now()})
	}

	all := b.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	if all[0].Message != "two" || all[2].Message != "four" {
		t.Fatalf("unexpected order: %q .. %q", all[0].Message, all[2].Message)
	}
}

func TestQueryFilters(t *testing.T) {
	b := New(10)
	b.Add(Entry{Level: "info", Component: "player", Message: "playback started"})
	b.Add(Entry{Level: "warn", Component: "sync", Message: "slow subscriber dropped"})
	b.Add(Entry{Level: "info", Component: "player", Message: "track finished"})

	got := b.Query(QueryParams{Component: "player"})
	if len(got) != 2 {
		t.Fatalf("expected 2 player entries, got %d", len(got))
	}

	got = b.Query(QueryParams{Level: "warn"})
	if len(got) != 1 || got[0].Component != "sync" {
		t.Fatalf("unexpected warn query result: %+v", got)
	}

	got = b.Query(QueryParams{Search: "FINISHED"})
	if len(got) != 1 {
		t.Fatalf("expected case-insensitive search hit, got %d", len(got))
	}

	got = b.Query(QueryParams{Limit: 1, Descending: true})
	if len(got) != 1 || got[0].Message != "track finished" {
		t.Fatalf("expected newest entry first, got %+v", got)
	}
}

func TestWriterParsesZerologLines(t *testing.T) {
	b := New(10)
	w := NewWriter(b)

	line := []byte(`{"level":"info","component":"player","track":"abc","message":"now playing"}`)
	if _, err := w.Write(line); err != nil {
		t.Fatalf("write: %v", err)
	}

	all := b.All()
	if len(all) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(all))
	}
	entry := all[0]
	if entry.Level != "info" || entry.Component != "player" || entry.Message != "now playing" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.Fields["track"] != "abc" {
		t.Fatalf("expected leftover fields to be kept, got %+v", entry.Fields)
	}
}
