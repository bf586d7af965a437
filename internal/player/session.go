/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package player implements the playback orchestration state machine: the
// in-memory playlist session, the audio player wrapper, the coordinator
// serializing all mutations, and the auto-advance monitor.
package player

import (
	"math/rand"

	"github.com/friendsincode/skald/internal/models"
)

// Session holds the active playlist and navigation state. There is exactly
// one per process and it lives for the process lifetime. Methods are not
// safe for concurrent use; the coordinator serializes every call under its
// mutex.
type Session struct {
	playlist *models.PlaylistSnapshot
	index    int
	repeat   models.RepeatMode
	shuffle  bool
	order    []int // permutation of track indices; only set while shuffling
	orderPos int   // position of index inside order
}

// NewSession creates an empty session with repeat disabled.
func NewSession() *Session {
	return &Session{repeat: models.RepeatNone}
}

// SetPlaylist replaces the active playlist wholesale. startIndex is clamped
// into range. Fails on an empty playlist, leaving the previous one active.
func (s *Session) SetPlaylist(playlist *models.PlaylistSnapshot, startIndex int) bool {
	if playlist == nil || len(playlist.Tracks) == 0 {
		return false
	}
	if startIndex < 0 {
		startIndex = 0
	}
	if startIndex >= len(playlist.Tracks) {
		startIndex = len(playlist.Tracks) - 1
	}

	s.playlist = playlist
	s.index = startIndex
	if s.shuffle {
		s.regenerateOrder()
	}
	return true
}

// Playlist returns the active playlist snapshot, or nil.
func (s *Session) Playlist() *models.PlaylistSnapshot {
	return s.playlist
}

// Current returns the track at the current index.
func (s *Session) Current() (*models.TrackInfo, bool) {
	if s.playlist == nil || len(s.playlist.Tracks) == 0 {
		return nil, false
	}
	return &s.playlist.Tracks[s.index], true
}

// Index returns the current zero-based track index.
func (s *Session) Index() int {
	return s.index
}

// TrackCount returns the number of tracks in the active playlist.
func (s *Session) TrackCount() int {
	if s.playlist == nil {
		return 0
	}
	return len(s.playlist.Tracks)
}

// MoveNext advances to the next track.
//
//	repeat=one:  current track, unchanged.
//	repeat=none: false at the last position; caller must stop.
//	repeat=all:  wraps to the first position.
func (s *Session) MoveNext() (*models.TrackInfo, bool) {
	count := s.TrackCount()
	if count == 0 {
		return nil, false
	}
	if s.repeat == models.RepeatOne {
		return s.Current()
	}

	if s.shuffle {
		if s.orderPos+1 < len(s.order) {
			s.orderPos++
		} else if s.repeat == models.RepeatAll {
			s.orderPos = 0
		} else {
			return nil, false
		}
		s.index = s.order[s.orderPos]
		return s.Current()
	}

	if s.index+1 < count {
		s.index++
	} else if s.repeat == models.RepeatAll {
		s.index = 0
	} else {
		return nil, false
	}
	return s.Current()
}

// MovePrevious steps back to the previous track; edge policy mirrors
// MoveNext.
func (s *Session) MovePrevious() (*models.TrackInfo, bool) {
	count := s.TrackCount()
	if count == 0 {
		return nil, false
	}
	if s.repeat == models.RepeatOne {
		return s.Current()
	}

	if s.shuffle {
		if s.orderPos > 0 {
			s.orderPos--
		} else if s.repeat == models.RepeatAll {
			s.orderPos = len(s.order) - 1
		} else {
			return nil, false
		}
		s.index = s.order[s.orderPos]
		return s.Current()
	}

	if s.index > 0 {
		s.index--
	} else if s.repeat == models.RepeatAll {
		s.index = count - 1
	} else {
		return nil, false
	}
	return s.Current()
}

// MoveTo jumps to an absolute zero-based index; rejects out-of-range.
func (s *Session) MoveTo(index int) (*models.TrackInfo, bool) {
	if index < 0 || index >= s.TrackCount() {
		return nil, false
	}
	s.index = index
	if s.shuffle {
		for pos, trackIndex := range s.order {
			if trackIndex == index {
				s.orderPos = pos
				break
			}
		}
	}
	return s.Current()
}

// CanNext reports whether MoveNext would yield a track.
func (s *Session) CanNext() bool {
	count := s.TrackCount()
	if count == 0 {
		return false
	}
	if s.repeat == models.RepeatOne || s.repeat == models.RepeatAll {
		return true
	}
	if s.shuffle {
		return s.orderPos+1 < len(s.order)
	}
	return s.index+1 < count
}

// CanPrevious reports whether MovePrevious would yield a track.
func (s *Session) CanPrevious() bool {
	count := s.TrackCount()
	if count == 0 {
		return false
	}
	if s.repeat == models.RepeatOne || s.repeat == models.RepeatAll {
		return true
	}
	if s.shuffle {
		return s.orderPos > 0
	}
	return s.index > 0
}

// Repeat returns the active repeat mode.
func (s *Session) Repeat() models.RepeatMode {
	return s.repeat
}

// SetRepeat switches the repeat mode.
func (s *Session) SetRepeat(mode models.RepeatMode) bool {
	if !mode.Valid() {
		return false
	}
	s.repeat = mode
	return true
}

// Shuffle reports whether shuffle is enabled.
func (s *Session) Shuffle() bool {
	return s.shuffle
}

// SetShuffle toggles shuffle mode. Enabling it generates a fresh
// permutation with the current track first.
func (s *Session) SetShuffle(enabled bool) {
	if s.shuffle == enabled {
		return
	}
	s.shuffle = enabled
	if enabled {
		s.regenerateOrder()
	} else {
		s.order = nil
		s.orderPos = 0
	}
}

// regenerateOrder builds a permutation of all track indices with the
// current index forced first.
func (s *Session) regenerateOrder() {
	count := s.TrackCount()
	if count == 0 {
		s.order = nil
		s.orderPos = 0
		return
	}

	rest := make([]int, 0, count-1)
	for i := 0; i < count; i++ {
		if i != s.index {
			rest = append(rest, i)
		}
	}
	rand.Shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})

	s.order = append([]int{s.index}, rest...)
	s.orderPos = 0
}
