package models

import "time"

// RepeatMode controls wrap behaviour at playlist boundaries.
type RepeatMode string

const (
	RepeatNone RepeatMode = "none"
	RepeatOne  RepeatMode = "one"
	RepeatAll  RepeatMode = "all"
)

// Valid reports whether the mode is one of the known values.
func (m RepeatMode) Valid() bool {
	switch m {
	case RepeatNone, RepeatOne, RepeatAll:
		return true
	}
	return false
}

// PlaybackStatus is the player state as observed by clients.
type PlaybackStatus string

const (
	StatusStopped PlaybackStatus = "stopped"
	StatusPlaying PlaybackStatus = "playing"
	StatusPaused  PlaybackStatus = "paused"
)

// Playlist is an ordered collection of tracks.
type Playlist struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Title     string `gorm:"index"`
	Tracks    []Track `gorm:"foreignKey:PlaylistID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Track is one audio asset inside a playlist. Position is the play order.
type Track struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	PlaylistID string `gorm:"type:uuid;index"`
	Position   int    `gorm:"index"`
	Title      string
	Artist     string
	Album      string
	Filename   string
	DurationMS int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TagBinding maps an NFC tag UID to a playlist.
type TagBinding struct {
	UID        string `gorm:"primaryKey"`
	PlaylistID string `gorm:"type:uuid;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TrackInfo is the runtime view of a track after path resolution. A track
// is playable only when FilePath is non-empty and verified readable.
type TrackInfo struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist,omitempty"`
	Album      string `json:"album,omitempty"`
	Filename   string `json:"filename"`
	FilePath   string `json:"-"`
	DurationMS int64  `json:"duration_ms"`
}

// PlaylistSnapshot is an immutable in-memory playlist used by the playback
// session. Reloading replaces the whole snapshot; readers never observe a
// half-updated playlist.
type PlaylistSnapshot struct {
	ID     string      `json:"id"`
	Title  string      `json:"title"`
	Tracks []TrackInfo `json:"tracks"`
}

// PlayerSnapshot is the canonical outbound state payload. It is the exact
// record broadcast by the state synchronizer and returned by the status API.
type PlayerSnapshot struct {
	IsPlaying           bool           `json:"is_playing"`
	IsPaused            bool           `json:"is_paused"`
	PositionMS          int64          `json:"position_ms"`
	DurationMS          int64          `json:"duration_ms"`
	Volume              int            `json:"volume"`
	ActivePlaylistID    string         `json:"active_playlist_id"`
	ActivePlaylistTitle string         `json:"active_playlist_title"`
	ActiveTrack         *TrackInfo     `json:"active_track"`
	ActiveTrackID       string         `json:"active_track_id"`
	TrackIndex          int            `json:"track_index"` // 1-based; 0 when no playlist
	TrackCount          int            `json:"track_count"`
	CanNext             bool           `json:"can_next"`
	CanPrev             bool           `json:"can_prev"`
	RepeatMode          RepeatMode     `json:"repeat_mode"`
	ShuffleEnabled      bool           `json:"shuffle_enabled"`
	Status              PlaybackStatus `json:"status"`
}
