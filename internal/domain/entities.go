package domain

import (
	"fmt"
	"time"
)

// TicksPerSecond is the catalog's duration unit: one tick is 100ns.
const TicksPerSecond = 10_000_000

// Track represents a playable audio item. Tracks are immutable once
// fetched; this struct is also the minified projection that gets
// persisted for the library index, so it carries only the fields the
// player actually needs.
type Track struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	AlbumID      string   `json:"albumId,omitempty"`
	Album        string   `json:"album,omitempty"`
	AlbumArtist  string   `json:"albumArtist,omitempty"`
	Artists      []string `json:"artists,omitempty"`
	RunTimeTicks int64    `json:"runTimeTicks,omitempty"`
}

// DurationSeconds converts the server-declared runtime to whole seconds.
// Returns 0 when the catalog sent no runtime.
func (t Track) DurationSeconds() int {
	if t.RunTimeTicks <= 0 {
		return 0
	}
	return int(t.RunTimeTicks / TicksPerSecond)
}

// Duration returns the server-declared runtime, 0 if unknown.
func (t Track) Duration() time.Duration {
	return time.Duration(t.DurationSeconds()) * time.Second
}

// DisplayArtist returns the artist line shown in the player: album
// artist first, then the first track artist, then a placeholder.
func (t Track) DisplayArtist() string {
	if t.AlbumArtist != "" {
		return t.AlbumArtist
	}
	if len(t.Artists) > 0 {
		return t.Artists[0]
	}
	return "Unknown Artist"
}

// FormattedDuration renders the runtime as m:ss for display.
func (t Track) FormattedDuration() string {
	return FormatSeconds(t.DurationSeconds())
}

// FormatSeconds renders a second count as m:ss ("0:00" for unknown).
func FormatSeconds(sec int) string {
	if sec <= 0 {
		return "0:00"
	}
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}

// Album is a navigation entity: once its tracks are loaded into a queue
// the album itself is no longer needed.
type Album struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AlbumArtist string `json:"albumArtist,omitempty"`
	HasImage    bool   `json:"hasImage,omitempty"`
}

// Playlist is a user-curated track collection on the server.
type Playlist struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	HasImage bool   `json:"hasImage,omitempty"`
}

// LibraryView is a top-level collection reported by /Views. The client
// only ever cares about the one with CollectionType "music".
type LibraryView struct {
	ID             string
	Name           string
	CollectionType string
}

// Session is the authenticated connection triple the whole subsystem
// depends on. It is built once by the auth flow and injected explicitly;
// nothing reads it from ambient globals.
type Session struct {
	ServerURL string
	UserID    string
	Token     string
}

// AuthResult is what a successful AuthenticateByName exchange yields.
type AuthResult struct {
	Token    string
	UserID   string
	Username string
}
