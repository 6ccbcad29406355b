package tui

import (
	"github.com/mross/tempo/internal/domain"
	"github.com/mross/tempo/internal/playback"
)

// Message types for the TUI

// ErrMsg represents an error surfaced in the status line
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// AlbumsLoadedMsg carries the initial album listing
type AlbumsLoadedMsg struct {
	Albums []domain.Album
}

// AlbumsRefreshedMsg carries an updated album listing from a
// background catalog refresh
type AlbumsRefreshedMsg struct {
	Albums []domain.Album
}

// PlaylistsLoadedMsg carries the initial playlist listing
type PlaylistsLoadedMsg struct {
	Playlists []domain.Playlist
}

// PlaylistsRefreshedMsg carries an updated playlist listing
type PlaylistsRefreshedMsg struct {
	Playlists []domain.Playlist
}

// TracksSyncedMsg signals that the track index finished syncing
type TracksSyncedMsg struct {
	Total int
	Added int
}

// EngineTrackMsg wraps a track change from the playback engine
type EngineTrackMsg struct {
	Event playback.TrackChange
}

// EngineStateMsg wraps a play state change
type EngineStateMsg struct {
	Event playback.StateChange
}

// EnginePositionMsg wraps a playhead position update
type EnginePositionMsg struct {
	Event playback.PositionChange
}

// EngineQueueMsg wraps a queue content change
type EngineQueueMsg struct {
	Event playback.QueueChange
}

// EngineArtworkMsg wraps a cover image delivery
type EngineArtworkMsg struct {
	Event playback.ArtworkChange
}

// EngineErrorMsg wraps a playback error event
type EngineErrorMsg struct {
	Event playback.ErrorEvent
}

// EngineClosedMsg signals the engine shut down
type EngineClosedMsg struct{}

// StatusNoteMsg sets a transient footer message
type StatusNoteMsg struct {
	Message string
	IsError bool
}

// ClearStatusMsg clears the footer message
type ClearStatusMsg struct{}

// LogoutDoneMsg signals the logout flow finished
type LogoutDoneMsg struct {
	Err error
}
