package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mross/tempo/internal/domain"
)

// LoadAlbumsCmd fetches the album listing. Cached data returns
// immediately; a later background refresh lands on the refresh channel.
func LoadAlbumsCmd(lib Library, refresh chan<- []domain.Album) tea.Cmd {
	return func() tea.Msg {
		albums, err := lib.Albums(context.Background(), func(fresh []domain.Album) {
			select {
			case refresh <- fresh:
			default:
			}
		})
		if err != nil {
			return ErrMsg{Err: err, Context: "loading albums"}
		}
		return AlbumsLoadedMsg{Albums: albums}
	}
}

// LoadPlaylistsCmd fetches the playlist listing.
func LoadPlaylistsCmd(lib Library, refresh chan<- []domain.Playlist) tea.Cmd {
	return func() tea.Msg {
		playlists, err := lib.Playlists(context.Background(), func(fresh []domain.Playlist) {
			select {
			case refresh <- fresh:
			default:
			}
		})
		if err != nil {
			return ErrMsg{Err: err, Context: "loading playlists"}
		}
		return PlaylistsLoadedMsg{Playlists: playlists}
	}
}

// WatchAlbumRefreshCmd waits for a background album refresh.
func WatchAlbumRefreshCmd(refresh <-chan []domain.Album) tea.Cmd {
	return func() tea.Msg {
		return AlbumsRefreshedMsg{Albums: <-refresh}
	}
}

// WatchPlaylistRefreshCmd waits for a background playlist refresh.
func WatchPlaylistRefreshCmd(refresh <-chan []domain.Playlist) tea.Cmd {
	return func() tea.Msg {
		return PlaylistsRefreshedMsg{Playlists: <-refresh}
	}
}

// SyncTracksCmd refreshes the track index and feeds any additions to
// the running queue.
func SyncTracksCmd(lib Library, engine Controller) tea.Cmd {
	return func() tea.Msg {
		tracks, added, err := lib.SyncTracks(context.Background())
		if err != nil {
			return ErrMsg{Err: err, Context: "syncing tracks"}
		}
		engine.AbsorbNewTracks(added)
		return TracksSyncedMsg{Total: len(tracks), Added: len(added)}
	}
}

// WatchEngineCmd waits for the next playback engine event and converts
// it to a message. Re-issued after every delivery.
func (m Model) WatchEngineCmd() tea.Cmd {
	sub := m.sub
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case e := <-sub.TrackChanged:
			return EngineTrackMsg{Event: e}
		case e := <-sub.StateChanged:
			return EngineStateMsg{Event: e}
		case e := <-sub.PositionChanged:
			return EnginePositionMsg{Event: e}
		case e := <-sub.QueueChanged:
			return EngineQueueMsg{Event: e}
		case e := <-sub.ArtworkChanged:
			return EngineArtworkMsg{Event: e}
		case e := <-sub.Error:
			return EngineErrorMsg{Event: e}
		case <-sub.Done:
			return EngineClosedMsg{}
		}
	}
}

// PlayAlbumCmd starts playback of an album from its first track.
func PlayAlbumCmd(engine Controller, albumID string) tea.Cmd {
	return func() tea.Msg {
		if err := engine.PlayAlbum(context.Background(), albumID, 0); err != nil {
			return ErrMsg{Err: err, Context: "playing album"}
		}
		return nil
	}
}

// PlayPlaylistCmd starts playback of a playlist from its first track.
func PlayPlaylistCmd(engine Controller, playlistID string) tea.Cmd {
	return func() tea.Msg {
		if err := engine.PlayPlaylist(context.Background(), playlistID, 0); err != nil {
			return ErrMsg{Err: err, Context: "playing playlist"}
		}
		return nil
	}
}

// ShuffleAllCmd queues the whole library shuffled.
func ShuffleAllCmd(engine Controller) tea.Cmd {
	return func() tea.Msg {
		if err := engine.ShuffleAll(context.Background()); err != nil {
			return ErrMsg{Err: err, Context: "shuffling library"}
		}
		return nil
	}
}

// ToggleShuffleCmd flips shuffle on the current queue.
func ToggleShuffleCmd(engine Controller) tea.Cmd {
	return func() tea.Msg {
		if err := engine.ToggleShuffle(context.Background()); err != nil {
			return ErrMsg{Err: err, Context: "toggling shuffle"}
		}
		return nil
	}
}

// LogoutCmd runs the injected logout flow.
func LogoutCmd(logout func() error) tea.Cmd {
	return func() tea.Msg {
		if logout == nil {
			return LogoutDoneMsg{}
		}
		return LogoutDoneMsg{Err: logout()}
	}
}

// ClearStatusCmd clears the footer message after the given delay.
func ClearStatusCmd(after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
