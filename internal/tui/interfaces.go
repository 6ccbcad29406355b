package tui

import (
	"context"
	"time"

	"github.com/mross/tempo/internal/domain"
	"github.com/mross/tempo/internal/playback"
	"github.com/mross/tempo/internal/player"
)

// Controller is the playback surface the UI drives. Satisfied by
// *playback.Engine; tests substitute a fake.
type Controller interface {
	Subscribe() *playback.Subscription
	Unsubscribe(sub *playback.Subscription)

	PlayAlbum(ctx context.Context, albumID string, startIndex int) error
	PlayPlaylist(ctx context.Context, playlistID string, startIndex int) error
	ShuffleAll(ctx context.Context) error
	ToggleShuffle(ctx context.Context) error
	AbsorbNewTracks(added []domain.Track)

	Toggle()
	Next(ctx context.Context)
	Previous(ctx context.Context)
	JumpTo(ctx context.Context, index int)
	SeekBy(delta time.Duration)

	Status() player.Status
	Position() time.Duration
	Duration() time.Duration
	Current() (domain.Track, bool)
	QueueSnapshot() ([]domain.Track, int, bool)
}

// Library is the catalog surface the UI browses. Satisfied by
// *library.Index.
type Library interface {
	Albums(ctx context.Context, onRefresh func([]domain.Album)) ([]domain.Album, error)
	Playlists(ctx context.Context, onRefresh func([]domain.Playlist)) ([]domain.Playlist, error)
	Tracks() []domain.Track
	SyncTracks(ctx context.Context) (tracks, added []domain.Track, err error)
}
