package library

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mross/tempo/internal/domain"
)

// Cache keys
const (
	keyMusicView = "library:musicViewId"
	keyAlbums    = "library:albums"
	keyPlaylists = "library:playlists"
	keyTracks    = "library:tracks"
)

// Catalog is the slice of the server API the index needs.
type Catalog interface {
	MusicView(ctx context.Context) (domain.LibraryView, error)
	Albums(ctx context.Context, viewID string) ([]domain.Album, error)
	AlbumTracks(ctx context.Context, albumID string) ([]domain.Track, error)
	AllTracks(ctx context.Context, viewID string) ([]domain.Track, error)
	Playlists(ctx context.Context) ([]domain.Playlist, error)
	PlaylistTracks(ctx context.Context, playlistID string) ([]domain.Track, error)
}

// Index keeps a local mirror of the music library so browsing never
// blocks on the network. Cached data is served immediately and a
// background refresh follows; refreshed data is re-persisted only when
// the item count changed, which is cheap and catches the common case
// of additions and removals.
type Index struct {
	catalog Catalog
	kv      domain.KeyValueStore
	logger  *slog.Logger

	mu         sync.Mutex
	refreshing map[string]bool // per-key refresh guard
}

// NewIndex creates a library index backed by kv.
func NewIndex(catalog Catalog, kv domain.KeyValueStore, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		catalog:    catalog,
		kv:         kv,
		logger:     logger,
		refreshing: make(map[string]bool),
	}
}

// MusicViewID returns the id of the music library view, resolving it
// once and caching it. Every later call is a store read.
func (x *Index) MusicViewID(ctx context.Context) (string, error) {
	var id string
	if x.kv.Get(keyMusicView, &id) && id != "" {
		return id, nil
	}

	view, err := x.catalog.MusicView(ctx)
	if err != nil {
		return "", err
	}
	if err := x.kv.Set(keyMusicView, view.ID); err != nil {
		x.logger.Warn("failed to persist music view id", "error", err)
	}
	return view.ID, nil
}

// Albums returns the album list. With a cached copy it returns
// immediately and refreshes in the background, delivering the new list
// through onRefresh only when the count changed. Without a cache it
// fetches synchronously.
func (x *Index) Albums(ctx context.Context, onRefresh func([]domain.Album)) ([]domain.Album, error) {
	var cached []domain.Album
	if x.kv.Get(keyAlbums, &cached) {
		x.refreshAlbums(ctx, len(cached), onRefresh)
		return cached, nil
	}

	viewID, err := x.MusicViewID(ctx)
	if err != nil {
		return nil, err
	}
	albums, err := x.catalog.Albums(ctx, viewID)
	if err != nil {
		return nil, err
	}
	if err := x.kv.Set(keyAlbums, albums); err != nil {
		x.logger.Warn("failed to persist albums", "error", err)
	}
	x.logger.Info("loaded albums", "count", len(albums))
	return albums, nil
}

// refreshAlbums re-fetches the album list in the background. One
// refresh per key at a time; failures are logged and dropped since the
// cached copy is still on screen.
func (x *Index) refreshAlbums(ctx context.Context, cachedCount int, onRefresh func([]domain.Album)) {
	if !x.beginRefresh(keyAlbums) {
		return
	}
	go func() {
		defer x.endRefresh(keyAlbums)

		viewID, err := x.MusicViewID(ctx)
		if err != nil {
			x.logger.Warn("album refresh failed", "error", err)
			return
		}
		albums, err := x.catalog.Albums(ctx, viewID)
		if err != nil {
			x.logger.Warn("album refresh failed", "error", err)
			return
		}
		if len(albums) == cachedCount {
			return
		}

		x.logger.Info("album list changed", "was", cachedCount, "now", len(albums))
		if err := x.kv.Set(keyAlbums, albums); err != nil {
			x.logger.Warn("failed to persist albums", "error", err)
		}
		if onRefresh != nil {
			onRefresh(albums)
		}
	}()
}

// Playlists mirrors Albums for the playlist list.
func (x *Index) Playlists(ctx context.Context, onRefresh func([]domain.Playlist)) ([]domain.Playlist, error) {
	var cached []domain.Playlist
	if x.kv.Get(keyPlaylists, &cached) {
		x.refreshPlaylists(ctx, len(cached), onRefresh)
		return cached, nil
	}

	playlists, err := x.catalog.Playlists(ctx)
	if err != nil {
		return nil, err
	}
	if err := x.kv.Set(keyPlaylists, playlists); err != nil {
		x.logger.Warn("failed to persist playlists", "error", err)
	}
	x.logger.Info("loaded playlists", "count", len(playlists))
	return playlists, nil
}

func (x *Index) refreshPlaylists(ctx context.Context, cachedCount int, onRefresh func([]domain.Playlist)) {
	if !x.beginRefresh(keyPlaylists) {
		return
	}
	go func() {
		defer x.endRefresh(keyPlaylists)

		playlists, err := x.catalog.Playlists(ctx)
		if err != nil {
			x.logger.Warn("playlist refresh failed", "error", err)
			return
		}
		if len(playlists) == cachedCount {
			return
		}

		x.logger.Info("playlist list changed", "was", cachedCount, "now", len(playlists))
		if err := x.kv.Set(keyPlaylists, playlists); err != nil {
			x.logger.Warn("failed to persist playlists", "error", err)
		}
		if onRefresh != nil {
			onRefresh(playlists)
		}
	}()
}

// AlbumTracks returns an album's tracks in natural order. Not cached:
// a single album fetch is small and the queue wants fresh ordering.
func (x *Index) AlbumTracks(ctx context.Context, albumID string) ([]domain.Track, error) {
	return x.catalog.AlbumTracks(ctx, albumID)
}

// PlaylistTracks returns a playlist's tracks in playlist order.
func (x *Index) PlaylistTracks(ctx context.Context, playlistID string) ([]domain.Track, error) {
	return x.catalog.PlaylistTracks(ctx, playlistID)
}

// Tracks returns the cached flat track list, which may be empty before
// the first sync.
func (x *Index) Tracks() []domain.Track {
	var tracks []domain.Track
	x.kv.Get(keyTracks, &tracks)
	return tracks
}

// SyncTracks fetches the full flat track list and reconciles it with
// the cached copy. It returns the current list plus the tracks that
// are new since the last sync, so a live shuffle queue can absorb them.
// The list is only re-persisted when the count changed.
func (x *Index) SyncTracks(ctx context.Context) (tracks, added []domain.Track, err error) {
	viewID, err := x.MusicViewID(ctx)
	if err != nil {
		return nil, nil, err
	}

	fresh, err := x.catalog.AllTracks(ctx, viewID)
	if err != nil {
		return nil, nil, err
	}

	var cached []domain.Track
	hadCache := x.kv.Get(keyTracks, &cached)

	if hadCache && len(fresh) == len(cached) {
		return cached, nil, nil
	}

	if hadCache {
		known := make(map[string]struct{}, len(cached))
		for _, t := range cached {
			known[t.ID] = struct{}{}
		}
		for _, t := range fresh {
			if _, ok := known[t.ID]; !ok {
				added = append(added, t)
			}
		}
	}

	if err := x.kv.Set(keyTracks, fresh); err != nil {
		x.logger.Warn("failed to persist track list", "error", err)
	}
	x.logger.Info("synced track list", "count", len(fresh), "added", len(added))
	return fresh, added, nil
}

// Invalidate clears every cached library key. Used on logout.
func (x *Index) Invalidate() {
	for _, key := range []string{keyMusicView, keyAlbums, keyPlaylists, keyTracks} {
		x.kv.Delete(key)
	}
	x.logger.Info("cleared library cache")
}

func (x *Index) beginRefresh(key string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.refreshing[key] {
		return false
	}
	x.refreshing[key] = true
	return true
}

func (x *Index) endRefresh(key string) {
	x.mu.Lock()
	delete(x.refreshing, key)
	x.mu.Unlock()
}
