package library

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mross/tempo/internal/domain"
)

type fakeCatalog struct {
	mu        sync.Mutex
	view      domain.LibraryView
	viewErr   error
	viewCalls int
	albums    []domain.Album
	albumErr  error
	playlists []domain.Playlist
	tracks    []domain.Track
	tracksErr error
}

func (f *fakeCatalog) MusicView(ctx context.Context) (domain.LibraryView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.viewCalls++
	return f.view, f.viewErr
}

func (f *fakeCatalog) Albums(ctx context.Context, viewID string) ([]domain.Album, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.albums, f.albumErr
}

func (f *fakeCatalog) AlbumTracks(ctx context.Context, albumID string) ([]domain.Track, error) {
	return nil, nil
}

func (f *fakeCatalog) AllTracks(ctx context.Context, viewID string) ([]domain.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tracks, f.tracksErr
}

func (f *fakeCatalog) Playlists(ctx context.Context) ([]domain.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playlists, nil
}

func (f *fakeCatalog) PlaylistTracks(ctx context.Context, playlistID string) ([]domain.Track, error) {
	return nil, nil
}

// memKV is an in-memory KeyValueStore for tests.
type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemKV() *memKV { return &memKV{data: make(map[string][]byte)} }

func (m *memKV) Get(key string, dest interface{}) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (m *memKV) Set(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = data
	m.mu.Unlock()
	return nil
}

func (m *memKV) Delete(key string) {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
}

func TestMusicViewIDCachedAfterFirstResolve(t *testing.T) {
	cat := &fakeCatalog{view: domain.LibraryView{ID: "mv-1", CollectionType: "music"}}
	idx := NewIndex(cat, newMemKV(), nil)

	for i := 0; i < 3; i++ {
		id, err := idx.MusicViewID(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != "mv-1" {
			t.Fatalf("unexpected id: %q", id)
		}
	}
	if cat.viewCalls != 1 {
		t.Fatalf("expected a single view resolution, got %d", cat.viewCalls)
	}
}

func TestMusicViewMissing(t *testing.T) {
	cat := &fakeCatalog{viewErr: domain.ErrNoMusicLibrary}
	idx := NewIndex(cat, newMemKV(), nil)

	_, err := idx.MusicViewID(context.Background())
	if !errors.Is(err, domain.ErrNoMusicLibrary) {
		t.Fatalf("expected ErrNoMusicLibrary, got %v", err)
	}
}

func TestAlbumsColdFetchPersists(t *testing.T) {
	cat := &fakeCatalog{
		view:   domain.LibraryView{ID: "mv-1"},
		albums: []domain.Album{{ID: "a1", Name: "One"}},
	}
	kv := newMemKV()
	idx := NewIndex(cat, kv, nil)

	albums, err := idx.Albums(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(albums) != 1 || albums[0].ID != "a1" {
		t.Fatalf("unexpected albums: %+v", albums)
	}

	var persisted []domain.Album
	if !kv.Get("library:albums", &persisted) || len(persisted) != 1 {
		t.Fatal("albums should be persisted after cold fetch")
	}
}

func TestAlbumsCachedServedInstantlyThenRefreshed(t *testing.T) {
	cat := &fakeCatalog{
		view: domain.LibraryView{ID: "mv-1"},
		albums: []domain.Album{
			{ID: "a1"}, {ID: "a2"},
		},
	}
	kv := newMemKV()
	kv.Set("library:albums", []domain.Album{{ID: "a1"}})
	kv.Set("library:musicViewId", "mv-1")
	idx := NewIndex(cat, kv, nil)

	refreshed := make(chan []domain.Album, 1)
	albums, err := idx.Albums(context.Background(), func(a []domain.Album) {
		refreshed <- a
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(albums) != 1 {
		t.Fatalf("expected the stale cached copy first, got %d albums", len(albums))
	}

	select {
	case fresh := <-refreshed:
		if len(fresh) != 2 {
			t.Fatalf("expected refreshed list of 2, got %d", len(fresh))
		}
	case <-time.After(time.Second):
		t.Fatal("background refresh never delivered")
	}

	var persisted []domain.Album
	kv.Get("library:albums", &persisted)
	if len(persisted) != 2 {
		t.Fatal("refreshed list should be re-persisted")
	}
}

func TestAlbumsRefreshSkippedWhenCountUnchanged(t *testing.T) {
	cat := &fakeCatalog{
		view:   domain.LibraryView{ID: "mv-1"},
		albums: []domain.Album{{ID: "a1", Name: "Renamed"}},
	}
	kv := newMemKV()
	kv.Set("library:albums", []domain.Album{{ID: "a1", Name: "Original"}})
	kv.Set("library:musicViewId", "mv-1")
	idx := NewIndex(cat, kv, nil)

	called := make(chan struct{}, 1)
	idx.Albums(context.Background(), func([]domain.Album) {
		called <- struct{}{}
	})

	select {
	case <-called:
		t.Fatal("same count should not trigger a refresh delivery")
	case <-time.After(100 * time.Millisecond):
	}

	var persisted []domain.Album
	kv.Get("library:albums", &persisted)
	if persisted[0].Name != "Original" {
		t.Fatal("unchanged count should not rewrite the cache")
	}
}

func TestSyncTracksReportsAdded(t *testing.T) {
	cat := &fakeCatalog{
		view: domain.LibraryView{ID: "mv-1"},
		tracks: []domain.Track{
			{ID: "t1"}, {ID: "t2"}, {ID: "t3"},
		},
	}
	kv := newMemKV()
	kv.Set("library:tracks", []domain.Track{{ID: "t1"}, {ID: "t2"}})
	idx := NewIndex(cat, kv, nil)

	tracks, added, err := idx.SyncTracks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tracks) != 3 {
		t.Fatalf("expected 3 tracks, got %d", len(tracks))
	}
	if len(added) != 1 || added[0].ID != "t3" {
		t.Fatalf("expected t3 as added, got %+v", added)
	}
}

func TestSyncTracksNoChange(t *testing.T) {
	cat := &fakeCatalog{
		view:   domain.LibraryView{ID: "mv-1"},
		tracks: []domain.Track{{ID: "t1"}, {ID: "t2"}},
	}
	kv := newMemKV()
	kv.Set("library:tracks", []domain.Track{{ID: "t1"}, {ID: "t2"}})
	idx := NewIndex(cat, kv, nil)

	_, added, err := idx.SyncTracks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if added != nil {
		t.Fatalf("equal counts should report nothing added, got %+v", added)
	}
}

func TestSyncTracksFirstSync(t *testing.T) {
	cat := &fakeCatalog{
		view:   domain.LibraryView{ID: "mv-1"},
		tracks: []domain.Track{{ID: "t1"}},
	}
	idx := NewIndex(cat, newMemKV(), nil)

	tracks, added, err := idx.SyncTracks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}
	// First sync has no baseline, nothing counts as "added".
	if added != nil {
		t.Fatalf("first sync should not report additions, got %+v", added)
	}
}

func TestInvalidateClearsEverything(t *testing.T) {
	kv := newMemKV()
	kv.Set("library:musicViewId", "mv-1")
	kv.Set("library:albums", []domain.Album{{ID: "a1"}})
	kv.Set("library:tracks", []domain.Track{{ID: "t1"}})
	idx := NewIndex(&fakeCatalog{}, kv, nil)

	idx.Invalidate()

	var id string
	var albums []domain.Album
	var tracks []domain.Track
	if kv.Get("library:musicViewId", &id) || kv.Get("library:albums", &albums) || kv.Get("library:tracks", &tracks) {
		t.Fatal("invalidate should clear all library keys")
	}
}
