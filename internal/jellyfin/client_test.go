package jellyfin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mross/tempo/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	session := domain.Session{
		ServerURL: srv.URL,
		UserID:    "user-1",
		Token:     "tok-1",
	}
	return NewClient(session, NewGateway(false, nil), nil), srv
}

func itemsJSON(items ...Item) []byte {
	b, _ := json.Marshal(ItemsResponse{Items: items, TotalRecordCount: len(items)})
	return b
}

func TestMusicView(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Users/user-1/Views", r.URL.Path)
		assert.Equal(t, "tok-1", r.Header.Get("X-Emby-Token"))
		w.Write(itemsJSON(
			Item{ID: "v1", Name: "Movies", CollectionType: "movies"},
			Item{ID: "v2", Name: "Music", CollectionType: "music"},
		))
	})

	view, err := client.MusicView(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v2", view.ID)
	assert.Equal(t, "Music", view.Name)
}

func TestMusicViewMissing(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(itemsJSON(Item{ID: "v1", Name: "Movies", CollectionType: "movies"}))
	})

	_, err := client.MusicView(context.Background())
	assert.True(t, errors.Is(err, domain.ErrNoMusicLibrary))
}

func TestAlbumTracksQuery(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "album-1", q.Get("ParentId"))
		assert.Equal(t, "Audio", q.Get("IncludeItemTypes"))
		assert.Equal(t, "ParentIndexNumber,IndexNumber", q.Get("SortBy"))
		w.Write(itemsJSON(
			Item{ID: "t1", Name: "One", RunTimeTicks: 300 * domain.TicksPerSecond},
			Item{ID: "t2", Name: "Two"},
		))
	})

	tracks, err := client.AlbumTracks(context.Background(), "album-1")
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "One", tracks[0].Name)
	assert.Equal(t, 300, tracks[0].DurationSeconds())
}

func TestAllTracksQuery(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "DateCreated", q.Get("SortBy"))
		assert.Equal(t, "Descending", q.Get("SortOrder"))
		assert.Equal(t, "10000", q.Get("Limit"))
		w.Write(itemsJSON())
	})

	_, err := client.AllTracks(context.Background(), "view-1")
	require.NoError(t, err)
}

func TestPlaylistTracksPath(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Playlists/pl-1/Items", r.URL.Path)
		assert.Equal(t, "user-1", r.URL.Query().Get("UserId"))
		w.Write(itemsJSON(Item{ID: "t1", Name: "One"}))
	})

	tracks, err := client.PlaylistTracks(context.Background(), "pl-1")
	require.NoError(t, err)
	require.Len(t, tracks, 1)
}

func TestStreamURL(t *testing.T) {
	client := NewClient(domain.Session{
		ServerURL: "http://example.com:8096",
		UserID:    "u",
		Token:     "secret",
	}, NewGateway(false, nil), nil)

	u := client.StreamURL("track-9")
	assert.True(t, strings.HasPrefix(u, "http://example.com:8096/Audio/track-9/stream?"))
	assert.Contains(t, u, "AudioCodec=aac")
	assert.Contains(t, u, "MaxStreamingBitrate=320000")
	assert.Contains(t, u, "api_key=secret")
}

func TestImageURLPresets(t *testing.T) {
	client := NewClient(domain.Session{ServerURL: "http://s"}, NewGateway(false, nil), nil)

	tests := []struct {
		preset  ImagePreset
		px      string
		quality string
	}{
		{ImageLQ, "120", "70"},
		{ImageGrid, "300", "90"},
		{ImageHQ, "512", "90"},
	}
	for _, tt := range tests {
		u := client.ImageURL("item-1", tt.preset)
		assert.Contains(t, u, "/Items/item-1/Images/Primary?")
		assert.Contains(t, u, "maxHeight="+tt.px)
		assert.Contains(t, u, "maxWidth="+tt.px)
		assert.Contains(t, u, "quality="+tt.quality)
	}

	assert.Empty(t, client.ImageURL("", ImageHQ))
}

func TestMapTracksDefaults(t *testing.T) {
	tracks := MapTracks([]Item{
		{ID: "t1"},                         // no name
		{ID: "t2", RunTimeTicks: -5},       // negative runtime
		{Name: "orphan"},                   // no id, dropped
		{ID: "t3", Name: "Real", Artists: []string{"A"}},
	})

	require.Len(t, tracks, 3)
	assert.Equal(t, "Untitled", tracks[0].Name)
	assert.Equal(t, int64(0), tracks[1].RunTimeTicks)
	assert.Equal(t, "Real", tracks[2].Name)
}

func TestAuthenticate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/Users/AuthenticateByName", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("X-Emby-Authorization"), "MediaBrowser")

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "alice", creds["Username"])
		assert.Equal(t, "pw", creds["Pw"])

		json.NewEncoder(w).Encode(AuthResponse{
			User:        User{ID: "user-1", Name: "alice"},
			AccessToken: "tok-abc",
		})
	}))
	defer srv.Close()

	flow := NewAuthFlow(NewGateway(false, nil), nil)
	result, err := flow.Authenticate(context.Background(), srv.URL, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", result.Token)
	assert.Equal(t, "user-1", result.UserID)
	assert.Equal(t, "alice", result.Username)
}

func TestAuthenticateBadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	flow := NewAuthFlow(NewGateway(false, nil), nil)
	_, err := flow.Authenticate(context.Background(), srv.URL, "alice", "wrong")
	assert.True(t, errors.Is(err, domain.ErrAuthFailed))
}
