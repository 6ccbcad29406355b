package jellyfin

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/mross/tempo/internal/domain"
)

// allTracksLimit bounds the single bulk fetch that mirrors the entire
// flat track list. Large enough for any personal library; it keeps the
// sync a one-request operation instead of a pagination loop.
const allTracksLimit = 10000

// Client implements the catalog API contract for Jellyfin servers. All
// network traffic funnels through the Gateway.
type Client struct {
	session domain.Session
	gw      *Gateway
	logger  *slog.Logger
}

// NewClient creates a new catalog client bound to an authenticated session.
func NewClient(session domain.Session, gw *Gateway, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	session.ServerURL = strings.TrimRight(session.ServerURL, "/")
	return &Client{session: session, gw: gw, logger: logger}
}

// Session returns the session this client was built with.
func (c *Client) Session() domain.Session {
	return c.session
}

// authHeaders returns the token header sent with every catalog call.
func (c *Client) authHeaders() map[string]string {
	return map[string]string{
		"Accept":       "application/json",
		"X-Emby-Token": c.session.Token,
	}
}

// MusicView locates the library view with CollectionType "music".
func (c *Client) MusicView(ctx context.Context) (domain.LibraryView, error) {
	reqURL := fmt.Sprintf("%s/Users/%s/Views", c.session.ServerURL, c.session.UserID)

	var resp ItemsResponse
	if err := c.gw.JSON(ctx, "GET", reqURL, c.authHeaders(), nil, &resp); err != nil {
		return domain.LibraryView{}, err
	}

	for _, view := range MapViews(resp.Items) {
		if view.CollectionType == "music" {
			c.logger.Debug("found music view", "id", view.ID, "name", view.Name)
			return view, nil
		}
	}
	return domain.LibraryView{}, domain.ErrNoMusicLibrary
}

// Albums returns every album in the music view, sorted by name.
func (c *Client) Albums(ctx context.Context, viewID string) ([]domain.Album, error) {
	query := url.Values{}
	query.Set("ParentId", viewID)
	query.Set("IncludeItemTypes", "MusicAlbum")
	query.Set("Recursive", "true")
	query.Set("SortBy", "SortName")

	resp, err := c.items(ctx, query)
	if err != nil {
		return nil, err
	}
	return MapAlbums(resp.Items), nil
}

// AlbumTracks returns an album's tracks in natural (disc, track) order.
// This ordering is what un-shuffle restores.
func (c *Client) AlbumTracks(ctx context.Context, albumID string) ([]domain.Track, error) {
	query := url.Values{}
	query.Set("ParentId", albumID)
	query.Set("IncludeItemTypes", "Audio")
	query.Set("Recursive", "true")
	query.Set("SortBy", "ParentIndexNumber,IndexNumber")

	resp, err := c.items(ctx, query)
	if err != nil {
		return nil, err
	}
	return MapTracks(resp.Items), nil
}

// AllTracks returns the entire flat track list of the music view in one
// bulk call, newest first.
func (c *Client) AllTracks(ctx context.Context, viewID string) ([]domain.Track, error) {
	query := url.Values{}
	query.Set("ParentId", viewID)
	query.Set("IncludeItemTypes", "Audio")
	query.Set("Recursive", "true")
	query.Set("SortBy", "DateCreated")
	query.Set("SortOrder", "Descending")
	query.Set("Limit", fmt.Sprintf("%d", allTracksLimit))

	resp, err := c.items(ctx, query)
	if err != nil {
		return nil, err
	}
	return MapTracks(resp.Items), nil
}

// Playlists returns every playlist visible to the user.
func (c *Client) Playlists(ctx context.Context) ([]domain.Playlist, error) {
	query := url.Values{}
	query.Set("IncludeItemTypes", "Playlist")
	query.Set("Recursive", "true")
	query.Set("SortBy", "SortName")

	resp, err := c.items(ctx, query)
	if err != nil {
		return nil, err
	}
	return MapPlaylists(resp.Items), nil
}

// PlaylistTracks returns a playlist's tracks in playlist order.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string) ([]domain.Track, error) {
	query := url.Values{}
	query.Set("UserId", c.session.UserID)

	reqURL := joinQuery(fmt.Sprintf("%s/Playlists/%s/Items", c.session.ServerURL, playlistID), query)

	var resp ItemsResponse
	if err := c.gw.JSON(ctx, "GET", reqURL, c.authHeaders(), nil, &resp); err != nil {
		return nil, err
	}
	return MapTracks(resp.Items), nil
}

// FetchImage retrieves raw image bytes. The asset cache is the only
// intended caller.
func (c *Client) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	return c.gw.Bytes(ctx, imageURL, c.authHeaders())
}

func (c *Client) items(ctx context.Context, query url.Values) (ItemsResponse, error) {
	reqURL := joinQuery(fmt.Sprintf("%s/Users/%s/Items", c.session.ServerURL, c.session.UserID), query)

	var resp ItemsResponse
	if err := c.gw.JSON(ctx, "GET", reqURL, c.authHeaders(), nil, &resp); err != nil {
		return ItemsResponse{}, err
	}
	return resp, nil
}
