package jellyfin

import "github.com/mross/tempo/internal/domain"

// The mappers are the trust boundary between raw catalog JSON and the
// typed entities the rest of the client runs on: items without an id are
// dropped, missing names get a placeholder, negative runtimes are
// zeroed. Nothing past this point handles an undefined field.

func mapTrack(it Item) domain.Track {
	t := domain.Track{
		ID:           it.ID,
		Name:         it.Name,
		AlbumID:      it.AlbumID,
		Album:        it.Album,
		AlbumArtist:  it.AlbumArtist,
		Artists:      it.Artists,
		RunTimeTicks: it.RunTimeTicks,
	}
	if t.Name == "" {
		t.Name = "Untitled"
	}
	if t.RunTimeTicks < 0 {
		t.RunTimeTicks = 0
	}
	return t
}

// MapTracks converts catalog items to tracks, dropping entries with no id.
func MapTracks(items []Item) []domain.Track {
	tracks := make([]domain.Track, 0, len(items))
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		tracks = append(tracks, mapTrack(it))
	}
	return tracks
}

// MapAlbums converts catalog items to albums, dropping entries with no id.
func MapAlbums(items []Item) []domain.Album {
	albums := make([]domain.Album, 0, len(items))
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		name := it.Name
		if name == "" {
			name = "Untitled"
		}
		albums = append(albums, domain.Album{
			ID:          it.ID,
			Name:        name,
			AlbumArtist: it.AlbumArtist,
			HasImage:    it.ImageTags.Primary != "",
		})
	}
	return albums
}

// MapPlaylists converts catalog items to playlists, dropping entries with no id.
func MapPlaylists(items []Item) []domain.Playlist {
	playlists := make([]domain.Playlist, 0, len(items))
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		name := it.Name
		if name == "" {
			name = "Untitled"
		}
		playlists = append(playlists, domain.Playlist{
			ID:       it.ID,
			Name:     name,
			HasImage: it.ImageTags.Primary != "",
		})
	}
	return playlists
}

// MapViews converts catalog items to library views.
func MapViews(items []Item) []domain.LibraryView {
	views := make([]domain.LibraryView, 0, len(items))
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		views = append(views, domain.LibraryView{
			ID:             it.ID,
			Name:           it.Name,
			CollectionType: it.CollectionType,
		})
	}
	return views
}
