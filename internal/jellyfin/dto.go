package jellyfin

// AuthResponse represents the response from Jellyfin's AuthenticateByName endpoint
type AuthResponse struct {
	User        User   `json:"User"`
	AccessToken string `json:"AccessToken"`
	ServerID    string `json:"ServerId"`
}

// User represents a Jellyfin user
type User struct {
	ID       string `json:"Id"`
	Name     string `json:"Name"`
	ServerID string `json:"ServerId"`
}

// ItemsResponse represents a paginated list of items from Jellyfin
type ItemsResponse struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
	StartIndex       int    `json:"StartIndex"`
}

// Item represents a catalog item (view, album, playlist, or audio track)
type Item struct {
	ID             string    `json:"Id"`
	Name           string    `json:"Name"`
	Type           string    `json:"Type"`
	CollectionType string    `json:"CollectionType,omitempty"` // for views: "music", "movies", ...
	Album          string    `json:"Album,omitempty"`
	AlbumID        string    `json:"AlbumId,omitempty"`
	AlbumArtist    string    `json:"AlbumArtist,omitempty"`
	Artists        []string  `json:"Artists,omitempty"`
	RunTimeTicks   int64     `json:"RunTimeTicks,omitempty"` // duration in 100-nanosecond units
	ImageTags      ImageTags `json:"ImageTags,omitempty"`
}

// ImageTags contains image tag IDs for various image types
type ImageTags struct {
	Primary string `json:"Primary,omitempty"`
}
