package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrMixedContent indicates a plain-http request was refused because
	// the client is pinned to a secure origin. Raised before any network
	// I/O happens.
	ErrMixedContent = errors.New("cannot reach http server from a https origin (mixed content)")

	// ErrServerOffline indicates the media server is unreachable
	ErrServerOffline = errors.New("media server is unreachable")

	// ErrAuthFailed indicates authentication failed
	ErrAuthFailed = errors.New("authentication token is invalid")

	// ErrNotFound indicates an expected entity is absent on the server
	ErrNotFound = errors.New("item not found")

	// ErrNoMusicLibrary indicates the server has no view with
	// CollectionType "music"
	ErrNoMusicLibrary = errors.New("no music library found on server")

	// ErrCacheUnavailable indicates no persistence backend is present;
	// callers degrade to direct network access
	ErrCacheUnavailable = errors.New("local cache is unavailable")
)
