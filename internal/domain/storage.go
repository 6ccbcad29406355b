package domain

import "time"

// KeyValueStore persists small JSON projections (library index, cached
// view id). Implementations must tolerate a missing backend: Get simply
// reports false and Set returns ErrCacheUnavailable, which callers treat
// as a soft failure.
type KeyValueStore interface {
	// Get unmarshals the value stored under key into dest, reporting
	// whether a value was present and decodable.
	Get(key string, dest interface{}) bool

	// Set marshals value and stores it under key.
	Set(key string, value interface{}) error

	// Delete removes the value stored under key, if any.
	Delete(key string)
}

// BlobRecord is one cached binary payload, keyed by the full request URL.
type BlobRecord struct {
	URL      string
	Data     []byte
	StoredAt time.Time
}

// BlobStore persists binary payloads (album artwork) with their fetch
// timestamp. Caching is an optimization, never a hard dependency of
// playback: every method is allowed to fail soft.
type BlobStore interface {
	// GetBlob returns the record stored for url, if any. Expiry is the
	// caller's concern; the store returns whatever it holds.
	GetBlob(url string) (*BlobRecord, bool)

	// PutBlob stores data under url with the current time.
	PutBlob(url string, data []byte) error

	// DeleteBlob removes the record for url, if any.
	DeleteBlob(url string)

	// SweepExpired deletes every record older than maxAge and returns
	// the number removed. A maintenance pass, not a correctness
	// requirement.
	SweepExpired(maxAge time.Duration) int
}
