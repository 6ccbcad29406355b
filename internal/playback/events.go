package playback

import (
	"time"

	"github.com/mross/tempo/internal/domain"
	"github.com/mross/tempo/internal/player"
)

// TrackChange is emitted when a different track is loaded into the
// player, whether by user navigation or natural track end.
type TrackChange struct {
	Track    domain.Track
	Index    int
	QueueLen int
}

// StateChange is emitted when the transport state flips.
type StateChange struct {
	Status player.Status
}

// PositionChange carries the playback position, about once a second.
type PositionChange struct {
	Position time.Duration
	Duration time.Duration
}

// QueueChange is emitted when the queue contents or shuffle mode
// change without the playing track changing.
type QueueChange struct {
	Tracks   []domain.Track
	Index    int
	Shuffled bool
}

// ArtworkChange carries raw image bytes for the playing track. It is
// emitted twice on a progressive load, low quality first.
type ArtworkChange struct {
	Data []byte
}

// ErrorEvent surfaces a failure that interrupted playback.
type ErrorEvent struct {
	Err error
}
