package queue

import (
	"math/rand"
	"time"

	"github.com/mross/tempo/internal/domain"
)

// Outcome describes what an Advance call decided.
type Outcome int

const (
	// Jumped means the index moved to a valid position in the queue.
	Jumped Outcome = iota
	// Wrapped means the target ran off the end and playback restarted
	// at the first track.
	Wrapped
	// NextAlbum means the target ran off the end of an un-shuffled
	// album queue; the caller should load the following album.
	NextAlbum
	// Empty means the queue has no tracks.
	Empty
)

// Queue holds the ordered list of tracks and the playback position.
// It is pure state: no I/O, no locking. The playback engine owns the
// single goroutine that mutates it.
//
// contextID links the queue back to the album or playlist it was
// started from; it is empty for a whole-library shuffle, which has no
// natural order to restore.
type Queue struct {
	tracks       []domain.Track
	currentIndex int
	shuffled     bool
	contextID    string

	rng *rand.Rand
}

// New creates an empty queue. rng may be nil, in which case a
// time-seeded source is used; tests inject a fixed seed.
func New(rng *rand.Rand) *Queue {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Queue{currentIndex: -1, rng: rng}
}

// Start replaces the queue with tracks and positions playback at
// startIndex. contextID names the album or playlist the tracks came
// from. Shuffle is reset.
func (q *Queue) Start(tracks []domain.Track, startIndex int, contextID string) {
	q.tracks = append([]domain.Track(nil), tracks...)
	q.shuffled = false
	q.contextID = contextID
	if len(q.tracks) == 0 {
		q.currentIndex = -1
		return
	}
	if startIndex < 0 || startIndex >= len(q.tracks) {
		startIndex = 0
	}
	q.currentIndex = startIndex
}

// StartShuffled replaces the queue with a shuffled copy of tracks,
// starting from the first. Used for whole-library shuffle, so the
// context is cleared: there is no album order to come back to.
func (q *Queue) StartShuffled(tracks []domain.Track) {
	q.tracks = q.shuffleCopy(tracks)
	q.shuffled = true
	q.contextID = ""
	if len(q.tracks) == 0 {
		q.currentIndex = -1
		return
	}
	q.currentIndex = 0
}

// Current returns the track at the playback position.
func (q *Queue) Current() (domain.Track, bool) {
	if q.currentIndex < 0 || q.currentIndex >= len(q.tracks) {
		return domain.Track{}, false
	}
	return q.tracks[q.currentIndex], true
}

// CurrentIndex returns the playback position, -1 when empty.
func (q *Queue) CurrentIndex() int { return q.currentIndex }

// Len returns the number of tracks.
func (q *Queue) Len() int { return len(q.tracks) }

// Tracks returns a copy of the queue contents.
func (q *Queue) Tracks() []domain.Track {
	return append([]domain.Track(nil), q.tracks...)
}

// ContextID returns the album or playlist id the queue was started
// from, "" for a library-wide shuffle.
func (q *Queue) ContextID() string { return q.contextID }

// Shuffled reports whether shuffle is on.
func (q *Queue) Shuffled() bool { return q.shuffled }

// Upcoming returns up to n tracks after the current one, not wrapping.
// Used to prefetch artwork.
func (q *Queue) Upcoming(n int) []domain.Track {
	if q.currentIndex < 0 {
		return nil
	}
	start := q.currentIndex + 1
	end := start + n
	if end > len(q.tracks) {
		end = len(q.tracks)
	}
	if start >= end {
		return nil
	}
	return append([]domain.Track(nil), q.tracks[start:end]...)
}

// ShuffleOn shuffles the remaining order while pinning the playing
// track: it moves to the head and the index resets to 0, so what the
// listener hears does not change.
func (q *Queue) ShuffleOn() {
	if q.shuffled || len(q.tracks) == 0 {
		q.shuffled = len(q.tracks) > 0
		return
	}
	current := q.tracks[q.currentIndex]
	rest := make([]domain.Track, 0, len(q.tracks)-1)
	rest = append(rest, q.tracks[:q.currentIndex]...)
	rest = append(rest, q.tracks[q.currentIndex+1:]...)
	rest = q.shuffleCopy(rest)

	q.tracks = append([]domain.Track{current}, rest...)
	q.currentIndex = 0
	q.shuffled = true
}

// RestoreOrder turns shuffle off, replacing the queue with natural
// (the playing track's album in canonical order, refetched by the
// caller) and re-locating the playing track inside it. contextID
// names the album the replacement came from. A nil natural keeps the
// present order and only clears the flag, which is all an empty queue
// can do.
func (q *Queue) RestoreOrder(natural []domain.Track, contextID string) {
	q.shuffled = false
	if natural == nil {
		return
	}
	q.contextID = contextID
	current, ok := q.Current()
	q.tracks = append([]domain.Track(nil), natural...)
	q.currentIndex = 0
	if !ok {
		if len(q.tracks) == 0 {
			q.currentIndex = -1
		}
		return
	}
	for i, t := range q.tracks {
		if t.ID == current.ID {
			q.currentIndex = i
			return
		}
	}
}

// Augment inserts newly discovered tracks into a live queue without
// touching anything at or before the playback position. Each track
// lands at a random spot strictly after the current one, so a long
// shuffle session picks up library additions seamlessly.
func (q *Queue) Augment(newTracks []domain.Track) {
	if len(newTracks) == 0 || q.currentIndex < 0 {
		return
	}
	for _, t := range q.shuffleCopy(newTracks) {
		pos := q.currentIndex + 1 + q.rng.Intn(len(q.tracks)-q.currentIndex)
		q.tracks = append(q.tracks, domain.Track{})
		copy(q.tracks[pos+1:], q.tracks[pos:])
		q.tracks[pos] = t
	}
}

// Advance moves the playback position to target, clamping negative
// targets to the first track. A target past the end wraps to the
// start, except for an un-shuffled album queue, where the caller is
// told to move on to the next album instead.
func (q *Queue) Advance(target int) Outcome {
	if len(q.tracks) == 0 {
		return Empty
	}
	if target < 0 {
		q.currentIndex = 0
		return Jumped
	}
	if target >= len(q.tracks) {
		if !q.shuffled && q.contextID != "" {
			return NextAlbum
		}
		q.currentIndex = 0
		return Wrapped
	}
	q.currentIndex = target
	return Jumped
}

// shuffleCopy returns a Fisher-Yates shuffled copy, leaving the input
// untouched.
func (q *Queue) shuffleCopy(tracks []domain.Track) []domain.Track {
	out := append([]domain.Track(nil), tracks...)
	for i := len(out) - 1; i > 0; i-- {
		j := q.rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
