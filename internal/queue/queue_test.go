package queue

import (
	"math/rand"
	"testing"

	"github.com/mross/tempo/internal/domain"
)

func tracks(ids ...string) []domain.Track {
	out := make([]domain.Track, len(ids))
	for i, id := range ids {
		out[i] = domain.Track{ID: id, Name: id}
	}
	return out
}

func ids(ts []domain.Track) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

func seeded(seed int64) *Queue {
	return New(rand.New(rand.NewSource(seed)))
}

func TestStart(t *testing.T) {
	q := seeded(1)
	q.Start(tracks("a", "b", "c"), 1, "album-1")

	cur, ok := q.Current()
	if !ok || cur.ID != "b" {
		t.Fatalf("expected current b, got %v %v", cur, ok)
	}
	if q.ContextID() != "album-1" || q.Shuffled() {
		t.Fatal("start should record context and reset shuffle")
	}
}

func TestStartClampsBadIndex(t *testing.T) {
	q := seeded(1)
	q.Start(tracks("a", "b"), 99, "")
	if q.CurrentIndex() != 0 {
		t.Fatalf("out-of-range start index should fall back to 0, got %d", q.CurrentIndex())
	}
	q.Start(tracks("a", "b"), -3, "")
	if q.CurrentIndex() != 0 {
		t.Fatalf("negative start index should fall back to 0, got %d", q.CurrentIndex())
	}
}

func TestStartEmpty(t *testing.T) {
	q := seeded(1)
	q.Start(nil, 0, "")
	if _, ok := q.Current(); ok {
		t.Fatal("empty queue has no current track")
	}
	if q.CurrentIndex() != -1 {
		t.Fatalf("empty queue index should be -1, got %d", q.CurrentIndex())
	}
}

func TestStartCopiesInput(t *testing.T) {
	q := seeded(1)
	in := tracks("a", "b")
	q.Start(in, 0, "")
	in[0].ID = "mutated"
	cur, _ := q.Current()
	if cur.ID != "a" {
		t.Fatal("queue must not alias the caller's slice")
	}
}

func TestShuffleOnPinsCurrentTrack(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		q := seeded(seed)
		q.Start(tracks("a", "b", "c", "d", "e"), 2, "album-1")
		q.ShuffleOn()

		if q.CurrentIndex() != 0 {
			t.Fatalf("seed %d: current index should be 0 after shuffle, got %d", seed, q.CurrentIndex())
		}
		cur, _ := q.Current()
		if cur.ID != "c" {
			t.Fatalf("seed %d: playing track must stay the same, got %s", seed, cur.ID)
		}
		if q.Len() != 5 {
			t.Fatalf("seed %d: shuffle must not change length, got %d", seed, q.Len())
		}
		seen := make(map[string]bool)
		for _, id := range ids(q.Tracks()) {
			seen[id] = true
		}
		for _, id := range []string{"a", "b", "c", "d", "e"} {
			if !seen[id] {
				t.Fatalf("seed %d: track %s lost in shuffle", seed, id)
			}
		}
	}
}

func TestShuffleOnIdempotent(t *testing.T) {
	q := seeded(7)
	q.Start(tracks("a", "b", "c"), 0, "")
	q.ShuffleOn()
	order := ids(q.Tracks())
	q.ShuffleOn()
	for i, id := range ids(q.Tracks()) {
		if id != order[i] {
			t.Fatal("second ShuffleOn must not reshuffle")
		}
	}
}

func TestRestoreOrderRelocatesCurrent(t *testing.T) {
	q := seeded(3)
	q.Start(tracks("a", "b", "c", "d"), 1, "album-1")
	q.ShuffleOn()

	// Advance into the shuffled tail so the current track is arbitrary.
	q.Advance(2)
	cur, _ := q.Current()

	q.RestoreOrder(tracks("a", "b", "c", "d"), "album-1")
	if q.Shuffled() {
		t.Fatal("shuffle flag should be off")
	}
	if q.ContextID() != "album-1" {
		t.Fatalf("context should follow the restored album, got %q", q.ContextID())
	}
	got, _ := q.Current()
	if got.ID != cur.ID {
		t.Fatalf("playing track must survive un-shuffle: want %s got %s", cur.ID, got.ID)
	}
	want := []string{"a", "b", "c", "d"}
	for i, id := range ids(q.Tracks()) {
		if id != want[i] {
			t.Fatalf("natural order not restored: %v", ids(q.Tracks()))
		}
	}
}

func TestRestoreOrderWithoutContext(t *testing.T) {
	q := seeded(3)
	q.StartShuffled(tracks("a", "b", "c"))
	order := ids(q.Tracks())

	q.RestoreOrder(nil, "")
	if q.Shuffled() {
		t.Fatal("shuffle flag should be off")
	}
	for i, id := range ids(q.Tracks()) {
		if id != order[i] {
			t.Fatal("nil natural order should keep the present order")
		}
	}
}

func TestStartShuffledClearsContext(t *testing.T) {
	q := seeded(4)
	q.Start(tracks("x"), 0, "album-1")
	q.StartShuffled(tracks("a", "b", "c"))

	if q.ContextID() != "" {
		t.Fatal("library shuffle has no context")
	}
	if !q.Shuffled() || q.CurrentIndex() != 0 || q.Len() != 3 {
		t.Fatalf("unexpected state: shuffled=%v idx=%d len=%d", q.Shuffled(), q.CurrentIndex(), q.Len())
	}
}

func TestAugmentNeverTouchesPlayedPrefix(t *testing.T) {
	for seed := int64(0); seed < 30; seed++ {
		q := seeded(seed)
		q.StartShuffled(tracks("a", "b", "c", "d", "e", "f"))
		q.Advance(2)
		prefix := ids(q.Tracks())[:3] // played + current

		q.Augment(tracks("n1", "n2", "n3"))

		got := ids(q.Tracks())
		for i, id := range prefix {
			if got[i] != id {
				t.Fatalf("seed %d: augmentation disturbed position %d: %v", seed, i, got)
			}
		}
		if q.Len() != 9 {
			t.Fatalf("seed %d: expected 9 tracks, got %d", seed, q.Len())
		}
		if q.CurrentIndex() != 2 {
			t.Fatalf("seed %d: current index moved to %d", seed, q.CurrentIndex())
		}
	}
}

func TestAugmentEmptyInput(t *testing.T) {
	q := seeded(1)
	q.Start(tracks("a"), 0, "")
	q.Augment(nil)
	if q.Len() != 1 {
		t.Fatal("nil augmentation should be a no-op")
	}
}

func TestAdvanceClampsNegative(t *testing.T) {
	q := seeded(1)
	q.Start(tracks("a", "b", "c"), 2, "")
	if out := q.Advance(-1); out != Jumped || q.CurrentIndex() != 0 {
		t.Fatalf("negative target should clamp to 0, got %v idx=%d", out, q.CurrentIndex())
	}
}

func TestAdvanceWrapsShuffled(t *testing.T) {
	q := seeded(1)
	q.StartShuffled(tracks("a", "b", "c"))
	q.Advance(2)
	if out := q.Advance(3); out != Wrapped || q.CurrentIndex() != 0 {
		t.Fatalf("shuffled queue should wrap, got %v idx=%d", out, q.CurrentIndex())
	}
}

func TestAdvanceWrapsContextlessQueue(t *testing.T) {
	q := seeded(1)
	q.Start(tracks("a", "b"), 1, "")
	if out := q.Advance(2); out != Wrapped || q.CurrentIndex() != 0 {
		t.Fatalf("context-free queue should wrap, got %v idx=%d", out, q.CurrentIndex())
	}
}

func TestAdvancePastAlbumEndRequestsNextAlbum(t *testing.T) {
	q := seeded(1)
	q.Start(tracks("a", "b"), 1, "album-1")
	if out := q.Advance(2); out != NextAlbum {
		t.Fatalf("un-shuffled album queue should hand off to the next album, got %v", out)
	}
	if q.CurrentIndex() != 1 {
		t.Fatal("a next-album handoff must not move the index")
	}
}

func TestAdvanceEmptyQueue(t *testing.T) {
	q := seeded(1)
	if out := q.Advance(0); out != Empty {
		t.Fatalf("expected Empty, got %v", out)
	}
}

func TestUpcoming(t *testing.T) {
	q := seeded(1)
	q.Start(tracks("a", "b", "c", "d"), 1, "")

	up := ids(q.Upcoming(3))
	if len(up) != 2 || up[0] != "c" || up[1] != "d" {
		t.Fatalf("unexpected upcoming: %v", up)
	}
	if q.Upcoming(0) != nil {
		t.Fatal("zero window should be empty")
	}
}
