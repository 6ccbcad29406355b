package artcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mross/tempo/internal/domain"
)

type fakeFetcher struct {
	mu      sync.Mutex
	calls   map[string]int
	data    map[string][]byte
	err     error
	release chan struct{}            // when non-nil, FetchImage blocks until closed
	holds   map[string]chan struct{} // per-URL blocks, same contract
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: make(map[string]int), data: make(map[string][]byte)}
}

// hold makes fetches for url block until the returned channel closes.
func (f *fakeFetcher) hold(url string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.holds == nil {
		f.holds = make(map[string]chan struct{})
	}
	ch := make(chan struct{})
	f.holds[url] = ch
	return ch
}

func (f *fakeFetcher) FetchImage(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.calls[url]++
	release := f.release
	hold := f.holds[url]
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	if hold != nil {
		<-hold
	}
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.data[url]; ok {
		return d, nil
	}
	return []byte("img:" + url), nil
}

func (f *fakeFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

type fakeBlobs struct {
	mu    sync.Mutex
	blobs map[string]*domain.BlobRecord
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{blobs: make(map[string]*domain.BlobRecord)}
}

func (b *fakeBlobs) GetBlob(url string) (*domain.BlobRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.blobs[url]
	return rec, ok
}

func (b *fakeBlobs) PutBlob(url string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[url] = &domain.BlobRecord{URL: url, Data: data, StoredAt: time.Now()}
	return nil
}

func (b *fakeBlobs) DeleteBlob(url string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, url)
}

func (b *fakeBlobs) SweepExpired(maxAge time.Duration) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for url, rec := range b.blobs {
		if rec.StoredAt.Before(cutoff) {
			delete(b.blobs, url)
			removed++
		}
	}
	return removed
}

func TestGetCachesInMemory(t *testing.T) {
	f := newFakeFetcher()
	c := New(f, nil)

	for i := 0; i < 3; i++ {
		data, err := c.Get(context.Background(), "u1")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if string(data) != "img:u1" {
			t.Fatalf("unexpected data: %q", data)
		}
	}
	if f.callCount("u1") != 1 {
		t.Fatalf("expected 1 fetch, got %d", f.callCount("u1"))
	}
}

func TestEmptyURL(t *testing.T) {
	c := New(newFakeFetcher(), nil)
	data, err := c.Get(context.Background(), "")
	if err != nil || data != nil {
		t.Fatalf("empty url should be a silent no-op, got %v %v", data, err)
	}
}

func TestLRUEviction(t *testing.T) {
	f := newFakeFetcher()
	c := New(f, nil, WithCapacity(3))

	for i := 0; i < 4; i++ {
		c.Get(context.Background(), fmt.Sprintf("u%d", i))
	}
	if c.Len() != 3 {
		t.Fatalf("expected capacity 3, got %d", c.Len())
	}

	// u0 was evicted: fetching it again hits the network.
	c.Get(context.Background(), "u0")
	if f.callCount("u0") != 2 {
		t.Fatalf("expected refetch of evicted entry, got %d calls", f.callCount("u0"))
	}
	// u3 is still resident.
	c.Get(context.Background(), "u3")
	if f.callCount("u3") != 1 {
		t.Fatalf("expected u3 to stay cached, got %d calls", f.callCount("u3"))
	}
}

func TestLRUPromotionOnAccess(t *testing.T) {
	f := newFakeFetcher()
	c := New(f, nil, WithCapacity(2))

	c.Get(context.Background(), "a")
	c.Get(context.Background(), "b")
	c.Get(context.Background(), "a") // promote a
	c.Get(context.Background(), "c") // evicts b, not a

	c.Get(context.Background(), "a")
	if f.callCount("a") != 1 {
		t.Fatalf("promoted entry should survive eviction, got %d calls", f.callCount("a"))
	}
	c.Get(context.Background(), "b")
	if f.callCount("b") != 2 {
		t.Fatalf("expected b to have been evicted, got %d calls", f.callCount("b"))
	}
}

func TestConcurrentRequestsShareOneFetch(t *testing.T) {
	f := newFakeFetcher()
	f.release = make(chan struct{})
	c := New(f, nil)

	const n = 10
	var wg sync.WaitGroup
	var fetched atomic.Int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := c.Get(context.Background(), "shared")
			if err == nil && string(data) == "img:shared" {
				fetched.Add(1)
			}
		}()
	}

	// Let every goroutine reach the cache before releasing the fetch.
	time.Sleep(50 * time.Millisecond)
	close(f.release)
	wg.Wait()

	if got := fetched.Load(); got != n {
		t.Fatalf("expected all %d callers served, got %d", n, got)
	}
	if f.callCount("shared") != 1 {
		t.Fatalf("expected a single fetch, got %d", f.callCount("shared"))
	}
}

func TestFetchErrorPropagatesToAllWaiters(t *testing.T) {
	f := newFakeFetcher()
	f.err = errors.New("boom")
	f.release = make(chan struct{})
	c := New(f, nil)

	const n = 4
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := c.Get(context.Background(), "bad")
			errs <- err
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(f.release)

	for i := 0; i < n; i++ {
		if err := <-errs; err == nil {
			t.Fatal("every waiter should see the fetch error")
		}
	}
	// Errors are not cached.
	if c.Len() != 0 {
		t.Fatal("failed fetch must not populate the cache")
	}
}

func TestPersistentTierSurvivesMemoryEviction(t *testing.T) {
	f := newFakeFetcher()
	blobs := newFakeBlobs()
	c := New(f, nil, WithCapacity(1), WithBlobStore(blobs))

	c.Get(context.Background(), "a")
	c.Get(context.Background(), "b") // evicts a from memory

	// a comes back from the blob store, not the network.
	c.Get(context.Background(), "a")
	if f.callCount("a") != 1 {
		t.Fatalf("expected blob-tier hit, got %d fetches", f.callCount("a"))
	}
}

func TestExpiredBlobRefetched(t *testing.T) {
	f := newFakeFetcher()
	blobs := newFakeBlobs()
	c := New(f, nil, WithCapacity(1), WithBlobStore(blobs), WithMaxAge(time.Hour))

	c.Get(context.Background(), "a")
	c.Get(context.Background(), "b") // push a out of memory

	// Backdate the persisted record past expiry.
	blobs.mu.Lock()
	blobs.blobs["a"].StoredAt = time.Now().Add(-2 * time.Hour)
	blobs.mu.Unlock()

	c.Get(context.Background(), "a")
	if f.callCount("a") != 2 {
		t.Fatalf("expired blob should trigger refetch, got %d fetches", f.callCount("a"))
	}
	// The refetch rewrote the blob with a fresh timestamp.
	rec, ok := blobs.GetBlob("a")
	if !ok || time.Since(rec.StoredAt) > time.Minute {
		t.Fatal("refetched blob should be re-persisted fresh")
	}
}

func TestPrefetchSkipsCachedAndDeduplicates(t *testing.T) {
	f := newFakeFetcher()
	c := New(f, nil)

	c.Get(context.Background(), "warm")
	c.Prefetch(context.Background(), "warm", "", "cold")

	deadline := time.After(time.Second)
	for f.callCount("cold") == 0 {
		select {
		case <-deadline:
			t.Fatal("prefetch never fetched cold url")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if f.callCount("warm") != 1 {
		t.Fatalf("prefetch must not refetch cached entries, got %d", f.callCount("warm"))
	}
}

func TestSlotProgressiveLoad(t *testing.T) {
	f := newFakeFetcher()
	hq := f.hold("hq")
	c := New(f, nil)

	var mu sync.Mutex
	var applied []string
	slot := NewSlot(c, func(data []byte) {
		mu.Lock()
		applied = append(applied, string(data))
		mu.Unlock()
	})

	// The high-quality fetch stalls, so the low-quality image must land
	// on its own first.
	slot.Load(context.Background(), "lq", "hq")
	waitApplied(t, &mu, &applied, 1, "low-quality image never applied")
	close(hq)
	waitApplied(t, &mu, &applied, 2, "high-quality image never applied")

	mu.Lock()
	defer mu.Unlock()
	if applied[0] != "img:lq" || applied[1] != "img:hq" {
		t.Fatalf("expected lq then hq, got %v", applied)
	}
}

func TestSlotDropsLateLowQuality(t *testing.T) {
	f := newFakeFetcher()
	lq := f.hold("lq")
	c := New(f, nil)

	var mu sync.Mutex
	var applied []string
	slot := NewSlot(c, func(data []byte) {
		mu.Lock()
		applied = append(applied, string(data))
		mu.Unlock()
	})

	// The low-quality fetch stalls. The high-quality image must still
	// arrive on its own, proving the fetches run independently, and the
	// late low-quality result must not downgrade it.
	slot.Load(context.Background(), "lq", "hq")
	waitApplied(t, &mu, &applied, 1, "high-quality image never applied")
	close(lq)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(applied) != 1 || applied[0] != "img:hq" {
		t.Fatalf("late low-quality image should be dropped, got %v", applied)
	}
}

func waitApplied(t *testing.T, mu *sync.Mutex, applied *[]string, n int, msg string) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		mu.Lock()
		got := len(*applied)
		mu.Unlock()
		if got >= n {
			return
		}
		select {
		case <-deadline:
			t.Fatal(msg)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSlotDiscardsSupersededLoad(t *testing.T) {
	f := newFakeFetcher()
	f.release = make(chan struct{})
	c := New(f, nil)

	var mu sync.Mutex
	var applied []string
	slot := NewSlot(c, func(data []byte) {
		mu.Lock()
		if data != nil {
			applied = append(applied, string(data))
		}
		mu.Unlock()
	})

	// First load stalls in the fetcher; second load supersedes it, then
	// the stalled fetches complete.
	slot.Load(context.Background(), "old-lq", "old-hq")
	time.Sleep(20 * time.Millisecond)
	slot.Load(context.Background(), "new-lq", "new-hq")
	time.Sleep(20 * time.Millisecond)
	close(f.release)

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		done := false
		for _, a := range applied {
			if a == "img:new-hq" {
				done = true
			}
		}
		mu.Unlock()
		if done {
			break
		}
		select {
		case <-deadline:
			t.Fatal("new load never applied")
		case <-time.After(5 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for _, a := range applied {
		if a == "img:old-lq" || a == "img:old-hq" {
			t.Fatalf("superseded load leaked through: %v", applied)
		}
	}
}
