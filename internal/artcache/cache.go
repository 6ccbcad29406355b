package artcache

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mross/tempo/internal/domain"
)

const (
	// DefaultCapacity bounds the in-memory tier. Artwork for a screenful
	// of albums plus the queue's prefetch window fits comfortably.
	DefaultCapacity = 50

	// DefaultMaxAge is how long a persisted blob stays servable before a
	// lookup treats it as stale and refetches.
	DefaultMaxAge = 7 * 24 * time.Hour
)

// Fetcher retrieves raw image bytes from the server.
type Fetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, error)
}

type entry struct {
	url  string
	data []byte
}

type result struct {
	data []byte
	err  error
}

type flight struct {
	waiters []chan result
}

// Cache is a two-tier artwork cache: a bounded in-memory LRU in front
// of an optional persistent blob store. Concurrent requests for the
// same URL collapse into one fetch, with every caller served from the
// single result in the order they asked. With no blob store attached
// the memory tier still works and misses simply hit the network.
type Cache struct {
	mu       sync.Mutex
	capacity int
	maxAge   time.Duration
	index    map[string]*list.Element
	lru      *list.List // front = most recent
	inflight map[string]*flight

	fetcher Fetcher
	blobs   domain.BlobStore // may be nil
	logger  *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithCapacity overrides the memory tier size.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithMaxAge overrides the persistent-tier expiry.
func WithMaxAge(d time.Duration) Option {
	return func(c *Cache) { c.maxAge = d }
}

// WithBlobStore attaches a persistent tier.
func WithBlobStore(blobs domain.BlobStore) Option {
	return func(c *Cache) { c.blobs = blobs }
}

// New creates a Cache with the given fetcher.
func New(fetcher Fetcher, logger *slog.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		capacity: DefaultCapacity,
		maxAge:   DefaultMaxAge,
		index:    make(map[string]*list.Element),
		lru:      list.New(),
		inflight: make(map[string]*flight),
		fetcher:  fetcher,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns image bytes for url, consulting memory, then the
// persistent tier, then the network. Concurrent callers for the same
// url share one fetch. An empty url returns nil without error so
// callers can treat "no artwork" uniformly.
func (c *Cache) Get(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, nil
	}

	c.mu.Lock()

	// Memory tier
	if el, ok := c.index[url]; ok {
		c.lru.MoveToFront(el)
		data := el.Value.(*entry).data
		c.mu.Unlock()
		return data, nil
	}

	// Join an in-flight fetch if one exists
	if f, ok := c.inflight[url]; ok {
		ch := make(chan result, 1)
		f.waiters = append(f.waiters, ch)
		c.mu.Unlock()
		select {
		case r := <-ch:
			return r.data, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// This caller owns the fetch
	f := &flight{}
	c.inflight[url] = f
	c.mu.Unlock()

	data, err := c.load(ctx, url)

	c.mu.Lock()
	delete(c.inflight, url)
	if err == nil {
		c.put(url, data)
	}
	waiters := f.waiters
	c.mu.Unlock()

	// Deliver to waiters in the order they subscribed
	for _, ch := range waiters {
		ch <- result{data: data, err: err}
	}
	return data, err
}

// Prefetch warms the cache for urls that will be needed soon. Already
// cached or in-flight urls cost nothing; failures are logged and
// swallowed since a prefetch miss just means a slower display later.
func (c *Cache) Prefetch(ctx context.Context, urls ...string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		c.mu.Lock()
		_, cached := c.index[url]
		_, fetching := c.inflight[url]
		c.mu.Unlock()
		if cached || fetching {
			continue
		}
		go func(u string) {
			if _, err := c.Get(ctx, u); err != nil {
				c.logger.Debug("artwork prefetch failed", "url", u, "error", err)
			}
		}(url)
	}
}

// load checks the persistent tier, then falls through to the network.
// Caller must not hold the lock.
func (c *Cache) load(ctx context.Context, url string) ([]byte, error) {
	if c.blobs != nil {
		if rec, ok := c.blobs.GetBlob(url); ok {
			if time.Since(rec.StoredAt) < c.maxAge {
				return rec.Data, nil
			}
			// Stale: drop it and refetch
			c.blobs.DeleteBlob(url)
		}
	}

	data, err := c.fetcher.FetchImage(ctx, url)
	if err != nil {
		return nil, err
	}

	if c.blobs != nil {
		if err := c.blobs.PutBlob(url, data); err != nil {
			c.logger.Warn("failed to persist artwork", "url", url, "error", err)
		}
	}
	return data, nil
}

// put inserts into the memory tier, evicting the least recently used
// entry past capacity. Caller must hold the lock.
func (c *Cache) put(url string, data []byte) {
	if el, ok := c.index[url]; ok {
		el.Value.(*entry).data = data
		c.lru.MoveToFront(el)
		return
	}
	c.index[url] = c.lru.PushFront(&entry{url: url, data: data})
	for c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.index, oldest.Value.(*entry).url)
	}
}

// Len reports the number of entries in the memory tier.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Sweep removes expired blobs from the persistent tier. Called once at
// startup.
func (c *Cache) Sweep() int {
	if c.blobs == nil {
		return 0
	}
	removed := c.blobs.SweepExpired(c.maxAge)
	if removed > 0 {
		c.logger.Info("swept expired artwork", "removed", removed)
	}
	return removed
}
