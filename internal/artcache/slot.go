package artcache

import (
	"context"
	"sync"
)

// Slot displays artwork for exactly one surface (the player's current
// track). Each Load bumps a version; results from superseded loads are
// discarded, so a slow low-quality fetch can never overwrite the
// artwork of a track selected later.
type Slot struct {
	cache *Cache

	mu      sync.Mutex
	version uint64
	settled bool // high quality applied for the current version
	apply   func(data []byte)
}

// NewSlot creates a slot that delivers artwork through apply. The
// callback runs off the caller's goroutine; it must be safe to call
// concurrently with Load.
func NewSlot(cache *Cache, apply func(data []byte)) *Slot {
	return &Slot{cache: cache, apply: apply}
}

// Load starts a progressive load. Both fetches start at once; the
// low-quality image is applied when it arrives unless the high-quality
// one already has, so the visible image only ever improves. Either
// fetch failing is silent; the slot just keeps whatever it has. An
// empty hqURL clears the slot.
func (s *Slot) Load(ctx context.Context, lqURL, hqURL string) {
	s.mu.Lock()
	s.version++
	v := s.version
	s.settled = false
	s.mu.Unlock()

	if hqURL == "" {
		s.deliver(v, nil, true)
		return
	}

	go func() {
		if data, err := s.cache.Get(ctx, lqURL); err == nil && data != nil {
			s.deliver(v, data, false)
		}
	}()
	go func() {
		if data, err := s.cache.Get(ctx, hqURL); err == nil && data != nil {
			s.deliver(v, data, true)
		}
	}()
}

// deliver applies data only if v is still the current load and a final
// image has not already landed for it. The lock is held across apply
// so a newer load cannot interleave.
func (s *Slot) deliver(v uint64, data []byte, final bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != v || s.settled {
		return
	}
	if final {
		s.settled = true
	}
	if s.apply != nil {
		s.apply(data)
	}
}
