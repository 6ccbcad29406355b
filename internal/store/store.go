package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/mross/tempo/internal/domain"
)

// Bucket names
var (
	bucketKV    = []byte("kv")
	bucketBlobs = []byte("blobs")
)

// Store persists library metadata and cached image blobs in BoltDB,
// namespaced per server. When the database cannot be opened the store
// degrades to memory-only: same interface, nothing survives restart.
type Store struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory maps

	// Memory fallbacks, used as the only tier in memory-only mode
	kv    map[string][]byte
	blobs map[string]*domain.BlobRecord
}

// Open opens (or creates) the database under baseCacheDir, namespaced
// by a hash of the server URL so switching servers never mixes caches.
// An empty baseCacheDir yields a memory-only store.
func Open(baseCacheDir, serverURL string) (*Store, error) {
	if baseCacheDir == "" {
		return newMemoryStore(), nil
	}

	dir := baseCacheDir
	if serverURL != "" {
		dir = filepath.Join(baseCacheDir, hashServerURL(serverURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "tempo.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketKV, bucketBlobs} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:    db,
		kv:    make(map[string][]byte),
		blobs: make(map[string]*domain.BlobRecord),
	}, nil
}

// OpenOrDegrade opens the store, falling back to memory-only when the
// database is unavailable (locked by another instance, bad permissions).
// The returned error is the open failure, for logging; the store is
// always usable.
func OpenOrDegrade(baseCacheDir, serverURL string) (*Store, error) {
	s, err := Open(baseCacheDir, serverURL)
	if err != nil {
		return newMemoryStore(), err
	}
	return s, nil
}

func newMemoryStore() *Store {
	return &Store{
		kv:    make(map[string][]byte),
		blobs: make(map[string]*domain.BlobRecord),
	}
}

func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Persistent reports whether the store is backed by disk.
func (s *Store) Persistent() bool {
	return s.db != nil
}

// === Key/value (library metadata, settings) ===

func (s *Store) Get(key string, dest interface{}) bool {
	// Check memory first
	s.mu.RLock()
	data, ok := s.kv[key]
	s.mu.RUnlock()
	if ok {
		return json.Unmarshal(data, dest) == nil
	}

	if s.db == nil {
		return false
	}

	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketKV)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	// Promote to memory
	s.mu.Lock()
	s.kv[key] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *Store) Set(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.kv[key] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketKV).Put([]byte(key), data)
	})
}

func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.kv, key)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketKV)
		if b != nil {
			b.Delete([]byte(key))
		}
		return nil
	})
}

// DeletePrefix removes every key with the given prefix. Used on logout
// to clear session-scoped entries without touching the rest.
func (s *Store) DeletePrefix(prefix string) {
	s.mu.Lock()
	for k := range s.kv {
		if strings.HasPrefix(k, prefix) {
			delete(s.kv, k)
		}
	}
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketKV)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		prefixBytes := []byte(prefix)
		for k, _ := c.Seek(prefixBytes); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// === Blobs (image bytes, keyed by URL) ===

func (s *Store) GetBlob(url string) (*domain.BlobRecord, bool) {
	if s.db == nil {
		s.mu.RLock()
		rec, ok := s.blobs[url]
		s.mu.RUnlock()
		return rec, ok
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlobs)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(url)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if data == nil {
		return nil, false
	}

	var rec domain.BlobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false
	}
	return &rec, true
}

func (s *Store) PutBlob(url string, data []byte) error {
	rec := &domain.BlobRecord{URL: url, Data: data, StoredAt: time.Now()}

	if s.db == nil {
		s.mu.Lock()
		s.blobs[url] = rec
		s.mu.Unlock()
		return nil
	}

	encoded, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).Put([]byte(url), encoded)
	})
}

func (s *Store) DeleteBlob(url string) {
	if s.db == nil {
		s.mu.Lock()
		delete(s.blobs, url)
		s.mu.Unlock()
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlobs)
		if b != nil {
			b.Delete([]byte(url))
		}
		return nil
	})
}

// SweepExpired deletes every blob older than maxAge and returns the
// number removed. Runs once at startup; individual lookups also check
// age so a missed sweep is never load-bearing.
func (s *Store) SweepExpired(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	if s.db == nil {
		s.mu.Lock()
		for url, rec := range s.blobs {
			if rec.StoredAt.Before(cutoff) {
				delete(s.blobs, url)
				removed++
			}
		}
		s.mu.Unlock()
		return removed
	}

	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlobs)
		if b == nil {
			return nil
		}
		var stale [][]byte
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec domain.BlobRecord
			if err := json.Unmarshal(v, &rec); err != nil || rec.StoredAt.Before(cutoff) {
				key := make([]byte, len(k))
				copy(key, k)
				stale = append(stale, key)
			}
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed
}
