package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryConfig configures the in-process store.
type MemoryConfig struct {
	DefaultTTL time.Duration `json:"default_ttl"`
	Cleanup    time.Duration `json:"cleanup_interval"`
}

// MemoryStore keeps entries in process. Expired entries are invisible to
// Get and swept by the janitor every Cleanup interval.
type MemoryStore struct {
	c *gocache.Cache
}

// NewMemoryStore creates a store with a 5 minute default TTL and a one
// minute janitor unless configured otherwise.
func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}
	if cfg.Cleanup <= 0 {
		cfg.Cleanup = time.Minute
	}
	return &MemoryStore{c: gocache.New(cfg.DefaultTTL, cfg.Cleanup)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	return b, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	// entries are replaced, never mutated, so keep a private copy
	s.c.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.c.Delete(key)
	return nil
}

// Len returns the number of stored items, expired ones included until the
// next sweep.
func (s *MemoryStore) Len() int { return s.c.ItemCount() }

// Close flushes the store.
func (s *MemoryStore) Close() error {
	s.c.Flush()
	return nil
}
