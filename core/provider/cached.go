package provider

import (
	"context"
	"time"

	"github.com/kilianp07/agriroute/core/cache"
)

// Fetcher serves a domain through the cache gateway and falls back to its
// chain on a miss.
type Fetcher[Q, T any] interface {
	Get(ctx context.Context, q Q, force bool) (Result[T], bool, error)
}

// Cached is the cache-aside Fetcher over a Chain. Answers from local sources
// are returned but not stored, so the next request retries the upstreams.
type Cached[Q, T any] struct {
	gw    *cache.Gateway
	chain *Chain[Q, T]
	ttl   time.Duration
	key   func(Q) string
}

// NewCached wires gw and chain. key derives the cache key of a query.
func NewCached[Q, T any](gw *cache.Gateway, chain *Chain[Q, T], ttl time.Duration, key func(Q) string) *Cached[Q, T] {
	return &Cached[Q, T]{gw: gw, chain: chain, ttl: ttl, key: key}
}

// Chain returns the underlying chain.
func (c *Cached[Q, T]) Chain() *Chain[Q, T] { return c.chain }

// Get returns the result for q and whether it was served from cache.
func (c *Cached[Q, T]) Get(ctx context.Context, q Q, force bool) (Result[T], bool, error) {
	key := c.key(q)
	var res Result[T]
	if !force && c.gw.Lookup(ctx, key, &res) {
		return res, true, nil
	}
	res, err := c.chain.Fetch(ctx, q)
	if err != nil {
		return res, false, err
	}
	if !res.Local {
		c.gw.Put(ctx, key, res, c.ttl)
	}
	return res, false, nil
}
