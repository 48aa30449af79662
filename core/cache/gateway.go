package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kilianp07/agriroute/core/logger"
	"github.com/kilianp07/agriroute/core/metrics"
	"github.com/kilianp07/agriroute/core/model"
)

// Gateway implements cache-aside reads over a Store. It never propagates
// store failures: an unreachable store behaves like a miss.
type Gateway struct {
	store  Store
	log    logger.Logger
	rec    metrics.CacheRecorder
	minTTL time.Duration
	maxTTL time.Duration
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(g *Gateway) { g.log = logger.OrNop(l) } }

// WithRecorder sets the recorder notified of every lookup.
func WithRecorder(r metrics.CacheRecorder) Option { return func(g *Gateway) { g.rec = r } }

// WithTTLBounds clamps every TTL into [min, max]. Zero disables a bound.
func WithTTLBounds(min, max time.Duration) Option {
	return func(g *Gateway) { g.minTTL, g.maxTTL = min, max }
}

// NewGateway wraps store. A nil store yields a gateway that always fetches.
func NewGateway(store Store, opts ...Option) *Gateway {
	g := &Gateway{store: store, log: logger.Nop{}}
	for _, o := range opts {
		o(g)
	}
	return g
}

// TTL applies the configured bounds to ttl.
func (g *Gateway) TTL(ttl time.Duration) time.Duration {
	if g.minTTL > 0 && ttl < g.minTTL {
		ttl = g.minTTL
	}
	if g.maxTTL > 0 && ttl > g.maxTTL {
		ttl = g.maxTTL
	}
	return ttl
}

// Lookup reads key and decodes it into out. It returns false on miss, on
// decode failure and when the store is unavailable.
func (g *Gateway) Lookup(ctx context.Context, key string, out any) bool {
	if g == nil || g.store == nil {
		return false
	}
	raw, ok, err := g.store.Get(ctx, key)
	if err != nil {
		g.unavailable(key, fmt.Errorf("get %s: %w: %v", key, model.ErrCacheUnavailable, err))
		return false
	}
	if ok {
		if err := json.Unmarshal(raw, out); err != nil {
			g.log.Warnf("cache entry %s undecodable, refetching: %v", key, err)
			ok = false
		}
	}
	g.record(metrics.CacheEvent{Domain: Domain(key), Hit: ok, Time: time.Now()})
	return ok
}

// Put stores value under key. Failures are logged and dropped.
func (g *Gateway) Put(ctx context.Context, key string, value any, ttl time.Duration) {
	if g == nil || g.store == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		g.log.Errorf("cache encode %s: %v", key, err)
		return
	}
	if err := g.store.Set(ctx, key, raw, g.TTL(ttl)); err != nil {
		g.unavailable(key, fmt.Errorf("set %s: %w: %v", key, model.ErrCacheUnavailable, err))
	}
}

// Invalidate removes key. Only needed for freshness, never for correctness.
func (g *Gateway) Invalidate(ctx context.Context, key string) {
	if g == nil || g.store == nil {
		return
	}
	if err := g.store.Delete(ctx, key); err != nil {
		g.unavailable(key, fmt.Errorf("delete %s: %w: %v", key, model.ErrCacheUnavailable, err))
	}
}

func (g *Gateway) unavailable(key string, err error) {
	g.log.Warnf("%v", err)
	g.record(metrics.CacheEvent{Domain: Domain(key), Unavailable: true, Time: time.Now()})
}

func (g *Gateway) record(ev metrics.CacheEvent) {
	if g.rec == nil {
		return
	}
	if err := g.rec.RecordCacheLookup(ev); err != nil {
		g.log.Debugf("record cache lookup: %v", err)
	}
}

// GetOrFetch returns the cached value for key or calls fetch and caches its
// result for ttl. force skips the read but still populates the cache; a
// forced refresh that fails evicts the entry the caller asked to replace.
// The boolean result reports whether the value came from the cache. Errors
// only come from fetch; failed fetches are not cached.
func GetOrFetch[T any](ctx context.Context, g *Gateway, key string, ttl time.Duration, force bool, fetch func(context.Context) (T, error)) (T, bool, error) {
	var v T
	if !force && g.Lookup(ctx, key, &v) {
		return v, true, nil
	}
	v, err := fetch(ctx)
	if err != nil {
		if force {
			g.Invalidate(ctx, key)
		}
		var zero T
		return zero, false, err
	}
	g.Put(ctx, key, v, ttl)
	return v, false, nil
}
