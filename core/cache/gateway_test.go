package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/agriroute/core/metrics"
	"github.com/kilianp07/agriroute/core/model"
)

type entry struct {
	val    []byte
	expiry time.Time
}

// clockStore is an in-memory Store with a controllable clock.
type clockStore struct {
	mu      sync.Mutex
	now     time.Time
	data    map[string]entry
	lastTTL time.Duration
	fail    bool
}

func newClockStore() *clockStore {
	return &clockStore{now: time.Unix(1_700_000_000, 0), data: map[string]entry{}}
}

func (s *clockStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, false, errors.New("connection refused")
	}
	e, ok := s.data[key]
	if !ok || !s.now.Before(e.expiry) {
		return nil, false, nil
	}
	return e.val, true, nil
}

func (s *clockStore) Set(_ context.Context, key string, v []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("connection refused")
	}
	s.lastTTL = ttl
	s.data[key] = entry{val: v, expiry: s.now.Add(ttl)}
	return nil
}

func (s *clockStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *clockStore) Close() error { return nil }

func (s *clockStore) advance(d time.Duration) {
	s.mu.Lock()
	s.now = s.now.Add(d)
	s.mu.Unlock()
}

type countingRecorder struct {
	hits, misses, unavailable int
}

func (c *countingRecorder) RecordCacheLookup(ev metrics.CacheEvent) error {
	switch {
	case ev.Unavailable:
		c.unavailable++
	case ev.Hit:
		c.hits++
	default:
		c.misses++
	}
	return nil
}

type payload struct {
	Value int `json:"value"`
}

func TestGetOrFetchHitAfterWriteAndMissAfterExpiry(t *testing.T) {
	store := newClockStore()
	rec := &countingRecorder{}
	g := NewGateway(store, WithRecorder(rec))
	ctx := context.Background()
	calls := 0
	fetch := func(context.Context) (payload, error) {
		calls++
		return payload{Value: calls}, nil
	}

	v, cached, err := GetOrFetch(ctx, g, "weather:1:2:metric", time.Minute, false, fetch)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 1, v.Value)

	v, cached, err = GetOrFetch(ctx, g, "weather:1:2:metric", time.Minute, false, fetch)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, v.Value)

	store.advance(time.Minute)
	v, cached, err = GetOrFetch(ctx, g, "weather:1:2:metric", time.Minute, false, fetch)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, v.Value)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 2, rec.misses)
}

func TestGetOrFetchForceRefreshRepopulates(t *testing.T) {
	store := newClockStore()
	g := NewGateway(store)
	ctx := context.Background()
	n := 0
	fetch := func(context.Context) (payload, error) { n++; return payload{Value: n}, nil }

	_, _, err := GetOrFetch(ctx, g, "k", time.Minute, false, fetch)
	require.NoError(t, err)
	v, cached, err := GetOrFetch(ctx, g, "k", time.Minute, true, fetch)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, v.Value)

	v, cached, err = GetOrFetch(ctx, g, "k", time.Minute, false, fetch)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 2, v.Value)
}

func TestGetOrFetchStoreUnavailableBehavesAsMiss(t *testing.T) {
	store := newClockStore()
	store.fail = true
	rec := &countingRecorder{}
	g := NewGateway(store, WithRecorder(rec))
	v, cached, err := GetOrFetch(context.Background(), g, "market:maize:global", time.Minute, false,
		func(context.Context) (payload, error) { return payload{Value: 7}, nil })
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 7, v.Value)
	assert.Equal(t, 2, rec.unavailable)
}

func TestGetOrFetchDoesNotCacheErrors(t *testing.T) {
	store := newClockStore()
	g := NewGateway(store)
	_, _, err := GetOrFetch(context.Background(), g, "k", time.Minute, false,
		func(context.Context) (payload, error) { return payload{}, model.ErrUpstreamUnavailable })
	require.ErrorIs(t, err, model.ErrUpstreamUnavailable)
	assert.Empty(t, store.data)
}

func TestGetOrFetchUndecodableEntryIsRefetched(t *testing.T) {
	store := newClockStore()
	require.NoError(t, store.Set(context.Background(), "k", []byte("{not json"), time.Minute))
	g := NewGateway(store)
	v, cached, err := GetOrFetch(context.Background(), g, "k", time.Minute, false,
		func(context.Context) (payload, error) { return payload{Value: 3}, nil })
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 3, v.Value)
}

func TestNilGatewayAlwaysFetches(t *testing.T) {
	var g *Gateway
	v, cached, err := GetOrFetch(context.Background(), g, "k", time.Minute, false,
		func(context.Context) (payload, error) { return payload{Value: 1}, nil })
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 1, v.Value)
}

func TestTTLBounds(t *testing.T) {
	store := newClockStore()
	g := NewGateway(store, WithTTLBounds(30*time.Second, 10*time.Minute))
	assert.Equal(t, 30*time.Second, g.TTL(time.Second))
	assert.Equal(t, 10*time.Minute, g.TTL(time.Hour))
	assert.Equal(t, 2*time.Minute, g.TTL(2*time.Minute))

	g.Put(context.Background(), "k", payload{}, time.Hour)
	assert.Equal(t, 10*time.Minute, store.lastTTL)
}

func TestInvalidate(t *testing.T) {
	store := newClockStore()
	g := NewGateway(store)
	g.Put(context.Background(), "k", payload{Value: 1}, time.Minute)
	g.Invalidate(context.Background(), "k")
	var p payload
	assert.False(t, g.Lookup(context.Background(), "k", &p))
}

func TestFailedForcedRefreshEvictsEntry(t *testing.T) {
	store := newClockStore()
	g := NewGateway(store)
	g.Put(context.Background(), "k", payload{Value: 1}, time.Minute)

	_, _, err := GetOrFetch(context.Background(), g, "k", time.Minute, true,
		func(context.Context) (payload, error) { return payload{}, model.ErrUpstreamUnavailable })
	require.ErrorIs(t, err, model.ErrUpstreamUnavailable)
	assert.NotContains(t, store.data, "k")

	g.Put(context.Background(), "k", payload{Value: 2}, time.Minute)
	_, _, err = GetOrFetch(context.Background(), g, "k", time.Minute, false,
		func(context.Context) (payload, error) { return payload{}, model.ErrUpstreamUnavailable })
	require.NoError(t, err)
	assert.Contains(t, store.data, "k")
}
