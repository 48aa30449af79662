package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corecache "github.com/kilianp07/agriroute/core/cache"
)

func TestMemoryStoreRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(MemoryConfig{Cleanup: time.Hour})
	defer func() { _ = s.Close() }()

	val := []byte(`{"a":1}`)
	require.NoError(t, s.Set(ctx, "k", val, 30*time.Millisecond))
	val[0] = 'x'

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(got))

	time.Sleep(60 * time.Millisecond)
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(MemoryConfig{})
	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	assert.Equal(t, 1, s.Len())
	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, _ := s.Get(ctx, "k")
	assert.False(t, ok)
}

func TestGatewayOverMemoryStore(t *testing.T) {
	ctx := context.Background()
	gw := corecache.NewGateway(NewMemoryStore(MemoryConfig{}))
	calls := 0
	fetch := func(context.Context) (int, error) {
		calls++
		return 42, nil
	}
	v, cached, err := corecache.GetOrFetch(ctx, gw, "weather:-17.829:31.052:metric", time.Minute, false, fetch)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 42, v)

	v, cached, err = corecache.GetOrFetch(ctx, gw, "weather:-17.829:31.052:metric", time.Minute, false, fetch)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
}

func TestRegistryBuildsStores(t *testing.T) {
	assert.Equal(t, []string{"memory", "redis"}, Registry.Names())
	s, err := Registry.Create(factoryConfig("memory", map[string]any{"default_ttl": "1m", "cleanup_interval": "30s"}))
	require.NoError(t, err)
	_, ok := s.(*MemoryStore)
	assert.True(t, ok)

	_, err = Registry.Create(factoryConfig("redis", map[string]any{}))
	assert.Error(t, err)
	_, err = Registry.Create(factoryConfig("memcached", nil))
	assert.Error(t, err)
}
