package provider

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/agriroute/core/cache"
)

type mapStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *mapStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapStore) Set(_ context.Context, key string, v []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = v
	return nil
}

func (m *mapStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mapStore) Close() error { return nil }

func TestCachedServesSecondCallFromCache(t *testing.T) {
	store := &mapStore{data: map[string][]byte{}}
	up := &stub{name: "api", conf: 0.9}
	chain, err := NewChain[string, string]("weather", []Source[string, string]{up})
	require.NoError(t, err)
	f := NewCached(cache.NewGateway(store), chain, time.Minute, func(q string) string { return "weather:" + q })

	res, cached, err := f.Get(context.Background(), "harare", false)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "api", res.Source)

	res, cached, err = f.Get(context.Background(), "harare", false)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "api:harare", res.Data)
	assert.Equal(t, 0.9, res.Confidence)
	assert.Equal(t, 1, up.calls)

	_, cached, err = f.Get(context.Background(), "harare", true)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, up.calls)
}

func TestCachedDoesNotStoreLocalAnswers(t *testing.T) {
	store := &mapStore{data: map[string][]byte{}}
	down := &stub{name: "api", err: errors.New("boom")}
	synth := &stub{name: "synthetic", conf: 0.4, local: true}
	chain, err := NewChain[string, string]("weather", []Source[string, string]{down, synth})
	require.NoError(t, err)
	f := NewCached(cache.NewGateway(store), chain, time.Minute, func(q string) string { return q })

	res, cached, err := f.Get(context.Background(), "k", false)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.True(t, res.Local)
	assert.Empty(t, store.data)
}
