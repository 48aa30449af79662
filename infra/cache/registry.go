package cache

import (
	"context"

	corecache "github.com/kilianp07/agriroute/core/cache"
	"github.com/kilianp07/agriroute/core/factory"
)

// Registry holds the store factories. Built-ins: memory, redis.
var Registry = factory.NewRegistry[corecache.Store]()

func init() {
	_ = Registry.Register("memory", func(conf map[string]any) (corecache.Store, error) {
		var cfg MemoryConfig
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, err
		}
		return NewMemoryStore(cfg), nil
	})
	_ = Registry.Register("redis", func(conf map[string]any) (corecache.Store, error) {
		var cfg RedisConfig
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, err
		}
		return NewRedisStore(context.Background(), cfg)
	})
}

// New creates the store described by mc.
func New(mc factory.ModuleConfig) (corecache.Store, error) {
	return Registry.Create(mc)
}
