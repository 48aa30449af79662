// Package fleet provides the vehicle snapshot used by the matcher: a
// telematics API first, then the live MQTT fed store, then a mock fleet.
package fleet

import (
	"time"

	"github.com/kilianp07/agriroute/auth"
	"github.com/kilianp07/agriroute/core/cache"
	"github.com/kilianp07/agriroute/core/factory"
	corefleet "github.com/kilianp07/agriroute/core/fleet"
	"github.com/kilianp07/agriroute/core/model"
	"github.com/kilianp07/agriroute/core/provider"
	"github.com/kilianp07/agriroute/infra/httpclient"
)

const (
	ConfidenceTelematics = 0.9
	ConfidenceLive       = 0.8
	ConfidenceMock       = 0.5
	DefaultTTL           = 120 * time.Second
)

// Query scopes a fleet lookup. Sources return the whole fleet; the fields
// only scope the cache entry.
type Query struct {
	Pickup     model.Location
	CapacityKG float64
}

// Key returns the cache key of q.
func (q Query) Key() string { return cache.TransportKey(q.Pickup, q.CapacityKG) }

// Config configures the fleet chain.
type Config struct {
	TelematicsURL string    `json:"telematics_url"`
	APIKey        string    `json:"api_key"`
	Auth          auth.Conf `json:"auth"`
	UseLive       bool      `json:"use_live"`
	UseMock       bool      `json:"use_mock"`
	TTLSeconds    int       `json:"ttl_seconds"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.TTLSeconds <= 0 {
		c.TTLSeconds = int(DefaultTTL / time.Second)
	}
}

// Fetcher is the cached fleet fetcher.
type Fetcher = provider.Cached[Query, []model.Vehicle]

// NewFetcher wires the fleet chain. store may be nil when live ingestion
// is disabled. With no source configured the mock fleet is used.
func NewFetcher(cfg Config, gw *cache.Gateway, hc *httpclient.Client, store *corefleet.Store, opts ...provider.ChainOption) (*Fetcher, error) {
	cfg.SetDefaults()
	var sources []provider.Source[Query, []model.Vehicle]
	if cfg.TelematicsURL != "" {
		tel := NewTelematics(hc, cfg.TelematicsURL, cfg.APIKey)
		if cfg.Auth.Enabled() {
			tel.WithAuth(auth.NewClientCred(cfg.Auth))
		}
		sources = append(sources, tel)
	}
	if cfg.UseLive && store != nil {
		sources = append(sources, NewLive(store))
	}
	if cfg.UseMock || len(sources) == 0 {
		sources = append(sources, NewMock())
	}
	chain, err := provider.NewChain("transport", sources, opts...)
	if err != nil {
		return nil, err
	}
	return provider.NewCached(gw, chain, factory.Seconds(cfg.TTLSeconds, DefaultTTL), Query.Key), nil
}
