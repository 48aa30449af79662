// Package market fetches product prices per market. The aggregator is tried
// first; the built-in price board answers when it is down.
package market

import (
	"time"

	"github.com/kilianp07/agriroute/core/cache"
	"github.com/kilianp07/agriroute/core/factory"
	"github.com/kilianp07/agriroute/core/model"
	"github.com/kilianp07/agriroute/core/provider"
	"github.com/kilianp07/agriroute/infra/httpclient"
)

const (
	ConfidenceAggregator = 0.85
	ConfidenceBoard      = 0.5
	DefaultTTL           = 600 * time.Second
	DefaultRadiusKM      = 50
)

// Query asks for prices of Product around Location. A nil Location asks
// for every known market.
type Query struct {
	Product  string          `json:"product"`
	Location *model.Location `json:"location,omitempty"`
	RadiusKM int             `json:"radius_km"`
}

// Key returns the cache key of q.
func (q Query) Key() string { return cache.MarketKey(q.Product, q.Location, q.RadiusKM) }

// Config configures the market chain.
type Config struct {
	AggregatorURL string `json:"aggregator_url"`
	APIKey        string `json:"api_key"`
	Currency      string `json:"currency"`
	RadiusKM      int    `json:"radius_km"`
	TTLSeconds    int    `json:"ttl_seconds"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.Currency == "" {
		c.Currency = "USD"
	}
	if c.RadiusKM <= 0 {
		c.RadiusKM = DefaultRadiusKM
	}
	if c.TTLSeconds <= 0 {
		c.TTLSeconds = int(DefaultTTL / time.Second)
	}
}

// Validate checks the config.
func (c Config) Validate() error { return nil }

// Fetcher is the cached market fetcher.
type Fetcher = provider.Cached[Query, model.MarketReport]

// NewFetcher wires the market chain behind gw.
func NewFetcher(cfg Config, gw *cache.Gateway, hc *httpclient.Client, opts ...provider.ChainOption) (*Fetcher, error) {
	cfg.SetDefaults()
	var sources []provider.Source[Query, model.MarketReport]
	if cfg.AggregatorURL != "" {
		sources = append(sources, NewAggregator(hc, cfg.AggregatorURL, cfg.APIKey))
	}
	sources = append(sources, NewBoard(cfg.Currency))
	chain, err := provider.NewChain("market", sources, opts...)
	if err != nil {
		return nil, err
	}
	return provider.NewCached(gw, chain, factory.Seconds(cfg.TTLSeconds, DefaultTTL), Query.Key), nil
}
