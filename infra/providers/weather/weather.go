// Package weather fetches current weather through the cache gateway, trying
// OpenWeather first, then an optional secondary gateway and finally a
// seeded regional generator that never fails.
package weather

import (
	"fmt"
	"time"

	"github.com/kilianp07/agriroute/core/cache"
	"github.com/kilianp07/agriroute/core/factory"
	"github.com/kilianp07/agriroute/core/model"
	"github.com/kilianp07/agriroute/core/provider"
	"github.com/kilianp07/agriroute/infra/httpclient"
)

// Source confidences.
const (
	ConfidenceOpenWeather = 0.9
	ConfidenceSecondary   = 0.7
	ConfidenceSynthetic   = 0.4
)

// DefaultTTL is how long a weather answer stays fresh.
const DefaultTTL = 300 * time.Second

// Query asks for the weather at a location.
type Query struct {
	Location model.Location
	Units    string
}

// Key returns the cache key of q.
func (q Query) Key() string { return cache.WeatherKey(q.Location, q.Units) }

// Config configures the weather chain.
type Config struct {
	BaseURL       string `json:"base_url"`
	APIKey        string `json:"api_key"`
	Units         string `json:"units"`
	SecondaryURL  string `json:"secondary_url"`
	TTLSeconds    int    `json:"ttl_seconds"`
	Seed          int64  `json:"seed"`
	WindowSeconds int    `json:"window_seconds"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openweathermap.org"
	}
	if c.Units == "" {
		c.Units = "metric"
	}
	if c.TTLSeconds <= 0 {
		c.TTLSeconds = int(DefaultTTL / time.Second)
	}
	if c.WindowSeconds <= 0 {
		c.WindowSeconds = 600
	}
}

// Validate checks the config.
func (c Config) Validate() error {
	switch c.Units {
	case "metric", "imperial", "standard":
		return nil
	default:
		return fmt.Errorf("weather: unsupported units %q", c.Units)
	}
}

// Fetcher is the cached weather fetcher.
type Fetcher = provider.Cached[Query, model.WeatherReport]

// Sources builds the chain sources in priority order. The upstreams are
// only included when configured.
func Sources(cfg Config, hc *httpclient.Client) []provider.Source[Query, model.WeatherReport] {
	var out []provider.Source[Query, model.WeatherReport]
	if cfg.APIKey != "" {
		out = append(out, NewOpenWeather(hc, cfg.BaseURL, cfg.APIKey))
	}
	if cfg.SecondaryURL != "" {
		out = append(out, NewGateway(hc, cfg.SecondaryURL))
	}
	return append(out, NewSynthetic(cfg.Seed, factory.Seconds(cfg.WindowSeconds, 10*time.Minute)))
}

// NewFetcher wires the weather chain behind gw.
func NewFetcher(cfg Config, gw *cache.Gateway, hc *httpclient.Client, opts ...provider.ChainOption) (*Fetcher, error) {
	cfg.SetDefaults()
	chain, err := provider.NewChain("weather", Sources(cfg, hc), opts...)
	if err != nil {
		return nil, err
	}
	ttl := factory.Seconds(cfg.TTLSeconds, DefaultTTL)
	return provider.NewCached(gw, chain, ttl, Query.Key), nil
}
