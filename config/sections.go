package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/agriroute/core/factory"
	"github.com/kilianp07/agriroute/core/geo"
	"github.com/kilianp07/agriroute/core/session"
	"github.com/kilianp07/agriroute/infra/httpclient"
	"github.com/kilianp07/agriroute/infra/providers/fleet"
	"github.com/kilianp07/agriroute/infra/providers/market"
	"github.com/kilianp07/agriroute/infra/providers/routing"
	"github.com/kilianp07/agriroute/infra/providers/weather"
)

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	// Level is a zerolog level name.
	Level string `json:"level"`
	// Format is "json" or "console".
	Format string `json:"format"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "json"
	}
	c.Level = strings.ToLower(c.Level)
	c.Format = strings.ToLower(c.Format)
}

// Validate checks mandatory fields.
func (c LoggingConfig) Validate() error {
	switch c.Level {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("unknown level %s", c.Level)
	}
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("unknown format %s", c.Format)
	}
	return nil
}

// CacheConfig selects the signal cache backend.
type CacheConfig struct {
	Store         factory.ModuleConfig `json:"store"`
	MinTTLSeconds int                  `json:"min_ttl_seconds"`
	MaxTTLSeconds int                  `json:"max_ttl_seconds"`
}

func (c *CacheConfig) SetDefaults() {
	if c.Store.Type == "" {
		c.Store.Type = "memory"
	}
	if c.MinTTLSeconds <= 0 {
		c.MinTTLSeconds = 60
	}
	if c.MaxTTLSeconds <= 0 {
		c.MaxTTLSeconds = 24 * 3600
	}
}

func (c CacheConfig) Validate() error {
	if c.MinTTLSeconds > c.MaxTTLSeconds {
		return errors.New("min_ttl_seconds must not exceed max_ttl_seconds")
	}
	return nil
}

// TTLBounds returns the clamp applied to every cache write.
func (c CacheConfig) TTLBounds() (time.Duration, time.Duration) {
	return time.Duration(c.MinTTLSeconds) * time.Second, time.Duration(c.MaxTTLSeconds) * time.Second
}

// HTTPClientConfig tunes outbound calls to the providers.
type HTTPClientConfig struct {
	TimeoutMS int `json:"timeout_ms"`
	Retries   int `json:"retries"`
	BackoffMS int `json:"backoff_ms"`
}

func (c *HTTPClientConfig) SetDefaults() {
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 10000
	}
	if c.Retries <= 0 {
		c.Retries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 500
	}
}

// Client returns the httpclient settings.
func (c HTTPClientConfig) Client() httpclient.Config {
	return httpclient.Config{
		Timeout:     time.Duration(c.TimeoutMS) * time.Millisecond,
		Retries:     c.Retries,
		BackoffBase: time.Duration(c.BackoffMS) * time.Millisecond,
	}
}

// ProvidersConfig groups the upstream signal sources.
type ProvidersConfig struct {
	Weather weather.Config `json:"weather"`
	Market  market.Config  `json:"market"`
	Fleet   fleet.Config   `json:"fleet"`
	Routing routing.Config `json:"routing"`
	// SourceTimeoutMS bounds each source attempt inside a chain.
	SourceTimeoutMS int `json:"source_timeout_ms"`
}

func (c *ProvidersConfig) SetDefaults() {
	c.Weather.SetDefaults()
	c.Market.SetDefaults()
	c.Fleet.SetDefaults()
	c.Routing.SetDefaults()
	if c.SourceTimeoutMS <= 0 {
		c.SourceTimeoutMS = 3000
	}
}

func (c ProvidersConfig) Validate() error {
	return errors.Join(c.Weather.Validate(), c.Market.Validate())
}

// SourceTimeout is the per source attempt bound.
func (c ProvidersConfig) SourceTimeout() time.Duration {
	return time.Duration(c.SourceTimeoutMS) * time.Millisecond
}

// MatcherConfig tunes the proximity matcher.
type MatcherConfig struct {
	MaxRadiusKM       float64 `json:"max_radius_km"`
	AvgSpeedKMH       float64 `json:"avg_speed_kmh"`
	HandlingBufferMin *int    `json:"handling_buffer_minutes"`
}

func (c *MatcherConfig) SetDefaults() {
	if c.MaxRadiusKM <= 0 {
		c.MaxRadiusKM = geo.DefaultMaxRadiusKM
	}
	if c.AvgSpeedKMH <= 0 {
		c.AvgSpeedKMH = geo.DefaultAvgSpeedKMH
	}
	if c.HandlingBufferMin == nil {
		c.HandlingBufferMin = geo.Minutes(geo.DefaultHandlingBuffer)
	}
}

func (c MatcherConfig) Validate() error {
	if c.HandlingBufferMin != nil && *c.HandlingBufferMin < 0 {
		return fmt.Errorf("handling_buffer_minutes must not be negative")
	}
	if c.MaxRadiusKM > 20000 {
		return fmt.Errorf("max_radius_km %v exceeds half the earth circumference", c.MaxRadiusKM)
	}
	return nil
}

// Options returns the matcher options.
func (c MatcherConfig) Options() geo.Options {
	return geo.Options{MaxRadiusKM: c.MaxRadiusKM, AvgSpeedKMH: c.AvgSpeedKMH, HandlingBufferMin: c.HandlingBufferMin}
}

// ScoringConfig overrides the adverse weather terms. Empty keeps the
// built-in list.
type ScoringConfig struct {
	AdverseTerms []string `json:"adverse_terms"`
}

// SessionConfig configures the conversational channel.
type SessionConfig struct {
	// Store is a cache backend (memory or redis) holding session records.
	Store          factory.ModuleConfig `json:"store"`
	TTLSeconds     int                  `json:"ttl_seconds"`
	MaxWaitMinutes int                  `json:"max_wait_minutes"`
}

func (c *SessionConfig) SetDefaults() {
	if c.Store.Type == "" {
		c.Store.Type = "memory"
	}
	if c.TTLSeconds <= 0 {
		c.TTLSeconds = int(session.DefaultTTL / time.Second)
	}
	if c.MaxWaitMinutes <= 0 {
		c.MaxWaitMinutes = session.DefaultMaxWait
	}
}

func (c SessionConfig) Validate() error {
	if c.TTLSeconds < 30 {
		return fmt.Errorf("ttl_seconds %d is too short for a USSD session", c.TTLSeconds)
	}
	return nil
}

// TTL is the inactivity timeout.
func (c SessionConfig) TTL() time.Duration { return time.Duration(c.TTLSeconds) * time.Second }

// BookingConfig lists the hand-off sinks. An empty list keeps bookings in
// a local JSONL ledger.
type BookingConfig struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}

func (c *BookingConfig) SetDefaults() {
	if len(c.Sinks) == 0 {
		c.Sinks = []factory.ModuleConfig{{Type: "jsonl"}}
	}
}

// EventBusConfig sizes the in-process event bus.
type EventBusConfig struct {
	Buffer int `json:"buffer"`
}

func (c *EventBusConfig) SetDefaults() {
	if c.Buffer <= 0 {
		c.Buffer = 64
	}
}
