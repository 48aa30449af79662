// Package config loads the service configuration from a YAML or JSON file
// with K_ prefixed environment overrides. Nested keys use a double
// underscore: K_PROVIDERS__WEATHER__API_KEY sets providers.weather.api_key.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/agriroute/api"
	"github.com/kilianp07/agriroute/core/decision"
	"github.com/kilianp07/agriroute/core/metrics"
	"github.com/kilianp07/agriroute/infra/mqtt"
	"github.com/kilianp07/agriroute/infra/telemetry"
	"github.com/kilianp07/agriroute/simulator"
)

// EnvPrefix marks environment overrides.
const EnvPrefix = "K_"

type Config struct {
	HTTP       api.Config       `json:"http"`
	Logging    LoggingConfig    `json:"logging"`
	Cache      CacheConfig      `json:"cache"`
	HTTPClient HTTPClientConfig `json:"httpclient"`
	Providers  ProvidersConfig  `json:"providers"`
	Matcher    MatcherConfig    `json:"matcher"`
	Scoring    ScoringConfig    `json:"scoring"`
	Session    SessionConfig    `json:"session"`
	Decision   decision.Config  `json:"decision"`
	MQTT       mqtt.Config      `json:"mqtt"`
	Telemetry  telemetry.Config `json:"telemetry"`
	Simulator  simulator.Config `json:"simulator"`
	Metrics    metrics.Config   `json:"metrics"`
	Booking    BookingConfig    `json:"booking"`
	EventBus   EventBusConfig   `json:"eventbus"`
}

// Load reads path, applies environment overrides, fills defaults and
// validates. A .env file next to the working directory is loaded first
// when present; variables already set win.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Default returns a configuration with every default applied, for commands
// run without a config file.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.HTTP.SetDefaults()
	c.Logging.SetDefaults()
	c.Cache.SetDefaults()
	c.HTTPClient.SetDefaults()
	c.Providers.SetDefaults()
	c.Matcher.SetDefaults()
	c.Session.SetDefaults()
	c.Decision.SetDefaults()
	c.MQTT.SetDefaults()
	c.Telemetry.SetDefaults()
	c.Simulator.SetDefaults()
	c.Booking.SetDefaults()
	c.EventBus.SetDefaults()
}

// Validate checks every section and joins the failures.
func (c Config) Validate() error {
	var errs []error
	add := func(section string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", section, err))
		}
	}
	add("http", c.HTTP.Validate())
	add("logging", c.Logging.Validate())
	add("cache", c.Cache.Validate())
	add("providers", c.Providers.Validate())
	add("matcher", c.Matcher.Validate())
	add("session", c.Session.Validate())
	add("decision", c.Decision.Validate())
	add("mqtt", c.MQTT.Validate())
	add("telemetry", c.Telemetry.Validate())
	add("simulator", c.Simulator.Validate())
	return errors.Join(errs...)
}
