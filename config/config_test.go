package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	path := write(t, "config.yaml", `http:
  addr: ":9000"
  token: "tok"
cache:
  store:
    type: redis
    conf:
      addr: "localhost:6379"
providers:
  weather:
    api_key: "ow-key"
    units: imperial
  market:
    aggregator_url: "http://prices.local"
  fleet:
    use_live: true
    auth:
      client_id: "cid"
      client_secret: "secret"
      auth_url: "http://auth.local/token"
  routing:
    base_url: "http://ors.local"
matcher:
  max_radius_km: 150
  handling_buffer_minutes: 0
session:
  ttl_seconds: 120
decision:
  deadline_ms: 5000
mqtt:
  broker: "tcp://broker:1883"
  client_id: "cli"
telemetry:
  enabled: true
  mode: hybrid
simulator:
  size: 3
  interval: 2s
metrics:
  sinks:
    - type: "prometheus"
booking:
  sinks:
    - type: "nats"
      conf:
        url: "nats://localhost:4222"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"http.addr", cfg.HTTP.Addr, ":9000"},
		{"http.token", cfg.HTTP.Token, "tok"},
		{"cache.store", cfg.Cache.Store.Type, "redis"},
		{"cache.store.addr", cfg.Cache.Store.Conf["addr"], "localhost:6379"},
		{"weather.units", cfg.Providers.Weather.Units, "imperial"},
		{"weather.base_url", cfg.Providers.Weather.BaseURL, "https://api.openweathermap.org"},
		{"market.url", cfg.Providers.Market.AggregatorURL, "http://prices.local"},
		{"fleet.use_live", cfg.Providers.Fleet.UseLive, true},
		{"fleet.auth", cfg.Providers.Fleet.Auth.Enabled(), true},
		{"routing.base_url", cfg.Providers.Routing.BaseURL, "http://ors.local"},
		{"matcher.radius", cfg.Matcher.MaxRadiusKM, 150.0},
		{"matcher.speed", cfg.Matcher.AvgSpeedKMH, 40.0},
		{"matcher.buffer", cfg.Matcher.Options().HandlingBuffer(), 0},
		{"session.ttl", cfg.Session.TTL(), 2 * time.Minute},
		{"session.store", cfg.Session.Store.Type, "memory"},
		{"decision.deadline", cfg.Decision.DeadlineMS, 5000},
		{"decision.product", cfg.Decision.DefaultProduct, "tomatoes"},
		{"mqtt.broker", cfg.MQTT.Broker, "tcp://broker:1883"},
		{"telemetry.mode", cfg.Telemetry.Mode, "hybrid"},
		{"simulator.size", cfg.Simulator.Size, 3},
		{"simulator.interval", cfg.Simulator.Interval, 2 * time.Second},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "prometheus", true},
		{"booking_sink", cfg.Booking.Sinks[0].Type, "nats"},
		{"logging.level", cfg.Logging.Level, "info"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadJSONWithEnvOverride(t *testing.T) {
	path := write(t, "config.json", `{"http":{"addr":":8081"},"providers":{"weather":{"api_key":"file"}}}`)
	t.Setenv("K_PROVIDERS__WEATHER__API_KEY", "env")
	t.Setenv("K_LOGGING__LEVEL", "DEBUG")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.HTTP.Addr)
	assert.Equal(t, "env", cfg.Providers.Weather.APIKey)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("K_HTTP__TOKEN=from-dotenv\n"), 0o600))
	path := write(t, "config.yaml", "http:\n  addr: \":8082\"\n")
	t.Cleanup(func() { _ = os.Unsetenv("K_HTTP__TOKEN") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.HTTP.Token)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(write(t, "config.toml", "x = 1"))
	assert.ErrorContains(t, err, "unsupported config format")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(write(t, "bad.yaml", "decision:\n  deadline_ms: 100\n  provider_timeout_ms: 500\n"))
	assert.ErrorContains(t, err, "decision")

	_, err = Load(write(t, "bad.yaml", "telemetry:\n  mode: carrier-pigeon\n"))
	assert.ErrorContains(t, err, "telemetry")

	_, err = Load(write(t, "bad.yaml", "logging:\n  format: xml\n"))
	assert.ErrorContains(t, err, "logging")

	_, err = Load(write(t, "bad.yaml", "matcher:\n  handling_buffer_minutes: -1\n"))
	assert.ErrorContains(t, err, "handling_buffer_minutes")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "memory", cfg.Cache.Store.Type)
	assert.Equal(t, 5, cfg.Matcher.Options().HandlingBuffer())
	assert.Equal(t, "jsonl", cfg.Booking.Sinks[0].Type)
	assert.Equal(t, 64, cfg.EventBus.Buffer)
	minTTL, maxTTL := cfg.Cache.TTLBounds()
	assert.Equal(t, time.Minute, minTTL)
	assert.Equal(t, 24*time.Hour, maxTTL)
	assert.Equal(t, 10*time.Second, cfg.HTTPClient.Client().Timeout)
	assert.Equal(t, 3*time.Second, cfg.Providers.SourceTimeout())
}
