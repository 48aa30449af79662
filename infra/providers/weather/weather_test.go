package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/agriroute/core/cache"
	"github.com/kilianp07/agriroute/core/model"
	infracache "github.com/kilianp07/agriroute/infra/cache"
	"github.com/kilianp07/agriroute/infra/httpclient"
)

var harare = model.Location{Lat: -17.8292, Lon: 31.0522}

func testClient() *httpclient.Client {
	return httpclient.New(httpclient.Config{Timeout: time.Second, BackoffBase: time.Millisecond}, nil)
}

const owBody = `{"name":"Harare","main":{"temp":24.3,"feels_like":23.9,"humidity":48},
"wind":{"speed":3.2},"weather":[{"main":"Clouds","description":"scattered clouds"}],"clouds":{"all":40}}`

func TestOpenWeatherMapsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		assert.Equal(t, "k3y", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "-17.8292", r.URL.Query().Get("lat"))
		_, _ = w.Write([]byte(owBody))
	}))
	defer srv.Close()

	rep, conf, err := NewOpenWeather(testClient(), srv.URL+"/", "k3y").Fetch(context.Background(), Query{Location: harare})
	require.NoError(t, err)
	assert.Equal(t, ConfidenceOpenWeather, conf)
	assert.Equal(t, 24.3, rep.TemperatureC)
	assert.Equal(t, 48.0, rep.HumidityPct)
	assert.Equal(t, "scattered clouds", rep.Condition)
	assert.Equal(t, 20.0, rep.RainProbabilityPct)
	assert.Equal(t, "Harare", rep.Location.Name)
}

func TestRainProbability(t *testing.T) {
	var r owResponse
	r.Rain = &struct {
		OneHour float64 `json:"1h"`
	}{OneHour: 1.2}
	assert.Equal(t, 80.0, rainProbability(r))

	r = owResponse{}
	r.Weather = append(r.Weather, struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	}{Main: "Thunderstorm", Description: "thunderstorm with rain"})
	assert.Equal(t, 70.0, rainProbability(r))
}

func TestGatewaySource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		_, _ = w.Write([]byte(`{"temperature_c":19,"humidity_pct":70,"condition":"light rain","rain_probability_pct":60}`))
	}))
	defer srv.Close()
	rep, conf, err := NewGateway(testClient(), srv.URL).Fetch(context.Background(), Query{Location: harare})
	require.NoError(t, err)
	assert.Equal(t, ConfidenceSecondary, conf)
	assert.Equal(t, "light rain", rep.Condition)
	assert.Equal(t, harare, rep.Location)
}

func TestSyntheticDeterministicPerWindow(t *testing.T) {
	s := NewSynthetic(42, time.Hour)
	now := time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	a := s.Generate(Query{Location: harare})
	now = now.Add(10 * time.Minute)
	b := s.Generate(Query{Location: harare})
	assert.Equal(t, a, b)

	same := NewSynthetic(42, time.Hour)
	same.now = s.now
	assert.Equal(t, a, same.Generate(Query{Location: harare}))
	assert.Equal(t, "Harare", a.Location.Name)
	assert.InDelta(t, 25, a.TemperatureC, 3.01)
	assert.Equal(t, 30.0, a.RainProbabilityPct)
	assert.Contains(t, []string{"Sunny", "Partly Cloudy", "Clear", "Light Rain", "Thunderstorms"}, a.Condition)
}

func TestRegionForNearest(t *testing.T) {
	assert.Equal(t, "Mutare", RegionFor(model.Location{Lat: -18.9, Lon: 32.6}).Location.Name)
	// Kadoma is closest to Gweru among the tabulated regions
	assert.Equal(t, "Gweru", RegionFor(model.Location{Lat: -18.3333, Lon: 29.9167}).Location.Name)
}

func TestFetcherFallsBackAndCachesOnlyUpstream(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(owBody))
	}))
	defer srv.Close()

	gw := cache.NewGateway(infracache.NewMemoryStore(infracache.MemoryConfig{}))
	f, err := NewFetcher(Config{BaseURL: srv.URL, APIKey: "k"}, gw, testClient())
	require.NoError(t, err)
	assert.Equal(t, []string{"openweathermap", "synthetic"}, f.Chain().Sources())

	q := Query{Location: harare}
	res, cached, err := f.Get(context.Background(), q, false)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "synthetic", res.Source)
	assert.Equal(t, ConfidenceSynthetic, res.Confidence)

	fail.Store(false)
	res, cached, err = f.Get(context.Background(), q, false)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "openweathermap", res.Source)

	res, cached, err = f.Get(context.Background(), q, false)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 24.3, res.Data.TemperatureC)
}

func TestConfig(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.NoError(t, c.Validate())
	assert.Equal(t, 300, c.TTLSeconds)
	c.Units = "kelvin"
	assert.Error(t, c.Validate())
}
