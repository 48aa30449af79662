package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/agriroute/core/events"
	"github.com/kilianp07/agriroute/core/geo"
	"github.com/kilianp07/agriroute/core/metrics"
	"github.com/kilianp07/agriroute/core/model"
	"github.com/kilianp07/agriroute/core/provider"
	"github.com/kilianp07/agriroute/internal/eventbus"
)

var pickup = model.Location{Lat: -17.8292, Lon: 31.0522, Name: "Harare"}

type signals struct {
	weather     model.WeatherReport
	weatherErr  error
	weatherWait time.Duration
	market      model.MarketReport
	marketErr   error
	fleet       []model.Vehicle
	fleetErr    error
	cached      bool

	mu      sync.Mutex
	product string
	forced  bool
}

func (s *signals) Weather(ctx context.Context, loc model.Location, force bool) (provider.Result[model.WeatherReport], bool, error) {
	s.mu.Lock()
	s.forced = force
	s.mu.Unlock()
	if s.weatherWait > 0 {
		select {
		case <-time.After(s.weatherWait):
		case <-ctx.Done():
			return provider.Result[model.WeatherReport]{}, false, fmt.Errorf("weather: %w", model.ErrUpstreamUnavailable)
		}
	}
	if s.weatherErr != nil {
		return provider.Result[model.WeatherReport]{}, false, s.weatherErr
	}
	return provider.Result[model.WeatherReport]{Data: s.weather, Source: "openweathermap", Confidence: 0.9}, s.cached, nil
}

func (s *signals) Market(_ context.Context, product string, _ *model.Location, _ bool) (provider.Result[model.MarketReport], bool, error) {
	s.mu.Lock()
	s.product = product
	s.mu.Unlock()
	if s.marketErr != nil {
		return provider.Result[model.MarketReport]{}, false, s.marketErr
	}
	return provider.Result[model.MarketReport]{Data: s.market, Source: "price-board", Confidence: 0.5}, s.cached, nil
}

func (s *signals) Fleet(_ context.Context, _ model.Location, _ float64, _ bool) (provider.Result[[]model.Vehicle], bool, error) {
	if s.fleetErr != nil {
		return provider.Result[[]model.Vehicle]{}, false, s.fleetErr
	}
	return provider.Result[[]model.Vehicle]{Data: s.fleet, Source: "mock-fleet", Confidence: 0.9}, s.cached, nil
}

func truck(id string, lat, lon, capacity float64, refrigerated bool) model.Vehicle {
	return model.Vehicle{
		ID: id, Location: model.Location{Lat: lat, Lon: lon}, CapacityKG: capacity,
		Status: model.StatusAvailable, Type: model.TypeGeneralTruck,
		Features: model.Features{Refrigerated: refrigerated},
	}
}

func healthy() *signals {
	return &signals{
		weather: model.WeatherReport{TemperatureC: 24, HumidityPct: 55, Condition: "Clear"},
		market: model.NewMarketReport("tomatoes", []model.MarketQuote{
			{Market: "Mbare", PriceLocal: 2.5}, {Market: "Sakubva", PriceLocal: 2.0},
		}),
		fleet: []model.Vehicle{
			truck("far", -17.95, 31.10, 2000, true),
			truck("near", -17.83, 31.06, 2000, true),
		},
	}
}

func request() Request {
	return Request{Pickup: pickup, RequiredCapacityKG: 500, Perishable: true, MaxWaitMinutes: 120}
}

type decisions struct {
	mu     sync.Mutex
	events []metrics.DecisionEvent
}

func (d *decisions) RecordDecision(ev metrics.DecisionEvent) error {
	d.mu.Lock()
	d.events = append(d.events, ev)
	d.mu.Unlock()
	return nil
}

func newEngine(t *testing.T, s *signals, cfg Config, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, s, geo.NewMatcher(geo.Options{}), opts...)
	require.NoError(t, err)
	return e
}

func TestDecideAllSignalsHealthy(t *testing.T) {
	s := healthy()
	rec := &decisions{}
	bus := eventbus.New[events.Event](2)
	sub := bus.Subscribe()
	e := newEngine(t, s, Config{}, WithMetrics(rec), WithBus(bus))

	resp, err := e.Decide(context.Background(), request())
	require.NoError(t, err)

	assert.Equal(t, 1.0, resp.WeatherScore)
	assert.Equal(t, 1.0, resp.MarketScore)
	assert.Equal(t, 1.0, resp.TransportScore)
	assert.Equal(t, 1.0, resp.CombinedScore)
	assert.Equal(t, model.RecommendProceedNow, resp.Recommendation)
	require.NotNil(t, resp.RecommendedVehicle)
	assert.Equal(t, "near", resp.RecommendedVehicle.Vehicle.ID)
	assert.Len(t, resp.AvailableVehicles, 2)
	assert.Equal(t, []string{"openweathermap", "price-board", "mock-fleet"}, resp.Meta.SourcesUsed)
	assert.Empty(t, resp.Meta.Degraded)
	assert.False(t, resp.Meta.CacheHit)
	assert.Equal(t, "tomatoes", s.product)
	assert.Greater(t, resp.SpoilageRisk, 0.0)

	require.Len(t, rec.events, 1)
	assert.Equal(t, 2, rec.events[0].Candidates)
	ev := <-sub
	assert.Equal(t, events.KindDecisionMade, ev.Kind)
	assert.Equal(t, "near", ev.Decision.VehicleID)
}

func TestDecideDegradedScenario(t *testing.T) {
	s := healthy()
	s.weather.Condition = "Heavy Rain"
	s.marketErr = fmt.Errorf("market: %w", model.ErrUpstreamUnavailable)
	s.fleet = nil
	e := newEngine(t, s, Config{})

	resp, err := e.Decide(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, 0.5, resp.WeatherScore)
	assert.Equal(t, 0.0, resp.MarketScore)
	assert.Equal(t, 0.2, resp.TransportScore)
	assert.InDelta(t, 0.2333, resp.CombinedScore, 1e-3)
	assert.Equal(t, model.RecommendDelay, resp.Recommendation)
	assert.Nil(t, resp.RecommendedVehicle)
	assert.Empty(t, resp.AvailableVehicles)
	assert.Equal(t, []string{SignalMarket}, resp.Meta.Degraded)
	// weather 0.9, market missing 0, transport capped at 0.3
	assert.InDelta(t, 0.4, resp.Confidence, 1e-9)
}

func TestDecideAllUpstreamsDownStillAnswers(t *testing.T) {
	s := &signals{
		weatherErr: model.ErrUpstreamUnavailable,
		marketErr:  model.ErrUpstreamUnavailable,
		fleetErr:   model.ErrUpstreamUnavailable,
	}
	e := newEngine(t, s, Config{})
	resp, err := e.Decide(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, []string{SignalWeather, SignalMarket, SignalTransport}, resp.Meta.Degraded)
	assert.Equal(t, []string{}, resp.Meta.SourcesUsed)
	assert.False(t, resp.Meta.CacheHit)
	assert.Equal(t, 0.0, resp.Confidence)
	assert.InDelta(t, 0.2333, resp.CombinedScore, 1e-3)
}

func TestDecideCacheHitOnlyWhenEverySignalCached(t *testing.T) {
	s := healthy()
	s.cached = true
	e := newEngine(t, s, Config{})
	resp, err := e.Decide(context.Background(), request())
	require.NoError(t, err)
	assert.True(t, resp.Meta.CacheHit)
}

func TestDecideSlowProviderBoundedByTimeout(t *testing.T) {
	s := healthy()
	s.weatherWait = time.Second
	e := newEngine(t, s, Config{ProviderTimeoutMS: 30, DeadlineMS: 200})

	start := time.Now()
	resp, err := e.Decide(context.Background(), request())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, []string{SignalWeather}, resp.Meta.Degraded)
	assert.Equal(t, 0.5, resp.WeatherScore)
	require.NotNil(t, resp.RecommendedVehicle)
}

func TestDecideRejectsInvalidRequest(t *testing.T) {
	e := newEngine(t, healthy(), Config{})
	r := request()
	r.RequiredCapacityKG = 0
	_, err := e.Decide(context.Background(), r)
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "required_capacity_kg", ve.Field)
}

func TestDecideForceRefreshAndProduct(t *testing.T) {
	s := healthy()
	e := newEngine(t, s, Config{DefaultProduct: "maize"})
	r := request()
	r.ForceRefresh = true
	_, err := e.Decide(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, s.forced)
	assert.Equal(t, "maize", s.product)

	r.Product = "potatoes"
	_, err = e.Decide(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "potatoes", s.product)
}

func TestResponseJSONShape(t *testing.T) {
	e := newEngine(t, healthy(), Config{})
	resp, err := e.Decide(context.Background(), request())
	require.NoError(t, err)
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	for _, k := range []string{"available_vehicles", "recommended_vehicle", "weather_score", "market_score",
		"transport_score", "combined_score", "recommendation", "confidence", "spoilage_risk", "meta"} {
		assert.Contains(t, m, k)
	}
	meta := m["meta"].(map[string]any)
	assert.Contains(t, meta, "cache_hit")
	assert.Contains(t, meta, "sources_used")
}

func TestDecideBatch(t *testing.T) {
	e := newEngine(t, healthy(), Config{BatchConcurrency: 2})
	bad := request()
	bad.MaxWaitMinutes = 0
	items, err := e.DecideBatch(context.Background(), []Request{request(), bad, request()})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.NotNil(t, items[0].Response)
	assert.Contains(t, items[1].Error, "max_wait_minutes")
	assert.NotNil(t, items[2].Response)

	_, err = e.DecideBatch(context.Background(), nil)
	assert.True(t, model.IsValidation(err))
}

func TestConfigValidate(t *testing.T) {
	c := Config{DeadlineMS: 100, ProviderTimeoutMS: 500}
	assert.Error(t, c.Validate())
	_, err := NewEngine(c, healthy(), geo.NewMatcher(geo.Options{}))
	assert.Error(t, err)
	_, err = NewEngine(Config{}, nil, geo.NewMatcher(geo.Options{}))
	assert.Error(t, err)
}
