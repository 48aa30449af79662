// Package decision answers direct decision requests. It fans out the
// weather, market and fleet fetches, matches the fleet, scores the result
// and degrades instead of failing when a signal is missing.
package decision

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/agriroute/core/events"
	"github.com/kilianp07/agriroute/core/geo"
	"github.com/kilianp07/agriroute/core/logger"
	"github.com/kilianp07/agriroute/core/metrics"
	"github.com/kilianp07/agriroute/core/model"
	"github.com/kilianp07/agriroute/core/provider"
	"github.com/kilianp07/agriroute/core/scoring"
	"github.com/kilianp07/agriroute/core/spoilage"
	"github.com/kilianp07/agriroute/internal/eventbus"
)

// Signal names used in Meta.Degraded.
const (
	SignalWeather   = "weather"
	SignalMarket    = "market"
	SignalTransport = "transport"
)

// NoCandidateConfidence caps the transport confidence when nothing matched.
const NoCandidateConfidence = 0.3

// Config bounds the engine.
type Config struct {
	DeadlineMS        int    `json:"deadline_ms"`
	ProviderTimeoutMS int    `json:"provider_timeout_ms"`
	DefaultProduct    string `json:"default_product"`
	BatchConcurrency  int    `json:"batch_concurrency"`
	BatchLimit        int    `json:"batch_limit"`
}

// SetDefaults fills missing values.
func (c *Config) SetDefaults() {
	if c.DeadlineMS <= 0 {
		c.DeadlineMS = 8000
	}
	if c.ProviderTimeoutMS <= 0 {
		c.ProviderTimeoutMS = 3000
	}
	if c.DefaultProduct == "" {
		c.DefaultProduct = "tomatoes"
	}
	if c.BatchConcurrency <= 0 {
		c.BatchConcurrency = 4
	}
	if c.BatchLimit <= 0 {
		c.BatchLimit = 50
	}
}

// Validate checks the configured bounds.
func (c Config) Validate() error {
	if c.ProviderTimeoutMS > c.DeadlineMS {
		return errors.New("decision: provider_timeout_ms must not exceed deadline_ms")
	}
	return nil
}

func (c Config) deadline() time.Duration { return time.Duration(c.DeadlineMS) * time.Millisecond }

func (c Config) providerTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutMS) * time.Millisecond
}

// Engine serves decisions. It is safe for concurrent use.
type Engine struct {
	cfg     Config
	signals provider.Signals
	matcher *geo.Matcher
	scorer  scoring.Scorer
	sink    metrics.MetricsSink
	bus     *eventbus.Bus[events.Event]
	log     logger.Logger
	now     func() time.Time
}

// Option customises an Engine.
type Option func(*Engine)

func WithScorer(s scoring.Scorer) Option { return func(e *Engine) { e.scorer = s } }

func WithMetrics(s metrics.MetricsSink) Option { return func(e *Engine) { e.sink = metrics.OrNop(s) } }

func WithBus(b *eventbus.Bus[events.Event]) Option { return func(e *Engine) { e.bus = b } }

func WithLogger(l logger.Logger) Option { return func(e *Engine) { e.log = logger.OrNop(l) } }

// NewEngine returns an engine. cfg zero values take the defaults.
func NewEngine(cfg Config, signals provider.Signals, matcher *geo.Matcher, opts ...Option) (*Engine, error) {
	if signals == nil {
		return nil, errors.New("signals are required")
	}
	if matcher == nil {
		return nil, errors.New("matcher is required")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:     cfg,
		signals: signals,
		matcher: matcher,
		scorer:  scoring.NewMeanScorer(),
		sink:    metrics.NopSink{},
		log:     logger.Nop{},
		now:     time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

type fetched struct {
	weather *provider.Result[model.WeatherReport]
	market  *provider.Result[model.MarketReport]
	fleet   *provider.Result[[]model.Vehicle]
	cached  [3]bool
}

// Decide answers one request. Only a ValidationError is returned as an
// error; upstream failures lower the confidence instead.
func (e *Engine) Decide(ctx context.Context, req Request) (Response, error) {
	start := e.now()
	treq, err := req.Transport()
	if err != nil {
		return Response{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.deadline())
	defer cancel()

	f := e.fanOut(ctx, req)

	var resp Response
	in := scoring.Inputs{}
	if f.weather != nil {
		in.Weather = &f.weather.Data
		in.Confidence.Weather = f.weather.Confidence
		resp.Meta.SourcesUsed = append(resp.Meta.SourcesUsed, f.weather.Source)
	} else {
		resp.Meta.Degraded = append(resp.Meta.Degraded, SignalWeather)
	}
	if f.market != nil {
		in.Market = &f.market.Data
		in.Confidence.Market = f.market.Confidence
		resp.Meta.SourcesUsed = append(resp.Meta.SourcesUsed, f.market.Source)
	} else {
		resp.Meta.Degraded = append(resp.Meta.Degraded, SignalMarket)
	}
	resp.AvailableVehicles = []model.VehicleCandidate{}
	if f.fleet != nil {
		resp.AvailableVehicles = e.matcher.Match(ctx, treq, f.fleet.Data)
		in.FleetKnown = true
		in.Candidates = resp.AvailableVehicles
		in.Confidence.Transport = f.fleet.Confidence
		if len(resp.AvailableVehicles) == 0 {
			in.Confidence.Transport = min(f.fleet.Confidence, NoCandidateConfidence)
		}
		resp.Meta.SourcesUsed = append(resp.Meta.SourcesUsed, f.fleet.Source)
	} else {
		resp.Meta.Degraded = append(resp.Meta.Degraded, SignalTransport)
	}
	if len(resp.AvailableVehicles) > 0 {
		best := resp.AvailableVehicles[0]
		resp.RecommendedVehicle = &best
	}
	if resp.Meta.SourcesUsed == nil {
		resp.Meta.SourcesUsed = []string{}
	}
	resp.Meta.CacheHit = len(resp.Meta.SourcesUsed) > 0 && f.allCached()

	resp.ScoreResult = e.scorer.Score(in)
	resp.SpoilageRisk = e.spoilageRisk(req, in.Weather, resp.RecommendedVehicle)

	e.publish(resp, e.now().Sub(start))
	return resp, nil
}

func (f fetched) allCached() bool {
	present := []bool{f.weather != nil, f.market != nil, f.fleet != nil}
	for i, p := range present {
		if p && !f.cached[i] {
			return false
		}
	}
	return true
}

// fanOut runs the three fetches concurrently, each under the provider
// timeout. A failed fetch leaves its field nil.
func (e *Engine) fanOut(ctx context.Context, req Request) fetched {
	var f fetched
	product := req.Product
	if product == "" {
		product = e.cfg.DefaultProduct
	}
	var g errgroup.Group
	g.Go(func() error {
		pctx, cancel := context.WithTimeout(ctx, e.cfg.providerTimeout())
		defer cancel()
		res, cached, err := e.signals.Weather(pctx, req.Pickup, req.ForceRefresh)
		if err != nil {
			e.log.Warnf("weather signal missing: %v", err)
			return nil
		}
		f.weather, f.cached[0] = &res, cached
		return nil
	})
	g.Go(func() error {
		pctx, cancel := context.WithTimeout(ctx, e.cfg.providerTimeout())
		defer cancel()
		res, cached, err := e.signals.Market(pctx, product, req.Delivery, req.ForceRefresh)
		if err != nil {
			e.log.Warnf("market signal missing: %v", err)
			return nil
		}
		f.market, f.cached[1] = &res, cached
		return nil
	})
	g.Go(func() error {
		pctx, cancel := context.WithTimeout(ctx, e.cfg.providerTimeout())
		defer cancel()
		res, cached, err := e.signals.Fleet(pctx, req.Pickup, req.RequiredCapacityKG, req.ForceRefresh)
		if err != nil {
			e.log.Warnf("transport signal missing: %v", err)
			return nil
		}
		f.fleet, f.cached[2] = &res, cached
		return nil
	})
	_ = g.Wait()
	return f
}

// spoilageRisk covers the wait for the vehicle plus the trip to the
// delivery point when one is given.
func (e *Engine) spoilageRisk(req Request, w *model.WeatherReport, rec *model.VehicleCandidate) float64 {
	product := req.Product
	if product == "" {
		product = e.cfg.DefaultProduct
	}
	minutes := 0
	if rec != nil {
		minutes += rec.ETAMinutes
	}
	if req.Delivery != nil {
		minutes += geo.StraightLineETA(geo.Haversine(req.Pickup, *req.Delivery), e.matcher.Options().AvgSpeedKMH, 0)
	}
	temp, hum := 25.0, 60.0
	if w != nil {
		temp, hum = w.TemperatureC, w.HumidityPct
	}
	return model.Round(spoilage.Risk(product, temp, hum, float64(minutes)/60), 4)
}

func (e *Engine) publish(resp Response, latency time.Duration) {
	vehicleID := ""
	if resp.RecommendedVehicle != nil {
		vehicleID = resp.RecommendedVehicle.Vehicle.ID
	}
	if err := e.sink.RecordDecision(metrics.DecisionEvent{
		Recommendation: resp.Recommendation,
		CombinedScore:  resp.CombinedScore,
		Confidence:     resp.Confidence,
		Candidates:     len(resp.AvailableVehicles),
		CacheHit:       resp.Meta.CacheHit,
		Sources:        resp.Meta.SourcesUsed,
		Degraded:       resp.Meta.Degraded,
		Latency:        latency,
		Time:           e.now(),
	}); err != nil {
		e.log.Warnf("record decision: %v", err)
	}
	if e.bus != nil {
		e.bus.Publish(events.DecisionMade(events.Decision{
			Recommendation: resp.Recommendation,
			CombinedScore:  resp.CombinedScore,
			Confidence:     resp.Confidence,
			VehicleID:      vehicleID,
			Degraded:       resp.Meta.Degraded,
		}))
	}
	e.log.Infow("decision served", map[string]any{
		"recommendation": resp.Recommendation,
		"combined_score": resp.CombinedScore,
		"confidence":     resp.Confidence,
		"candidates":     len(resp.AvailableVehicles),
		"cache_hit":      resp.Meta.CacheHit,
		"latency_ms":     latency.Milliseconds(),
	})
}

// DecideBatch answers several requests concurrently, in input order. A
// request failing validation yields an item with Error set.
func (e *Engine) DecideBatch(ctx context.Context, reqs []Request) ([]BatchItem, error) {
	if len(reqs) == 0 {
		return nil, model.NewValidationError("requests", "must not be empty")
	}
	if len(reqs) > e.cfg.BatchLimit {
		return nil, model.NewValidationError("requests", "too many requests in batch")
	}
	out := make([]BatchItem, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.BatchConcurrency)
	for i, r := range reqs {
		g.Go(func() error {
			resp, err := e.Decide(gctx, r)
			if err != nil {
				out[i] = BatchItem{Error: err.Error()}
				return nil
			}
			out[i] = BatchItem{Response: &resp}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
