package geo

import (
	"context"
	"sort"

	"github.com/kilianp07/agriroute/core/logger"
	"github.com/kilianp07/agriroute/core/model"
)

const (
	DefaultMaxRadiusKM    = 200.0
	DefaultAvgSpeedKMH    = 40.0
	DefaultHandlingBuffer = 5
)

// Route is a routed travel estimate between two points.
type Route struct {
	DistanceKM      float64 `json:"distance_km"`
	DurationMinutes int     `json:"duration_minutes"`
	Source          string  `json:"source"`
}

// RouteEstimator answers road travel estimates. Implementations may fail;
// the matcher then uses the straight-line formula.
type RouteEstimator interface {
	Estimate(ctx context.Context, from, to model.Location) (Route, error)
}

// Options tunes the matcher. A nil HandlingBufferMin applies
// DefaultHandlingBuffer; an explicit zero disables the buffer.
type Options struct {
	MaxRadiusKM       float64
	AvgSpeedKMH       float64
	HandlingBufferMin *int
}

// Minutes returns a pointer to n for HandlingBufferMin.
func Minutes(n int) *int { return &n }

// HandlingBuffer is the buffer added to straight-line ETAs.
func (o Options) HandlingBuffer() int {
	if o.HandlingBufferMin == nil {
		return DefaultHandlingBuffer
	}
	return max(*o.HandlingBufferMin, 0)
}

func (o *Options) setDefaults() {
	if o.MaxRadiusKM <= 0 {
		o.MaxRadiusKM = DefaultMaxRadiusKM
	}
	if o.AvgSpeedKMH <= 0 {
		o.AvgSpeedKMH = DefaultAvgSpeedKMH
	}
	if o.HandlingBufferMin == nil {
		o.HandlingBufferMin = Minutes(DefaultHandlingBuffer)
	}
}

// Matcher filters a fleet snapshot down to vehicles able to serve a request
// and orders them by arrival time.
type Matcher struct {
	opts   Options
	router RouteEstimator
	log    logger.Logger
}

// MatcherOption customises a Matcher.
type MatcherOption func(*Matcher)

// WithRouter sets the optional road router.
func WithRouter(r RouteEstimator) MatcherOption {
	return func(m *Matcher) { m.router = r }
}

// WithMatcherLogger sets the logger.
func WithMatcherLogger(l logger.Logger) MatcherOption {
	return func(m *Matcher) { m.log = logger.OrNop(l) }
}

// NewMatcher returns a matcher. Zero option values take the defaults.
func NewMatcher(opts Options, mo ...MatcherOption) *Matcher {
	opts.setDefaults()
	m := &Matcher{opts: opts, log: logger.Nop{}}
	for _, o := range mo {
		o(m)
	}
	return m
}

// Router returns the configured road router, or nil.
func (m *Matcher) Router() RouteEstimator { return m.router }

// Options returns the effective options.
func (m *Matcher) Options() Options { return m.opts }

// Match returns the vehicles able to serve req, nearest arrival first.
// The fleet slice is never modified. An empty result is valid.
func (m *Matcher) Match(ctx context.Context, req model.TransportRequest, fleet []model.Vehicle) []model.VehicleCandidate {
	out := make([]model.VehicleCandidate, 0, len(fleet))
	for _, v := range fleet {
		if !m.eligible(v, req) {
			continue
		}
		dist := Haversine(v.Location, req.Pickup)
		if dist > m.opts.MaxRadiusKM {
			continue
		}
		c := model.VehicleCandidate{Vehicle: v, DistanceKM: model.Round(dist, 2)}
		c.ETAMinutes, c.Routed = m.eta(ctx, v.Location, req.Pickup, dist)
		if c.ETAMinutes > req.MaxWaitMinutes {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ETAMinutes != out[j].ETAMinutes {
			return out[i].ETAMinutes < out[j].ETAMinutes
		}
		return out[i].Vehicle.Available() > out[j].Vehicle.Available()
	})
	m.log.Debugf("matched %d of %d vehicles", len(out), len(fleet))
	return out
}

func (m *Matcher) eligible(v model.Vehicle, req model.TransportRequest) bool {
	if v.Status != model.StatusAvailable {
		return false
	}
	if v.Available() < req.RequiredCapacityKG {
		return false
	}
	if req.Perishable && !v.Features.Refrigerated {
		return false
	}
	if req.VehicleType != "" && v.Type != req.VehicleType {
		return false
	}
	return true
}

func (m *Matcher) eta(ctx context.Context, from, to model.Location, dist float64) (int, bool) {
	if m.router != nil && dist > 0 && ctx.Err() == nil {
		r, err := m.router.Estimate(ctx, from, to)
		if err == nil && r.DurationMinutes >= 0 {
			return r.DurationMinutes, true
		}
		if err != nil {
			m.log.Debugf("route estimate failed, using straight line: %v", err)
		}
	}
	return StraightLineETA(dist, m.opts.AvgSpeedKMH, m.opts.HandlingBuffer()), false
}
