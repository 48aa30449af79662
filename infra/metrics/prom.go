package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/agriroute/core/metrics"
)

// PromSink exposes engine activity as Prometheus metrics.
type PromSink struct {
	decisions      *prometheus.CounterVec
	decisionTime   prometheus.Histogram
	combinedScore  prometheus.Histogram
	providerFetch  *prometheus.CounterVec
	providerTime   *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
	sessionTurns   *prometheus.CounterVec
	bookings       *prometheus.CounterVec
	bookedKG       prometheus.Counter
	vehicleUpdates *prometheus.CounterVec
	fleet          prometheus.Gauge
}

// NewPromSink registers the metrics on the default registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers the metrics on reg. A nil registerer
// defaults to the global one. Collectors already registered are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.decisions, err = Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agriroute_decisions_total",
		Help: "Decisions served by recommendation",
	}, []string{"recommendation", "cache_hit", "degraded"})); err != nil {
		return nil, err
	}
	if s.decisionTime, err = Register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "agriroute_decision_latency_seconds",
		Help:    "End to end decision latency",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if s.combinedScore, err = Register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "agriroute_decision_combined_score",
		Help:    "Distribution of combined scores",
		Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
	})); err != nil {
		return nil, err
	}
	if s.providerFetch, err = Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agriroute_provider_fetch_total",
		Help: "Provider source attempts",
	}, []string{"domain", "source", "success"})); err != nil {
		return nil, err
	}
	if s.providerTime, err = Register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agriroute_provider_fetch_seconds",
		Help:    "Provider source attempt latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"domain", "source"})); err != nil {
		return nil, err
	}
	if s.cacheLookups, err = Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agriroute_cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"domain", "result"})); err != nil {
		return nil, err
	}
	if s.sessionTurns, err = Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agriroute_session_turns_total",
		Help: "Conversational turns by stage and outcome",
	}, []string{"stage", "outcome", "terminal"})); err != nil {
		return nil, err
	}
	if s.bookings, err = Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agriroute_bookings_total",
		Help: "Confirmed bookings by product",
	}, []string{"product"})); err != nil {
		return nil, err
	}
	if s.bookedKG, err = Register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agriroute_booked_weight_kg_total",
		Help: "Total booked weight",
	})); err != nil {
		return nil, err
	}
	if s.vehicleUpdates, err = Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agriroute_vehicle_updates_total",
		Help: "Live fleet updates by status",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if s.fleet, err = Register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "agriroute_fleet_vehicles",
		Help: "Vehicles in the live fleet snapshot",
	})); err != nil {
		return nil, err
	}
	return s, nil
}

// Register adds c to reg, returning the existing collector when an
// identical one is already registered.
func Register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (s *PromSink) RecordDecision(ev coremetrics.DecisionEvent) error {
	s.decisions.WithLabelValues(ev.Recommendation, strconv.FormatBool(ev.CacheHit), strconv.FormatBool(len(ev.Degraded) > 0)).Inc()
	s.decisionTime.Observe(ev.Latency.Seconds())
	s.combinedScore.Observe(ev.CombinedScore)
	return nil
}

func (s *PromSink) RecordProviderFetch(ev coremetrics.ProviderFetchEvent) error {
	s.providerFetch.WithLabelValues(ev.Domain, ev.Source, strconv.FormatBool(ev.Success)).Inc()
	s.providerTime.WithLabelValues(ev.Domain, ev.Source).Observe(ev.Latency.Seconds())
	return nil
}

func (s *PromSink) RecordCacheLookup(ev coremetrics.CacheEvent) error {
	result := "miss"
	switch {
	case ev.Unavailable:
		result = "unavailable"
	case ev.Hit:
		result = "hit"
	}
	s.cacheLookups.WithLabelValues(ev.Domain, result).Inc()
	return nil
}

func (s *PromSink) RecordSessionTurn(ev coremetrics.SessionEvent) error {
	s.sessionTurns.WithLabelValues(ev.Stage, ev.Outcome, strconv.FormatBool(ev.Terminal)).Inc()
	return nil
}

func (s *PromSink) RecordBooking(ev coremetrics.BookingEvent) error {
	s.bookings.WithLabelValues(ev.Product).Inc()
	if ev.WeightKG > 0 {
		s.bookedKG.Add(ev.WeightKG)
	}
	return nil
}

func (s *PromSink) RecordVehicleState(ev coremetrics.VehicleStateEvent) error {
	s.vehicleUpdates.WithLabelValues(ev.Status).Inc()
	return nil
}

// RecordFleetSize sets the gauge to the snapshot size.
func (s *PromSink) RecordFleetSize(size int) error {
	s.fleet.Set(float64(size))
	return nil
}
