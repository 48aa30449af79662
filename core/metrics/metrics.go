package metrics

import "time"

// DecisionEvent summarizes one decision served by the engine.
type DecisionEvent struct {
	Recommendation string
	CombinedScore  float64
	Confidence     float64
	Candidates     int
	CacheHit       bool
	Sources        []string
	Degraded       []string
	Latency        time.Duration
	Time           time.Time
}

// MetricsSink records decisions for observability purposes.
type MetricsSink interface {
	RecordDecision(ev DecisionEvent) error
}

// ProviderFetchEvent captures one source attempt inside a fallback chain.
type ProviderFetchEvent struct {
	Domain     string
	Source     string
	Success    bool
	Confidence float64
	Latency    time.Duration
	Error      string
	Time       time.Time
}

// ProviderRecorder records provider attempts.
type ProviderRecorder interface {
	RecordProviderFetch(ev ProviderFetchEvent) error
}

// CacheEvent captures one cache lookup.
type CacheEvent struct {
	Domain string
	Hit    bool
	// Unavailable is set when the store could not be reached.
	Unavailable bool
	Time        time.Time
}

// CacheRecorder records cache lookups.
type CacheRecorder interface {
	RecordCacheLookup(ev CacheEvent) error
}

// SessionEvent captures a conversational turn.
type SessionEvent struct {
	Stage    string
	Outcome  string
	Terminal bool
	Time     time.Time
}

// SessionRecorder records conversational turns.
type SessionRecorder interface {
	RecordSessionTurn(ev SessionEvent) error
}

// FleetSizeRecorder records the size of the live fleet snapshot.
type FleetSizeRecorder interface {
	RecordFleetSize(size int) error
}

// BookingEvent captures a confirmed booking.
type BookingEvent struct {
	Product  string
	WeightKG float64
	Channel  string
	Time     time.Time
}

// BookingRecorder records confirmed bookings.
type BookingRecorder interface {
	RecordBooking(ev BookingEvent) error
}

// VehicleStateEvent captures one live fleet update.
type VehicleStateEvent struct {
	VehicleID   string
	Status      string
	AvailableKG float64
	Time        time.Time
}

// VehicleStateRecorder records live fleet updates.
type VehicleStateRecorder interface {
	RecordVehicleState(ev VehicleStateEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordDecision(DecisionEvent) error           { return nil }
func (NopSink) RecordProviderFetch(ProviderFetchEvent) error { return nil }
func (NopSink) RecordCacheLookup(CacheEvent) error           { return nil }
func (NopSink) RecordSessionTurn(SessionEvent) error         { return nil }
func (NopSink) RecordFleetSize(int) error                    { return nil }
func (NopSink) RecordBooking(BookingEvent) error             { return nil }
func (NopSink) RecordVehicleState(VehicleStateEvent) error   { return nil }

// OrNop returns s or NopSink when s is nil.
func OrNop(s MetricsSink) MetricsSink {
	if s == nil {
		return NopSink{}
	}
	return s
}
