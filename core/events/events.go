// Package events defines the events published on the in-process bus.
//
// Kinds:
//   - fleet.updated: a vehicle position or status changed
//   - decision.made: the decision engine produced a recommendation
//   - booking.created: a session ended with a confirmed booking
package events

import (
	"time"

	"github.com/kilianp07/agriroute/core/model"
)

// Kind identifies the event payload.
type Kind string

const (
	KindFleetUpdated   Kind = "fleet.updated"
	KindDecisionMade   Kind = "decision.made"
	KindBookingCreated Kind = "booking.created"
)

// Decision summarises one decision for subscribers.
type Decision struct {
	Recommendation string   `json:"recommendation"`
	CombinedScore  float64  `json:"combined_score"`
	Confidence     float64  `json:"confidence"`
	VehicleID      string   `json:"vehicle_id,omitempty"`
	Degraded       []string `json:"degraded,omitempty"`
}

// Booking summarises a confirmed booking.
type Booking struct {
	ID        string  `json:"id"`
	Product   string  `json:"product"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	VehicleID string  `json:"vehicle_id"`
	WeightKG  float64 `json:"weight_kg"`
}

// Event is the envelope carried on the bus. Exactly one payload is set.
type Event struct {
	Kind     Kind           `json:"kind"`
	Time     time.Time      `json:"time"`
	Vehicle  *model.Vehicle `json:"vehicle,omitempty"`
	Decision *Decision      `json:"decision,omitempty"`
	Booking  *Booking       `json:"booking,omitempty"`
}

// FleetUpdated wraps a vehicle update.
func FleetUpdated(v model.Vehicle) Event {
	return Event{Kind: KindFleetUpdated, Time: time.Now().UTC(), Vehicle: &v}
}

// DecisionMade wraps a decision summary.
func DecisionMade(d Decision) Event {
	return Event{Kind: KindDecisionMade, Time: time.Now().UTC(), Decision: &d}
}

// BookingCreated wraps a booking summary.
func BookingCreated(b Booking) Event {
	return Event{Kind: KindBookingCreated, Time: time.Now().UTC(), Booking: &b}
}
