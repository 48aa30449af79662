// Package booking defines the hand-off of confirmed bookings to downstream
// systems. Persistence is their concern; this package only delivers.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/agriroute/core/logger"
)

// Booking is a confirmed transport order.
type Booking struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id,omitempty"`
	Channel      string    `json:"channel,omitempty"`
	Product      string    `json:"product"`
	Quantity     int       `json:"quantity"`
	Unit         string    `json:"unit"`
	WeightKG     float64   `json:"weight_kg"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	VehicleID    string    `json:"vehicle_id"`
	VehicleName  string    `json:"vehicle_name"`
	VehiclePhone string    `json:"vehicle_phone,omitempty"`
	RouteKM      float64   `json:"route_km"`
	ETAMinutes   int       `json:"eta_minutes"`
	CostEstimate float64   `json:"cost_estimate"`
	SpoilageRisk float64   `json:"spoilage_risk"`
	Score        float64   `json:"score"`
	CreatedAt    time.Time `json:"created_at"`
}

// New stamps b with a fresh id and creation time.
func New(b Booking) Booking {
	b.ID = uuid.NewString()
	b.CreatedAt = time.Now().UTC()
	return b
}

// Sink receives confirmed bookings.
type Sink interface {
	Handoff(ctx context.Context, b Booking) error
}

// Closer is implemented by sinks holding connections.
type Closer interface {
	Close() error
}

// NopSink drops every booking.
type NopSink struct{}

func (NopSink) Handoff(context.Context, Booking) error { return nil }

// MultiSink delivers to every sink and joins their errors.
type MultiSink struct {
	sinks []Sink
	log   logger.Logger
}

// NewMultiSink fans out to sinks. Nil entries are skipped.
func NewMultiSink(log logger.Logger, sinks ...Sink) *MultiSink {
	m := &MultiSink{log: logger.OrNop(log)}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *MultiSink) Handoff(ctx context.Context, b Booking) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Handoff(ctx, b); err != nil {
			m.log.Errorf("booking %s hand-off failed: %v", b.ID, err)
			errs = append(errs, fmt.Errorf("%T: %w", s, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink implementing Closer.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if c, ok := s.(Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Sinks returns the wrapped sinks in delivery order.
func (m *MultiSink) Sinks() []Sink { return append([]Sink(nil), m.sinks...) }
