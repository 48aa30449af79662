// Package simulator drives a seeded fleet of trucks that publish their state
// over MQTT and accept bookings addressed to them.
package simulator

import (
	"errors"
	"time"

	"github.com/kilianp07/agriroute/infra/mqtt"
)

// Config holds parameters for the simulator.
type Config struct {
	Size           int           `json:"size"`
	Seed           uint64        `json:"seed"`
	Interval       time.Duration `json:"interval"`
	SpeedKMH       float64       `json:"speed_kmh"`
	DisconnectRate float64       `json:"disconnect_rate"`
	StatePrefix    string        `json:"state_topic_prefix"`
	BookingPrefix  string        `json:"booking_topic_prefix"`
	// PollTopic triggers an immediate publish when a message arrives.
	PollTopic      string        `json:"poll_topic"`
}

// SetDefaults fills missing values.
func (c *Config) SetDefaults() {
	if c.Size <= 0 {
		c.Size = 10
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.SpeedKMH <= 0 {
		c.SpeedKMH = 60
	}
	if c.StatePrefix == "" {
		c.StatePrefix = mqtt.DefaultStatePrefix
	}
	if c.BookingPrefix == "" {
		c.BookingPrefix = mqtt.DefaultBookingPrefix
	}
	if c.PollTopic == "" {
		c.PollTopic = mqtt.DefaultPollTopic
	}
}

// Validate checks the rates.
func (c Config) Validate() error {
	if c.DisconnectRate < 0 || c.DisconnectRate > 1 {
		return errors.New("simulator: disconnect_rate must be within [0, 1]")
	}
	return nil
}
