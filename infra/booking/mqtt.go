package booking

import (
	"context"
	"errors"

	corebooking "github.com/kilianp07/agriroute/core/booking"
	"github.com/kilianp07/agriroute/infra/mqtt"
)

// MQTTConfig configures the driver notification sink.
type MQTTConfig struct {
	MQTT        mqtt.Config `json:"mqtt"`
	TopicPrefix string      `json:"topic_prefix"`
}

// SetDefaults fills missing values.
func (c *MQTTConfig) SetDefaults() {
	c.MQTT.SetDefaults()
	if c.TopicPrefix == "" {
		c.TopicPrefix = mqtt.DefaultBookingPrefix
	}
}

type notifier interface {
	PublishJSON(ctx context.Context, topic, kind string, retained bool, v any) error
	Disconnect()
}

// MQTTSink notifies the assigned driver by publishing the booking on the
// vehicle's own topic.
type MQTTSink struct {
	cli    notifier
	prefix string
}

// NewMQTTSink connects to the broker.
func NewMQTTSink(cfg MQTTConfig) (*MQTTSink, error) {
	cfg.SetDefaults()
	if err := cfg.MQTT.Validate(); err != nil {
		return nil, err
	}
	cli, err := mqtt.Connect(cfg.MQTT, "booking")
	if err != nil {
		return nil, err
	}
	return &MQTTSink{cli: cli, prefix: cfg.TopicPrefix}, nil
}

func (s *MQTTSink) Handoff(ctx context.Context, b corebooking.Booking) error {
	if b.VehicleID == "" {
		return errors.New("booking without vehicle")
	}
	return s.cli.PublishJSON(ctx, mqtt.Topic(s.prefix, b.VehicleID), mqtt.QoSBooking, false, b)
}

func (s *MQTTSink) Close() error {
	s.cli.Disconnect()
	return nil
}
