package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	corebooking "github.com/kilianp07/agriroute/core/booking"
)

// DefaultSubject is where bookings are published.
const DefaultSubject = "bookings.created"

// NATSConfig configures the NATS sink.
type NATSConfig struct {
	URL     string `json:"url"`
	Subject string `json:"subject"`
	Name    string `json:"name"`
}

// SetDefaults fills missing values.
func (c *NATSConfig) SetDefaults() {
	if c.URL == "" {
		c.URL = nats.DefaultURL
	}
	if c.Subject == "" {
		c.Subject = DefaultSubject
	}
	if c.Name == "" {
		c.Name = "agriroute"
	}
}

// publisher is the subset of *nats.Conn used by the sink.
type publisher interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSSink publishes each booking as JSON on a subject.
type NATSSink struct {
	conn    publisher
	subject string
}

// NewNATSSink connects to the server. Reconnects are handled by the client.
func NewNATSSink(cfg NATSConfig) (*NATSSink, error) {
	cfg.SetDefaults()
	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSSink{conn: nc, subject: cfg.Subject}, nil
}

func (s *NATSSink) Handoff(ctx context.Context, b corebooking.Booking) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	if err := s.conn.Publish(s.subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", s.subject, err)
	}
	return s.conn.FlushWithContext(ctx)
}

func (s *NATSSink) Close() error {
	s.conn.Close()
	return nil
}
