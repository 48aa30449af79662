// Package telemetry ingests vehicle state pushed over MQTT into the live
// fleet snapshot.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"

	corefleet "github.com/kilianp07/agriroute/core/fleet"
	corelog "github.com/kilianp07/agriroute/core/logger"
	"github.com/kilianp07/agriroute/infra/logger"
	"github.com/kilianp07/agriroute/infra/metrics"
	"github.com/kilianp07/agriroute/infra/mqtt"
)

// Collection modes.
const (
	ModePush   = "push"
	ModePull   = "pull"
	ModeHybrid = "hybrid"
)

// Config holds configuration for the telemetry manager.
type Config struct {
	Enabled           bool   `json:"enabled"`
	Mode              string `json:"mode"`
	StatePrefix       string `json:"state_topic_prefix"`
	RequestTopic      string `json:"request_topic"`
	IntervalSeconds   int    `json:"interval_seconds"`
	StaleAfterSeconds int    `json:"stale_after_seconds"`
}

// SetDefaults fills missing values.
func (c *Config) SetDefaults() {
	if c.Mode == "" {
		c.Mode = ModePush
	}
	c.Mode = strings.ToLower(c.Mode)
	if c.StatePrefix == "" {
		c.StatePrefix = mqtt.DefaultStatePrefix
	}
	if c.RequestTopic == "" {
		c.RequestTopic = mqtt.DefaultPollTopic
	}
	if c.IntervalSeconds <= 0 {
		c.IntervalSeconds = 10
	}
	if c.StaleAfterSeconds <= 0 {
		c.StaleAfterSeconds = 900
	}
}

// Validate checks the mode.
func (c Config) Validate() error {
	switch c.Mode {
	case ModePush, ModePull, ModeHybrid:
		return nil
	default:
		return fmt.Errorf("telemetry: unknown mode %q", c.Mode)
	}
}

// Interval is the poll period.
func (c Config) Interval() time.Duration { return time.Duration(c.IntervalSeconds) * time.Second }

// StaleAfter is how long a silent vehicle stays in the snapshot.
func (c Config) StaleAfter() time.Duration { return time.Duration(c.StaleAfterSeconds) * time.Second }

// Broker is the MQTT surface used by the manager.
type Broker interface {
	Subscribe(topic, kind string, h paho.MessageHandler) error
	Publish(topic, kind string, payload []byte) error
	Disconnect()
}

// Manager subscribes to vehicle state topics and keeps the fleet store
// current. In pull or hybrid mode it also broadcasts a poll request so idle
// vehicles report in.
type Manager struct {
	cfg   Config
	cli   Broker
	store *corefleet.Store
	log   corelog.Logger

	messages    *prometheus.CounterVec
	pollReq     prometheus.Counter
	pruned      prometheus.Counter
	lastMessage prometheus.Gauge
}

// NewManager prepares telemetry collection. reg may be nil for the default
// registerer.
func NewManager(cli Broker, cfg Config, store *corefleet.Store, reg prometheus.Registerer) (*Manager, error) {
	if cli == nil || store == nil {
		return nil, fmt.Errorf("telemetry: broker and store are required")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Manager{cfg: cfg, cli: cli, store: store, log: logger.New("telemetry")}
	var err error
	if m.messages, err = metrics.Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agriroute_telemetry_messages_total",
		Help: "Vehicle state messages by result",
	}, []string{"result"})); err != nil {
		return nil, err
	}
	if m.pollReq, err = metrics.Register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agriroute_telemetry_poll_requests_total",
		Help: "Poll requests broadcast to vehicles",
	})); err != nil {
		return nil, err
	}
	if m.pruned, err = metrics.Register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agriroute_telemetry_pruned_total",
		Help: "Vehicles dropped after going silent",
	})); err != nil {
		return nil, err
	}
	if m.lastMessage, err = metrics.Register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "agriroute_telemetry_last_message_timestamp_seconds",
		Help: "Unix timestamp of the last accepted vehicle state",
	})); err != nil {
		return nil, err
	}
	return m, nil
}

// Start runs telemetry collection until ctx is done.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.cli.Subscribe(mqtt.Wildcard(m.cfg.StatePrefix), mqtt.QoSTelemetry, m.onPush); err != nil {
		return err
	}
	m.log.Infow("telemetry started", map[string]any{"mode": m.cfg.Mode, "topic": mqtt.Wildcard(m.cfg.StatePrefix)})
	if m.cfg.Mode == ModePull || m.cfg.Mode == ModeHybrid {
		go m.pollLoop(ctx)
	}
	go m.pruneLoop(ctx)
	<-ctx.Done()
	m.cli.Disconnect()
	return nil
}

func (m *Manager) onPush(_ paho.Client, msg paho.Message) {
	if err := m.process(msg.Payload(), msg.Topic()); err != nil {
		m.messages.WithLabelValues("rejected").Inc()
		m.log.Warnf("state from %s rejected: %v", msg.Topic(), err)
		return
	}
	m.messages.WithLabelValues("accepted").Inc()
	m.lastMessage.SetToCurrentTime()
}

type stateMessage struct {
	corefleet.Record
	VehicleID string `json:"vehicle_id"`
}

// process decodes one state message. The vehicle id comes from the payload
// or, failing that, from the last topic segment.
func (m *Manager) process(payload []byte, topic string) error {
	var msg stateMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return err
	}
	rec := msg.Record
	if rec.ID == "" {
		rec.ID = msg.VehicleID
	}
	if rec.ID == "" && topic != "" {
		rec.ID = mqtt.LastSegment(topic)
	}
	v, err := rec.Vehicle()
	if err != nil {
		return err
	}
	m.store.Upsert(v)
	return nil
}

func (m *Manager) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.poll()
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) poll() {
	m.pollReq.Inc()
	if err := m.cli.Publish(m.cfg.RequestTopic, mqtt.QoSTelemetry, []byte("poll")); err != nil {
		m.log.Errorf("poll request: %v", err)
	}
}

func (m *Manager) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.StaleAfter() / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.prune()
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) prune() {
	if n := m.store.Prune(m.cfg.StaleAfter()); n > 0 {
		m.pruned.Add(float64(n))
		m.log.Debugf("pruned %d silent vehicles", n)
	}
}
