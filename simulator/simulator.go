package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	corebooking "github.com/kilianp07/agriroute/core/booking"
	"github.com/kilianp07/agriroute/core/catalog"
	corelog "github.com/kilianp07/agriroute/core/logger"
	"github.com/kilianp07/agriroute/core/model"
	"github.com/kilianp07/agriroute/infra/logger"
	"github.com/kilianp07/agriroute/infra/mqtt"
)

// Broker is the MQTT surface used by the simulator.
type Broker interface {
	PublishJSON(ctx context.Context, topic, kind string, retained bool, v any) error
	Subscribe(topic, kind string, h paho.MessageHandler) error
}

// Simulator moves the fleet and publishes one state message per truck per
// tick.
type Simulator struct {
	cfg Config
	pub Broker
	log corelog.Logger
	now func() time.Time

	mu    sync.Mutex
	rng   *rand.Rand
	fleet []*Vehicle
	byID  map[string]*Vehicle
}

// New builds a simulator over a freshly generated fleet.
func New(cfg Config, pub Broker) (*Simulator, error) {
	if pub == nil {
		return nil, fmt.Errorf("simulator: broker is required")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	fleet := GenerateFleet(cfg.Size, r)
	s := &Simulator{
		cfg:   cfg,
		pub:   pub,
		log:   logger.New("simulator"),
		now:   time.Now,
		rng:   r,
		fleet: fleet,
		byID:  make(map[string]*Vehicle, len(fleet)),
	}
	for _, v := range fleet {
		s.byID[v.ID] = v
	}
	return s, nil
}

// Fleet returns a copy of the current truck states.
func (s *Simulator) Fleet() []Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Vehicle, len(s.fleet))
	for i, v := range s.fleet {
		out[i] = *v
	}
	return out
}

// Run subscribes to bookings and publishes until ctx is done.
func (s *Simulator) Run(ctx context.Context) error {
	if err := s.pub.Subscribe(mqtt.Wildcard(s.cfg.BookingPrefix), mqtt.QoSBooking, s.onBooking); err != nil {
		return err
	}
	if err := s.pub.Subscribe(s.cfg.PollTopic, mqtt.QoSTelemetry, s.onPoll(ctx)); err != nil {
		return err
	}
	s.log.Infof("simulating %d vehicles every %s", len(s.fleet), s.cfg.Interval)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	s.Tick(ctx, 0)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick(ctx, s.cfg.Interval)
		}
	}
}

// Tick advances every truck by dt and publishes its state. Trucks that drop
// off the air this tick are skipped. It returns how many states were sent.
func (s *Simulator) Tick(ctx context.Context, dt time.Duration) int {
	s.mu.Lock()
	now := s.now()
	type out struct {
		topic string
		rec   any
	}
	msgs := make([]out, 0, len(s.fleet))
	for _, v := range s.fleet {
		v.Step(s.rng, dt, s.cfg.SpeedKMH)
		if s.cfg.DisconnectRate > 0 && s.rng.Float64() < s.cfg.DisconnectRate {
			continue
		}
		msgs = append(msgs, out{topic: mqtt.Topic(s.cfg.StatePrefix, v.ID), rec: v.Record(now)})
	}
	s.mu.Unlock()

	sent := 0
	for _, m := range msgs {
		if err := s.pub.PublishJSON(ctx, m.topic, mqtt.QoSTelemetry, false, m.rec); err != nil {
			s.log.Errorf("publish %s: %v", m.topic, err)
			continue
		}
		sent++
	}
	return sent
}

// onPoll answers a poll request off the client's callback goroutine.
func (s *Simulator) onPoll(ctx context.Context) paho.MessageHandler {
	return func(paho.Client, paho.Message) {
		go s.Tick(ctx, 0)
	}
}

func (s *Simulator) onBooking(_ paho.Client, msg paho.Message) {
	var b corebooking.Booking
	if err := json.Unmarshal(msg.Payload(), &b); err != nil {
		s.log.Warnf("decode booking: %v", err)
		return
	}
	if b.VehicleID == "" {
		b.VehicleID = mqtt.LastSegment(msg.Topic())
	}
	if err := s.Accept(b); err != nil {
		s.log.Warnf("booking %s: %v", b.ID, err)
		return
	}
	s.log.Infof("%s accepted booking %s to %s", b.VehicleID, b.ID, b.To)
}

// Accept routes the addressed truck to the booking's market.
func (s *Simulator) Accept(b corebooking.Booking) error {
	dest, ok := destination(b.To)
	if !ok {
		return fmt.Errorf("unknown destination %q", b.To)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.byID[b.VehicleID]
	if !ok {
		return fmt.Errorf("unknown vehicle %q", b.VehicleID)
	}
	if !v.Assign(dest, b.WeightKG) {
		return fmt.Errorf("vehicle %s cannot take %.0fkg", v.ID, b.WeightKG)
	}
	return nil
}

func destination(name string) (model.Location, bool) {
	if m, ok := catalog.MarketByName(name); ok {
		return m.Location, true
	}
	return catalog.LocationByName(name)
}
