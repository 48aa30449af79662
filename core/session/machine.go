package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/agriroute/core/booking"
	"github.com/kilianp07/agriroute/core/catalog"
	"github.com/kilianp07/agriroute/core/events"
	"github.com/kilianp07/agriroute/core/geo"
	"github.com/kilianp07/agriroute/core/logger"
	"github.com/kilianp07/agriroute/core/metrics"
	"github.com/kilianp07/agriroute/core/model"
	"github.com/kilianp07/agriroute/core/provider"
	"github.com/kilianp07/agriroute/core/scoring"
	"github.com/kilianp07/agriroute/core/spoilage"
	"github.com/kilianp07/agriroute/internal/eventbus"
)

const (
	// MaxOptions is how many vehicles are offered.
	MaxOptions = 3
	// CostPerKG is the flat booking estimate in USD.
	CostPerKG = 0.15
	// DefaultMaxWait is the longest pickup wait accepted on this channel.
	DefaultMaxWait = 240
)

// Turn is one inbound message.
type Turn struct {
	SessionID string `json:"session_id"`
	Channel   string `json:"channel_address,omitempty"`
	Input     string `json:"input_text"`
}

// Reply is the prompt sent back. Terminal mirrors the END prefix.
type Reply struct {
	Text     string `json:"prompt_text"`
	Terminal bool   `json:"terminal"`
}

// Machine advances sessions one turn at a time. Turns of one session are
// serialized; different sessions proceed in parallel.
type Machine struct {
	store   Store
	signals provider.Signals
	matcher *geo.Matcher
	scorer  scoring.Scorer
	router  geo.RouteEstimator
	sink    booking.Sink
	bus     *eventbus.Bus[events.Event]
	rec     metrics.SessionRecorder
	log     logger.Logger
	now     func() time.Time
	maxWait int
	locks   *keyedMutex
}

// Option customises a Machine.
type Option func(*Machine)

func WithScorer(s scoring.Scorer) Option { return func(m *Machine) { m.scorer = s } }

// WithRouter overrides the router used on the confirmation screen. By
// default the matcher's router is used.
func WithRouter(r geo.RouteEstimator) Option { return func(m *Machine) { m.router = r } }

func WithSink(s booking.Sink) Option { return func(m *Machine) { m.sink = s } }

func WithBus(b *eventbus.Bus[events.Event]) Option { return func(m *Machine) { m.bus = b } }

func WithRecorder(r metrics.SessionRecorder) Option { return func(m *Machine) { m.rec = r } }

func WithLogger(l logger.Logger) Option { return func(m *Machine) { m.log = logger.OrNop(l) } }

func WithClock(now func() time.Time) Option { return func(m *Machine) { m.now = now } }

// WithMaxWait sets the accepted pickup wait in minutes.
func WithMaxWait(minutes int) Option {
	return func(m *Machine) {
		if minutes > 0 {
			m.maxWait = minutes
		}
	}
}

// NewMachine wires a session machine.
func NewMachine(store Store, signals provider.Signals, matcher *geo.Matcher, opts ...Option) (*Machine, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if signals == nil {
		return nil, errors.New("signals are required")
	}
	if matcher == nil {
		return nil, errors.New("matcher is required")
	}
	m := &Machine{
		store:   store,
		signals: signals,
		matcher: matcher,
		scorer:  scoring.NewMeanScorer(),
		router:  matcher.Router(),
		sink:    booking.NopSink{},
		rec:     metrics.NopSink{},
		log:     logger.Nop{},
		now:     time.Now,
		maxWait: DefaultMaxWait,
		locks:   newKeyedMutex(),
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// step is the outcome of one stage handler. A nil next leaves the stored
// record untouched; drop removes it.
type step struct {
	reply   Reply
	next    *Record
	drop    bool
	outcome string
}

func keep(r Record, reply Reply) step { return step{reply: reply, next: &r, outcome: "advance"} }

func reprompt(reply Reply) step { return step{reply: reply, outcome: "invalid"} }

func finish(reply Reply, outcome string) step { return step{reply: reply, drop: true, outcome: outcome} }

// Handle processes one turn. The only error returned is a ValidationError
// for a missing session id; every other failure becomes a terminal reply.
func (m *Machine) Handle(ctx context.Context, t Turn) (Reply, error) {
	id := strings.TrimSpace(t.SessionID)
	if id == "" {
		return Reply{}, model.NewValidationError("session_id", "is required")
	}
	input := lastSegment(t.Input)

	unlock := m.locks.Lock(id)
	defer unlock()

	rec, found, err := m.store.Load(ctx, id)
	if errors.Is(err, model.ErrSessionExpired) {
		m.log.Debugf("session %s expired, restarting", id)
		found, err = false, nil
	}
	if err != nil {
		m.log.Errorf("session %s: %v", id, err)
		m.record(string(rec.Stage), "store_error", true)
		return unavailable(), nil
	}

	var st step
	switch {
	case !found || strings.TrimSpace(t.Input) == "":
		fresh := newRecord(id, t.Channel, m.now())
		fresh.Stage = StageMainMenu
		st = keep(fresh, welcomeMenu())
		st.outcome = "welcome"
	default:
		st = m.dispatch(ctx, rec, input)
	}

	switch {
	case st.drop:
		if err := m.store.Delete(ctx, id); err != nil {
			m.log.Warnf("session %s delete: %v", id, err)
		}
	case st.next != nil:
		st.next.UpdatedAt = m.now()
		if err := m.store.Save(ctx, *st.next); err != nil {
			m.log.Errorf("session %s: %v", id, err)
			m.record(string(rec.Stage), "store_error", true)
			return unavailable(), nil
		}
	}
	stage := rec.Stage
	if st.next != nil {
		stage = st.next.Stage
	}
	m.record(string(stage), st.outcome, st.reply.Terminal)
	return st.reply, nil
}

func (m *Machine) record(stage, outcome string, terminal bool) {
	if err := m.rec.RecordSessionTurn(metrics.SessionEvent{
		Stage: stage, Outcome: outcome, Terminal: terminal, Time: m.now(),
	}); err != nil {
		m.log.Warnf("record session turn: %v", err)
	}
}

func lastSegment(text string) string {
	parts := strings.Split(text, "*")
	return strings.TrimSpace(parts[len(parts)-1])
}

// choice parses a 1-based menu choice bounded by n.
func choice(input string, n int) (int, bool) {
	i, err := strconv.Atoi(input)
	if err != nil || i < 1 || i > n {
		return 0, false
	}
	return i - 1, true
}

func (m *Machine) dispatch(ctx context.Context, r Record, input string) step {
	switch r.Stage {
	case StageWelcome:
		r.Stage = StageMainMenu
		return keep(r, welcomeMenu())
	case StageMainMenu:
		return m.mainMenu(r, input)
	case StageSelectLocation:
		return m.selectLocation(ctx, r, input)
	case StageSelectProduct:
		return m.selectProduct(r, input)
	case StageEnterQuantity:
		return m.enterQuantity(r, input)
	case StageSelectDestination:
		return m.selectDestination(ctx, r, input)
	case StageWeatherOnly:
		if input == "0" {
			fresh := newRecord(r.ID, r.Channel, r.CreatedAt)
			fresh.Stage = StageMainMenu
			return keep(fresh, welcomeMenu())
		}
		return finish(end("Thank you for using AgriConnect Weather!"), "completed")
	case StageWeatherReview:
		return m.weatherReview(ctx, r, input)
	case StageSelectVehicle:
		return m.selectVehicle(ctx, r, input)
	default:
		return finish(end("Session completed. Thank you!"), "completed")
	}
}

func (m *Machine) mainMenu(r Record, input string) step {
	switch input {
	case "1":
		r.Stage, r.WeatherOnly = StageSelectLocation, false
		return keep(r, locationMenu())
	case "2":
		return finish(ratesScreen(), "rates")
	case "3":
		r.Stage, r.WeatherOnly = StageSelectLocation, true
		return keep(r, locationMenu())
	case "4":
		return finish(helpScreen(), "help")
	default:
		return reprompt(cont("Invalid choice. Please select 1-4:"))
	}
}

func (m *Machine) selectLocation(ctx context.Context, r Record, input string) step {
	i, ok := choice(input, len(catalog.Locations))
	if !ok {
		return reprompt(cont(fmt.Sprintf("Invalid location. Please choose 1-%d:", len(catalog.Locations))))
	}
	loc := catalog.Locations[i]
	r.Pickup = &loc
	if !r.WeatherOnly {
		r.Stage = StageSelectProduct
		return keep(r, productMenu())
	}
	w, conf, err := m.weather(ctx, loc)
	if err != nil {
		return finish(unavailable(), "provider_error")
	}
	r.Stage, r.Weather, r.WeatherConfidence = StageWeatherOnly, &w, conf
	return keep(r, weatherReport(loc, w, nil, true))
}

func (m *Machine) selectProduct(r Record, input string) step {
	i, ok := choice(input, len(catalog.Products))
	if !ok {
		return reprompt(cont(fmt.Sprintf("Invalid product. Please choose 1-%d:", len(catalog.Products))))
	}
	p := catalog.Products[i]
	r.Product, r.Stage = p.Name, StageEnterQuantity
	return keep(r, quantityPrompt(p))
}

func (m *Machine) enterQuantity(r Record, input string) step {
	p, _ := r.product()
	q, err := strconv.Atoi(input)
	if err != nil || q <= 0 {
		return reprompt(invalidQuantity(p))
	}
	r.Quantity, r.Stage = q, StageSelectDestination
	return keep(r, destinationMenu())
}

func (m *Machine) selectDestination(ctx context.Context, r Record, input string) step {
	i, ok := choice(input, len(catalog.Markets))
	if !ok {
		return reprompt(cont(fmt.Sprintf("Invalid destination. Please choose 1-%d:", len(catalog.Markets))))
	}
	if r.Pickup == nil {
		return finish(unavailable(), "corrupt")
	}
	w, conf, err := m.weather(ctx, *r.Pickup)
	if err != nil {
		return finish(unavailable(), "provider_error")
	}
	r.Destination = catalog.Markets[i].Name
	r.Stage, r.Weather, r.WeatherConfidence = StageWeatherReview, &w, conf
	p, ok := r.product()
	var pp *catalog.Product
	if ok {
		pp = &p
	}
	return keep(r, weatherReport(*r.Pickup, w, pp, false))
}

func (m *Machine) weather(ctx context.Context, loc model.Location) (model.WeatherReport, float64, error) {
	res, _, err := m.signals.Weather(ctx, loc, false)
	if err != nil {
		m.log.Errorf("weather for %s: %v", loc.Name, err)
		return model.WeatherReport{}, 0, err
	}
	return res.Data, res.Confidence, nil
}

func (m *Machine) weatherReview(ctx context.Context, r Record, input string) step {
	switch input {
	case "1":
	case "2":
		return finish(end("Booking cancelled. Thank you!"), "cancelled")
	default:
		return reprompt(cont("Please choose 1 or 2:"))
	}
	p, ok := r.product()
	if !ok || r.Pickup == nil {
		return finish(unavailable(), "corrupt")
	}
	weight := r.WeightKG()
	res, _, err := m.signals.Fleet(ctx, *r.Pickup, weight, false)
	if err != nil {
		m.log.Warnf("fleet for session %s: %v", r.ID, err)
		return finish(noTransport(), "no_transport")
	}
	req := model.TransportRequest{
		Pickup:             *r.Pickup,
		RequiredCapacityKG: weight,
		Perishable:         p.Perishable(),
		MaxWaitMinutes:     m.maxWait,
	}
	cands := m.matcher.Match(ctx, req, res.Data)
	if len(cands) == 0 {
		return finish(noTransport(), "no_transport")
	}
	if len(cands) > MaxOptions {
		cands = cands[:MaxOptions]
	}
	r.Candidates, r.TransportConfidence = cands, res.Confidence
	r.Stage = StageSelectVehicle
	return keep(r, vehicleMenu(cands))
}

func (m *Machine) selectVehicle(ctx context.Context, r Record, input string) step {
	i, ok := choice(input, len(r.Candidates))
	if !ok {
		return reprompt(cont(fmt.Sprintf("Invalid choice. Please select 1-%d:", len(r.Candidates))))
	}
	c, err := m.confirm(ctx, r, r.Candidates[i])
	if err != nil {
		m.log.Errorf("confirm session %s: %v", r.ID, err)
		return finish(unavailable(), "corrupt")
	}
	return finish(confirmationScreen(c), "booked")
}

// confirm builds the confirmation and hands the booking off.
func (m *Machine) confirm(ctx context.Context, r Record, chosen model.VehicleCandidate) (Confirmation, error) {
	p, ok := r.product()
	if !ok {
		return Confirmation{}, fmt.Errorf("unknown product %q", r.Product)
	}
	dest, ok := r.destination()
	if !ok || r.Pickup == nil {
		return Confirmation{}, fmt.Errorf("incomplete session %s", r.ID)
	}

	plan := PlanRoute(ctx, m.router, m.matcher.Options().AvgSpeedKMH, *r.Pickup, dest, p)

	temp, hum := 25.0, 60.0
	if r.Weather != nil {
		temp, hum = r.Weather.TemperatureC, r.Weather.HumidityPct
	}
	risk := spoilage.Risk(p.Name, temp, hum, float64(plan.DurationMinutes)/60)

	in := scoring.Inputs{
		Weather:    r.Weather,
		Candidates: r.Candidates,
		FleetKnown: true,
		Confidence: scoring.Confidences{Weather: r.WeatherConfidence, Transport: r.TransportConfidence},
	}
	if mr, _, err := m.signals.Market(ctx, p.Key(), &dest.Location, false); err == nil {
		in.Market = &mr.Data
		in.Confidence.Market = mr.Confidence
	} else {
		m.log.Warnf("market for %s: %v", p.Key(), err)
	}
	score := m.scorer.Score(in)

	weight := r.WeightKG()
	c := Confirmation{
		Product:      p,
		Quantity:     r.Quantity,
		WeightKG:     weight,
		From:         r.Pickup.Name,
		To:           dest.Name,
		Vehicle:      chosen.Vehicle,
		Route:        plan,
		CostEstimate: weight * CostPerKG,
		SpoilageRisk: risk,
		Score:        &score,
		Tips:         Tips(p, r.Pickup.Name, r.Weather),
	}

	b := booking.New(booking.Booking{
		SessionID:    r.ID,
		Channel:      r.Channel,
		Product:      p.Name,
		Quantity:     r.Quantity,
		Unit:         string(p.Unit),
		WeightKG:     weight,
		From:         c.From,
		To:           c.To,
		VehicleID:    chosen.Vehicle.ID,
		VehicleName:  chosen.Vehicle.DisplayName(),
		VehiclePhone: chosen.Vehicle.Phone,
		RouteKM:      plan.DistanceKM,
		ETAMinutes:   chosen.ETAMinutes,
		CostEstimate: c.CostEstimate,
		SpoilageRisk: risk,
		Score:        score.CombinedScore,
	})
	c.BookingID = b.ID
	if err := m.sink.Handoff(ctx, b); err != nil {
		m.log.Errorf("booking %s hand-off: %v", b.ID, err)
	}
	if m.bus != nil {
		m.bus.Publish(events.BookingCreated(events.Booking{
			ID: b.ID, Product: b.Product, From: b.From, To: b.To, VehicleID: b.VehicleID, WeightKG: b.WeightKG,
		}))
	}
	m.log.Infow("booking confirmed", map[string]any{
		"booking_id": b.ID, "session_id": r.ID, "vehicle_id": b.VehicleID, "weight_kg": weight,
	})
	return c, nil
}
