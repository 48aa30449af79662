package sms

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/agriroute/core/geo"
	"github.com/kilianp07/agriroute/core/logger"
	"github.com/kilianp07/agriroute/core/metrics"
	"github.com/kilianp07/agriroute/core/model"
	"github.com/kilianp07/agriroute/core/provider"
	"github.com/kilianp07/agriroute/core/scoring"
	"github.com/kilianp07/agriroute/core/session"
	"github.com/kilianp07/agriroute/core/spoilage"
)

// Reply statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// PerishablePremium raises the cost estimate of perishable loads.
const PerishablePremium = 1.2

// Message is one inbound SMS.
type Message struct {
	From string `json:"from"`
	Text string `json:"text"`
}

// Reply is the SMS sent back.
type Reply struct {
	To      string `json:"to_number"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Processor turns a message into a transport quote using the same signals,
// matcher and scorer as the conversational channel.
type Processor struct {
	signals provider.Signals
	matcher *geo.Matcher
	scorer  scoring.Scorer
	router  geo.RouteEstimator
	rec     metrics.SessionRecorder
	log     logger.Logger
	timeout time.Duration
	now     func() time.Time
}

// Option customises a Processor.
type Option func(*Processor)

func WithScorer(s scoring.Scorer) Option { return func(p *Processor) { p.scorer = s } }

func WithRouter(r geo.RouteEstimator) Option { return func(p *Processor) { p.router = r } }

func WithRecorder(r metrics.SessionRecorder) Option { return func(p *Processor) { p.rec = r } }

func WithLogger(l logger.Logger) Option { return func(p *Processor) { p.log = logger.OrNop(l) } }

// WithSourceTimeout bounds each signal fetch.
func WithSourceTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewProcessor wires a processor.
func NewProcessor(signals provider.Signals, matcher *geo.Matcher, opts ...Option) (*Processor, error) {
	if signals == nil {
		return nil, errors.New("signals are required")
	}
	if matcher == nil {
		return nil, errors.New("matcher is required")
	}
	p := &Processor{
		signals: signals,
		matcher: matcher,
		scorer:  scoring.NewMeanScorer(),
		router:  matcher.Router(),
		rec:     metrics.NopSink{},
		log:     logger.Nop{},
		timeout: 3 * time.Second,
		now:     time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Handle answers one message. Unparseable text gets the usage reply; the
// only error returned is a ValidationError for an empty message.
func (p *Processor) Handle(ctx context.Context, msg Message) (Reply, error) {
	if strings.TrimSpace(msg.Text) == "" {
		return Reply{}, model.NewValidationError("text", "is required")
	}
	req, err := Parse(msg.Text)
	if err != nil {
		p.log.Debugf("sms from %s not understood: %v", msg.From, err)
		p.record("unparsed")
		return Reply{To: msg.From, Message: Usage, Status: StatusError}, nil
	}
	q := p.quote(ctx, req)
	p.record(q.outcome())
	p.log.Infow("sms quote", map[string]any{
		"product": req.Product.Name, "weight_kg": req.WeightKG, "from": req.From.Name, "to": req.To.Name,
		"transport": q.Best != nil,
	})
	return Reply{To: msg.From, Message: compose(req, q), Status: StatusSuccess}, nil
}

// Quote is everything the reply reports.
type Quote struct {
	Best         *model.VehicleCandidate
	CostEstimate float64
	Route        session.RoutePlan
	SpoilageRisk float64
	Weather      *model.WeatherReport
	Market       *model.MarketReport
	Score        model.ScoreResult
	Tips         []string
}

func (q Quote) outcome() string {
	if q.Best == nil {
		return "no_transport"
	}
	return "quoted"
}

func (p *Processor) quote(ctx context.Context, req Request) Quote {
	pickup := req.From.Location
	var (
		weather *provider.Result[model.WeatherReport]
		market  *provider.Result[model.MarketReport]
		fleet   *provider.Result[[]model.Vehicle]
	)
	var g errgroup.Group
	g.Go(func() error {
		fctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		if res, _, err := p.signals.Weather(fctx, pickup, false); err == nil {
			weather = &res
		} else {
			p.log.Warnf("sms weather: %v", err)
		}
		return nil
	})
	g.Go(func() error {
		fctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		if res, _, err := p.signals.Market(fctx, req.Product.Key(), nil, false); err == nil {
			market = &res
		} else {
			p.log.Warnf("sms market: %v", err)
		}
		return nil
	})
	g.Go(func() error {
		fctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		if res, _, err := p.signals.Fleet(fctx, pickup, req.WeightKG, false); err == nil {
			fleet = &res
		} else {
			p.log.Warnf("sms fleet: %v", err)
		}
		return nil
	})
	_ = g.Wait()

	in := scoring.Inputs{FleetKnown: fleet != nil}
	var q Quote
	if weather != nil {
		q.Weather = &weather.Data
		in.Weather, in.Confidence.Weather = q.Weather, weather.Confidence
	}
	if market != nil {
		q.Market = &market.Data
		in.Market, in.Confidence.Market = q.Market, market.Confidence
	}
	if fleet != nil {
		in.Candidates = p.matcher.Match(ctx, model.TransportRequest{
			Pickup:             pickup,
			RequiredCapacityKG: req.WeightKG,
			Perishable:         req.Product.Perishable(),
			MaxWaitMinutes:     session.DefaultMaxWait,
		}, fleet.Data)
		in.Confidence.Transport = fleet.Confidence
		q.Best = bestRated(in.Candidates)
	}

	q.Route = session.PlanRoute(ctx, p.router, p.matcher.Options().AvgSpeedKMH, pickup, req.To.Destination(), req.Product)
	temp, hum := 25.0, 60.0
	if q.Weather != nil {
		temp, hum = q.Weather.TemperatureC, q.Weather.HumidityPct
	}
	q.SpoilageRisk = spoilage.Risk(req.Product.Name, temp, hum, float64(q.Route.DurationMinutes)/60)
	q.CostEstimate = req.WeightKG * session.CostPerKG
	if req.Product.Perishable() {
		q.CostEstimate *= PerishablePremium
	}
	q.Score = p.scorer.Score(in)
	q.Tips = session.Tips(req.Product, req.From.Name, q.Weather)
	if len(q.Tips) > 3 {
		q.Tips = q.Tips[:3]
	}
	return q
}

// bestRated picks the highest rated candidate; ties keep arrival order.
func bestRated(cands []model.VehicleCandidate) *model.VehicleCandidate {
	var best *model.VehicleCandidate
	for i := range cands {
		if best == nil || cands[i].Vehicle.Rating > best.Vehicle.Rating {
			best = &cands[i]
		}
	}
	return best
}

func (p *Processor) record(outcome string) {
	if err := p.rec.RecordSessionTurn(metrics.SessionEvent{
		Stage: "sms", Outcome: outcome, Terminal: true, Time: p.now(),
	}); err != nil {
		p.log.Warnf("record sms turn: %v", err)
	}
}
