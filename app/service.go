// Package app wires the configured components into a running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/agriroute/api"
	apibookings "github.com/kilianp07/agriroute/api/bookings"
	"github.com/kilianp07/agriroute/config"
	corebooking "github.com/kilianp07/agriroute/core/booking"
	corecache "github.com/kilianp07/agriroute/core/cache"
	"github.com/kilianp07/agriroute/core/decision"
	"github.com/kilianp07/agriroute/core/events"
	corefleet "github.com/kilianp07/agriroute/core/fleet"
	"github.com/kilianp07/agriroute/core/geo"
	coremetrics "github.com/kilianp07/agriroute/core/metrics"
	"github.com/kilianp07/agriroute/core/provider"
	"github.com/kilianp07/agriroute/core/scoring"
	"github.com/kilianp07/agriroute/core/session"
	"github.com/kilianp07/agriroute/core/sms"
	"github.com/kilianp07/agriroute/infra/booking"
	infracache "github.com/kilianp07/agriroute/infra/cache"
	"github.com/kilianp07/agriroute/infra/httpclient"
	"github.com/kilianp07/agriroute/infra/logger"
	"github.com/kilianp07/agriroute/infra/metrics"
	"github.com/kilianp07/agriroute/infra/mqtt"
	"github.com/kilianp07/agriroute/infra/providers"
	"github.com/kilianp07/agriroute/infra/providers/fleet"
	"github.com/kilianp07/agriroute/infra/providers/market"
	"github.com/kilianp07/agriroute/infra/providers/routing"
	"github.com/kilianp07/agriroute/infra/providers/weather"
	"github.com/kilianp07/agriroute/infra/telemetry"
	"github.com/kilianp07/agriroute/internal/eventbus"
)

// Service owns every long lived component.
type Service struct {
	Engine   *decision.Engine
	Sessions *session.Machine
	SMS      *sms.Processor
	Fleet    *corefleet.Store
	Signals  *providers.Hub

	cfg       *config.Config
	log       logger.Logger
	bus       *eventbus.Bus[events.Event]
	sink      coremetrics.MetricsSink
	cache     corecache.Store
	sessionKV corecache.Store
	bookings  *corebooking.MultiSink
	mqtt      *mqtt.Client
	telemetry *telemetry.Manager
	handler   http.Handler
}

// New builds the service from cfg. Nothing is started until Run.
func New(cfg *config.Config) (svc *Service, err error) {
	logger.Configure(cfg.Logging.Level, cfg.Logging.Format)
	s := &Service{
		cfg: cfg,
		log: logger.New("service"),
		bus: eventbus.New[events.Event](cfg.EventBus.Buffer),
	}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()
	s.Fleet = corefleet.NewStore(s.bus)

	if s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}
	if s.cache, err = infracache.New(cfg.Cache.Store); err != nil {
		return nil, fmt.Errorf("cache store: %w", err)
	}
	minTTL, maxTTL := cfg.Cache.TTLBounds()
	gwOpts := []corecache.Option{corecache.WithLogger(logger.New("cache")), corecache.WithTTLBounds(minTTL, maxTTL)}
	if r, ok := s.sink.(coremetrics.CacheRecorder); ok {
		gwOpts = append(gwOpts, corecache.WithRecorder(r))
	}
	gw := corecache.NewGateway(s.cache, gwOpts...)

	hc := httpclient.New(cfg.HTTPClient.Client(), logger.New("httpclient"))
	chainOpts := []provider.ChainOption{
		provider.WithSourceTimeout(cfg.Providers.SourceTimeout()),
		provider.WithChainLogger(logger.New("provider")),
	}
	if r, ok := s.sink.(coremetrics.ProviderRecorder); ok {
		chainOpts = append(chainOpts, provider.WithChainRecorder(r))
	}
	wf, err := weather.NewFetcher(cfg.Providers.Weather, gw, hc, chainOpts...)
	if err != nil {
		return nil, fmt.Errorf("weather fetcher: %w", err)
	}
	mf, err := market.NewFetcher(cfg.Providers.Market, gw, hc, chainOpts...)
	if err != nil {
		return nil, fmt.Errorf("market fetcher: %w", err)
	}
	ff, err := fleet.NewFetcher(cfg.Providers.Fleet, gw, hc, s.Fleet, chainOpts...)
	if err != nil {
		return nil, fmt.Errorf("fleet fetcher: %w", err)
	}
	if s.Signals, err = providers.NewHub(wf, mf, ff, cfg.Providers.Weather.Units, cfg.Providers.Market.RadiusKM); err != nil {
		return nil, err
	}

	matcherOpts := []geo.MatcherOption{geo.WithMatcherLogger(logger.New("matcher"))}
	if cfg.Providers.Routing.Enabled() {
		router, err := routing.New(cfg.Providers.Routing, gw, hc, logger.New("routing"))
		if err != nil {
			return nil, fmt.Errorf("router: %w", err)
		}
		matcherOpts = append(matcherOpts, geo.WithRouter(router))
	}
	matcher := geo.NewMatcher(cfg.Matcher.Options(), matcherOpts...)
	scorer := scoring.NewMeanScorer(cfg.Scoring.AdverseTerms...)

	s.Engine, err = decision.NewEngine(cfg.Decision, s.Signals, matcher,
		decision.WithScorer(scorer),
		decision.WithMetrics(s.sink),
		decision.WithBus(s.bus),
		decision.WithLogger(logger.New("decision")),
	)
	if err != nil {
		return nil, fmt.Errorf("decision engine: %w", err)
	}

	if s.bookings, err = booking.New(cfg.Booking.Sinks, logger.New("booking")); err != nil {
		return nil, fmt.Errorf("booking sinks: %w", err)
	}
	if s.sessionKV, err = infracache.New(cfg.Session.Store); err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	sessOpts := []session.Option{
		session.WithScorer(scorer),
		session.WithSink(s.bookings),
		session.WithBus(s.bus),
		session.WithLogger(logger.New("session")),
		session.WithMaxWait(cfg.Session.MaxWaitMinutes),
	}
	if r, ok := s.sink.(coremetrics.SessionRecorder); ok {
		sessOpts = append(sessOpts, session.WithRecorder(r))
	}
	if s.Sessions, err = session.NewMachine(session.NewKVStore(s.sessionKV, cfg.Session.TTL()), s.Signals, matcher, sessOpts...); err != nil {
		return nil, fmt.Errorf("session machine: %w", err)
	}
	smsOpts := []sms.Option{
		sms.WithScorer(scorer),
		sms.WithLogger(logger.New("sms")),
		sms.WithSourceTimeout(cfg.Providers.SourceTimeout()),
	}
	if r, ok := s.sink.(coremetrics.SessionRecorder); ok {
		smsOpts = append(smsOpts, sms.WithRecorder(r))
	}
	if s.SMS, err = sms.NewProcessor(s.Signals, matcher, smsOpts...); err != nil {
		return nil, fmt.Errorf("sms processor: %w", err)
	}

	if cfg.Telemetry.Enabled {
		if s.mqtt, err = mqtt.Connect(cfg.MQTT, "telemetry"); err != nil {
			return nil, fmt.Errorf("mqtt: %w", err)
		}
		if s.telemetry, err = telemetry.NewManager(s.mqtt, cfg.Telemetry, s.Fleet, prometheus.DefaultRegisterer); err != nil {
			return nil, fmt.Errorf("telemetry: %w", err)
		}
	}

	s.handler = api.NewMux(api.Deps{
		Decider:  s.Engine,
		Sessions: s.Sessions,
		SMS:      s.SMS,
		Fleet:    s.Fleet,
		Live:     s.bus,
		Ledger:   ledger(s.bookings),
		Gatherer: prometheus.DefaultGatherer,
		Checks:   s.checks(),
		Token:    cfg.HTTP.Token,
		Log:      logger.New("api"),
	})
	return s, nil
}

// ledger returns the first sink able to answer booking queries.
func ledger(m *corebooking.MultiSink) apibookings.Ledger {
	for _, s := range m.Sinks() {
		if l, ok := s.(*booking.JSONLSink); ok {
			return l
		}
	}
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Service) checks() map[string]api.HealthCheck {
	checks := map[string]api.HealthCheck{}
	if p, ok := s.cache.(pinger); ok {
		checks["cache"] = p.Ping
	}
	if p, ok := s.sessionKV.(pinger); ok {
		checks["sessions"] = p.Ping
	}
	if s.mqtt != nil {
		checks["mqtt"] = func(context.Context) error {
			if !s.mqtt.Connected() {
				return errors.New("not connected")
			}
			return nil
		}
	}
	return checks
}

// Handler returns the HTTP surface.
func (s *Service) Handler() http.Handler { return s.handler }

// Run serves HTTP and ingests telemetry until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	metrics.StartEventCollector(ctx, s.bus, s.sink, s.Fleet)
	g.Go(func() error { return api.Serve(ctx, s.cfg.HTTP, s.handler, s.log) })
	if s.telemetry != nil {
		g.Go(func() error { return s.telemetry.Start(ctx) })
	}
	s.log.Infow("service started", map[string]any{
		"addr":      s.cfg.HTTP.Addr,
		"telemetry": s.telemetry != nil,
		"cache":     s.cfg.Cache.Store.Type,
	})
	return g.Wait()
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	if s.bookings != nil {
		errs = append(errs, s.bookings.Close())
	}
	if s.sessionKV != nil {
		errs = append(errs, s.sessionKV.Close())
	}
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	s.bus.Close()
	return errors.Join(errs...)
}
