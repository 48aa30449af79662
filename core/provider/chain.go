package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/agriroute/core/logger"
	"github.com/kilianp07/agriroute/core/metrics"
	"github.com/kilianp07/agriroute/core/model"
)

// Chain tries its sources in order and returns the first usable answer.
// Results are never merged across sources.
type Chain[Q, T any] struct {
	domain  string
	sources []Source[Q, T]
	timeout time.Duration
	log     logger.Logger
	rec     metrics.ProviderRecorder
}

// ChainOption configures a Chain.
type ChainOption func(*chainOpts)

type chainOpts struct {
	timeout time.Duration
	log     logger.Logger
	rec     metrics.ProviderRecorder
}

// WithSourceTimeout bounds every single source attempt.
func WithSourceTimeout(d time.Duration) ChainOption { return func(o *chainOpts) { o.timeout = d } }

// WithChainLogger sets the logger.
func WithChainLogger(l logger.Logger) ChainOption { return func(o *chainOpts) { o.log = l } }

// WithChainRecorder sets the recorder notified of every attempt.
func WithChainRecorder(r metrics.ProviderRecorder) ChainOption {
	return func(o *chainOpts) { o.rec = r }
}

// NewChain builds a chain for domain. At least one source is required.
func NewChain[Q, T any](domain string, sources []Source[Q, T], opts ...ChainOption) (*Chain[Q, T], error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("%s chain: no sources", domain)
	}
	for i, s := range sources {
		if s == nil {
			return nil, fmt.Errorf("%s chain: source %d is nil", domain, i)
		}
	}
	o := chainOpts{}
	for _, fn := range opts {
		fn(&o)
	}
	return &Chain[Q, T]{
		domain:  domain,
		sources: sources,
		timeout: o.timeout,
		log:     logger.OrNop(o.log),
		rec:     o.rec,
	}, nil
}

// Domain returns the chain domain, e.g. "weather".
func (c *Chain[Q, T]) Domain() string { return c.domain }

// Sources lists source names in priority order.
func (c *Chain[Q, T]) Sources() []string {
	out := make([]string, len(c.sources))
	for i, s := range c.sources {
		out[i] = s.Name()
	}
	return out
}

// Fetch walks the chain. A source that times out is treated like any other
// failure and the next source is tried synchronously. When every source
// fails the error wraps model.ErrUpstreamUnavailable.
func (c *Chain[Q, T]) Fetch(ctx context.Context, q Q) (Result[T], error) {
	var errs []error
	for _, src := range c.sources {
		actx := ctx
		if err := ctx.Err(); err != nil {
			if !IsLocal(src) {
				errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
				continue
			}
			// local sources still answer once the caller's budget is spent
			actx = context.WithoutCancel(ctx)
		}
		start := time.Now()
		data, conf, err := c.attempt(actx, src, q)
		ev := metrics.ProviderFetchEvent{
			Domain:     c.domain,
			Source:     src.Name(),
			Success:    err == nil,
			Confidence: conf,
			Latency:    time.Since(start),
			Time:       start,
		}
		if err != nil {
			ev.Error = err.Error()
			c.record(ev)
			c.log.Warnf("%s source %s failed: %v", c.domain, src.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		c.record(ev)
		return Result[T]{Data: data, Source: src.Name(), Confidence: clamp01(conf), FetchedAt: start, Local: IsLocal(src)}, nil
	}
	var zero Result[T]
	return zero, fmt.Errorf("%s: %w: %w", c.domain, model.ErrUpstreamUnavailable, errors.Join(errs...))
}

func (c *Chain[Q, T]) attempt(ctx context.Context, src Source[Q, T], q Q) (T, float64, error) {
	if c.timeout <= 0 {
		return src.Fetch(ctx, q)
	}
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return src.Fetch(actx, q)
}

func (c *Chain[Q, T]) record(ev metrics.ProviderFetchEvent) {
	if c.rec == nil {
		return
	}
	if err := c.rec.RecordProviderFetch(ev); err != nil {
		c.log.Debugf("record provider fetch: %v", err)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
