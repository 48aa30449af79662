// Package routing estimates road travel with an OpenRouteService style
// directions API. Answers are cached per point pair.
package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/agriroute/core/cache"
	"github.com/kilianp07/agriroute/core/factory"
	"github.com/kilianp07/agriroute/core/geo"
	"github.com/kilianp07/agriroute/core/logger"
	"github.com/kilianp07/agriroute/core/model"
	"github.com/kilianp07/agriroute/infra/httpclient"
)

// DefaultTTL keeps routes for an hour; road times change slowly.
const DefaultTTL = time.Hour

// Config configures the router.
type Config struct {
	BaseURL    string `json:"base_url"`
	APIKey     string `json:"api_key"`
	Profile    string `json:"profile"`
	TTLSeconds int    `json:"ttl_seconds"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.Profile == "" {
		c.Profile = "driving-car"
	}
	if c.TTLSeconds <= 0 {
		c.TTLSeconds = int(DefaultTTL / time.Second)
	}
}

// Enabled reports whether a routing endpoint is configured.
func (c Config) Enabled() bool { return c.BaseURL != "" }

// Router implements geo.RouteEstimator.
type Router struct {
	hc      *httpclient.Client
	gw      *cache.Gateway
	baseURL string
	apiKey  string
	profile string
	ttl     time.Duration
	log     logger.Logger
}

var _ geo.RouteEstimator = (*Router)(nil)

// New returns a router. gw may be nil to disable caching.
func New(cfg Config, gw *cache.Gateway, hc *httpclient.Client, log logger.Logger) (*Router, error) {
	cfg.SetDefaults()
	if !cfg.Enabled() {
		return nil, errors.New("routing: base_url is required")
	}
	if hc == nil {
		return nil, errors.New("routing: http client is nil")
	}
	return &Router{
		hc:      hc,
		gw:      gw,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		profile: cfg.Profile,
		ttl:     factory.Seconds(cfg.TTLSeconds, DefaultTTL),
		log:     logger.OrNop(log),
	}, nil
}

type orsResponse struct {
	Features []struct {
		Properties struct {
			Summary struct {
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
			} `json:"summary"`
		} `json:"properties"`
	} `json:"features"`
}

// Estimate returns the routed distance and duration from one point to
// another.
func (r *Router) Estimate(ctx context.Context, from, to model.Location) (geo.Route, error) {
	route, _, err := cache.GetOrFetch(ctx, r.gw, cache.RouteKey(from, to), r.ttl, false, func(ctx context.Context) (geo.Route, error) {
		return r.fetch(ctx, from, to)
	})
	return route, err
}

func (r *Router) fetch(ctx context.Context, from, to model.Location) (geo.Route, error) {
	v := url.Values{}
	if r.apiKey != "" {
		v.Set("api_key", r.apiKey)
	}
	v.Set("start", lonLat(from))
	v.Set("end", lonLat(to))
	endpoint := fmt.Sprintf("%s/v2/directions/%s?%s", r.baseURL, r.profile, v.Encode())

	var raw orsResponse
	if err := r.hc.GetJSON(ctx, endpoint, nil, &raw); err != nil {
		return geo.Route{}, fmt.Errorf("routing: %w", err)
	}
	if len(raw.Features) == 0 {
		return geo.Route{}, errors.New("routing: no route found")
	}
	s := raw.Features[0].Properties.Summary
	r.log.Debugf("routed %.1f km in %.0f s", s.Distance/1000, s.Duration)
	return geo.Route{
		DistanceKM:      model.Round(s.Distance/1000, 2),
		DurationMinutes: int(math.Ceil(s.Duration / 60)),
		Source:          "openrouteservice",
	}, nil
}

func lonLat(l model.Location) string {
	return strconv.FormatFloat(l.Lon, 'f', 6, 64) + "," + strconv.FormatFloat(l.Lat, 'f', 6, 64)
}
