// Package api assembles the HTTP surface of the service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/agriroute/api/bookings"
	"github.com/kilianp07/agriroute/api/decision"
	"github.com/kilianp07/agriroute/api/fleet"
	"github.com/kilianp07/agriroute/api/live"
	"github.com/kilianp07/agriroute/api/sms"
	"github.com/kilianp07/agriroute/api/ussd"
	"github.com/kilianp07/agriroute/core/logger"
)

// Config holds the listener settings.
type Config struct {
	Addr              string `json:"addr"`
	// Token protects the bookings endpoint when set.
	Token             string `json:"token"`
	ReadHeaderTimeout int    `json:"read_header_timeout_seconds"`
	ShutdownTimeout   int    `json:"shutdown_timeout_seconds"`
}

// SetDefaults fills missing values.
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = 5
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5
	}
}

// Validate checks the listener settings.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("http addr is required")
	}
	return nil
}

// HealthCheck reports a dependency problem.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators behind the routes. Nil optional entries leave
// their routes unmounted.
type Deps struct {
	Decider  decision.Decider
	Sessions ussd.TurnHandler
	SMS      sms.Replier
	Fleet    fleet.Snapshotter
	Live     live.Subscriber
	Ledger   bookings.Ledger
	Gatherer prometheus.Gatherer
	Checks   map[string]HealthCheck
	Token    string
	Log      logger.Logger
}

// NewMux mounts every route.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()
	if d.Decider != nil {
		mux.Handle("/api/decision", decision.NewHandler(d.Decider))
		mux.Handle("/api/decision/batch", decision.NewBatchHandler(d.Decider))
	}
	if d.Sessions != nil {
		mux.Handle("/ussd", ussd.NewHandler(d.Sessions, d.Log))
	}
	if d.SMS != nil {
		mux.Handle("/sms", sms.NewHandler(d.SMS, d.Log))
	}
	if d.Fleet != nil {
		mux.Handle("/api/fleet", fleet.NewStatusHandler(d.Fleet))
	}
	if d.Live != nil {
		mux.Handle("/ws/live", live.NewHandler(d.Live, d.Log))
	}
	if d.Ledger != nil {
		mux.Handle("/api/bookings", bookings.NewLogHandler(d.Ledger, d.Token))
	}
	g := d.Gatherer
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", NewHealthHandler(d.Checks))
	return mux
}

// NewHealthHandler answers 200 when every check passes and 503 otherwise.
func NewHealthHandler(checks map[string]HealthCheck) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := http.StatusOK
		out := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				out[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			out[name] = "ok"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": http.StatusText(status), "checks": out})
	})
}

// Serve runs h on cfg.Addr until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, cfg Config, h http.Handler, log logger.Logger) error {
	log = logger.OrNop(log)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeout) * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("http listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("http shutdown: %v", err)
		return err
	}
	return nil
}
