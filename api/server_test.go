package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/agriroute/core/events"
	corefleet "github.com/kilianp07/agriroute/core/fleet"
	"github.com/kilianp07/agriroute/core/model"
	coresms "github.com/kilianp07/agriroute/core/sms"
	"github.com/kilianp07/agriroute/internal/eventbus"
)

func TestHealthHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler(map[string]HealthCheck{
		"cache": func(context.Context) error { return nil },
	}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	NewHealthHandler(map[string]HealthCheck{
		"cache": func(context.Context) error { return nil },
		"mqtt":  func(context.Context) error { return errors.New("not connected") },
	}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var out struct {
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, "ok", out.Checks["cache"])
	assert.Equal(t, "not connected", out.Checks["mqtt"])
}

func TestNewMuxMountsConfiguredRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "agriroute_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	store := corefleet.NewStore(nil)
	store.Upsert(model.Vehicle{ID: "v1", CapacityKG: 100, Status: model.StatusAvailable})
	mux := NewMux(Deps{Fleet: store, Live: eventbus.New[events.Event](1), Gatherer: reg})

	for path, want := range map[string]int{
		"/api/fleet":    http.StatusOK,
		"/healthz":      http.StatusOK,
		"/metrics":      http.StatusOK,
		"/api/decision": http.StatusNotFound,
		"/ussd":         http.StatusNotFound,
		"/sms":          http.StatusNotFound,
		"/api/bookings": http.StatusNotFound,
	} {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, rr.Code, path)
		if path == "/metrics" {
			assert.Contains(t, rr.Body.String(), "agriroute_test_total 1")
		}
	}
}

type smsReplier struct{}

func (smsReplier) Handle(_ context.Context, msg coresms.Message) (coresms.Reply, error) {
	return coresms.Reply{To: msg.From, Message: "ok", Status: coresms.StatusSuccess}, nil
}

func TestNewMuxMountsSMS(t *testing.T) {
	mux := NewMux(Deps{SMS: smsReplier{}})
	req := httptest.NewRequest(http.MethodPost, "/sms", strings.NewReader("from=%2B263&text=maize"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"to_number":"+263"`)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sms", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestServeStopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	cfg := Config{Addr: addr}
	cfg.SetDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, cfg, NewMux(Deps{}), nil) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeReportsListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	cfg := Config{Addr: l.Addr().String()}
	cfg.SetDefaults()
	err = Serve(context.Background(), cfg, http.NotFoundHandler(), nil)
	assert.ErrorContains(t, err, "http server")
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.Equal(t, ":8080", c.Addr)
	assert.NoError(t, c.Validate())
	assert.Error(t, Config{}.Validate())
}
