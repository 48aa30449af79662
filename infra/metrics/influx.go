package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	corelog "github.com/kilianp07/agriroute/core/logger"
	coremetrics "github.com/kilianp07/agriroute/core/metrics"
	"github.com/kilianp07/agriroute/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes engine events to InfluxDB using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      corelog.Logger
}

// NewInfluxSink creates a sink for cfg. No connection is made.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings InfluxDB and returns a NopSink when the
// health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordDecision writes one decision point.
func (s *InfluxSink) RecordDecision(ev coremetrics.DecisionEvent) error {
	p := write.NewPointWithMeasurement("decision").
		AddTag("recommendation", ev.Recommendation).
		AddTag("cache_hit", strconv.FormatBool(ev.CacheHit)).
		AddTag("component", "decision_engine").
		AddField("combined_score", round3(ev.CombinedScore)).
		AddField("confidence", round3(ev.Confidence)).
		AddField("candidates", ev.Candidates).
		AddField("degraded", strings.Join(ev.Degraded, ",")).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordProviderFetch writes one source attempt.
func (s *InfluxSink) RecordProviderFetch(ev coremetrics.ProviderFetchEvent) error {
	p := write.NewPointWithMeasurement("provider_fetch").
		AddTag("domain", ev.Domain).
		AddTag("source", ev.Source).
		AddTag("success", strconv.FormatBool(ev.Success)).
		AddField("confidence", round3(ev.Confidence)).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000)).
		AddField("errors", ev.Error).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordSessionTurn writes one conversational turn.
func (s *InfluxSink) RecordSessionTurn(ev coremetrics.SessionEvent) error {
	p := write.NewPointWithMeasurement("session_turn").
		AddTag("stage", ev.Stage).
		AddTag("outcome", ev.Outcome).
		AddField("terminal", ev.Terminal).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordBooking writes one confirmed booking.
func (s *InfluxSink) RecordBooking(ev coremetrics.BookingEvent) error {
	p := write.NewPointWithMeasurement("booking").
		AddTag("product", ev.Product).
		AddField("weight_kg", round3(ev.WeightKG)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordFleetSize writes the live snapshot size.
func (s *InfluxSink) RecordFleetSize(size int) error {
	p := write.NewPointWithMeasurement("fleet_size").
		AddTag("component", "fleet_store").
		AddField("vehicles", size).
		SetTime(time.Now())
	return s.write(p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
