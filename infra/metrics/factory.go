package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/agriroute/core/factory"
	coremetrics "github.com/kilianp07/agriroute/core/metrics"
)

// init registers the built-in sinks next to the core nop sink.
func init() {
	_ = coremetrics.RegisterMetricsSink("prometheus", func(map[string]any) (coremetrics.MetricsSink, error) {
		return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	})

	_ = coremetrics.RegisterMetricsSink("influx", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c), nil
	})
}
