// Package metrics defines the observability contracts of the decision engine.
// A MetricsSink records decisions; optional recorder interfaces cover provider
// fetches, cache lookups, conversational turns and fleet size. Callers use a
// type assertion to find out whether a sink supports an event kind. Concrete
// Prometheus and InfluxDB sinks live in infra/metrics and register themselves
// with the sink registry; several configured sinks are combined in a MultiSink.
package metrics
