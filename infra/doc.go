// Package infra contains technical adapters such as MQTT clients, signal
// providers, caches and metrics exporters. These packages depend only on the
// interfaces defined in the core packages.
package infra
