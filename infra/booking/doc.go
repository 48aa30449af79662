// Package booking provides the booking sinks selectable from configuration:
// a rotating JSONL ledger, NATS and AMQP publishers, and a no-op sink.
package booking
