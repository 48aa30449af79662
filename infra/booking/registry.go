package booking

import (
	corebooking "github.com/kilianp07/agriroute/core/booking"
	"github.com/kilianp07/agriroute/core/factory"
	"github.com/kilianp07/agriroute/core/logger"
)

// Registry holds the sink factories. Built-ins: nop, jsonl, nats, amqp, mqtt.
var Registry = factory.NewRegistry[corebooking.Sink]()

func init() {
	_ = Registry.Register("nop", func(map[string]any) (corebooking.Sink, error) {
		return corebooking.NopSink{}, nil
	})
	_ = Registry.Register("jsonl", func(conf map[string]any) (corebooking.Sink, error) {
		var cfg JSONLConfig
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, err
		}
		return NewJSONLSink(cfg)
	})
	_ = Registry.Register("nats", func(conf map[string]any) (corebooking.Sink, error) {
		var cfg NATSConfig
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, err
		}
		return NewNATSSink(cfg)
	})
	_ = Registry.Register("amqp", func(conf map[string]any) (corebooking.Sink, error) {
		var cfg AMQPConfig
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, err
		}
		return NewAMQPSink(cfg)
	})
	_ = Registry.Register("mqtt", func(conf map[string]any) (corebooking.Sink, error) {
		var cfg MQTTConfig
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, err
		}
		return NewMQTTSink(cfg)
	})
}

// New builds every configured sink behind one MultiSink.
func New(cfgs []factory.ModuleConfig, log logger.Logger) (*corebooking.MultiSink, error) {
	sinks, err := Registry.CreateAll(cfgs)
	if err != nil {
		return nil, err
	}
	return corebooking.NewMultiSink(log, sinks...), nil
}
