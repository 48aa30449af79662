// Package factory provides a small generic registry used to build pluggable
// modules (cache stores, booking sinks, metrics sinks) from configuration.
// A module is described by a type string and a map of raw settings which the
// registered constructor decodes into its own typed struct.
//
//	reg := factory.NewRegistry[cache.Store]()
//	_ = reg.Register("memory", func(conf map[string]any) (cache.Store, error) {
//	    var c struct{ CleanupSeconds int `json:"cleanup_seconds"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return NewMemoryStore(time.Duration(c.CleanupSeconds) * time.Second), nil
//	})
//	store, err := reg.Create(factory.ModuleConfig{Type: "memory"})
package factory
