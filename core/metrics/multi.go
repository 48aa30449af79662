package metrics

// MultiSink fans out events to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDecision forwards the event to all sinks, returning the first error.
func (m *MultiSink) RecordDecision(ev DecisionEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordDecision(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordProviderFetch forwards provider events when supported by the sink.
func (m *MultiSink) RecordProviderFetch(ev ProviderFetchEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ProviderRecorder); ok {
			if err := rec.RecordProviderFetch(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordCacheLookup forwards cache events when supported by the sink.
func (m *MultiSink) RecordCacheLookup(ev CacheEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(CacheRecorder); ok {
			if err := rec.RecordCacheLookup(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordSessionTurn forwards session events when supported by the sink.
func (m *MultiSink) RecordSessionTurn(ev SessionEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(SessionRecorder); ok {
			if err := rec.RecordSessionTurn(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordFleetSize forwards fleet size when supported by the sink.
func (m *MultiSink) RecordFleetSize(size int) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(FleetSizeRecorder); ok {
			if err := rec.RecordFleetSize(size); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordBooking forwards booking events when supported by the sink.
func (m *MultiSink) RecordBooking(ev BookingEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(BookingRecorder); ok {
			if err := rec.RecordBooking(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordVehicleState forwards fleet updates when supported by the sink.
func (m *MultiSink) RecordVehicleState(ev VehicleStateEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(VehicleStateRecorder); ok {
			if err := rec.RecordVehicleState(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
