package metrics

import (
	"context"

	"github.com/kilianp07/agriroute/core/events"
	coremetrics "github.com/kilianp07/agriroute/core/metrics"
	"github.com/kilianp07/agriroute/internal/eventbus"
)

// FleetSizer reports the live snapshot size.
type FleetSizer interface {
	Len() int
}

// StartEventCollector turns bus events into metrics until ctx is done.
// Decisions are recorded by the engine itself and are ignored here.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[events.Event], sink coremetrics.MetricsSink, fleet FleetSizer) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				collect(ev, sink, fleet)
			}
		}
	}()
}

func collect(ev events.Event, sink coremetrics.MetricsSink, fleet FleetSizer) {
	switch ev.Kind {
	case events.KindFleetUpdated:
		if ev.Vehicle == nil {
			return
		}
		if r, ok := sink.(coremetrics.VehicleStateRecorder); ok {
			_ = r.RecordVehicleState(coremetrics.VehicleStateEvent{
				VehicleID:   ev.Vehicle.ID,
				Status:      string(ev.Vehicle.Status),
				AvailableKG: ev.Vehicle.Available(),
				Time:        ev.Time,
			})
		}
		if r, ok := sink.(coremetrics.FleetSizeRecorder); ok && fleet != nil {
			_ = r.RecordFleetSize(fleet.Len())
		}
	case events.KindBookingCreated:
		if ev.Booking == nil {
			return
		}
		if r, ok := sink.(coremetrics.BookingRecorder); ok {
			_ = r.RecordBooking(coremetrics.BookingEvent{
				Product:  ev.Booking.Product,
				WeightKG: ev.Booking.WeightKG,
				Time:     ev.Time,
			})
		}
	}
}
