package fleet

import (
	"context"
	"errors"

	corefleet "github.com/kilianp07/agriroute/core/fleet"
	"github.com/kilianp07/agriroute/core/model"
)

// ErrEmptySnapshot is returned when no telemetry has been received yet.
var ErrEmptySnapshot = errors.New("live fleet: no vehicles reported")

// Live serves the snapshot maintained by MQTT ingestion.
type Live struct {
	store *corefleet.Store
}

// NewLive returns the live source.
func NewLive(store *corefleet.Store) *Live { return &Live{store: store} }

func (l *Live) Name() string { return "live" }

func (l *Live) Local() bool { return true }

func (l *Live) Fetch(_ context.Context, _ Query) ([]model.Vehicle, float64, error) {
	snap := l.store.Snapshot(corefleet.Filter{})
	if len(snap) == 0 {
		return nil, 0, ErrEmptySnapshot
	}
	return snap, ConfidenceLive, nil
}
