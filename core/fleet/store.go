// Package fleet keeps the live snapshot of vehicles reported by telemetry.
package fleet

import (
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/agriroute/core/events"
	"github.com/kilianp07/agriroute/core/model"
	"github.com/kilianp07/agriroute/internal/eventbus"
)

// Filter narrows a snapshot. Zero fields match everything.
type Filter struct {
	Status model.VehicleStatus
	Type   model.VehicleType
}

func (f Filter) match(v model.Vehicle) bool {
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	if f.Type != "" && v.Type != f.Type {
		return false
	}
	return true
}

// Store is a concurrency safe map of vehicles keyed by ID. Readers get
// copies so a snapshot never changes under the matcher.
type Store struct {
	mu   sync.RWMutex
	data map[string]model.Vehicle
	bus  *eventbus.Bus[events.Event]
	now  func() time.Time
}

// NewStore returns an empty store. bus may be nil.
func NewStore(bus *eventbus.Bus[events.Event]) *Store {
	return &Store{data: map[string]model.Vehicle{}, bus: bus, now: time.Now}
}

// Upsert stores v, stamping LastSeen when unset, and publishes the update.
func (s *Store) Upsert(v model.Vehicle) {
	if v.LastSeen.IsZero() {
		v.LastSeen = s.now().UTC()
	}
	s.mu.Lock()
	s.data[v.ID] = v
	s.mu.Unlock()
	if s.bus != nil {
		s.bus.Publish(events.FleetUpdated(v))
	}
}

// Get returns the vehicle with the given ID.
func (s *Store) Get(id string) (model.Vehicle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[id]
	return v, ok
}

// Snapshot returns the vehicles matching f sorted by ID.
func (s *Store) Snapshot(f Filter) []model.Vehicle {
	s.mu.RLock()
	res := make([]model.Vehicle, 0, len(s.data))
	for _, v := range s.data {
		if f.match(v) {
			res = append(res, v)
		}
	}
	s.mu.RUnlock()
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Len returns the number of known vehicles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Prune drops vehicles not seen for longer than maxAge and returns how many
// were removed.
func (s *Store) Prune(maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, v := range s.data {
		if v.LastSeen.Before(cutoff) {
			delete(s.data, id)
			n++
		}
	}
	return n
}
