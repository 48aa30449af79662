package fleet

import (
	"encoding/json"
	"net/http"
	"strings"

	corefleet "github.com/kilianp07/agriroute/core/fleet"
	"github.com/kilianp07/agriroute/core/model"
)

// Snapshotter lists the live fleet.
type Snapshotter interface {
	Snapshot(f corefleet.Filter) []model.Vehicle
}

// NewStatusHandler returns an HTTP handler exposing the live fleet via
// GET /api/fleet. Optional query parameters status and type filter it.
func NewStatusHandler(store Snapshotter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var f corefleet.Filter
		if s := r.URL.Query().Get("status"); s != "" {
			st := model.ParseVehicleStatus(s)
			if st == model.StatusOffline && !strings.EqualFold(strings.TrimSpace(s), string(model.StatusOffline)) {
				http.Error(w, "unknown status "+s, http.StatusBadRequest)
				return
			}
			f.Status = st
		}
		f.Type = model.VehicleType(strings.ToLower(r.URL.Query().Get("type")))
		entries := store.Snapshot(f)
		if entries == nil {
			entries = []model.Vehicle{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entries); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
