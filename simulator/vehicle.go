package simulator

import (
	"math/rand/v2"
	"time"

	corefleet "github.com/kilianp07/agriroute/core/fleet"
	"github.com/kilianp07/agriroute/core/geo"
	"github.com/kilianp07/agriroute/core/model"
)

// idleJitterDeg is how far an idle truck wanders around its depot per tick.
const idleJitterDeg = 0.002

// Vehicle is one simulated truck.
type Vehicle struct {
	ID          string
	Name        string
	Phone       string
	Type        model.VehicleType
	CapacityKG  float64
	LoadKG      float64
	Status      model.VehicleStatus
	Position    model.Location
	Home        model.Location
	Destination *model.Location
	Rating      float64
	CostPerKM   float64
}

// Assign loads weightKG and sends the truck to dest. It fails when the
// truck is not available or lacks the spare capacity.
func (v *Vehicle) Assign(dest model.Location, weightKG float64) bool {
	if v.Status != model.StatusAvailable || v.CapacityKG-v.LoadKG < weightKG {
		return false
	}
	v.LoadKG += weightKG
	v.Status = model.StatusEnRoute
	d := dest
	v.Destination = &d
	return true
}

// Step advances the truck by dt at speedKMH. A truck reaching its
// destination unloads and becomes available there.
func (v *Vehicle) Step(r *rand.Rand, dt time.Duration, speedKMH float64) {
	if v.Destination == nil {
		if v.Status == model.StatusAvailable {
			v.Position.Lat += (r.Float64()*2 - 1) * idleJitterDeg
			v.Position.Lon += (r.Float64()*2 - 1) * idleJitterDeg
		}
		return
	}
	remaining := geo.Haversine(v.Position, *v.Destination)
	travel := speedKMH * dt.Hours()
	if remaining <= travel || remaining == 0 {
		v.Position = *v.Destination
		v.Destination = nil
		v.LoadKG = 0
		v.Status = model.StatusAvailable
		v.Home = v.Position
		return
	}
	f := travel / remaining
	v.Position.Lat += (v.Destination.Lat - v.Position.Lat) * f
	v.Position.Lon += (v.Destination.Lon - v.Position.Lon) * f
}

// Record renders the state message published for the truck.
func (v *Vehicle) Record(now time.Time) corefleet.Record {
	return corefleet.Record{
		ID:           v.ID,
		Name:         v.Name,
		Phone:        v.Phone,
		Lat:          model.Round(v.Position.Lat, 5),
		Lon:          model.Round(v.Position.Lon, 5),
		CapacityKG:   v.CapacityKG,
		LoadKG:       v.LoadKG,
		Status:       string(v.Status),
		Type:         string(v.Type),
		Refrigerated: v.Type == model.TypeRefrigeratedTruck || v.Type == model.TypeRefrigeratedVan,
		Rating:       v.Rating,
		CostPerKM:    v.CostPerKM,
		LastSeen:     now.UTC().Format(time.RFC3339),
	}
}
