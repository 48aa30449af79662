package fleet

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/agriroute/core/model"
)

// Record is the wire shape of one vehicle, used by the telematics API and
// by MQTT telemetry.
type Record struct {
	ID           string  `json:"id"`
	Name         string  `json:"name,omitempty"`
	Phone        string  `json:"phone,omitempty"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	CapacityKG   float64 `json:"capacity_kg"`
	LoadKG       float64 `json:"load_kg"`
	Status       string  `json:"status"`
	Type         string  `json:"type,omitempty"`
	Refrigerated bool    `json:"refrigerated"`
	Rating       float64 `json:"rating,omitempty"`
	CostPerKM    float64 `json:"cost_per_km,omitempty"`
	LastSeen     string  `json:"last_seen,omitempty"`
}

// Vehicle converts the record. Load is clamped into [0, capacity] and an
// unknown status maps to offline.
func (r Record) Vehicle() (model.Vehicle, error) {
	if strings.TrimSpace(r.ID) == "" {
		return model.Vehicle{}, errors.New("vehicle record without id")
	}
	v := model.Vehicle{
		ID:         r.ID,
		Name:       r.Name,
		Phone:      r.Phone,
		Location:   model.Location{Lat: r.Lat, Lon: r.Lon},
		CapacityKG: r.CapacityKG,
		LoadKG:     r.LoadKG,
		Status:     model.ParseVehicleStatus(r.Status),
		Type:       model.VehicleType(strings.ToLower(r.Type)),
		Features:   model.Features{Refrigerated: r.Refrigerated},
		Rating:     r.Rating,
		CostPerKM:  r.CostPerKM,
	}
	if v.LoadKG < 0 {
		v.LoadKG = 0
	}
	if v.LoadKG > v.CapacityKG {
		v.LoadKG = v.CapacityKG
	}
	if r.LastSeen != "" {
		if ts, err := time.Parse(time.RFC3339, r.LastSeen); err == nil {
			v.LastSeen = ts.UTC()
		}
	}
	if err := v.Location.Validate("vehicle"); err != nil {
		return model.Vehicle{}, fmt.Errorf("vehicle %s: %w", r.ID, err)
	}
	return v, nil
}
