package fleet

import (
	"context"
	"time"

	"github.com/kilianp07/agriroute/core/model"
)

func truck(id, name, phone string, lat, lon, capacity float64, status model.VehicleStatus, typ model.VehicleType, rating, costPerKM float64) model.Vehicle {
	return model.Vehicle{
		ID:         id,
		Name:       name,
		Phone:      phone,
		Location:   model.Location{Lat: lat, Lon: lon},
		CapacityKG: capacity,
		Status:     status,
		Type:       typ,
		Features:   model.Features{Refrigerated: typ == model.TypeRefrigeratedTruck || typ == model.TypeRefrigeratedVan},
		Rating:     rating,
		CostPerKM:  costPerKM,
	}
}

// MockFleet is the built-in fleet: depot trucks, the partner transporters
// around Harare and one carrier per regional town.
var MockFleet = []model.Vehicle{
	truck("T-001", "", "", -17.800, 31.050, 2000, model.StatusAvailable, model.TypeRefrigeratedTruck, 0, 0.12),
	truck("T-002", "", "", -17.760, 31.020, 800, model.StatusAvailable, model.TypeVan, 0, 0.15),
	truck("T-003", "", "", -18.970, 32.640, 1500, model.StatusBusy, model.TypeGeneralTruck, 0, 0.10),
	truck("C-001", "Chido Transport", "0771234567", -17.829, 31.052, 2000, model.StatusAvailable, model.TypeRefrigeratedTruck, 4.5, 0.12),
	truck("C-002", "Tafara Logistics", "0772345678", -17.850, 31.130, 2500, model.StatusAvailable, model.TypeGeneralTruck, 4.2, 0.10),
	truck("C-003", "Fresh Van Co.", "0773456789", -17.790, 31.060, 800, model.StatusAvailable, model.TypeRefrigeratedVan, 4.7, 0.15),
	truck("R-001", "Renkini Haulage", "0774567890", -20.150, 28.580, 3000, model.StatusAvailable, model.TypeGeneralTruck, 4.0, 0.10),
	truck("R-002", "Sakubva Cold Chain", "0775678901", -18.990, 32.650, 1000, model.StatusAvailable, model.TypeRefrigeratedVan, 4.3, 0.15),
	truck("R-003", "Midlands Carriers", "0776789012", -19.450, 29.820, 2500, model.StatusAvailable, model.TypeRefrigeratedTruck, 4.1, 0.12),
	truck("R-004", "Masvingo Movers", "0777890123", -20.070, 30.830, 2000, model.StatusAvailable, model.TypePickup, 3.9, 0.20),
}

// Mock serves MockFleet stamped with the current time.
type Mock struct {
	now func() time.Time
}

// NewMock returns the mock source.
func NewMock() *Mock { return &Mock{now: time.Now} }

func (m *Mock) Name() string { return "mock-fleet" }

func (m *Mock) Local() bool { return true }

func (m *Mock) Fetch(_ context.Context, _ Query) ([]model.Vehicle, float64, error) {
	now := m.now().UTC()
	out := make([]model.Vehicle, len(MockFleet))
	for i, v := range MockFleet {
		v.LastSeen = now
		out[i] = v
	}
	return out, ConfidenceMock, nil
}
