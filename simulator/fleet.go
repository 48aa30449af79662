package simulator

import (
	"fmt"
	"math/rand/v2"

	"github.com/kilianp07/agriroute/core/catalog"
	"github.com/kilianp07/agriroute/core/model"
)

type vehicleClass struct {
	typ       model.VehicleType
	capacity  float64
	costPerKM float64
}

var classes = []vehicleClass{
	{model.TypeRefrigeratedTruck, 2000, 0.12},
	{model.TypeGeneralTruck, 2500, 0.10},
	{model.TypeRefrigeratedVan, 800, 0.15},
	{model.TypeVan, 800, 0.15},
	{model.TypePickup, 1000, 0.20},
}

// GenerateFleet creates size trucks with IDs SIM-001..SIM-NNN spread over
// the pickup towns. The same seed always yields the same fleet.
func GenerateFleet(size int, r *rand.Rand) []*Vehicle {
	if size <= 0 {
		return nil
	}
	vs := make([]*Vehicle, size)
	for i := range vs {
		town := catalog.Locations[i%len(catalog.Locations)]
		class := classes[r.IntN(len(classes))]
		pos := model.Location{
			Lat: town.Lat + (r.Float64()*2-1)*0.05,
			Lon: town.Lon + (r.Float64()*2-1)*0.05,
		}
		status := model.StatusAvailable
		if r.Float64() < 0.2 {
			status = model.StatusBusy
		}
		vs[i] = &Vehicle{
			ID:         fmt.Sprintf("SIM-%03d", i+1),
			Name:       fmt.Sprintf("%s Carrier %d", town.Name, i/len(catalog.Locations)+1),
			Phone:      fmt.Sprintf("07780%05d", i+1),
			Type:       class.typ,
			CapacityKG: class.capacity,
			Status:     status,
			Position:   pos,
			Home:       pos,
			Rating:     model.Round(3.5+r.Float64()*1.5, 1),
			CostPerKM:  class.costPerKM,
		}
	}
	return vs
}
