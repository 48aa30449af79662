package model

import (
	"fmt"
	"strings"
	"time"
)

// VehicleStatus is the operational state reported for a vehicle.
type VehicleStatus string

const (
	StatusAvailable   VehicleStatus = "available"
	StatusBusy        VehicleStatus = "busy"
	StatusMaintenance VehicleStatus = "maintenance"
	StatusEnRoute     VehicleStatus = "en_route"
	StatusOffline     VehicleStatus = "offline"
)

// ParseVehicleStatus maps free text to a status. Unknown values are offline.
func ParseVehicleStatus(s string) VehicleStatus {
	switch st := VehicleStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusAvailable, StatusBusy, StatusMaintenance, StatusEnRoute, StatusOffline:
		return st
	case "en-route", "enroute":
		return StatusEnRoute
	default:
		return StatusOffline
	}
}

// VehicleType identifies the body type of a vehicle.
type VehicleType string

const (
	TypeRefrigeratedTruck VehicleType = "refrigerated_truck"
	TypeGeneralTruck      VehicleType = "general_truck"
	TypeRefrigeratedVan   VehicleType = "refrigerated_van"
	TypeVan               VehicleType = "van"
	TypePickup            VehicleType = "pickup"
)

// Label returns a human readable name for the type.
func (t VehicleType) Label() string {
	if t == "" {
		return "Vehicle"
	}
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Features lists optional vehicle equipment.
type Features struct {
	Refrigerated bool `json:"refrigerated"`
}

// Vehicle is a transport vehicle as seen by the fleet fetchers.
type Vehicle struct {
	ID         string        `json:"id"`
	Name       string        `json:"name,omitempty"`
	Phone      string        `json:"phone,omitempty"`
	Location   Location      `json:"location"`
	CapacityKG float64       `json:"capacity_kg"`
	LoadKG     float64       `json:"load_kg"`
	Status     VehicleStatus `json:"status"`
	Type       VehicleType   `json:"type,omitempty"`
	Features   Features      `json:"features"`
	Rating     float64       `json:"rating,omitempty"`
	CostPerKM  float64       `json:"cost_per_km,omitempty"`
	LastSeen   time.Time     `json:"last_seen"`
}

// Available returns the spare capacity in kilograms.
func (v Vehicle) Available() float64 {
	return v.CapacityKG - v.LoadKG
}

// DisplayName returns Name or falls back to the ID.
func (v Vehicle) DisplayName() string {
	if v.Name != "" {
		return v.Name
	}
	return v.ID
}

// Validate checks that the vehicle record is usable by the matcher.
func (v Vehicle) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("vehicle id is required")
	}
	if v.CapacityKG <= 0 {
		return fmt.Errorf("vehicle %s: capacity must be positive", v.ID)
	}
	if v.LoadKG < 0 {
		return fmt.Errorf("vehicle %s: load must not be negative", v.ID)
	}
	return v.Location.Validate("vehicle.location")
}

// VehicleCandidate is a vehicle that survived the matcher filters.
type VehicleCandidate struct {
	Vehicle    Vehicle `json:"vehicle"`
	DistanceKM float64 `json:"distance_km"`
	ETAMinutes int     `json:"eta_minutes"`
	// Routed is true when the ETA came from a routing provider.
	Routed bool `json:"routed"`
}
