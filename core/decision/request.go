package decision

import (
	"github.com/kilianp07/agriroute/core/model"
)

// Request is a direct decision query.
type Request struct {
	Pickup             model.Location    `json:"pickup"`
	Delivery           *model.Location   `json:"delivery,omitempty"`
	RequiredCapacityKG float64           `json:"required_capacity_kg"`
	Perishable         bool              `json:"perishable"`
	VehicleType        model.VehicleType `json:"vehicle_type,omitempty"`
	MaxWaitMinutes     int               `json:"max_wait_minutes"`
	// Product selects the market prices; empty uses the engine default.
	Product      string `json:"product,omitempty"`
	ForceRefresh bool   `json:"force_refresh,omitempty"`
}

// Transport validates r and returns the matcher request.
func (r Request) Transport() (model.TransportRequest, error) {
	return model.NewTransportRequest(model.TransportRequest{
		Pickup:             r.Pickup,
		Delivery:           r.Delivery,
		RequiredCapacityKG: r.RequiredCapacityKG,
		VehicleType:        r.VehicleType,
		Perishable:         r.Perishable,
		MaxWaitMinutes:     r.MaxWaitMinutes,
	})
}

// Meta explains where the answer came from.
type Meta struct {
	CacheHit    bool     `json:"cache_hit"`
	SourcesUsed []string `json:"sources_used"`
	Degraded    []string `json:"degraded,omitempty"`
}

// Response is the engine answer. Score fields are inlined.
type Response struct {
	AvailableVehicles  []model.VehicleCandidate `json:"available_vehicles"`
	RecommendedVehicle *model.VehicleCandidate  `json:"recommended_vehicle,omitempty"`
	model.ScoreResult
	SpoilageRisk float64 `json:"spoilage_risk"`
	Meta         Meta    `json:"meta"`
}

// BatchItem is one entry of a batch answer. Exactly one field is set.
type BatchItem struct {
	Response *Response `json:"response,omitempty"`
	Error    string    `json:"error,omitempty"`
}
