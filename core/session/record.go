// Package session runs the multi-turn conversational booking flow. Each
// turn carries one input; progress lives in a TTL bound store between turns.
package session

import (
	"time"

	"github.com/kilianp07/agriroute/core/catalog"
	"github.com/kilianp07/agriroute/core/model"
)

// Stage is the position of a session in the flow.
type Stage string

const (
	StageWelcome           Stage = "welcome"
	StageMainMenu          Stage = "main_menu"
	StageSelectLocation    Stage = "select_location"
	StageSelectProduct     Stage = "select_product"
	StageEnterQuantity     Stage = "enter_quantity"
	StageSelectDestination Stage = "select_destination"
	StageWeatherReview     Stage = "weather_review"
	StageWeatherOnly       Stage = "weather_only"
	StageSelectVehicle     Stage = "select_vehicle"
	StageConfirmed         Stage = "confirmed"
	StageCancelled         Stage = "cancelled"
)

// Record is the persisted state of one session. Fields are filled as the
// flow advances.
type Record struct {
	ID                  string                   `json:"id"`
	Channel             string                   `json:"channel,omitempty"`
	Stage               Stage                    `json:"stage"`
	WeatherOnly         bool                     `json:"weather_only,omitempty"`
	Pickup              *model.Location          `json:"pickup,omitempty"`
	Product             string                   `json:"product,omitempty"`
	Quantity            int                      `json:"quantity,omitempty"`
	Destination         string                   `json:"destination,omitempty"`
	Weather             *model.WeatherReport     `json:"weather,omitempty"`
	WeatherConfidence   float64                  `json:"weather_confidence,omitempty"`
	Candidates          []model.VehicleCandidate `json:"candidates,omitempty"`
	TransportConfidence float64                  `json:"transport_confidence,omitempty"`
	CreatedAt           time.Time                `json:"created_at"`
	UpdatedAt           time.Time                `json:"updated_at"`
}

func newRecord(id, channel string, now time.Time) Record {
	return Record{ID: id, Channel: channel, Stage: StageWelcome, CreatedAt: now, UpdatedAt: now}
}

func (r Record) product() (catalog.Product, bool) {
	return catalog.ProductByName(r.Product)
}

func (r Record) destination() (catalog.Market, bool) {
	for _, m := range catalog.Markets {
		if m.Name == r.Destination {
			return m, true
		}
	}
	return catalog.Market{}, false
}

// WeightKG converts the quantity into kilograms using the product unit.
func (r Record) WeightKG() float64 {
	p, ok := r.product()
	if !ok {
		return float64(r.Quantity)
	}
	return float64(r.Quantity) * p.Unit.KG()
}
