// Package providers assembles the weather, market and fleet fetchers into
// the provider.Signals used by the decision engine and the session machine.
package providers

import (
	"context"
	"errors"

	"github.com/kilianp07/agriroute/core/model"
	"github.com/kilianp07/agriroute/core/provider"
	"github.com/kilianp07/agriroute/infra/providers/fleet"
	"github.com/kilianp07/agriroute/infra/providers/market"
	"github.com/kilianp07/agriroute/infra/providers/weather"
)

// Hub implements provider.Signals over the cached fetchers.
type Hub struct {
	weather  *weather.Fetcher
	market   *market.Fetcher
	fleet    *fleet.Fetcher
	units    string
	radiusKM int
}

var _ provider.Signals = (*Hub)(nil)

// NewHub wires the fetchers. units and radiusKM shape weather and market
// queries.
func NewHub(w *weather.Fetcher, m *market.Fetcher, f *fleet.Fetcher, units string, radiusKM int) (*Hub, error) {
	if w == nil || m == nil || f == nil {
		return nil, errors.New("providers: weather, market and fleet fetchers are required")
	}
	return &Hub{weather: w, market: m, fleet: f, units: units, radiusKM: radiusKM}, nil
}

func (h *Hub) Weather(ctx context.Context, loc model.Location, force bool) (provider.Result[model.WeatherReport], bool, error) {
	return h.weather.Get(ctx, weather.Query{Location: loc, Units: h.units}, force)
}

func (h *Hub) Market(ctx context.Context, product string, near *model.Location, force bool) (provider.Result[model.MarketReport], bool, error) {
	q := market.Query{Product: product, Location: near}
	if near != nil {
		q.RadiusKM = h.radiusKM
	}
	return h.market.Get(ctx, q, force)
}

func (h *Hub) Fleet(ctx context.Context, pickup model.Location, capacityKG float64, force bool) (provider.Result[[]model.Vehicle], bool, error) {
	return h.fleet.Get(ctx, fleet.Query{Pickup: pickup, CapacityKG: capacityKG}, force)
}
