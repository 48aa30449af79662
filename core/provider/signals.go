package provider

import (
	"context"

	"github.com/kilianp07/agriroute/core/model"
)

// Signals gives the engines access to the three context domains. Each call
// reports whether the answer came from cache. force bypasses the cache read.
type Signals interface {
	Weather(ctx context.Context, loc model.Location, force bool) (Result[model.WeatherReport], bool, error)
	Market(ctx context.Context, product string, near *model.Location, force bool) (Result[model.MarketReport], bool, error)
	Fleet(ctx context.Context, pickup model.Location, capacityKG float64, force bool) (Result[[]model.Vehicle], bool, error)
}
