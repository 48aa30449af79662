package cache

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kilianp07/agriroute/core/model"
)

// CoordPrecision is the number of decimals kept in cache keys, about 100 m.
const CoordPrecision = 3

func coord(v float64) string {
	return strconv.FormatFloat(model.Round(v, CoordPrecision), 'f', -1, 64)
}

// Key builds a key of the form {domain}:{lat}:{lon}:{disc}.
func Key(domain string, loc model.Location, disc string) string {
	return fmt.Sprintf("%s:%s:%s:%s", domain, coord(loc.Lat), coord(loc.Lon), disc)
}

// WeatherKey is the cache key for weather at loc in the given unit system.
func WeatherKey(loc model.Location, units string) string {
	if units == "" {
		units = "metric"
	}
	return Key("weather", loc, units)
}

// MarketKey is the cache key for product prices around loc. A nil location
// addresses the global price board.
func MarketKey(product string, loc *model.Location, radiusKM int) string {
	p := model.NormalizeProduct(product)
	if loc == nil {
		return "market:" + p + ":global"
	}
	return fmt.Sprintf("market:%s:%s:%s:%d", p, coord(loc.Lat), coord(loc.Lon), radiusKM)
}

// TransportKey is the cache key for the fleet around loc for a capacity.
func TransportKey(loc model.Location, capacityKG float64) string {
	return Key("transport", loc, strconv.Itoa(int(capacityKG)))
}

// RouteKey is the cache key for a routed trip between two points.
func RouteKey(from, to model.Location) string {
	return Key("route", from, coord(to.Lat)+":"+coord(to.Lon))
}

// Domain returns the leading segment of a key.
func Domain(key string) string {
	d, _, _ := strings.Cut(key, ":")
	return d
}
