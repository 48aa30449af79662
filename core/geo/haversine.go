package geo

import (
	"math"

	"github.com/kilianp07/agriroute/core/model"
)

// EarthRadiusKM is the mean Earth radius used for distances.
const EarthRadiusKM = 6371.0

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b model.Location) float64 {
	if a.Lat == b.Lat && a.Lon == b.Lon {
		return 0
	}
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push h marginally above 1 for antipodal points
	h = math.Min(1, math.Max(0, h))
	return 2 * EarthRadiusKM * math.Asin(math.Sqrt(h))
}

// StraightLineETA converts a distance into minutes at speedKMH plus a fixed
// handling buffer. A zero distance yields zero minutes.
func StraightLineETA(distanceKM, speedKMH float64, bufferMin int) int {
	if distanceKM <= 0 {
		return 0
	}
	if speedKMH <= 0 {
		speedKMH = DefaultAvgSpeedKMH
	}
	return int(distanceKM/speedKMH*60) + bufferMin
}

// Nearest returns the index of the location closest to p, or -1 when the
// list is empty.
func Nearest(p model.Location, locs []model.Location) int {
	best, bestD := -1, math.Inf(1)
	for i, l := range locs {
		if d := Haversine(p, l); d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
