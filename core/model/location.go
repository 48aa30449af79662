package model

import "math"

// Location is an immutable WGS84 coordinate with an optional display name.
type Location struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Name string  `json:"name,omitempty"`
}

// Validate checks coordinate bounds. field prefixes the error field name.
func (l Location) Validate(field string) error {
	if math.IsNaN(l.Lat) || l.Lat < -90 || l.Lat > 90 {
		return NewValidationError(field+".lat", "must be within [-90, 90]")
	}
	if math.IsNaN(l.Lon) || l.Lon < -180 || l.Lon > 180 {
		return NewValidationError(field+".lon", "must be within [-180, 180]")
	}
	return nil
}

// Round returns v rounded to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
