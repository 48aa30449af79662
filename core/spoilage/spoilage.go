// Package spoilage estimates the probability that produce spoils in transit.
package spoilage

import (
	"math"
	"sort"
	"strings"
)

// MaxRisk caps every estimate.
const MaxRisk = 0.95

// BaseRates is the hourly decay rate per crop at 25 C and 60% humidity.
var BaseRates = map[string]float64{
	"tomatoes": 0.02,
	"maize":    0.005,
	"beans":    0.008,
	"potatoes": 0.015,
	"cabbage":  0.025,
	"other":    0.01,
}

// TemperatureFactors scales the rate by the nearest tabulated temperature.
var TemperatureFactors = map[int]float64{
	10: 0.3,
	15: 0.5,
	20: 0.8,
	25: 1.0,
	30: 1.5,
	35: 2.2,
	40: 3.0,
}

var aliases = []struct{ match, crop string }{
	{"tomato", "tomatoes"},
	{"maize", "maize"},
	{"corn", "maize"},
	{"bean", "beans"},
	{"potato", "potatoes"},
	{"cabbage", "cabbage"},
	{"vegetable", "cabbage"},
}

// Crop maps a free product name onto a rate table key.
func Crop(product string) string {
	p := strings.ToLower(strings.TrimSpace(product))
	for _, a := range aliases {
		if strings.Contains(p, a.match) {
			return a.crop
		}
	}
	return "other"
}

// TemperatureFactor returns the factor of the tabulated temperature closest
// to tempC. Ties go to the lower key.
func TemperatureFactor(tempC float64) float64 {
	keys := make([]int, 0, len(TemperatureFactors))
	for k := range TemperatureFactors {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if math.Abs(float64(k)-tempC) < math.Abs(float64(best)-tempC) {
			best = k
		}
	}
	return TemperatureFactors[best]
}

// HumidityFactor is 1 at 60% and moves 1% per humidity point.
func HumidityFactor(humidityPct float64) float64 {
	return 1 + (humidityPct-60)/100
}

// Risk returns the spoilage probability for product held hours at the
// given temperature and humidity.
func Risk(product string, tempC, humidityPct, hours float64) float64 {
	if hours <= 0 {
		return 0
	}
	k := BaseRates[Crop(product)] * TemperatureFactor(tempC) * HumidityFactor(humidityPct)
	if k <= 0 {
		return 0
	}
	return math.Min(MaxRisk, 1-math.Exp(-k*hours))
}

// Level buckets a risk for display.
func Level(risk float64) string {
	switch {
	case risk >= 0.3:
		return "High"
	case risk >= 0.1:
		return "Medium"
	default:
		return "Low"
	}
}
