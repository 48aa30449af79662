package scoring

import (
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/agriroute/core/model"
)

// Signal scores used when a condition is adverse, unknown or missing.
const (
	WeatherClear     = 1.0
	WeatherAdverse   = 0.5
	TransportFound   = 1.0
	TransportMissing = 0.2
)

// Band thresholds, each exclusive.
const (
	BandProceedNow = 0.8
	BandProceed    = 0.6
	BandReview     = 0.4
)

// DefaultAdverseTerms are matched as substrings of the lowercased condition.
var DefaultAdverseTerms = []string{"rain", "storm", "flood", "heavy rain", "thunderstorm"}

// Confidences carries the per signal confidence reported by the fetchers.
type Confidences struct {
	Weather   float64
	Market    float64
	Transport float64
}

// Inputs is everything the scorer looks at. A nil Weather or Market, or
// FleetKnown false, marks that signal as missing.
type Inputs struct {
	Weather    *model.WeatherReport
	Market     *model.MarketReport
	Candidates []model.VehicleCandidate
	FleetKnown bool
	Confidence Confidences
}

// Scorer turns inputs into a ScoreResult.
type Scorer interface {
	Score(in Inputs) model.ScoreResult
}

// MeanScorer averages the three signal scores with equal weight.
type MeanScorer struct {
	AdverseTerms []string
}

// NewMeanScorer returns a scorer using terms, or the defaults when empty.
func NewMeanScorer(terms ...string) *MeanScorer {
	if len(terms) == 0 {
		terms = DefaultAdverseTerms
	}
	norm := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			norm = append(norm, t)
		}
	}
	return &MeanScorer{AdverseTerms: norm}
}

// Score implements Scorer.
func (s *MeanScorer) Score(in Inputs) model.ScoreResult {
	var res model.ScoreResult
	conf := make([]float64, 3)

	res.WeatherScore = WeatherAdverse
	if in.Weather != nil {
		res.WeatherScore = s.WeatherScore(in.Weather.Condition)
		conf[0] = in.Confidence.Weather
	}

	if in.Market != nil {
		res.MarketScore = MarketScore(in.Market.Prices())
		res.BestMarket = in.Market.Best
		conf[1] = in.Confidence.Market
	}

	res.TransportScore = TransportMissing
	if in.FleetKnown {
		res.TransportScore = TransportScore(len(in.Candidates))
		conf[2] = in.Confidence.Transport
	}

	res.CombinedScore = clamp01(stat.Mean([]float64{res.WeatherScore, res.MarketScore, res.TransportScore}, nil))
	res.Recommendation = Band(res.CombinedScore)
	for i := range conf {
		conf[i] = clamp01(conf[i])
	}
	res.Confidence = stat.Mean(conf, nil)
	return res
}

// WeatherScore is 1.0 for a clear condition and 0.5 when any adverse term
// appears in it. An empty condition counts as unknown.
func (s *MeanScorer) WeatherScore(condition string) float64 {
	c := strings.ToLower(strings.TrimSpace(condition))
	if c == "" || c == "unknown" {
		return WeatherAdverse
	}
	for _, t := range s.AdverseTerms {
		if strings.Contains(c, t) {
			return WeatherAdverse
		}
	}
	return WeatherClear
}

// MarketScore normalises positive prices by the maximum and returns the top
// normalised value. Non-positive prices are ignored; none at all scores 0.
func MarketScore(prices []float64) float64 {
	pos := make([]float64, 0, len(prices))
	for _, p := range prices {
		if p > 0 {
			pos = append(pos, p)
		}
	}
	if len(pos) == 0 {
		return 0
	}
	max := floats.Max(pos)
	norm := make([]float64, len(pos))
	for i, p := range pos {
		norm[i] = clamp01(p / max)
	}
	return floats.Max(norm)
}

// TransportScore is 1.0 when at least one candidate exists.
func TransportScore(candidates int) float64 {
	if candidates > 0 {
		return TransportFound
	}
	return TransportMissing
}

// Band maps a combined score onto a recommendation label.
func Band(score float64) string {
	switch {
	case score > BandProceedNow:
		return model.RecommendProceedNow
	case score > BandProceed:
		return model.RecommendProceed
	case score > BandReview:
		return model.RecommendReview
	default:
		return model.RecommendDelay
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || v != v:
		return 0
	case v > 1:
		return 1
	}
	return v
}
