package scoring

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/agriroute/core/model"
)

func TestScoreAllFavourable(t *testing.T) {
	market := model.NewMarketReport("tomatoes", []model.MarketQuote{
		{Market: "Mbare Musika", PriceLocal: 1.5},
		{Market: "Avondale", PriceLocal: 1.4},
	})
	res := NewMeanScorer().Score(Inputs{
		Weather:    &model.WeatherReport{Condition: "clear sky"},
		Market:     &market,
		Candidates: []model.VehicleCandidate{{Vehicle: model.Vehicle{ID: "T-001"}}},
		FleetKnown: true,
		Confidence: Confidences{Weather: 0.9, Market: 0.85, Transport: 0.9},
	})
	assert.Equal(t, 1.0, res.WeatherScore)
	assert.Equal(t, 1.0, res.MarketScore)
	assert.Equal(t, 1.0, res.TransportScore)
	assert.InDelta(t, 1.0, res.CombinedScore, 1e-9)
	assert.Equal(t, model.RecommendProceedNow, res.Recommendation)
	assert.InDelta(t, (0.9+0.85+0.9)/3, res.Confidence, 1e-9)
	require.NotNil(t, res.BestMarket)
	assert.Equal(t, "Mbare Musika", res.BestMarket.Market)
}

func TestScoreRainNoMarketNoTransport(t *testing.T) {
	empty := model.NewMarketReport("tomatoes", nil)
	res := NewMeanScorer().Score(Inputs{
		Weather:    &model.WeatherReport{Condition: "Light Rain"},
		Market:     &empty,
		FleetKnown: true,
		Confidence: Confidences{Weather: 0.9, Market: 0.85, Transport: 0.3},
	})
	assert.Equal(t, 0.5, res.WeatherScore)
	assert.Equal(t, 0.0, res.MarketScore)
	assert.Equal(t, 0.2, res.TransportScore)
	assert.InDelta(t, 0.2333, res.CombinedScore, 1e-3)
	assert.Equal(t, model.RecommendDelay, res.Recommendation)
	assert.Nil(t, res.BestMarket)
}

func TestMissingSignalsUseFallbacksWithZeroConfidence(t *testing.T) {
	res := NewMeanScorer().Score(Inputs{Confidence: Confidences{Weather: 1, Market: 1, Transport: 1}})
	assert.Equal(t, 0.5, res.WeatherScore)
	assert.Equal(t, 0.0, res.MarketScore)
	assert.Equal(t, 0.2, res.TransportScore)
	assert.Zero(t, res.Confidence)
}

func TestWeatherScoreSubstringMatch(t *testing.T) {
	s := NewMeanScorer()
	for _, c := range []string{"Thunderstorms", "heavy rain", "FLOOD warning", "light rain", "", "unknown"} {
		assert.Equal(t, 0.5, s.WeatherScore(c), c)
	}
	for _, c := range []string{"Sunny", "Partly Cloudy", "clear sky"} {
		assert.Equal(t, 1.0, s.WeatherScore(c), c)
	}
	custom := NewMeanScorer(" Hail ")
	assert.Equal(t, 0.5, custom.WeatherScore("hailstorm"))
	assert.Equal(t, 1.0, custom.WeatherScore("rain"))
}

func TestMarketScoreIgnoresNonPositive(t *testing.T) {
	assert.Zero(t, MarketScore(nil))
	assert.Zero(t, MarketScore([]float64{0, -1}))
	assert.Equal(t, 1.0, MarketScore([]float64{-2, 0.5, 1.0}))
}

func TestBandBoundaries(t *testing.T) {
	assert.Equal(t, model.RecommendProceed, Band(0.8))
	assert.Equal(t, model.RecommendProceedNow, Band(0.81))
	assert.Equal(t, model.RecommendReview, Band(0.6))
	assert.Equal(t, model.RecommendDelay, Band(0.4))
}

func TestCombinedScoreAlwaysInRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	conds := []string{"rain", "sunny", "", "storm"}
	s := NewMeanScorer()
	for i := 0; i < 500; i++ {
		quotes := make([]model.MarketQuote, rng.IntN(4))
		for j := range quotes {
			quotes[j] = model.MarketQuote{Market: "m", PriceLocal: rng.Float64()*10 - 3}
		}
		mr := model.NewMarketReport("p", quotes)
		in := Inputs{
			Weather:    &model.WeatherReport{Condition: conds[rng.IntN(len(conds))]},
			Market:     &mr,
			Candidates: make([]model.VehicleCandidate, rng.IntN(3)),
			FleetKnown: rng.IntN(2) == 0,
			Confidence: Confidences{Weather: rng.Float64() * 2, Market: rng.Float64(), Transport: -rng.Float64()},
		}
		res := s.Score(in)
		assert.GreaterOrEqual(t, res.CombinedScore, 0.0)
		assert.LessOrEqual(t, res.CombinedScore, 1.0)
		assert.GreaterOrEqual(t, res.Confidence, 0.0)
		assert.LessOrEqual(t, res.Confidence, 1.0)
	}
}
