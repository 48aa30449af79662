package model

// Recommendation labels produced by the scorer.
const (
	RecommendProceedNow = "proceed immediately"
	RecommendProceed    = "proceed"
	RecommendReview     = "review recommended"
	RecommendDelay      = "delay or seek alternatives"
)

// ScoreResult is the fused decision for one request. It is never persisted.
type ScoreResult struct {
	WeatherScore   float64      `json:"weather_score"`
	MarketScore    float64      `json:"market_score"`
	TransportScore float64      `json:"transport_score"`
	CombinedScore  float64      `json:"combined_score"`
	Recommendation string       `json:"recommendation"`
	Confidence     float64      `json:"confidence"`
	BestMarket     *MarketQuote `json:"best_market,omitempty"`
}
