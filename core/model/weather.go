package model

// WeatherReport is the normalized view of current weather at a location.
type WeatherReport struct {
	Location           Location `json:"location"`
	TemperatureC       float64  `json:"temperature_c"`
	FeelsLikeC         float64  `json:"feels_like_c"`
	HumidityPct        float64  `json:"humidity_pct"`
	WindMS             float64  `json:"wind_m_s"`
	RainProbabilityPct float64  `json:"rain_probability_pct"`
	Condition          string   `json:"condition"`
	Units              string   `json:"units"`
}
