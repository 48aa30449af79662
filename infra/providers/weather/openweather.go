package weather

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kilianp07/agriroute/core/model"
	"github.com/kilianp07/agriroute/infra/httpclient"
)

// OpenWeather queries the current weather endpoint.
type OpenWeather struct {
	hc      *httpclient.Client
	baseURL string
	apiKey  string
}

// NewOpenWeather returns the OpenWeather source.
func NewOpenWeather(hc *httpclient.Client, baseURL, apiKey string) *OpenWeather {
	return &OpenWeather{hc: hc, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

func (o *OpenWeather) Name() string { return "openweathermap" }

type owResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Clouds struct {
		All float64 `json:"all"`
	} `json:"clouds"`
	Rain *struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
}

func (o *OpenWeather) Fetch(ctx context.Context, q Query) (model.WeatherReport, float64, error) {
	units := q.Units
	if units == "" {
		units = "metric"
	}
	v := url.Values{}
	v.Set("lat", strconv.FormatFloat(q.Location.Lat, 'f', -1, 64))
	v.Set("lon", strconv.FormatFloat(q.Location.Lon, 'f', -1, 64))
	v.Set("appid", o.apiKey)
	v.Set("units", units)
	endpoint := o.baseURL + "/data/2.5/weather?" + v.Encode()

	var raw owResponse
	err := o.hc.DoJSON(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	}, &raw)
	if err != nil {
		return model.WeatherReport{}, 0, err
	}
	if len(raw.Weather) == 0 {
		return model.WeatherReport{}, 0, errors.New("openweathermap: response without conditions")
	}
	loc := q.Location
	if loc.Name == "" {
		loc.Name = raw.Name
	}
	return model.WeatherReport{
		Location:           loc,
		TemperatureC:       raw.Main.Temp,
		FeelsLikeC:         raw.Main.FeelsLike,
		HumidityPct:        raw.Main.Humidity,
		WindMS:             raw.Wind.Speed,
		RainProbabilityPct: rainProbability(raw),
		Condition:          raw.Weather[0].Description,
		Units:              units,
	}, ConfidenceOpenWeather, nil
}

// rainProbability estimates a chance of rain from current observations:
// measured rain or a rainy condition means likely rain, otherwise half the
// cloud cover.
func rainProbability(r owResponse) float64 {
	if r.Rain != nil && r.Rain.OneHour > 0 {
		return 80
	}
	for _, w := range r.Weather {
		c := strings.ToLower(w.Main + " " + w.Description)
		if strings.Contains(c, "rain") || strings.Contains(c, "storm") || strings.Contains(c, "drizzle") {
			return 70
		}
	}
	return model.Round(r.Clouds.All/2, 0)
}
