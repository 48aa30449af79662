package weather

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/kilianp07/agriroute/core/model"
	"github.com/kilianp07/agriroute/infra/httpclient"
)

// Gateway is a secondary weather service answering GET /weather with a
// WeatherReport JSON body.
type Gateway struct {
	hc      *httpclient.Client
	baseURL string
}

// NewGateway returns the secondary source.
func NewGateway(hc *httpclient.Client, baseURL string) *Gateway {
	return &Gateway{hc: hc, baseURL: strings.TrimRight(baseURL, "/")}
}

func (g *Gateway) Name() string { return "weather-gateway" }

func (g *Gateway) Fetch(ctx context.Context, q Query) (model.WeatherReport, float64, error) {
	v := url.Values{}
	v.Set("lat", strconv.FormatFloat(q.Location.Lat, 'f', -1, 64))
	v.Set("lon", strconv.FormatFloat(q.Location.Lon, 'f', -1, 64))
	if q.Units != "" {
		v.Set("units", q.Units)
	}
	var rep model.WeatherReport
	if err := g.hc.GetJSON(ctx, g.baseURL+"/weather?"+v.Encode(), nil, &rep); err != nil {
		return model.WeatherReport{}, 0, err
	}
	if rep.Condition == "" {
		return model.WeatherReport{}, 0, errors.New("weather-gateway: empty condition")
	}
	if rep.Location.Lat == 0 && rep.Location.Lon == 0 {
		rep.Location = q.Location
	}
	return rep, ConfidenceSecondary, nil
}
