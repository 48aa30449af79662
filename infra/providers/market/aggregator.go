package market

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kilianp07/agriroute/core/model"
	"github.com/kilianp07/agriroute/infra/httpclient"
)

// Aggregator posts queries to a market data service speaking the
// context envelope: {"data":{"markets":[...]},"meta":{"confidence":..}}.
type Aggregator struct {
	hc      *httpclient.Client
	baseURL string
	apiKey  string
}

// NewAggregator returns the aggregator source.
func NewAggregator(hc *httpclient.Client, baseURL, apiKey string) *Aggregator {
	return &Aggregator{hc: hc, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

func (a *Aggregator) Name() string { return "market-aggregator" }

type aggEntry struct {
	MarketName  string   `json:"market_name"`
	PriceLocal  float64  `json:"price_local"`
	Currency    string   `json:"currency"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	LastUpdated string   `json:"last_updated"`
}

type aggResponse struct {
	Data struct {
		Product string     `json:"product"`
		Markets []aggEntry `json:"markets"`
	} `json:"data"`
	Meta struct {
		Confidence *float64 `json:"confidence"`
	} `json:"meta"`
}

func (a *Aggregator) Fetch(ctx context.Context, q Query) (model.MarketReport, float64, error) {
	body := map[string]any{"product": model.NormalizeProduct(q.Product), "radius_km": q.RadiusKM}
	if q.Location != nil {
		body["location"] = map[string]float64{"lat": q.Location.Lat, "lon": q.Location.Lon}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return model.MarketReport{}, 0, err
	}
	var raw aggResponse
	err = a.hc.DoJSON(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/query", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if a.apiKey != "" {
			req.Header.Set("X-API-Key", a.apiKey)
		}
		return req, nil
	}, &raw)
	if err != nil {
		return model.MarketReport{}, 0, err
	}

	quotes := make([]model.MarketQuote, 0, len(raw.Data.Markets))
	for _, e := range raw.Data.Markets {
		mq := model.MarketQuote{Market: e.MarketName, PriceLocal: e.PriceLocal, Currency: e.Currency}
		if e.Lat != nil && e.Lon != nil {
			mq.Location = &model.Location{Lat: *e.Lat, Lon: *e.Lon, Name: e.MarketName}
		}
		if ts, err := time.Parse(time.RFC3339, e.LastUpdated); err == nil {
			mq.LastUpdated = ts
		}
		quotes = append(quotes, mq)
	}
	conf := ConfidenceAggregator
	if raw.Meta.Confidence != nil {
		conf = *raw.Meta.Confidence
	}
	return model.NewMarketReport(q.Product, quotes), conf, nil
}
