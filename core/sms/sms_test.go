package sms

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/agriroute/core/catalog"
	"github.com/kilianp07/agriroute/core/geo"
	"github.com/kilianp07/agriroute/core/metrics"
	"github.com/kilianp07/agriroute/core/model"
	"github.com/kilianp07/agriroute/core/provider"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		product  string
		qty      float64
		unit     string
		weightKG float64
		from, to string
	}{
		{"kg and market", "Tomatoes 20kg Marondera to Mbare Musika", "Tomatoes", 20, "kg", 20, "Marondera", "Mbare Musika Market"},
		{"bags to town", "Maize 10 bags from Harare to Mutare", "Maize", 10, "bags", 500, "Harare", "Mutare"},
		{"crates", "need transport for 4 crates of cabbage gweru to bulawayo", "Fresh Vegetables", 4, "crates", 100, "Gweru", "Bulawayo"},
		{"tonnes", "2.5 tonnes potatoes Masvingo -> Harare", "Potatoes", 2.5, "tonnes", 2500, "Masvingo", "Harare"},
		{"bare number is kg", "oranges 150 kadoma to chitungwiza", "Fruits", 150, "kg", 150, "Kadoma", "Chitungwiza"},
		{"nickname town", "mealies 3 bags byo to hre", "Maize", 3, "bags", 150, "Bulawayo", "Harare"},
		{"short market name", "tomato 30kg marondera to mbare", "Tomatoes", 30, "kg", 30, "Marondera", "Mbare Musika Market"},
		{"market before town", "Spinach 40kg from Sakubva Market to Marondera", "Fresh Vegetables", 40, "kg", 40, "Sakubva Market", "Marondera"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Parse(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.product, req.Product.Name)
			assert.InDelta(t, tt.qty, req.Quantity, 1e-9)
			assert.Equal(t, tt.unit, req.Unit)
			assert.InDelta(t, tt.weightKG, req.WeightKG, 1e-9)
			assert.Equal(t, tt.from, req.From.Name)
			assert.Equal(t, tt.to, req.To.Name)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		field string
	}{
		{"no product", "20kg Marondera to Harare", "product"},
		{"no quantity", "Tomatoes Marondera to Harare", "quantity"},
		{"zero quantity", "Tomatoes 0kg Marondera to Harare", "quantity"},
		{"one place", "Tomatoes 20kg to Harare", "locations"},
		{"same place twice", "Tomatoes 20kg Harare to Harare", "locations"},
		{"unknown places", "Tomatoes 20kg Lusaka to Nairobi", "locations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			require.Error(t, err)
			assert.True(t, model.IsValidation(err))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestDestination(t *testing.T) {
	req, err := Parse("Maize 10 bags Harare to Mutare")
	require.NoError(t, err)
	assert.Equal(t, "Sakubva Market", req.To.Destination().Name)
	assert.Equal(t, "Harare", req.From.Location.Name)

	req, err = Parse("Maize 10 bags Mutare to Kadoma")
	require.NoError(t, err)
	d := req.To.Destination()
	assert.Equal(t, "Kadoma", d.Name)
	assert.Equal(t, "Kadoma", d.Town)
}

type fakeSignals struct {
	mu        sync.Mutex
	weather   model.WeatherReport
	weatherOK bool
	market    model.MarketReport
	fleet     []model.Vehicle
	fleetErr  error
	capacity  float64
	product   string
}

func (f *fakeSignals) Weather(_ context.Context, loc model.Location, _ bool) (provider.Result[model.WeatherReport], bool, error) {
	if !f.weatherOK {
		return provider.Result[model.WeatherReport]{}, false, errors.New("weather down")
	}
	w := f.weather
	w.Location = loc
	return provider.Result[model.WeatherReport]{Data: w, Source: "fake", Confidence: 0.9}, false, nil
}

func (f *fakeSignals) Market(_ context.Context, product string, _ *model.Location, _ bool) (provider.Result[model.MarketReport], bool, error) {
	f.mu.Lock()
	f.product = product
	f.mu.Unlock()
	return provider.Result[model.MarketReport]{Data: f.market, Source: "fake", Confidence: 0.85}, false, nil
}

func (f *fakeSignals) Fleet(_ context.Context, _ model.Location, capacityKG float64, _ bool) (provider.Result[[]model.Vehicle], bool, error) {
	f.mu.Lock()
	f.capacity = capacityKG
	f.mu.Unlock()
	if f.fleetErr != nil {
		return provider.Result[[]model.Vehicle]{}, false, f.fleetErr
	}
	return provider.Result[[]model.Vehicle]{Data: f.fleet, Source: "fake", Confidence: 0.9}, false, nil
}

type turnRecorder struct {
	mu     sync.Mutex
	events []metrics.SessionEvent
}

func (t *turnRecorder) RecordSessionTurn(ev metrics.SessionEvent) error {
	t.mu.Lock()
	t.events = append(t.events, ev)
	t.mu.Unlock()
	return nil
}

var harare = catalog.Locations[0]

func testSignals() *fakeSignals {
	return &fakeSignals{
		weather:   model.WeatherReport{TemperatureC: 24, HumidityPct: 50, RainProbabilityPct: 20, Condition: "Clear"},
		weatherOK: true,
		market: model.NewMarketReport("maize", []model.MarketQuote{
			{Market: "Mbare Musika", PriceLocal: 0.35},
			{Market: "Sakubva", PriceLocal: 0.30},
			{Market: "Renkini", PriceLocal: 0.42},
			{Market: "Gweru Main", PriceLocal: 0.28},
		}),
		fleet: []model.Vehicle{
			{ID: "V-2", Name: "Dry Van", Location: harare, CapacityKG: 800,
				Status: model.StatusAvailable, Type: model.TypeVan, Rating: 4.1},
			{ID: "T-1", Name: "Cold Truck", Phone: "0771111111", Location: harare, CapacityKG: 3000,
				Status: model.StatusAvailable, Type: model.TypeRefrigeratedTruck, Features: model.Features{Refrigerated: true}, Rating: 4.8},
		},
	}
}

func newTestProcessor(t *testing.T, sig *fakeSignals, rec *turnRecorder) *Processor {
	t.Helper()
	p, err := NewProcessor(sig, geo.NewMatcher(geo.Options{}), WithRecorder(rec))
	require.NoError(t, err)
	return p
}

func TestHandleQuotesBestRatedTransporter(t *testing.T) {
	sig, rec := testSignals(), &turnRecorder{}
	p := newTestProcessor(t, sig, rec)

	r, err := p.Handle(context.Background(), Message{From: "+263771234567", Text: "Maize 10 bags Harare to Mutare"})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, r.Status)
	assert.Equal(t, "+263771234567", r.To)
	assert.Equal(t, "maize", sig.product)
	assert.InDelta(t, 500, sig.capacity, 1e-9)

	for _, want := range []string{
		"Product: Maize",
		"Quantity: 10 bags (500kg)",
		"To: Sakubva Market",
		"Transporter: Cold Truck",
		"Contact: 0771111111",
		"Est Cost: $75.00",
		"Conditions: Clear",
		"Highest: $0.42 (Renkini)",
		"Lowest: $0.28 (Gweru Main)",
		"Average: $0.34",
		"KEY MARKETS:\nRenkini: $0.42\nMbare Musika: $0.35\nSakubva: $0.30\n",
		"077-AGRICONNECT",
	} {
		assert.Contains(t, r.Message, want)
	}
	require.Len(t, rec.events, 1)
	assert.Equal(t, metrics.SessionEvent{Stage: "sms", Outcome: "quoted", Terminal: true, Time: rec.events[0].Time}, rec.events[0])
}

func TestHandlePerishableNeedsRefrigeration(t *testing.T) {
	sig := testSignals()
	sig.fleet = sig.fleet[:1]
	rec := &turnRecorder{}
	p := newTestProcessor(t, sig, rec)

	r, err := p.Handle(context.Background(), Message{From: "+263", Text: "Tomatoes 20kg Harare to Mbare"})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, r.Status)
	assert.Contains(t, r.Message, "No suitable transport available")
	assert.Contains(t, r.Message, "Use refrigerated transport")
	assert.Equal(t, "no_transport", rec.events[0].Outcome)
}

func TestHandleDegradesWhenSignalsFail(t *testing.T) {
	sig := testSignals()
	sig.weatherOK = false
	sig.fleetErr = errors.New("fleet down")
	p := newTestProcessor(t, sig, &turnRecorder{})

	r, err := p.Handle(context.Background(), Message{From: "+263", Text: "Maize 2 bags Gweru to Harare"})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, r.Status)
	assert.NotContains(t, r.Message, "WEATHER")
	assert.Contains(t, r.Message, "No suitable transport available")
	assert.Contains(t, r.Message, "OPTIMIZED ROUTE:")
}

func TestHandleUnparsedGetsUsage(t *testing.T) {
	rec := &turnRecorder{}
	p := newTestProcessor(t, testSignals(), rec)

	r, err := p.Handle(context.Background(), Message{From: "+263", Text: "hello there"})
	require.NoError(t, err)
	assert.Equal(t, StatusError, r.Status)
	assert.Equal(t, Usage, r.Message)
	assert.Equal(t, "unparsed", rec.events[0].Outcome)

	_, err = p.Handle(context.Background(), Message{From: "+263", Text: "  "})
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
}

func TestNewProcessorRequiresDeps(t *testing.T) {
	_, err := NewProcessor(nil, geo.NewMatcher(geo.Options{}))
	require.Error(t, err)
	_, err = NewProcessor(testSignals(), nil)
	require.Error(t, err)
}

func TestBestRatedKeepsOrderOnTies(t *testing.T) {
	cands := []model.VehicleCandidate{
		{Vehicle: model.Vehicle{ID: "a", Rating: 4}},
		{Vehicle: model.Vehicle{ID: "b", Rating: 4}},
		{Vehicle: model.Vehicle{ID: "c", Rating: 3}},
	}
	assert.Equal(t, "a", bestRated(cands).Vehicle.ID)
	assert.Nil(t, bestRated(nil))
}
