package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/agriroute/core/cache"
	"github.com/kilianp07/agriroute/core/catalog"
	"github.com/kilianp07/agriroute/core/model"
	infracache "github.com/kilianp07/agriroute/infra/cache"
	"github.com/kilianp07/agriroute/infra/httpclient"
)

func testClient() *httpclient.Client {
	return httpclient.New(httpclient.Config{Timeout: time.Second, BackoffBase: time.Millisecond}, nil)
}

const aggBody = `{"context_type":"market","source":"mock_provider_v1","data":{"product":"tomatoes","markets":[
{"market_name":"Mbare Musika","price_local":1.5,"currency":"USD","lat":-17.825,"lon":31.030},
{"market_name":"Avondale Market","price_local":1.4,"currency":"USD","lat":-17.790,"lon":31.060},
{"market_name":"Mutare Central","price_local":1.6,"currency":"USD","lat":-18.970,"lon":32.640}]},
"meta":{"confidence":0.85,"ttl_seconds":600}}`

func TestAggregatorParsesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tomatoes", body["product"])
		assert.NotNil(t, body["location"])
		_, _ = w.Write([]byte(aggBody))
	}))
	defer srv.Close()

	loc := model.Location{Lat: -17.8, Lon: 31.0}
	rep, conf, err := NewAggregator(testClient(), srv.URL, "secret").Fetch(context.Background(), Query{Product: "Tomatoes", Location: &loc, RadiusKM: 50})
	require.NoError(t, err)
	assert.Equal(t, 0.85, conf)
	require.Len(t, rep.Markets, 3)
	require.NotNil(t, rep.Best)
	assert.Equal(t, "Mutare Central", rep.Best.Market)
	assert.Equal(t, "tomatoes", rep.Product)
	require.NotNil(t, rep.Markets[0].Location)
}

func TestBoardFiltersByRadius(t *testing.T) {
	b := NewBoard("")
	all := b.Report(Query{Product: "Tomatoes"})
	assert.Len(t, all.Markets, 7)
	require.NotNil(t, all.Best)
	assert.Equal(t, "Renkini Market", all.Best.Market)

	mbare, _ := catalog.MarketByName("Mbare")
	near := b.Report(Query{Product: "tomato", Location: &mbare.Location, RadiusKM: 30})
	names := make([]string, len(near.Markets))
	for i, m := range near.Markets {
		names[i] = m.Market
	}
	assert.ElementsMatch(t, []string{"Mbare Musika Market", "Chitungwiza Market"}, names)
	assert.Equal(t, "Chitungwiza Market", near.Best.Market)
}

func TestBoardUnknownProductIsEmpty(t *testing.T) {
	rep, conf, err := NewBoard("USD").Fetch(context.Background(), Query{Product: "coffee"})
	require.NoError(t, err)
	assert.Equal(t, ConfidenceBoard, conf)
	assert.Empty(t, rep.Markets)
	assert.Nil(t, rep.Best)
}

func TestFetcherFallsBackToBoard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store := infracache.NewMemoryStore(infracache.MemoryConfig{})
	f, err := NewFetcher(Config{AggregatorURL: srv.URL}, cache.NewGateway(store), testClient())
	require.NoError(t, err)
	res, cached, err := f.Get(context.Background(), Query{Product: "maize"}, false)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "price-board", res.Source)
	assert.Equal(t, 1.25, res.Data.Best.PriceLocal)
	assert.Zero(t, store.Len())
}

func TestQueryKey(t *testing.T) {
	assert.Equal(t, "market:tomatoes:global", Query{Product: "Tomatoes"}.Key())
	loc := model.Location{Lat: -17.82512, Lon: 31.0301}
	assert.Equal(t, "market:tomatoes:-17.825:31.03:50", Query{Product: "tomatoes", Location: &loc, RadiusKM: 50}.Key())
}
