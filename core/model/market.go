package model

import (
	"sort"
	"strings"
	"time"
)

// MarketQuote is one market's price for a product.
type MarketQuote struct {
	Market      string    `json:"market_name"`
	PriceLocal  float64   `json:"price_local"`
	Currency    string    `json:"currency"`
	Location    *Location `json:"location,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// MarketReport groups quotes for one product.
type MarketReport struct {
	Product string        `json:"product"`
	Markets []MarketQuote `json:"markets"`
	Best    *MarketQuote  `json:"best_market,omitempty"`
}

// NewMarketReport builds a report and elects the best market, the one with
// the highest positive price.
func NewMarketReport(product string, quotes []MarketQuote) MarketReport {
	r := MarketReport{Product: NormalizeProduct(product), Markets: quotes}
	for i := range quotes {
		q := quotes[i]
		if q.PriceLocal <= 0 {
			continue
		}
		if r.Best == nil || q.PriceLocal > r.Best.PriceLocal {
			r.Best = &q
		}
	}
	return r
}

// Prices returns the quoted prices in market order.
func (r MarketReport) Prices() []float64 {
	out := make([]float64, len(r.Markets))
	for i, m := range r.Markets {
		out[i] = m.PriceLocal
	}
	return out
}

// SortedByPrice returns a copy of the quotes, highest price first.
func (r MarketReport) SortedByPrice() []MarketQuote {
	out := append([]MarketQuote(nil), r.Markets...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].PriceLocal > out[j].PriceLocal })
	return out
}

// NormalizeProduct lowercases and trims a product name.
func NormalizeProduct(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}
