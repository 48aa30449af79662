// Package sms answers single-message transport requests such as
// "Tomatoes 20kg Marondera to Mbare Musika" with one composed quote.
package sms

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kilianp07/agriroute/core/catalog"
	"github.com/kilianp07/agriroute/core/model"
)

// Usage is sent back when a message cannot be understood.
const Usage = "Could not understand your request. Please use format:\n" +
	"PRODUCT QUANTITY FROM_LOCATION TO DESTINATION\n" +
	"Example: Tomatoes 20kg Marondera to Mbare Musika\n" +
	"Supported products: Tomatoes, Maize, Vegetables, Potatoes, Fruits"

// Place is a town or market named in a message. Market is set when the
// text named a market rather than a town.
type Place struct {
	Name     string
	Location model.Location
	Market   *catalog.Market
}

// Destination returns the market the place stands for. A town resolves to
// its market when the catalog has one.
func (p Place) Destination() catalog.Market {
	if p.Market != nil {
		return *p.Market
	}
	for _, m := range catalog.Markets {
		if strings.EqualFold(m.Town, p.Name) {
			return m
		}
	}
	return catalog.Market{Name: p.Name, Town: p.Name, Location: p.Location}
}

// Request is a parsed message.
type Request struct {
	Product  catalog.Product
	Quantity float64
	Unit     string
	WeightKG float64
	From     Place
	To       Place
}

var productKeywords = []struct {
	product  string
	keywords []string
}{
	{"Tomatoes", []string{"tomato", "tomat"}},
	{"Maize", []string{"maize", "corn", "mealies"}},
	{"Fresh Vegetables", []string{"vegetables", "veggies", "greens", "cabbage", "spinach"}},
	{"Potatoes", []string{"potato", "spuds"}},
	{"Fruits", []string{"fruit", "oranges", "apples", "bananas"}},
}

// unitKG maps a written unit to kilograms per unit.
var unitKG = map[string]float64{
	"kg": 1, "kgs": 1, "kilogram": 1, "kilograms": 1,
	"crate": catalog.UnitCrates.KG(), "crates": catalog.UnitCrates.KG(),
	"bag": catalog.UnitBags.KG(), "bags": catalog.UnitBags.KG(),
	"ton": 1000, "tons": 1000, "tonne": 1000, "tonnes": 1000,
}

var (
	quantityRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(kilograms?|kgs?|crates?|bags?|tonnes?|tons?)\b`)
	numberRe   = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\b`)
)

type alias struct {
	re    *regexp.Regexp
	place Place
}

// aliases are matched longest first so "marondera market" wins over
// "marondera".
var aliases = buildAliases()

func buildAliases() []alias {
	words := map[string]Place{}
	for _, l := range catalog.Locations {
		words[strings.ToLower(l.Name)] = Place{Name: l.Name, Location: l}
	}
	town := func(name string) Place {
		l, _ := catalog.LocationByName(name)
		return Place{Name: l.Name, Location: l}
	}
	for w, name := range map[string]string{
		"hre": "Harare", "umtali": "Mutare", "byo": "Bulawayo", "bullies": "Bulawayo",
		"gwelo": "Gweru", "fort victoria": "Masvingo",
	} {
		words[w] = town(name)
	}
	for i := range catalog.Markets {
		m := catalog.Markets[i]
		p := Place{Name: m.Name, Location: m.Location, Market: &m}
		words[strings.ToLower(m.Name)] = p
		short := strings.ToLower(m.Location.Name)
		if short == strings.ToLower(m.Town) {
			continue
		}
		words[short] = p
		words[short+" market"] = p
		if first, _, multi := strings.Cut(short, " "); multi {
			words[first] = p
			words[first+" market"] = p
		}
	}

	out := make([]alias, 0, len(words))
	for w, p := range words {
		out = append(out, alias{re: regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`), place: p})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].re.String(), out[j].re.String()
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
	return out
}

// Parse extracts product, quantity and the two places from text. Places are
// taken in the order they appear: the first is the pickup, the second the
// destination.
func Parse(text string) (Request, error) {
	lower := strings.ToLower(strings.TrimSpace(text))

	p, ok := parseProduct(lower)
	if !ok {
		return Request{}, model.NewValidationError("product", "no known product")
	}
	qty, unit, ok := parseQuantity(lower)
	if !ok {
		return Request{}, model.NewValidationError("quantity", "no quantity")
	}
	places := parsePlaces(lower)
	if len(places) < 2 {
		return Request{}, model.NewValidationError("locations", "need a pickup and a destination")
	}
	return Request{
		Product:  p,
		Quantity: qty,
		Unit:     unit,
		WeightKG: qty * unitKG[unit],
		From:     places[0],
		To:       places[1],
	}, nil
}

func parseProduct(text string) (catalog.Product, bool) {
	for _, pk := range productKeywords {
		for _, k := range pk.keywords {
			if strings.Contains(text, k) {
				return catalog.ProductByName(pk.product)
			}
		}
	}
	return catalog.Product{}, false
}

// parseQuantity prefers a number followed by a unit and falls back to the
// first bare number, read as kilograms.
func parseQuantity(text string) (float64, string, bool) {
	if m := quantityRe.FindStringSubmatch(text); m != nil {
		if q, err := strconv.ParseFloat(m[1], 64); err == nil && q > 0 {
			return q, m[2], true
		}
	}
	if m := numberRe.FindStringSubmatch(text); m != nil {
		if q, err := strconv.ParseFloat(m[1], 64); err == nil && q > 0 {
			return q, "kg", true
		}
	}
	return 0, "", false
}

func parsePlaces(text string) []Place {
	type hit struct {
		start, end int
		place      Place
	}
	var hits []hit
	taken := make([]bool, len(text))
	for _, a := range aliases {
		for _, loc := range a.re.FindAllStringIndex(text, -1) {
			free := true
			for i := loc[0]; i < loc[1]; i++ {
				if taken[i] {
					free = false
					break
				}
			}
			if !free {
				continue
			}
			for i := loc[0]; i < loc[1]; i++ {
				taken[i] = true
			}
			hits = append(hits, hit{start: loc[0], end: loc[1], place: a.place})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].start < hits[j].start })

	var out []Place
	seen := map[string]bool{}
	for _, h := range hits {
		if seen[h.place.Name] {
			continue
		}
		seen[h.place.Name] = true
		out = append(out, h.place)
	}
	return out
}
