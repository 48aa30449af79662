// Package catalog lists the towns, products and markets offered on the
// conversational channel and used by the synthetic providers.
package catalog

import (
	"strings"

	"github.com/kilianp07/agriroute/core/model"
)

// Perishability grades how fast a product degrades.
type Perishability string

const (
	PerishabilityLow    Perishability = "low"
	PerishabilityMedium Perishability = "medium"
	PerishabilityHigh   Perishability = "high"
)

// Unit is the packaging a product is counted in.
type Unit string

const (
	UnitCrates Unit = "crates"
	UnitBags   Unit = "bags"
)

// KG returns the weight of one unit in kilograms.
func (u Unit) KG() float64 {
	switch u {
	case UnitCrates:
		return 25
	case UnitBags:
		return 50
	default:
		return 1
	}
}

// Product is a tradable crop.
type Product struct {
	Name          string
	Unit          Unit
	Perishability Perishability
	IdealTemp     string
	Handling      string
}

// Perishable reports whether the product needs refrigerated transport.
func (p Product) Perishable() bool { return p.Perishability == PerishabilityHigh }

// Key is the lowercased product name used in cache keys and price tables.
func (p Product) Key() string { return model.NormalizeProduct(p.Name) }

// Market is a destination market with its coordinates.
type Market struct {
	Name     string
	Town     string
	Location model.Location
}

// Locations are the pickup towns, in menu order.
var Locations = []model.Location{
	{Name: "Harare", Lat: -17.8292, Lon: 31.0522},
	{Name: "Bulawayo", Lat: -20.1325, Lon: 28.6265},
	{Name: "Mutare", Lat: -18.9707, Lon: 32.6709},
	{Name: "Gweru", Lat: -19.4500, Lon: 29.8167},
	{Name: "Masvingo", Lat: -20.0637, Lon: 30.8277},
	{Name: "Marondera", Lat: -18.1853, Lon: 31.5519},
	{Name: "Chitungwiza", Lat: -18.0127, Lon: 31.0756},
	{Name: "Kadoma", Lat: -18.3333, Lon: 29.9167},
}

// Products are the crops, in menu order.
var Products = []Product{
	{Name: "Tomatoes", Unit: UnitCrates, Perishability: PerishabilityHigh, IdealTemp: "15-25C", Handling: "Avoid stacking, ventilate"},
	{Name: "Maize", Unit: UnitBags, Perishability: PerishabilityLow, IdealTemp: "room temp", Handling: "Keep dry, avoid moisture"},
	{Name: "Fresh Vegetables", Unit: UnitCrates, Perishability: PerishabilityHigh, IdealTemp: "10-15C", Handling: "Refrigerate if possible"},
	{Name: "Potatoes", Unit: UnitBags, Perishability: PerishabilityMedium, IdealTemp: "7-10C", Handling: "Keep cool and dark"},
	{Name: "Fruits", Unit: UnitCrates, Perishability: PerishabilityHigh, IdealTemp: "10-15C", Handling: "Handle gently, avoid bruising"},
}

// Markets are the destination markets, in menu order.
var Markets = []Market{
	{Name: "Mbare Musika Market", Town: "Harare", Location: model.Location{Name: "Mbare Musika", Lat: -17.8536, Lon: 31.0386}},
	{Name: "Sakubva Market", Town: "Mutare", Location: model.Location{Name: "Sakubva", Lat: -18.9950, Lon: 32.6500}},
	{Name: "Renkini Market", Town: "Bulawayo", Location: model.Location{Name: "Renkini", Lat: -20.1560, Lon: 28.5720}},
	{Name: "Gweru Main Market", Town: "Gweru", Location: model.Location{Name: "Gweru", Lat: -19.4560, Lon: 29.8140}},
	{Name: "Masvingo Market", Town: "Masvingo", Location: model.Location{Name: "Masvingo", Lat: -20.0720, Lon: 30.8310}},
	{Name: "Marondera Market", Town: "Marondera", Location: model.Location{Name: "Marondera", Lat: -18.1860, Lon: 31.5510}},
	{Name: "Chitungwiza Market", Town: "Chitungwiza", Location: model.Location{Name: "Chitungwiza", Lat: -18.0130, Lon: 31.0760}},
}

// LocationByName finds a town case-insensitively.
func LocationByName(name string) (model.Location, bool) {
	for _, l := range Locations {
		if strings.EqualFold(l.Name, strings.TrimSpace(name)) {
			return l, true
		}
	}
	return model.Location{}, false
}

// ProductByName finds a product by case-insensitive substring match in
// either direction, so "tomato" and "fresh vegetables" both resolve.
func ProductByName(name string) (Product, bool) {
	key := model.NormalizeProduct(name)
	if key == "" {
		return Product{}, false
	}
	for _, p := range Products {
		if strings.Contains(p.Key(), key) || strings.Contains(key, p.Key()) {
			return p, true
		}
	}
	return Product{}, false
}

// MarketByName finds a market whose name contains name.
func MarketByName(name string) (Market, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return Market{}, false
	}
	for _, m := range Markets {
		if strings.Contains(strings.ToLower(m.Name), n) {
			return m, true
		}
	}
	return Market{}, false
}
