package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/kilianp07/agriroute/core/catalog"
	"github.com/kilianp07/agriroute/core/geo"
	"github.com/kilianp07/agriroute/core/model"
)

// RoutePlan is the route shown on the confirmation screen.
type RoutePlan struct {
	Label           string  `json:"label"`
	DistanceKM      float64 `json:"distance_km"`
	DurationMinutes int     `json:"duration_minutes"`
	Source          string  `json:"source"`
}

type routeTemplate struct {
	a, b   string
	via    string
	km     float64
	smooth bool
}

// Known corridors, preferred over a straight-line estimate.
var routeTemplates = []routeTemplate{
	{a: "Harare", b: "Marondera", via: "Arcturus Rd", km: 45, smooth: true},
	{a: "Harare", b: "Mutare", via: "Rusape", km: 265},
	{a: "Harare", b: "Bulawayo", via: "Gweru", km: 435},
}

func lookupTemplate(from, to string) (routeTemplate, bool) {
	for _, t := range routeTemplates {
		if (strings.EqualFold(t.a, from) && strings.EqualFold(t.b, to)) ||
			(strings.EqualFold(t.b, from) && strings.EqualFold(t.a, to)) {
			return t, true
		}
	}
	return routeTemplate{}, false
}

// PlanRoute estimates the trip from pickup to the destination market. The
// router wins when it answers; a known corridor comes next; otherwise the
// haversine distance at the average speed.
func PlanRoute(ctx context.Context, router geo.RouteEstimator, speedKMH float64, pickup model.Location, dest catalog.Market, product catalog.Product) RoutePlan {
	label := fmt.Sprintf("%s -> Main Route -> %s", pickup.Name, dest.Name)
	t, known := lookupTemplate(pickup.Name, dest.Town)
	if known {
		label = fmt.Sprintf("%s -> %s -> %s", pickup.Name, t.via, dest.Name)
		if t.smooth && product.Perishable() {
			label += " (smooth road)"
		}
	}

	if router != nil {
		if r, err := router.Estimate(ctx, pickup, dest.Location); err == nil && r.DistanceKM > 0 {
			return RoutePlan{Label: label, DistanceKM: r.DistanceKM, DurationMinutes: r.DurationMinutes, Source: r.Source}
		}
	}
	if known {
		return RoutePlan{Label: label, DistanceKM: t.km, DurationMinutes: geo.StraightLineETA(t.km, speedKMH, 0), Source: "corridor"}
	}
	km := geo.Haversine(pickup, dest.Location)
	return RoutePlan{Label: label, DistanceKM: km, DurationMinutes: geo.StraightLineETA(km, speedKMH, 0), Source: "haversine"}
}

// MaxTips bounds the tips on the confirmation screen.
const MaxTips = 4

// Tips returns transport advice for a product leaving pickup.
func Tips(product catalog.Product, pickup string, w *model.WeatherReport) []string {
	var tips []string
	if product.Perishable() {
		tips = append(tips, "Use refrigerated transport", "Minimize transit time", "Use ventilated packaging")
	}
	switch product.Key() {
	case "tomatoes":
		tips = append(tips, "Avoid stacking crates", "Maintain "+product.IdealTemp+" temperature")
	case "maize":
		tips = append(tips, "Keep bags dry and covered", "Standard truck transport suitable")
	}
	if w != nil && w.RainProbabilityPct > 50 {
		tips = append(tips, "Rain likely, cover the load")
	} else if pickup == "Mutare" || pickup == "Marondera" {
		tips = append(tips, "Check weather - rain likely")
	}
	tips = append(tips, "Arrive before 8AM for best prices")
	if len(tips) > MaxTips {
		tips = tips[:MaxTips]
	}
	return tips
}
