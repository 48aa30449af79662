package sms

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kilianp07/agriroute/core/session"
)

// keyMarkets is how many markets the price section lists.
const keyMarkets = 3

func compose(req Request, q Quote) string {
	var b strings.Builder
	b.WriteString("AGRICONNECT TRANSPORT SOLUTION\n")
	b.WriteString(strings.Repeat("=", 30) + "\n\n")

	b.WriteString("YOUR REQUEST:\n")
	fmt.Fprintf(&b, "Product: %s\n", req.Product.Name)
	if req.Unit == "kg" {
		fmt.Fprintf(&b, "Quantity: %skg\n", num(req.Quantity))
	} else {
		fmt.Fprintf(&b, "Quantity: %s %s (%skg)\n", num(req.Quantity), req.Unit, num(req.WeightKG))
	}
	fmt.Fprintf(&b, "From: %s\n", req.From.Name)
	fmt.Fprintf(&b, "To: %s\n\n", req.To.Destination().Name)

	b.WriteString("RECOMMENDED TRANSPORT:\n")
	if c := q.Best; c != nil {
		v := c.Vehicle
		fmt.Fprintf(&b, "Transporter: %s\n", v.DisplayName())
		fmt.Fprintf(&b, "Vehicle: %s\n", v.Type.Label())
		fmt.Fprintf(&b, "Capacity: %.0fkg\n", v.Available())
		if v.Rating > 0 {
			fmt.Fprintf(&b, "Rating: %.1f/5\n", v.Rating)
		}
		fmt.Fprintf(&b, "ETA: %d min\n", c.ETAMinutes)
		if v.Phone != "" {
			fmt.Fprintf(&b, "Contact: %s\n", v.Phone)
		}
		fmt.Fprintf(&b, "Est Cost: $%.2f\n\n", q.CostEstimate)
	} else {
		b.WriteString("No suitable transport available\n\n")
	}

	b.WriteString("OPTIMIZED ROUTE:\n")
	fmt.Fprintf(&b, "Route: %s\n", q.Route.Label)
	fmt.Fprintf(&b, "Distance: %.1f km\n", q.Route.DistanceKM)
	fmt.Fprintf(&b, "Time: %.1f hours\n", float64(q.Route.DurationMinutes)/60)
	fmt.Fprintf(&b, "Spoilage Risk: %.1f%%\n", q.SpoilageRisk*100)
	fmt.Fprintf(&b, "Outlook: %s (score %.2f)\n\n", q.Score.Recommendation, math.Round(q.Score.CombinedScore*100)/100)

	if w := q.Weather; w != nil {
		fmt.Fprintf(&b, "WEATHER - %s:\n", req.From.Name)
		fmt.Fprintf(&b, "Temp: %.1fC\n", w.TemperatureC)
		fmt.Fprintf(&b, "Conditions: %s\n", w.Condition)
		fmt.Fprintf(&b, "Rain Chance: %.0f%%\n\n", w.RainProbabilityPct)
	}

	if m := q.Market; m != nil {
		quotes := m.SortedByPrice()
		var positive []float64
		for _, mq := range quotes {
			if mq.PriceLocal > 0 {
				positive = append(positive, mq.PriceLocal)
			}
		}
		if len(positive) > 0 {
			hi, lo := quotes[0], quotes[len(positive)-1]
			var sum float64
			for _, p := range positive {
				sum += p
			}
			fmt.Fprintf(&b, "MARKET PRICES - %s (per kg):\n", req.Product.Name)
			fmt.Fprintf(&b, "Highest: $%.2f (%s)\n", hi.PriceLocal, hi.Market)
			fmt.Fprintf(&b, "Lowest: $%.2f (%s)\n", lo.PriceLocal, lo.Market)
			fmt.Fprintf(&b, "Average: $%.2f\n\n", sum/float64(len(positive)))
			b.WriteString("KEY MARKETS:\n")
			for _, mq := range quotes[:min(keyMarkets, len(positive))] {
				fmt.Fprintf(&b, "%s: $%.2f\n", mq.Market, mq.PriceLocal)
			}
			b.WriteString("\n")
		}
	}

	if len(q.Tips) > 0 {
		b.WriteString("RECOMMENDATIONS:\n")
		for _, t := range q.Tips {
			fmt.Fprintf(&b, "- %s\n", t)
		}
		b.WriteString("\n")
	}
	b.WriteString("Dial *384*765# to book or call " + session.SupportLine + " for help.")
	return b.String()
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
