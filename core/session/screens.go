package session

import (
	"fmt"
	"math"
	"strings"

	"github.com/kilianp07/agriroute/core/catalog"
	"github.com/kilianp07/agriroute/core/model"
)

// Reply prefixes of the USSD convention.
const (
	PrefixContinue = "CON "
	PrefixEnd      = "END "
)

// SupportLine is shown on every dead end.
const SupportLine = "077-AGRICONNECT"

func cont(text string) Reply { return Reply{Text: PrefixContinue + text} }

func end(text string) Reply { return Reply{Text: PrefixEnd + text, Terminal: true} }

func unavailable() Reply {
	return end("Sorry, service temporarily unavailable. Please try again in 5 minutes.\nFor urgent help: " + SupportLine)
}

func welcomeMenu() Reply {
	return cont("Welcome to AgriConnect USSD\n" +
		"Smart Farm-to-Market Transport\n\n" +
		"1. Book Smart Transport\n" +
		"2. Check Rates & Prices\n" +
		"3. Weather Forecast\n" +
		"4. Help & Support\n\n" +
		"Choose option:")
}

func locationMenu() Reply {
	var b strings.Builder
	b.WriteString("Select your location:\n")
	for i, l := range catalog.Locations {
		fmt.Fprintf(&b, "%d. %s\n", i+1, l.Name)
	}
	b.WriteString("\nEnter choice:")
	return cont(b.String())
}

func productMenu() Reply {
	var b strings.Builder
	b.WriteString("Select product to transport:\n")
	for i, p := range catalog.Products {
		mark := ""
		if p.Perishable() {
			mark = " (perishable)"
		}
		fmt.Fprintf(&b, "%d. %s%s\n", i+1, p.Name, mark)
	}
	b.WriteString("\nEnter choice:")
	return cont(b.String())
}

func quantityPrompt(p catalog.Product) Reply {
	return cont(fmt.Sprintf("Enter quantity of %s:\nUnit: %s\nExample: 10 (%s)\n\nQuantity:", p.Name, p.Unit, p.Unit))
}

func invalidQuantity(p catalog.Product) Reply {
	return cont(fmt.Sprintf("Invalid quantity. Please enter a number:\nQuantity (%s):", p.Unit))
}

func destinationMenu() Reply {
	var b strings.Builder
	b.WriteString("Select destination market:\n")
	for i, m := range catalog.Markets {
		fmt.Fprintf(&b, "%d. %s\n", i+1, m.Name)
	}
	b.WriteString("\nEnter choice:")
	return cont(b.String())
}

// weatherReport renders the weather screen. product is nil on the weather
// only path.
func weatherReport(loc model.Location, w model.WeatherReport, product *catalog.Product, weatherOnly bool) Reply {
	var b strings.Builder
	fmt.Fprintf(&b, "WEATHER INTELLIGENCE - %s\n", loc.Name)
	fmt.Fprintf(&b, "Temp: %.1fC\n", w.TemperatureC)
	fmt.Fprintf(&b, "Conditions: %s\n", w.Condition)
	fmt.Fprintf(&b, "Humidity: %.0f%%\n", w.HumidityPct)
	fmt.Fprintf(&b, "Rain Chance: %.0f%%\n\n", w.RainProbabilityPct)
	b.WriteString("RECOMMENDATIONS:\n")
	for _, a := range Advisories(w, product) {
		fmt.Fprintf(&b, "- %s\n", a)
	}
	if weatherOnly {
		b.WriteString("\n0. Main Menu\n")
	} else {
		b.WriteString("\n1. Continue to Transport\n2. Cancel\nChoose:")
	}
	return cont(b.String())
}

// Advisories lists the weather driven handling advice for a report.
func Advisories(w model.WeatherReport, product *catalog.Product) []string {
	var out []string
	if w.RainProbabilityPct > 50 {
		out = append(out, "Use waterproof covering")
	}
	if w.TemperatureC > 28 {
		out = append(out, "Avoid midday transport")
	}
	if strings.Contains(strings.ToLower(w.Condition), "thunderstorm") {
		out = append(out, "Delay if possible")
	}
	if product != nil && product.Perishable() && product.Handling != "" {
		out = append(out, product.Handling)
	}
	return out
}

func noTransport() Reply {
	return end("No suitable transport available.\nTry reducing quantity or different product.\nSupport: " + SupportLine)
}

func vehicleMenu(cands []model.VehicleCandidate) Reply {
	var b strings.Builder
	b.WriteString("SMART TRANSPORT OPTIONS:\n\n")
	for i, c := range cands {
		v := c.Vehicle
		fmt.Fprintf(&b, "%d. %s\n", i+1, v.DisplayName())
		fmt.Fprintf(&b, "   Type: %s\n", v.Type.Label())
		fmt.Fprintf(&b, "   Capacity: %.0fkg\n", v.Available())
		if v.Rating > 0 {
			fmt.Fprintf(&b, "   Rating: %.1f/5\n", v.Rating)
		}
		fmt.Fprintf(&b, "   ETA: %d min\n", c.ETAMinutes)
		if v.Phone != "" {
			fmt.Fprintf(&b, "   Contact: %s\n", v.Phone)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Choose transporter (1-%d):", len(cands))
	return cont(b.String())
}

func ratesScreen() Reply {
	return end("TRANSPORT RATES (per km):\n\n" +
		"Refrigerated Truck: $0.12-0.15/km\n" +
		"General Truck: $0.10-0.12/km\n" +
		"Van: $0.15-0.18/km\n" +
		"Pickup: $0.20-0.25/km\n\n" +
		"Minimum charge: $10\n" +
		"Free for orders > 500kg\n\n" +
		"Dial *384*765# to book")
}

func helpScreen() Reply {
	return end("AGRICONNECT HELP\n\n" +
		"Book smart farm transport:\n" +
		"1. Select location & product\n" +
		"2. Get weather intelligence\n" +
		"3. Choose optimal transport\n" +
		"4. Receive route optimization\n\n" +
		"Support: " + SupportLine + "\n" +
		"Email: help@agriconnect.africa\n\n" +
		"Dial *384*765# to start")
}

// Confirmation is everything shown on the final booking screen.
type Confirmation struct {
	Product      catalog.Product
	Quantity     int
	WeightKG     float64
	From         string
	To           string
	Vehicle      model.Vehicle
	Route        RoutePlan
	CostEstimate float64
	SpoilageRisk float64
	Score        *model.ScoreResult
	Tips         []string
	BookingID    string
}

func confirmationScreen(c Confirmation) Reply {
	var b strings.Builder
	b.WriteString("TRANSPORT BOOKED SUCCESSFULLY!\n\n")
	b.WriteString("ORDER DETAILS:\n")
	fmt.Fprintf(&b, "Product: %s\n", c.Product.Name)
	fmt.Fprintf(&b, "Quantity: %d %s (%.0fkg)\n", c.Quantity, c.Product.Unit, c.WeightKG)
	fmt.Fprintf(&b, "From: %s\n", c.From)
	fmt.Fprintf(&b, "To: %s\n", c.To)
	fmt.Fprintf(&b, "Transporter: %s\n\n", c.Vehicle.DisplayName())

	b.WriteString("OPTIMIZED ROUTE:\n")
	fmt.Fprintf(&b, "Route: %s\n", c.Route.Label)
	fmt.Fprintf(&b, "Distance: %.1f km\n", c.Route.DistanceKM)
	fmt.Fprintf(&b, "Time: %.1f hours\n", float64(c.Route.DurationMinutes)/60)
	fmt.Fprintf(&b, "Cost: $%.2f\n", c.CostEstimate)
	fmt.Fprintf(&b, "Spoilage Risk: %.1f%%\n", c.SpoilageRisk*100)
	if c.Score != nil {
		fmt.Fprintf(&b, "Outlook: %s (score %.2f)\n", c.Score.Recommendation, math.Round(c.Score.CombinedScore*100)/100)
	}
	b.WriteString("\n")

	if len(c.Tips) > 0 {
		b.WriteString("INTELLIGENT TIPS:\n")
		for _, t := range c.Tips {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}
	if c.Vehicle.Phone != "" {
		fmt.Fprintf(&b, "\nContact %s at %s\n", c.Vehicle.DisplayName(), c.Vehicle.Phone)
	}
	if c.BookingID != "" {
		fmt.Fprintf(&b, "Ref: %s\n", shortRef(c.BookingID))
	}
	b.WriteString("Thank you for using AgriConnect!")
	return end(b.String())
}

func shortRef(id string) string {
	id = strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
