package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/agriroute/app"
	"github.com/kilianp07/agriroute/core/catalog"
	"github.com/kilianp07/agriroute/core/decision"
	"github.com/kilianp07/agriroute/core/model"
)

var decideOpts struct {
	from       string
	to         string
	lat, lon   float64
	capacity   float64
	perishable bool
	product    string
	wait       int
	force      bool
}

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Run one decision and print the JSON answer",
	RunE:  runDecide,
}

func init() {
	f := decideCmd.Flags()
	f.StringVar(&decideOpts.from, "from", "", "pickup location name from the catalog")
	f.StringVar(&decideOpts.to, "to", "", "delivery market name from the catalog")
	f.Float64Var(&decideOpts.lat, "lat", 0, "pickup latitude when --from is not set")
	f.Float64Var(&decideOpts.lon, "lon", 0, "pickup longitude when --from is not set")
	f.Float64Var(&decideOpts.capacity, "capacity", 500, "required capacity in kg")
	f.BoolVar(&decideOpts.perishable, "perishable", false, "load needs refrigeration")
	f.StringVar(&decideOpts.product, "product", "", "product used for market prices")
	f.IntVar(&decideOpts.wait, "wait", 120, "maximum pickup wait in minutes")
	f.BoolVar(&decideOpts.force, "force", false, "bypass the signal cache")
	rootCmd.AddCommand(decideCmd)
}

func decideRequest() (decision.Request, error) {
	req := decision.Request{
		Pickup:             model.Location{Lat: decideOpts.lat, Lon: decideOpts.lon},
		RequiredCapacityKG: decideOpts.capacity,
		Perishable:         decideOpts.perishable,
		MaxWaitMinutes:     decideOpts.wait,
		Product:            decideOpts.product,
		ForceRefresh:       decideOpts.force,
	}
	if decideOpts.from != "" {
		loc, ok := catalog.LocationByName(decideOpts.from)
		if !ok {
			return req, fmt.Errorf("unknown location %q", decideOpts.from)
		}
		req.Pickup = loc
	}
	if decideOpts.to != "" {
		m, ok := catalog.MarketByName(decideOpts.to)
		if !ok {
			return req, fmt.Errorf("unknown market %q", decideOpts.to)
		}
		req.Delivery = &m.Location
	}
	return req, nil
}

func runDecide(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	req, err := decideRequest()
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	resp, err := svc.Engine.Decide(ctx, req)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
