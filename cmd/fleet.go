package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	corefleet "github.com/kilianp07/agriroute/core/fleet"
	"github.com/kilianp07/agriroute/core/model"
	"github.com/kilianp07/agriroute/infra/mqtt"
	"github.com/kilianp07/agriroute/infra/telemetry"
)

var (
	fleetWait   time.Duration
	fleetStatus string
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Fleet related commands",
}

var fleetLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List vehicles reporting over MQTT",
	RunE:  runFleetLs,
}

func init() {
	fleetLsCmd.Flags().DurationVar(&fleetWait, "wait", 3*time.Second, "how long to listen for vehicle state")
	fleetLsCmd.Flags().StringVar(&fleetStatus, "status", "", "only list vehicles with this status")
	fleetCmd.AddCommand(fleetLsCmd)
	rootCmd.AddCommand(fleetCmd)
}

func runFleetLs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cli, err := mqtt.Connect(cfg.MQTT, fmt.Sprintf("fleet-ls-%d", time.Now().UnixNano()))
	if err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	store := corefleet.NewStore(nil)
	tcfg := cfg.Telemetry
	tcfg.Mode = telemetry.ModeHybrid
	mgr, err := telemetry.NewManager(cli, tcfg, store, prometheus.NewRegistry())
	if err != nil {
		cli.Disconnect()
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), fleetWait)
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		return err
	}

	var f corefleet.Filter
	if fleetStatus != "" {
		f.Status = model.ParseVehicleStatus(fleetStatus)
	}
	return printFleet(cmd, store.Snapshot(f))
}

func printFleet(cmd *cobra.Command, vehicles []model.Vehicle) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tSTATUS\tFREE_KG\tLAT\tLON\tLAST_SEEN")
	for _, v := range vehicles {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f\t%.4f\t%.4f\t%s\n",
			v.ID, v.DisplayName(), v.Type, v.Status, v.Available(),
			v.Location.Lat, v.Location.Lon, v.LastSeen.Format(time.RFC3339))
	}
	return w.Flush()
}
