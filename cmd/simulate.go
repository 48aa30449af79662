package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/agriroute/infra/mqtt"
	"github.com/kilianp07/agriroute/simulator"
)

var simSize int

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Publish a simulated truck fleet over MQTT",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().IntVarP(&simSize, "size", "n", 0, "number of trucks, overrides the config")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	scfg := cfg.Simulator
	if simSize > 0 {
		scfg.Size = simSize
	}
	cli, err := mqtt.Connect(cfg.MQTT, "simulator")
	if err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	defer cli.Disconnect()

	sim, err := simulator.New(scfg, cli)
	if err != nil {
		return err
	}
	return sim.Run(ctx)
}
