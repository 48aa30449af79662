package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/agriroute/app"
	"github.com/kilianp07/agriroute/core/sms"
)

var smsFrom string

var smsCmd = &cobra.Command{
	Use:     "sms MESSAGE...",
	Short:   "Answer one SMS transport request and print the reply",
	Example: `  agriroute sms Tomatoes 20kg Marondera to Mbare Musika`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runSMS,
}

func init() {
	smsCmd.Flags().StringVar(&smsFrom, "from", "+263770000000", "sender phone number")
	rootCmd.AddCommand(smsCmd)
}

func runSMS(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()
	return sendSMS(cmd.Context(), svc.SMS, sms.Message{From: smsFrom, Text: strings.Join(args, " ")}, cmd.OutOrStdout())
}

func sendSMS(ctx context.Context, p interface {
	Handle(context.Context, sms.Message) (sms.Reply, error)
}, msg sms.Message, out io.Writer) error {
	reply, err := p.Handle(ctx, msg)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "To: %s [%s]\n\n%s\n", reply.To, reply.Status, reply.Message)
	return nil
}
