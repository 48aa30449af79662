package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kilianp07/agriroute/app"
	"github.com/kilianp07/agriroute/core/session"
)

var ussdPhone string

var ussdCmd = &cobra.Command{
	Use:   "ussd",
	Short: "Walk through a USSD session on the terminal",
	RunE:  runUSSD,
}

func init() {
	ussdCmd.Flags().StringVar(&ussdPhone, "phone", "+263770000000", "caller phone number")
	rootCmd.AddCommand(ussdCmd)
}

func runUSSD(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()
	return converse(cmd.Context(), svc.Sessions, ussdPhone, cmd.InOrStdin(), cmd.OutOrStdout())
}

// converse replays the gateway convention: every turn carries the whole
// input history joined by '*'.
func converse(ctx context.Context, m interface {
	Handle(context.Context, session.Turn) (session.Reply, error)
}, phone string, in io.Reader, out io.Writer) error {
	id := uuid.NewString()
	var history []string
	sc := bufio.NewScanner(in)
	for {
		reply, err := m.Handle(ctx, session.Turn{SessionID: id, Channel: phone, Input: strings.Join(history, "*")})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, reply.Text)
		if reply.Terminal {
			return nil
		}
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			return sc.Err()
		}
		history = append(history, strings.TrimSpace(sc.Text()))
	}
}
