package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/classbook/internal/engine"
)

func newRunOnceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run-once",
		Short: "Run a single booking cycle in the foreground and print the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(opts)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			out := a.engine.Run(ctx, engine.TriggerCLI)
			printOutcome(cmd, out)
			if out.Status.IsFatal() {
				return fmt.Errorf("cycle failed: %s", out.Status)
			}
			return nil
		},
	}
}

func printOutcome(cmd *cobra.Command, out engine.Outcome) {
	w := cmd.OutOrStdout()
	status := string(out.Status)
	if status == "" {
		status = "none"
	}
	fmt.Fprintf(w, "cycle %s  %s  booked=%t  %s\n", out.ID, out.FinishedAt.Sub(out.StartedAt).Round(time.Millisecond), out.Booked, status)
	for _, at := range out.Attempts {
		result := "ok"
		if !at.Success {
			result = "failed: " + at.Reason
		}
		fmt.Fprintf(w, "    center=%d slot=%s %s %s  %s\n", at.CenterID, at.SlotID, at.Date, at.Time, result)
	}
}
