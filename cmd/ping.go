package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/classbook/internal/cultfit"
	"github.com/example/classbook/internal/domain/booking"
)

// newPingCmd checks credentials and preferences against the live schedule
// without booking anything.
func newPingCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Fetch each configured center's schedule and report matching slots (no booking)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(opts)
			if err != nil {
				return err
			}
			client := cultfit.New(cfg.Cult.BaseURL, cultfit.Credentials{
				APIKey:   cfg.Cult.APIKey,
				STCookie: cfg.Cult.STCookie,
				ATCookie: cfg.Cult.ATCookie,
			}, log)
			client.FetchTimeout = cfg.Cult.FetchTimeout

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return pingCenters(ctx, cmd, client, cfg.Preferences)
		},
	}
}

func pingCenters(ctx context.Context, cmd *cobra.Command, p booking.Platform, prefs booking.Preferences) error {
	w := cmd.OutOrStdout()
	failed := 0
	for _, center := range prefs.Centers {
		raw, err := p.FetchSchedule(ctx, center)
		if err != nil {
			failed++
			fmt.Fprintf(w, "center %d: error: %v\n", center, err)
			continue
		}
		slots, ok := booking.MatchSlots(center, raw, prefs)
		if !ok {
			failed++
			fmt.Fprintf(w, "center %d: unexpected schedule format\n", center)
			continue
		}
		fmt.Fprintf(w, "center %d: ok, %d matching slot(s)\n", center, len(slots))
		for _, s := range slots {
			fmt.Fprintf(w, "    %s %s slot=%s seats=%d\n", s.Date, s.Time, s.SlotID, s.Seats)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d centers failed", failed, len(prefs.Centers))
	}
	return nil
}
