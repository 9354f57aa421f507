package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/classbook/internal/journal"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	c := &cobra.Command{
		Use:   "history",
		Short: "List recent booking cycles from the journal (requires DATABASE_URL)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is not set")
			}
			loc, err := time.LoadLocation(cfg.Schedule.Timezone)
			if err != nil {
				return err
			}

			ctx := context.Background()
			d, err := openJournal(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			cycles, err := journal.New(d).Recent(ctx, limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(cycles) == 0 {
				fmt.Fprintln(w, "no cycles recorded")
				return nil
			}
			for _, c := range cycles {
				fmt.Fprint(w, c.Format(loc))
			}
			return nil
		},
	}

	c.Flags().IntVar(&limit, "limit", 10, "number of cycles to show")
	return c
}
