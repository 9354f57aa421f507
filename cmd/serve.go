package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/classbook/internal/auth"
	"github.com/example/classbook/internal/control"
	"github.com/example/classbook/internal/engine"
	"github.com/example/classbook/internal/logx"
	"github.com/example/classbook/internal/scheduler"
	"github.com/example/classbook/internal/web"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var noAutostart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server and the daily scheduler",
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

			sched, err := scheduler.New(ctx, scheduler.Config{At: cfg.Schedule.At, Timezone: cfg.Schedule.Timezone},
				func(ctx context.Context) { a.engine.Run(ctx, engine.TriggerSchedule) },
				a.notifier, log)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				sched.Shutdown(shutdownCtx)
			}()

			if cfg.Schedule.Autostart && !noAutostart {
				if _, err := sched.Start(); err != nil {
					return err
				}
			}

			ws := &web.Server{
				Dispatcher: &control.Dispatcher{
					State:     a.state,
					Engine:    a.engine,
					Scheduler: sched,
					AdminID:   cfg.Telegram.AdminChatID,
					Location:  a.loc,
					Log:       log.With(logx.String("comp", "control")),
				},
				Replier:   a.notifier,
				Scheduler: sched,
				Secret:    cfg.Telegram.WebhookSecret,
				Operator:  auth.Operator{User: cfg.Operator.User, Hash: cfg.Operator.PasswordBcrypt},
				Log:       log.With(logx.String("comp", "web")),
			}
			if a.telegram != nil {
				ws.Webhook = a.telegram
			}

			log.Info("app starting",
				logx.Bool("scheduler", sched.Armed()),
				logx.Bool("journal", a.db != nil),
				logx.String("version", Version),
			)
			return web.Start(ctx, cfg.ListenAddr, ws.Routes(), log)
		},
	}

	cmd.Flags().BoolVar(&noAutostart, "no-autostart", false, "leave the scheduler stopped until /start_scheduler")
	return cmd
}
