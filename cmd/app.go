package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/example/classbook/internal/config"
	"github.com/example/classbook/internal/cultfit"
	"github.com/example/classbook/internal/engine"
	"github.com/example/classbook/internal/journal"
	"github.com/example/classbook/internal/logx"
	"github.com/example/classbook/internal/notify"
)

// app holds the pieces shared by serve and run-once.
type app struct {
	cfg      config.Config
	log      logx.Logger
	loc      *time.Location
	telegram *notify.Telegram
	notifier *notify.Service
	db       *journal.DB
	state    *engine.State
	engine   *engine.Engine
}

func loadConfig(opts *rootOptions) (config.Config, logx.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, logx.Logger{}, err
	}
	return cfg, logx.New(cfg.LogLevel, opts.console), nil
}

func newApp(ctx context.Context, cfg config.Config, log logx.Logger) (*app, error) {
	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule timezone: %w", err)
	}
	a := &app{cfg: cfg, log: log, loc: loc}

	var sender notify.Sender = notify.LogSender{Log: log.With(logx.String("comp", "notify"))}
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.Token)
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		a.telegram = tg
		sender = tg
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN not set, notifications go to the log only")
	}
	a.notifier = notify.New(notify.Config{DefaultChatID: cfg.Telegram.ChatID}, sender, log)
	a.notifier.Start(ctx)

	platform := cultfit.New(cfg.Cult.BaseURL, cultfit.Credentials{
		APIKey:   cfg.Cult.APIKey,
		STCookie: cfg.Cult.STCookie,
		ATCookie: cfg.Cult.ATCookie,
	}, log)
	platform.FetchTimeout = cfg.Cult.FetchTimeout
	platform.BookTimeout = cfg.Cult.BookTimeout

	opts := engine.Options{Notifier: a.notifier, Log: log, Location: loc}
	if cfg.DatabaseURL != "" {
		d, err := openJournal(ctx, cfg.DatabaseURL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.db = d
		opts.Recorder = journal.New(d)
	}

	a.state = engine.NewState(cfg.Preferences)
	a.engine = engine.New(a.state, platform, opts)
	return a, nil
}

func openJournal(ctx context.Context, url string) (*journal.DB, error) {
	d, err := journal.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := d.Ping(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if err := journal.Migrate(ctx, d); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// close flushes pending notifications and releases the database.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.notifier.Stop(ctx)
	if a.db != nil {
		a.db.Close()
	}
}
