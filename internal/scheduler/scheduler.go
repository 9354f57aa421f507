package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"

	"github.com/example/classbook/internal/domain/booking"
	"github.com/example/classbook/internal/logx"
)

type Notifier interface {
	Notify(text string)
}

type Config struct {
	// At is the daily trigger time, "HH:MM".
	At string
	// Timezone is an IANA name used for both the trigger and reporting.
	Timezone string
}

// Scheduler fires Job once a day at a fixed local time while armed.
// Disarming only prevents future firings; a running job is left alone.
type Scheduler struct {
	Job      func(ctx context.Context)
	Notifier Notifier

	ctx  context.Context
	at   booking.TimeOfDay
	loc  *time.Location
	log  logx.Logger
	spec string

	mu    sync.Mutex
	c     *cron.Cron
	entry cron.EntryID
}

func New(ctx context.Context, cfg Config, job func(ctx context.Context), n Notifier, log logx.Logger) (*Scheduler, error) {
	at, err := booking.ParseTimeOfDay(cfg.At)
	if err != nil {
		return nil, fmt.Errorf("schedule time: %w", err)
	}
	tz := strings.TrimSpace(cfg.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("schedule timezone: %w", err)
	}
	return &Scheduler{
		Job:      job,
		Notifier: n,
		ctx:      ctx,
		at:       at,
		loc:      loc,
		log:      log.With(logx.String("comp", "scheduler")),
		spec:     fmt.Sprintf("%d %d * * *", at.Minute, at.Hour),
	}, nil
}

func (s *Scheduler) Location() *time.Location { return s.loc }

// At is the daily trigger time formatted as HH:MM.
func (s *Scheduler) At() string { return s.at.String() }

func (s *Scheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c != nil
}

// Next returns the next firing time, or false when disarmed.
func (s *Scheduler) Next() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return time.Time{}, false
	}
	e := s.c.Entry(s.entry)
	if e.Next.IsZero() {
		sched, err := cron.ParseStandard(s.spec)
		if err != nil {
			return time.Time{}, false
		}
		return sched.Next(time.Now().In(s.loc)), true
	}
	return e.Next.In(s.loc), true
}

// Start arms the daily trigger. It reports false if it was already armed.
func (s *Scheduler) Start() (bool, error) {
	s.mu.Lock()
	if s.c != nil {
		s.mu.Unlock()
		s.log.Info("scheduler already running")
		return false, nil
	}
	cl := cronLogger{log: s.log}
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	id, err := c.AddFunc(s.spec, s.fire)
	if err != nil {
		s.mu.Unlock()
		return false, fmt.Errorf("register daily job: %w", err)
	}
	c.Start()
	s.c, s.entry = c, id
	s.mu.Unlock()

	s.log.Info("scheduler started", logx.String("at", s.At()), logx.String("tz", s.loc.String()))
	s.notify(fmt.Sprintf("⏰ Scheduler started. Next run daily at %s %s.", s.At(), s.loc))
	return true, nil
}

// Stop disarms the trigger. It reports false if it was not armed.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		s.log.Info("scheduler not running")
		return false
	}
	c.Stop()
	s.log.Info("scheduler stopped")
	s.notify("⛔ Scheduler stopped.")
	return true
}

// Shutdown disarms quietly and waits for a running job, bounded by ctx.
func (s *Scheduler) Shutdown(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("scheduler shutdown timed out waiting for running cycle")
	}
}

func (s *Scheduler) fire() {
	s.log.Info("daily trigger fired")
	s.Job(context.WithoutCancel(s.ctx))
}

func (s *Scheduler) notify(text string) {
	if s.Notifier != nil {
		s.Notifier.Notify(text)
	}
}

// cronLogger adapts logx to cron's logger interface.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug("cron: "+msg, kvFields(kv)...)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error("cron: "+msg, append(kvFields(kv), logx.Err(err))...)
}

func kvFields(kv []any) []logx.Field {
	var out []logx.Field
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logx.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
