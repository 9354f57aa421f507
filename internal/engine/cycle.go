package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/example/classbook/internal/domain/booking"
	"github.com/example/classbook/internal/logx"
)

// Trigger names what started a cycle.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
	TriggerCLI      Trigger = "cli"
)

type Outcome struct {
	ID         uuid.UUID
	Trigger    Trigger
	StartedAt  time.Time
	FinishedAt time.Time
	Status     booking.Status
	Booked     bool
	Attempts   []Attempt
	// Shared is true when this caller joined a cycle that was already running.
	Shared bool
}

// Recorder receives finished cycles. Failures are logged and ignored.
type Recorder interface {
	RecordCycle(ctx context.Context, out Outcome) error
}

// Engine runs booking cycles. Only one cycle executes at a time; a trigger
// that arrives while one is running waits for it and gets its outcome.
type Engine struct {
	state    *State
	platform booking.Platform
	executor *Executor
	notifier Notifier
	recorder Recorder
	log      logx.Logger
	loc      *time.Location
	now      func() time.Time

	flight singleflight.Group
}

type Options struct {
	Notifier Notifier
	Recorder Recorder
	Log      logx.Logger
	// Location is used for LastRunTime; defaults to UTC.
	Location *time.Location
	Now      func() time.Time
}

func New(state *State, platform booking.Platform, opts Options) *Engine {
	e := &Engine{
		state:    state,
		platform: platform,
		notifier: opts.Notifier,
		recorder: opts.Recorder,
		log:      opts.Log.With(logx.String("comp", "cycle")),
		loc:      opts.Location,
		now:      opts.Now,
	}
	if e.loc == nil {
		e.loc = time.UTC
	}
	if e.now == nil {
		e.now = time.Now
	}
	e.executor = &Executor{Platform: platform, Notifier: opts.Notifier, Log: e.log, Now: e.now}
	return e
}

func (e *Engine) State() *State { return e.state }

// Run executes one cycle and returns how it ended. It never panics.
// Cancelling ctx does not stop a cycle that has started; it always runs to
// one of its exits so a submitted booking is never left unrecorded.
func (e *Engine) Run(ctx context.Context, trigger Trigger) Outcome {
	ctx = context.WithoutCancel(ctx)
	ran := false
	v, _, _ := e.flight.Do("cycle", func() (any, error) {
		ran = true
		return e.cycle(ctx, trigger), nil
	})
	out := v.(Outcome)
	if !ran {
		e.log.Info("joined running cycle", logx.String("trigger", string(trigger)), logx.String("cycle", out.ID.String()))
		out.Shared = true
	}
	return out
}

func (e *Engine) cycle(ctx context.Context, trigger Trigger) (out Outcome) {
	start := e.now().In(e.loc)
	out = Outcome{ID: uuid.New(), Trigger: trigger, StartedAt: start}
	log := e.log.With(logx.String("cycle", out.ID.String()), logx.String("trigger", string(trigger)))

	e.state.beginRun(start)
	log.Info("booking cycle started", logx.Time("at", start))

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			log.Error("booking cycle panicked", logx.Err(err), logx.Stack(string(debug.Stack())))
			e.fail(&out, err)
		}
		out.FinishedAt = e.now().In(e.loc)
		log.Info("booking cycle finished", logx.String("status", string(out.Status)), logx.Bool("booked", out.Booked),
			logx.Duration("took", out.FinishedAt.Sub(out.StartedAt)))
		e.record(ctx, log, out)
	}()

	prefs := e.state.Preferences()
	if !prefs.Enabled {
		e.setStatus(&out, booking.StatusDisabled)
		e.notify(disabledText)
		return out
	}

	e.scan(ctx, log, prefs, &out)
	return out
}

// scan walks the centers in order and stops at the first confirmed booking.
// At most one slot is attempted per center.
func (e *Engine) scan(ctx context.Context, log logx.Logger, prefs booking.Preferences, out *Outcome) {
	anyFound := false
	for _, center := range prefs.Centers {
		raw, err := e.platform.FetchSchedule(ctx, center)
		if err != nil {
			log.Warn("schedule fetch failed, skipping center", logx.Int64("center", center), logx.Err(err))
			continue
		}
		candidates, ok := booking.MatchSlots(center, raw, prefs)
		if !ok {
			log.Warn("schedule malformed, skipping center", logx.Int64("center", center))
			continue
		}
		if len(candidates) == 0 {
			log.Debug("no matching slots", logx.Int64("center", center))
			continue
		}

		anyFound = true
		first := candidates[0]
		log.Info("slot found", logx.Int64("center", center), logx.String("slot", first.SlotID),
			logx.String("date", first.Date), logx.String("time", first.Time), logx.Int("candidates", len(candidates)))
		e.notify(slotFoundText(first))

		att, err := e.executor.Book(ctx, first)
		switch {
		case err == nil:
			out.Attempts = append(out.Attempts, att)
			e.state.markBooked()
			out.Status = booking.StatusBooked
			out.Booked = true
			return
		case errors.Is(err, booking.ErrNoTimestamp):
			e.setStatus(out, booking.StatusNoTimestamp)
			e.notify(noTimestampText(first))
		default:
			out.Attempts = append(out.Attempts, att)
			e.setStatus(out, booking.StatusFailed)
		}
	}

	if !anyFound {
		e.setStatus(out, booking.StatusNoSlots)
		e.notify(noSlotsText)
	}
}

func (e *Engine) fail(out *Outcome, err error) {
	e.setStatus(out, booking.FatalStatus(err))
	e.notify(cycleErrorText(err))
}

func (e *Engine) setStatus(out *Outcome, st booking.Status) {
	out.Status = st
	e.state.setStatus(st)
}

func (e *Engine) notify(text string) {
	if e.notifier != nil {
		e.notifier.Notify(text)
	}
}

func (e *Engine) record(ctx context.Context, log logx.Logger, out Outcome) {
	if e.recorder == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := e.recorder.RecordCycle(rctx, out); err != nil {
		log.Warn("journal write failed", logx.Err(err))
	}
}
