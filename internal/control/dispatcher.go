package control

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/example/classbook/internal/domain/booking"
	"github.com/example/classbook/internal/engine"
	"github.com/example/classbook/internal/logx"
)

const (
	CmdStart          = "/start"
	CmdHelp           = "/help"
	CmdStatus         = "/status"
	CmdStartScheduler = "/start_scheduler"
	CmdStopScheduler  = "/stop_scheduler"
	CmdPreferences    = "/preferences"
	CmdEnable         = "/enable_booking"
	CmdDisable        = "/disable_booking"
	CmdRunNow         = "/run_now"
)

// Supported lists every command in the order shown to users.
var Supported = []string{
	CmdStart, CmdStatus, CmdStartScheduler, CmdStopScheduler,
	CmdPreferences, CmdEnable, CmdDisable, CmdRunNow,
}

const (
	helpText = "🤖 Class booking scheduler\n" +
		"Your automated booking assistant.\n\n" +
		"📋 Commands\n" +
		"/status - Show scheduler & booking status\n" +
		"/start_scheduler - Start daily scheduler\n" +
		"/stop_scheduler - Stop scheduler\n" +
		"/preferences - View booking preferences\n" +
		"/enable_booking - Enable automatic booking\n" +
		"/disable_booking - Disable automatic booking\n" +
		"/run_now - Run booking immediately (manual)\n"
	unauthorizedText = "🔒 Unauthorized. Only the bot admin can use control commands."
)

type Engine interface {
	Run(ctx context.Context, trigger engine.Trigger) engine.Outcome
}

type Scheduler interface {
	Start() (bool, error)
	Stop() bool
	Armed() bool
	Next() (time.Time, bool)
}

// Dispatcher turns chat commands into state changes and replies.
// Everything except help requires the admin identity.
type Dispatcher struct {
	State     *engine.State
	Engine    Engine
	Scheduler Scheduler
	AdminID   int64
	Location  *time.Location
	Log       logx.Logger
}

// Handle runs one command for the chat identity from and returns the reply.
// It never panics.
func (d *Dispatcher) Handle(ctx context.Context, command string, from int64) (reply string) {
	cmd := Normalize(command)
	log := d.Log.With(logx.String("cmd", cmd), logx.Int64("from", from))

	defer func() {
		if r := recover(); r != nil {
			log.Error("command panicked", logx.Any("panic", r), logx.Stack(string(debug.Stack())))
			reply = fmt.Sprintf("❌ Command failed: %v", r)
		}
	}()

	if cmd == CmdStart || cmd == CmdHelp {
		return helpText
	}
	if !isSupported(cmd) {
		return "❓ Unknown command. Supported commands: " + strings.Join(Supported, ", ")
	}
	if err := d.authorize(from); err != nil {
		log.Warn("unauthorized command")
		return unauthorizedText
	}
	log.Info("command")

	switch cmd {
	case CmdStatus:
		return d.status()
	case CmdStartScheduler:
		ok, err := d.Scheduler.Start()
		if err != nil {
			log.Error("scheduler start failed", logx.Err(err))
			return fmt.Sprintf("❌ Scheduler start failed: %v", err)
		}
		if !ok {
			return "ℹ️ Scheduler already running."
		}
		return "✅ Scheduler started."
	case CmdStopScheduler:
		if !d.Scheduler.Stop() {
			return "ℹ️ Scheduler was not running."
		}
		return "✅ Scheduler stopped."
	case CmdPreferences:
		return d.preferences()
	case CmdEnable:
		d.State.SetEnabled(true)
		return "🔔 Booking enabled."
	case CmdDisable:
		d.State.SetEnabled(false)
		return "🔕 Booking disabled."
	case CmdRunNow:
		out := d.Engine.Run(ctx, engine.TriggerManual)
		return fmt.Sprintf("⚡ Manual run executed: %s. Check status with /status.", displayStatus(out.Status))
	}
	return "❓ Unknown command. Supported commands: " + strings.Join(Supported, ", ")
}

// Normalize lowercases a command token and strips a trailing @BotName.
func Normalize(command string) string {
	cmd := strings.ToLower(strings.TrimSpace(command))
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	return cmd
}

func isSupported(cmd string) bool {
	for _, c := range Supported {
		if c == cmd {
			return true
		}
	}
	return false
}

func (d *Dispatcher) authorize(from int64) error {
	if d.AdminID == 0 || from != d.AdminID {
		return booking.ErrUnauthorized
	}
	return nil
}

func (d *Dispatcher) status() string {
	run := d.State.Run()
	sched := "stopped"
	if d.Scheduler.Armed() {
		sched = "running"
		if next, ok := d.Scheduler.Next(); ok {
			sched += " (next run " + d.format(next) + ")"
		}
	}
	lastRun := "never"
	if !run.LastRunTime.IsZero() {
		lastRun = d.format(run.LastRunTime)
	}
	return fmt.Sprintf("🟢 Scheduler: %s\n🔔 Booking enabled: %t\n✅ Booking completed: %t\n⏱ Last run: %s\n📝 Last status: %s",
		sched, d.State.Enabled(), run.BookingCompleted, lastRun, displayStatus(run.LastStatus))
}

func (d *Dispatcher) preferences() string {
	p := d.State.Preferences()
	centers := make([]string, 0, len(p.Centers))
	for _, c := range p.Centers {
		centers = append(centers, strconv.FormatInt(c, 10))
	}
	timings := make([]string, 0, len(p.Timings))
	for _, t := range p.Timings {
		timings = append(timings, t.String())
	}
	return fmt.Sprintf("⚙️ Preferences\nCenters: %s\nTimings: %s\nWorkout ID: %d\nEnabled: %t",
		strings.Join(centers, ", "), strings.Join(timings, ", "), p.WorkoutID, p.Enabled)
}

func (d *Dispatcher) format(t time.Time) string {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02 15:04:05 MST")
}

func displayStatus(s booking.Status) string {
	if s == booking.StatusNone {
		return "none"
	}
	return string(s)
}
