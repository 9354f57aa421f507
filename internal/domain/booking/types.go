package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a preferred class start, compared by exact hour and minute.
type TimeOfDay struct {
	Hour   int `json:"hour" yaml:"hour"`
	Minute int `json:"minute" yaml:"minute"`
}

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// ParseTimeOfDay parses a strict "HH:MM" value as used in configuration.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

type Preferences struct {
	Centers   []int64
	Timings   []TimeOfDay
	WorkoutID int64
	Enabled   bool
}

func (p Preferences) Clone() Preferences {
	cp := p
	cp.Centers = append([]int64(nil), p.Centers...)
	cp.Timings = append([]TimeOfDay(nil), p.Timings...)
	return cp
}

func (p Preferences) Validate() error {
	if len(p.Centers) == 0 {
		return fmt.Errorf("at least one center required")
	}
	if len(p.Timings) == 0 {
		return fmt.Errorf("at least one preferred timing required")
	}
	if p.WorkoutID <= 0 {
		return fmt.Errorf("workout id required")
	}
	return nil
}

func (p Preferences) wants(t TimeOfDay) bool {
	for _, pref := range p.Timings {
		if pref.Hour == t.Hour && pref.Minute == t.Minute {
			return true
		}
	}
	return false
}

// Candidate is one bookable class that passed every matcher filter.
type Candidate struct {
	CenterID     int64
	Date         string
	Time         string
	SlotID       string
	WorkoutID    int64
	Seats        int64
	StartTimeUTC string
}

type Status string

const (
	StatusNone        Status = ""
	StatusDisabled    Status = "disabled"
	StatusBooked      Status = "booking successful"
	StatusFailed      Status = "booking attempted but failed"
	StatusNoTimestamp Status = "could not parse slot timestamp"
	StatusNoSlots     Status = "no matching slots found"
)

const statusFatalPrefix = "error during booking run: "

// FatalStatus is the status recorded when a cycle ends on an unexpected error.
func FatalStatus(err error) Status {
	return Status(statusFatalPrefix + err.Error())
}

func (s Status) IsFatal() bool { return strings.HasPrefix(string(s), statusFatalPrefix) }

// RunState is the outcome of the most recent cycle. BookingCompleted is sticky.
type RunState struct {
	LastRunTime      time.Time
	LastStatus       Status
	BookingCompleted bool
}
