package engine

import (
	"sync"
	"time"

	"github.com/example/classbook/internal/domain/booking"
)

// State is the process-wide booking context shared by the cycle and the
// command handlers. Preferences change only through authorized commands;
// the run fields are written only by the cycle.
type State struct {
	mu    sync.RWMutex
	prefs booking.Preferences
	run   booking.RunState
}

func NewState(prefs booking.Preferences) *State {
	return &State{prefs: prefs.Clone()}
}

func (s *State) Preferences() booking.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.Clone()
}

func (s *State) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.Enabled
}

func (s *State) SetEnabled(v bool) {
	s.mu.Lock()
	s.prefs.Enabled = v
	s.mu.Unlock()
}

func (s *State) Run() booking.RunState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.run
}

func (s *State) beginRun(at time.Time) {
	s.mu.Lock()
	s.run.LastRunTime = at
	s.mu.Unlock()
}

func (s *State) setStatus(st booking.Status) {
	s.mu.Lock()
	s.run.LastStatus = st
	s.mu.Unlock()
}

func (s *State) markBooked() {
	s.mu.Lock()
	s.run.BookingCompleted = true
	s.run.LastStatus = booking.StatusBooked
	s.mu.Unlock()
}
