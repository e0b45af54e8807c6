package timer

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Handle identifies a scheduled timer.
type Handle struct {
	id     uint64
	owner  string
	period time.Duration
	fn     func()
	s      *Scheduler

	// Guarded by s.mu.
	active bool
	timer  *clock.Timer
}

// ID returns the scheduler-unique timer id.
func (h *Handle) ID() uint64 { return h.id }

// Owner returns the owner the timer was created for.
func (h *Handle) Owner() string { return h.owner }

// Period returns the period, or zero for a one-shot timer.
func (h *Handle) Period() time.Duration { return h.period }

// Active reports whether the timer can still fire.
func (h *Handle) Active() bool {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.active
}

// Cancel is shorthand for Scheduler.Cancel.
func (h *Handle) Cancel() bool {
	return h.s.Cancel(h)
}
