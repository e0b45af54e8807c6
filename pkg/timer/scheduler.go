package timer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

var (
	// ErrInvalidDuration is returned for a non-positive delay or period.
	ErrInvalidDuration = errors.New("timer: duration must be positive")

	// ErrClosed is returned when scheduling on a closed scheduler.
	ErrClosed = errors.New("timer: scheduler closed")
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock, typically with clock.NewMock in tests.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger used to report callback panics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// Scheduler runs timer callbacks on its own goroutines.
type Scheduler struct {
	clock  clock.Clock
	logger *slog.Logger

	mu     sync.Mutex
	nextID uint64
	timers map[uint64]*Handle
	closed bool

	// inflight tracks running callbacks so Close can wait for them.
	inflight sync.WaitGroup
}

// NewScheduler creates a scheduler using the wall clock.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:  clock.New(),
		logger: slog.Default(),
		timers: make(map[uint64]*Handle),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Clock returns the clock the scheduler runs on.
func (s *Scheduler) Clock() clock.Clock {
	return s.clock
}

// OneShot runs fn once after delay.
func (s *Scheduler) OneShot(owner string, delay time.Duration, fn func()) (*Handle, error) {
	return s.schedule(owner, delay, 0, fn)
}

// Periodic runs fn every period until cancelled. The next run is scheduled
// period after the previous run returns.
func (s *Scheduler) Periodic(owner string, period time.Duration, fn func()) (*Handle, error) {
	return s.schedule(owner, period, period, fn)
}

func (s *Scheduler) schedule(owner string, delay, period time.Duration, fn func()) (*Handle, error) {
	if delay <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDuration, delay)
	}
	if fn == nil {
		return nil, errors.New("timer: nil callback")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	s.nextID++
	h := &Handle{
		id:     s.nextID,
		owner:  owner,
		period: period,
		fn:     fn,
		s:      s,
		active: true,
	}
	s.timers[h.id] = h
	h.timer = s.clock.AfterFunc(delay, func() { s.fire(h) })
	return h, nil
}

func (s *Scheduler) fire(h *Handle) {
	s.mu.Lock()
	if !h.active || s.closed {
		s.mu.Unlock()
		return
	}
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	s.run(h)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !h.active {
		return
	}
	if h.period > 0 && !s.closed {
		h.timer = s.clock.AfterFunc(h.period, func() { s.fire(h) })
		return
	}
	h.active = false
	delete(s.timers, h.id)
}

func (s *Scheduler) run(h *Handle) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("timer callback panicked",
				"owner", h.owner,
				"timer", h.id,
				"panic", r,
			)
		}
	}()
	h.fn()
}

// Cancel stops h. A callback already running completes, but h never fires
// again. Returns false if h was not active.
func (s *Scheduler) Cancel(h *Handle) bool {
	if h == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(h)
}

func (s *Scheduler) cancelLocked(h *Handle) bool {
	if !h.active {
		return false
	}
	h.active = false
	if h.timer != nil {
		h.timer.Stop()
	}
	delete(s.timers, h.id)
	return true
}

// CancelOwner cancels every active timer of owner and returns how many
// were cancelled.
func (s *Scheduler) CancelOwner(owner string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, h := range s.timers {
		if h.owner == owner && s.cancelLocked(h) {
			n++
		}
	}
	return n
}

// Pending returns the number of active timers of owner.
func (s *Scheduler) Pending(owner string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, h := range s.timers {
		if h.owner == owner {
			n++
		}
	}
	return n
}

// Len returns the number of active timers.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close cancels every timer and waits for running callbacks to return.
// It must not be called from a timer callback.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, h := range s.timers {
		s.cancelLocked(h)
	}
	s.mu.Unlock()

	s.inflight.Wait()
}
