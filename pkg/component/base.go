package component

import (
	"log/slog"
	"time"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/attrs"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/bus"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/timer"
)

// Base carries the environment of a component and scopes bus and timer
// calls to it. Embed it and call Bind from Init.
type Base struct {
	env Env
}

// Bind stores env. Call it first in Init.
func (b *Base) Bind(env Env) {
	b.env = env
}

// Name returns the instance name.
func (b *Base) Name() string { return b.env.Name }

// Env returns the bound environment.
func (b *Base) Env() Env { return b.env }

// Logger returns the instance logger, or slog.Default before Bind.
func (b *Base) Logger() *slog.Logger {
	if b.env.Logger == nil {
		return slog.Default()
	}
	return b.env.Logger
}

// Subscribe registers h for id on the bus.
func (b *Base) Subscribe(id string, h bus.Handler) {
	b.env.Bus.Subscribe(id, h)
}

// Publish publishes a on the bus.
func (b *Base) Publish(id string, a attrs.Attributes) {
	b.env.Bus.Publish(id, a)
}

// OneShot schedules fn once after delay, owned by this instance.
func (b *Base) OneShot(delay time.Duration, fn func()) (*timer.Handle, error) {
	return b.env.Scheduler.OneShot(b.env.Name, delay, fn)
}

// Periodic schedules fn every period, owned by this instance.
func (b *Base) Periodic(period time.Duration, fn func()) (*timer.Handle, error) {
	return b.env.Scheduler.Periodic(b.env.Name, period, fn)
}

// CancelTimer cancels h. A nil handle is ignored.
func (b *Base) CancelTimer(h *timer.Handle) bool {
	if h == nil {
		return false
	}
	return b.env.Scheduler.Cancel(h)
}
