package component

import (
	"context"
	"log/slog"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/bus"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/config"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/log"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/metrics"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/timer"
)

// Component is one configured instance of a component kind.
type Component interface {
	// Init binds the component to its environment. Subscriptions are made
	// here. No messages are published to it before every component has
	// been initialized.
	Init(env Env) error

	// Start begins active work: timers, sockets, workers.
	Start(ctx context.Context) error

	// Stop ends all work started by Start and waits for it.
	Stop() error
}

// Env is the environment a component runs in.
type Env struct {
	Name string
	Kind string

	Bus       *bus.Bus
	Scheduler *timer.Scheduler

	// Logger is already scoped with the component name.
	Logger *slog.Logger

	// ProtocolLogger receives wire-level capture events. Never nil.
	ProtocolLogger log.Logger

	// Metrics may be nil.
	Metrics *metrics.Registry
}

// Factory creates a component from its configuration section.
type Factory func(name string, settings config.Section) (Component, error)

// State is the lifecycle state of a component instance.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateRunning
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateInitialized:
		return "INITIALIZED"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}
