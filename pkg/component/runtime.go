package component

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/multierr"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/bus"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/config"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/log"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/metrics"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/timer"
)

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithBus shares an existing bus.
func WithBus(b *bus.Bus) RuntimeOption {
	return func(r *Runtime) { r.bus = b }
}

// WithScheduler shares an existing scheduler. The Runtime does not close a
// scheduler it did not create.
func WithScheduler(s *timer.Scheduler) RuntimeOption {
	return func(r *Runtime) { r.scheduler = s }
}

// WithLogger sets the process logger.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithProtocolLogger sets the protocol capture sink.
func WithProtocolLogger(l log.Logger) RuntimeOption {
	return func(r *Runtime) { r.protocolLogger = l }
}

// WithMetrics attaches a metrics registry.
func WithMetrics(m *metrics.Registry) RuntimeOption {
	return func(r *Runtime) { r.metrics = m }
}

// InstanceState describes one loaded instance.
type InstanceState struct {
	Name  string
	Kind  string
	State State
}

type instance struct {
	name  string
	kind  string
	comp  Component
	state State
}

// Runtime owns the component instances of a process.
type Runtime struct {
	registry       *Registry
	bus            *bus.Bus
	scheduler      *timer.Scheduler
	ownsScheduler  bool
	logger         *slog.Logger
	protocolLogger log.Logger
	metrics        *metrics.Registry

	// lifecycle serializes Load, Init, Start and Stop.
	lifecycle sync.Mutex

	mu          sync.RWMutex
	instances   []*instance
	initialized bool
	started     bool
	stopped     bool
}

// NewRuntime creates a runtime that instantiates kinds from reg.
func NewRuntime(reg *Registry, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		registry: reg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.bus == nil {
		r.bus = bus.New(bus.WithLogger(r.logger), bus.WithMetrics(r.metrics.BusOrNil()))
	}
	if r.scheduler == nil {
		r.scheduler = timer.NewScheduler(timer.WithLogger(r.logger))
		r.ownsScheduler = true
	}
	r.protocolLogger = log.OrNoop(r.protocolLogger)
	return r
}

// Bus returns the shared bus.
func (r *Runtime) Bus() *bus.Bus { return r.bus }

// Scheduler returns the shared scheduler.
func (r *Runtime) Scheduler() *timer.Scheduler { return r.scheduler }

// Registry returns the kind registry.
func (r *Runtime) Registry() *Registry { return r.registry }

// Load instantiates one component per entry, in order. Instance names must
// be unique. Nothing is kept if any entry fails.
func (r *Runtime) Load(cfgs []config.ComponentConfig) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.mu.RLock()
	busy := r.initialized || r.stopped
	seen := make(map[string]bool, len(r.instances)+len(cfgs))
	for _, inst := range r.instances {
		seen[inst.name] = true
	}
	r.mu.RUnlock()

	if busy {
		return ErrAlreadyStarted
	}

	loaded := make([]*instance, 0, len(cfgs))
	for _, cc := range cfgs {
		if seen[cc.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateName, cc.Name)
		}
		seen[cc.Name] = true

		comp, err := r.registry.Instantiate(cc.Kind, cc.Name, cc.Settings)
		if err != nil {
			return err
		}
		loaded = append(loaded, &instance{name: cc.Name, kind: cc.Kind, comp: comp})
	}

	r.mu.Lock()
	r.instances = append(r.instances, loaded...)
	r.mu.Unlock()

	for _, inst := range loaded {
		r.recordState(inst)
		r.logger.Debug("component loaded", "component", inst.name, "kind", inst.kind)
	}
	return nil
}

// Add registers an already constructed component. Used by tests and by
// embedders that build components in code.
func (r *Runtime) Add(name, kind string, c Component) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized || r.stopped {
		return ErrAlreadyStarted
	}
	for _, inst := range r.instances {
		if inst.name == name {
			return fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
	}
	inst := &instance{name: name, kind: kind, comp: c}
	r.instances = append(r.instances, inst)
	r.recordState(inst)
	return nil
}

// Init initializes every loaded instance in load order. It stops at the
// first failure.
func (r *Runtime) Init() error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	if r.isStopped() {
		return ErrRuntimeStopped
	}

	for _, inst := range r.snapshot() {
		if r.stateOf(inst) != StateUninitialized {
			continue
		}
		env := Env{
			Name:           inst.name,
			Kind:           inst.kind,
			Bus:            r.bus,
			Scheduler:      r.scheduler,
			Logger:         r.logger.With("component", inst.name),
			ProtocolLogger: r.protocolLogger,
			Metrics:        r.metrics,
		}
		if err := inst.comp.Init(env); err != nil {
			r.setState(inst, StateFailed)
			return fmt.Errorf("init %s %q: %w", inst.kind, inst.name, err)
		}
		r.setState(inst, StateInitialized)
	}

	r.mu.Lock()
	r.initialized = true
	r.mu.Unlock()
	return nil
}

// Start starts every initialized instance in load order. If one fails,
// every instance, including the failed one and those never started, is
// stopped in reverse order and the error is returned.
func (r *Runtime) Start(ctx context.Context) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.mu.RLock()
	initialized, started, stopped := r.initialized, r.started, r.stopped
	r.mu.RUnlock()

	switch {
	case stopped:
		return ErrRuntimeStopped
	case started:
		return ErrAlreadyStarted
	case !initialized:
		return ErrNotInitialized
	}

	for _, inst := range r.snapshot() {
		if err := inst.comp.Start(ctx); err != nil {
			r.setState(inst, StateFailed)
			err = fmt.Errorf("start %s %q: %w", inst.kind, inst.name, err)
			return multierr.Append(err, r.stopAll())
		}
		r.setState(inst, StateRunning)
		r.logger.Info("component started", "component", inst.name, "kind", inst.kind)
	}

	r.mu.Lock()
	r.started = true
	r.mu.Unlock()
	return nil
}

// Stop calls Stop on every initialized instance in reverse load order,
// whether or not it was started, and cancels the timers each one still
// owns. It is safe to call more than once and before Start. Errors from all
// instances are combined.
func (r *Runtime) Stop() error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	r.mu.Unlock()

	err := r.stopAll()
	if r.ownsScheduler {
		r.scheduler.Close()
	}
	return err
}

// stopAll stops, in reverse load order, every instance that went through
// Init and is not stopped yet. Instances that failed Start or were never
// started get Stop as well.
func (r *Runtime) stopAll() error {
	var err error
	insts := r.snapshot()
	for i := len(insts) - 1; i >= 0; i-- {
		inst := insts[i]
		switch r.stateOf(inst) {
		case StateStopped:
			continue
		case StateUninitialized:
			r.scheduler.CancelOwner(inst.name)
			continue
		}
		err = multierr.Append(err, r.stopInstance(inst))
	}
	return err
}

func (r *Runtime) stopInstance(inst *instance) error {
	err := inst.comp.Stop()
	if n := r.scheduler.CancelOwner(inst.name); n > 0 {
		r.logger.Debug("cancelled timers", "component", inst.name, "count", n)
	}

	if err != nil {
		r.setState(inst, StateFailed)
		r.logger.Error("component stop failed", "component", inst.name, "error", err)
		return fmt.Errorf("stop %s %q: %w", inst.kind, inst.name, err)
	}
	r.setState(inst, StateStopped)
	r.logger.Info("component stopped", "component", inst.name, "kind", inst.kind)
	return nil
}

// Run initializes and starts the runtime, blocks until ctx is done, then
// stops it.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Init(); err != nil {
		return multierr.Append(err, r.Stop())
	}
	if err := r.Start(ctx); err != nil {
		return multierr.Append(err, r.Stop())
	}
	<-ctx.Done()
	return r.Stop()
}

// States returns the state of every instance in load order.
func (r *Runtime) States() []InstanceState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]InstanceState, len(r.instances))
	for i, inst := range r.instances {
		out[i] = InstanceState{Name: inst.name, Kind: inst.kind, State: inst.state}
	}
	return out
}

// Instance returns the component with the given name.
func (r *Runtime) Instance(name string) (Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, inst := range r.instances {
		if inst.name == name {
			return inst.comp, true
		}
	}
	return nil, false
}

func (r *Runtime) snapshot() []*instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*instance(nil), r.instances...)
}

func (r *Runtime) isStopped() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stopped
}

func (r *Runtime) stateOf(inst *instance) State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return inst.state
}

func (r *Runtime) setState(inst *instance, s State) {
	r.mu.Lock()
	inst.state = s
	r.mu.Unlock()
	r.recordState(inst)
}

// recordState reads inst.state without locking; callers either hold r.mu
// or are the only writer.
func (r *Runtime) recordState(inst *instance) {
	r.metrics.RuntimeOrNil().RecordState(inst.name, inst.kind, int(inst.state))
}
