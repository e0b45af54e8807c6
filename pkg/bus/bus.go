package bus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/attrs"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/metrics"
)

// Handler receives the attributes of a published message.
type Handler func(a attrs.Attributes) error

// Publisher publishes messages.
type Publisher interface {
	Publish(id string, a attrs.Attributes)
}

// Subscriber registers handlers.
type Subscriber interface {
	Subscribe(id string, h Handler)
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used to report handler failures.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMetrics records publish and handler error counts.
func WithMetrics(m *metrics.BusMetrics) Option {
	return func(b *Bus) {
		b.metrics = m
	}
}

// WithErrorHook registers a callback invoked for every handler failure,
// after it has been logged.
func WithErrorHook(fn func(*HandlerError)) Option {
	return func(b *Bus) {
		b.onError = fn
	}
}

// Bus maps message ids to ordered handler lists.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler

	logger  *slog.Logger
	metrics *metrics.BusMetrics
	onError func(*HandlerError)
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		handlers: make(map[string][]Handler),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe appends h to the handlers of id. Subscribing the same handler
// twice yields two invocations per publish.
func (b *Bus) Subscribe(id string, h Handler) {
	if h == nil {
		return
	}

	b.mu.Lock()
	b.handlers[id] = append(b.handlers[id], h)
	b.mu.Unlock()
}

// Subscribers returns the number of handlers registered for id.
func (b *Bus) Subscribers(id string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[id])
}

// IDs returns every id that has at least one handler.
func (b *Bus) IDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]string, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	return ids
}

// Publish invokes every handler of id with a frozen copy of a, in
// subscription order. Handlers subscribed during the publish are not
// invoked for it.
func (b *Bus) Publish(id string, a attrs.Attributes) {
	b.mu.RLock()
	hs := b.handlers[id]
	b.mu.RUnlock()

	if len(hs) == 0 {
		return
	}

	msg := a.Clone()
	msg.Freeze()

	b.metrics.RecordPublish(id, len(hs))

	for i, h := range hs {
		if err := b.invoke(id, i, h, msg); err != nil {
			b.report(err)
		}
	}
}

func (b *Bus) invoke(id string, index int, h Handler, msg attrs.Attributes) (herr *HandlerError) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			herr = &HandlerError{ID: id, Index: index, Err: err, Panic: true}
		}
	}()

	if err := h(msg); err != nil {
		return &HandlerError{ID: id, Index: index, Err: err}
	}
	return nil
}

func (b *Bus) report(err *HandlerError) {
	b.logger.Error("bus handler failed",
		"id", err.ID,
		"index", err.Index,
		"panic", err.Panic,
		"error", err.Err,
	)
	b.metrics.RecordHandlerError(err.ID)
	if b.onError != nil {
		b.onError(err)
	}
}
