package component

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/config"
)

// Registry errors.
var (
	ErrUnknownKind    = errors.New("component: unknown kind")
	ErrDuplicateKind  = errors.New("component: duplicate kind")
	ErrInvalidFactory = errors.New("component: invalid registration")
	ErrDuplicateName  = errors.New("component: duplicate instance name")
	ErrAlreadyStarted = errors.New("component: runtime already started")
	ErrNotInitialized = errors.New("component: runtime not initialized")
	ErrRuntimeStopped = errors.New("component: runtime stopped")
)

// Registry maps component kinds to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a kind. Kinds are case sensitive.
func (r *Registry) Register(kind string, f Factory) error {
	if kind == "" {
		return fmt.Errorf("%w: empty kind", ErrInvalidFactory)
	}
	if f == nil {
		return fmt.Errorf("%w: nil factory for %q", ErrInvalidFactory, kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateKind, kind)
	}
	r.factories[kind] = f
	return nil
}

// Instantiate creates a component of the given kind.
func (r *Registry) Instantiate(kind, name string, settings config.Section) (Component, error) {
	r.mu.RLock()
	f, ok := r.factories[kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownKind, kind, strings.Join(r.Kinds(), ", "))
	}

	c, err := f(name, settings)
	if err != nil {
		return nil, fmt.Errorf("create %s %q: %w", kind, name, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: factory for %q returned nil", ErrInvalidFactory, kind)
	}
	return c, nil
}

// Has reports whether kind is registered.
func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[kind]
	return ok
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
