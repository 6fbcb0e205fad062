package store

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"StrategyDesk/internal/persist"
)

// ErrDuplicateStore is returned when a name is defined twice in one registry.
var ErrDuplicateStore = errors.New("store already defined")

// Registry owns the store definitions of one application session.
type Registry struct {
	mu    sync.Mutex
	names map[string]struct{}
	env   func() persist.Environment
	log   *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithEnvironment sets the function consulted each time a store is
// constructed to decide which persistence backend applies.
func WithEnvironment(env func() persist.Environment) Option {
	return func(r *Registry) { r.env = env }
}

// WithLogger sets the diagnostic logger handed to every store.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRegistry returns an empty registry. Without WithEnvironment the
// registry runs in the Server environment and nothing is persisted.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		names: make(map[string]struct{}),
		env:   func() persist.Environment { return persist.Server },
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Names returns the registered store names in no particular order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.names))
	for n := range r.names {
		out = append(out, n)
	}
	return out
}

// Handle gives access to a defined store.
type Handle[S any] struct {
	reg  *Registry
	name string
	spec Spec[S]

	once sync.Once
	inst *Store[S]
}

// Define registers a store under name. The store itself is not built until
// the first Use.
func Define[S any](r *Registry, name string, spec Spec[S]) (*Handle[S], error) {
	if name == "" {
		return nil, errors.New("store name is required")
	}
	if spec.Initial == nil {
		return nil, fmt.Errorf("store %q: initial state is required", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.names[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateStore, name)
	}
	r.names[name] = struct{}{}
	return &Handle[S]{reg: r, name: name, spec: spec}, nil
}

func (h *Handle[S]) Name() string { return h.name }

// Use returns the store, constructing it on the first call.
func (h *Handle[S]) Use() *Store[S] {
	h.once.Do(func() { h.inst = h.build() })
	return h.inst
}

func (h *Handle[S]) build() *Store[S] {
	logger := h.reg.log.With(zap.String("store", h.name))
	s := &Store[S]{
		name:  h.name,
		state: h.spec.Initial(),
		log:   logger,
	}
	if p := h.spec.Persist; p != nil && p.Resolve != nil {
		env := h.reg.env()
		s.backend = p.Resolve(env)
		s.fields = append([]string(nil), p.Fields...)
		logger.Debug("resolved persistence",
			zap.Stringer("env", env),
			zap.Bool("persistent", s.backend != nil))
	}
	s.restore()
	return s
}
