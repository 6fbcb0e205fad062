// Package store implements named, lazily constructed state containers whose
// declared fields are mirrored to a persistence backend.
//
// A store is defined once per registry under a unique name. The first call
// to Handle.Use constructs it: the initial state is built, the persistence
// backend is resolved for the registry's current environment, and any
// previously persisted projection is applied on top of the initial state.
// Every later Use returns the same instance.
package store

import (
	"sync"

	"go.uber.org/zap"

	"StrategyDesk/internal/persist"
)

// Spec describes a store's state and persistence policy. Actions live on the
// wrapper types that embed a *Store.
type Spec[S any] struct {
	Initial func() S
	Persist *PersistencePolicy
}

// PersistencePolicy names the backend resolver and the top-level JSON fields
// of the state that survive a restart.
type PersistencePolicy struct {
	Resolve persist.Resolver
	Fields  []string
}

// Store holds one state value of type S.
type Store[S any] struct {
	name    string
	mu      sync.Mutex
	state   S
	backend persist.Backend
	fields  []string
	log     *zap.Logger
}

func (s *Store[S]) Name() string { return s.name }

// Persistent reports whether a backend was resolved at construction.
func (s *Store[S]) Persistent() bool { return s.backend != nil }

// State returns a snapshot of the current state. Slices and pointers inside
// the snapshot are shared, so callers and actions must replace them rather
// than modify them in place.
func (s *Store[S]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update applies fn under the store lock and then writes the persistence
// projection. The write happens on every call, whether or not fn changed
// anything. Persistence failures are logged, never returned.
func (s *Store[S]) Update(fn func(*S)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.state)
	s.persistLocked()
}

func (s *Store[S]) persistLocked() {
	if s.backend == nil {
		return
	}
	value, err := project(s.state, s.fields)
	if err != nil {
		s.log.Error("encode persisted fields", zap.Error(err))
		return
	}
	if err := s.backend.SetItem(Key(s.name), value); err != nil {
		s.log.Error("write persisted fields", zap.Error(err))
	}
}

// restore overlays the persisted projection, if any, on the initial state.
func (s *Store[S]) restore() {
	if s.backend == nil {
		return
	}
	raw, ok, err := s.backend.GetItem(Key(s.name))
	if err != nil {
		s.log.Error("read persisted fields", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	if err := overlay(&s.state, raw, s.fields); err != nil {
		s.log.Warn("discarding unreadable persisted fields", zap.Error(err))
		return
	}
	s.log.Debug("restored persisted fields", zap.Strings("fields", s.fields))
}

// Key is the backend key a store's projection is written under.
func Key(name string) string { return name }
