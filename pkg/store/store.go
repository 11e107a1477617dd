// Package store keeps the deduplicated findings of a scanning session.
package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nxneeraj/hx-warden/pkg/types"
)

// ErrNotFound is returned when no finding has the requested ID.
var ErrNotFound = errors.New("finding not found")

// Listener is called once for every newly stored finding.
type Listener func(types.Finding)

// ListenerPanic is raised by Add after every listener has run, when at least
// one of them panicked. The finding is stored regardless.
type ListenerPanic struct {
	Finding types.Finding
	Values  []interface{}
}

func (p *ListenerPanic) Error() string {
	return fmt.Sprintf("%d listener(s) panicked on %q: %v", len(p.Values), p.Finding.Title, p.Values)
}

// FindingsStore is a set of findings keyed by (url, title, category).
// It is safe for concurrent use.
type FindingsStore struct {
	mu        sync.RWMutex
	findings  map[types.Key]types.Finding
	order     []types.Key
	byID      map[string]types.Key
	listeners []Listener
}

// New creates an empty store for one scanning session.
func New() *FindingsStore {
	return &FindingsStore{
		findings: make(map[types.Key]types.Finding),
		byID:     make(map[string]types.Key),
	}
}

// Add inserts f unless a finding with the same key is already stored, and
// reports whether it was inserted. On insert every listener is called, in
// registration order, on the calling goroutine. A panicking listener does not
// stop the others; Add then panics with a *ListenerPanic.
func (s *FindingsStore) Add(f types.Finding) bool {
	key := f.Key()

	s.mu.Lock()
	if _, exists := s.findings[key]; exists {
		s.mu.Unlock()
		return false
	}
	s.findings[key] = f
	s.order = append(s.order, key)
	if f.ID != "" {
		s.byID[f.ID] = key
	}
	listeners := s.listeners
	s.mu.Unlock()

	// Listeners run outside the lock so they may query the store.
	var panics []interface{}
	for _, l := range listeners {
		if r := notify(l, f); r != nil {
			panics = append(panics, r)
		}
	}
	if len(panics) > 0 {
		panic(&ListenerPanic{Finding: f, Values: panics})
	}
	return true
}

func notify(l Listener, f types.Finding) (recovered interface{}) {
	defer func() { recovered = recover() }()
	l(f)
	return nil
}

// AddListener registers l for every future successful Add.
func (s *FindingsStore) AddListener(l Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Add iterates a snapshot of the slice; never mutate it in place.
	next := make([]Listener, len(s.listeners), len(s.listeners)+1)
	copy(next, s.listeners)
	s.listeners = append(next, l)
}

// All returns a snapshot of every stored finding in insertion order.
func (s *FindingsStore) All() []types.Finding {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Finding, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.findings[key])
	}
	return out
}

func (s *FindingsStore) BySeverity(severity types.Severity) []types.Finding {
	var out []types.Finding
	for _, f := range s.All() {
		if f.Severity == severity {
			out = append(out, f)
		}
	}
	return out
}

// Get returns the finding with the given ID.
func (s *FindingsStore) Get(id string) (types.Finding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.byID[id]
	if !ok {
		return types.Finding{}, ErrNotFound
	}
	return s.findings[key], nil
}

func (s *FindingsStore) CountsByCategory() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, f := range s.findings {
		counts[f.Category]++
	}
	return counts
}

func (s *FindingsStore) CountsBySeverity() map[types.Severity]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[types.Severity]int)
	for _, f := range s.findings {
		counts[f.Severity]++
	}
	return counts
}

// Clear drops every finding. Listeners are not notified and stay registered.
func (s *FindingsStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.findings = make(map[types.Key]types.Finding)
	s.byID = make(map[string]types.Key)
	s.order = nil
}

func (s *FindingsStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.findings)
}
