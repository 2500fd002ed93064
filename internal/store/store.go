// Package store owns the mutable item collection that the layout engine
// reads from. Callers take a Snapshot and pass it by value into
// layout.Engine.Layout; the engine never holds a reference to the store.
package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	appLog "ganttline/internal/log"
	"ganttline/internal/model"
)

var (
	ErrNotFound  = errors.New("item not found")
	ErrEmptyName = errors.New("item name is empty")
)

// Store is a concurrency-safe item collection built from one or more
// sources (an items file, ICS feeds, API additions). Every mutation bumps
// the version and notifies subscribers so they can recompute the layout
// from scratch.
type Store struct {
	mu      sync.RWMutex
	order   []string
	sources map[string][]model.Item
	version uint64
	subs    []func(version uint64)
}

func New() *Store {
	return &Store{sources: make(map[string][]model.Item)}
}

// OnChange registers fn to be called after every mutation. fn runs outside
// the store lock.
func (s *Store) OnChange(fn func(version uint64)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Version increases on every mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns a copy of all items, sources in registration order.
func (s *Store) Snapshot() []model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, src := range s.order {
		n += len(s.sources[src])
	}
	out := make([]model.Item, 0, n)
	for _, src := range s.order {
		out = append(out, s.sources[src]...)
	}
	return out
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, items := range s.sources {
		n += len(items)
	}
	return n
}

// Get returns the item with the given id.
func (s *Store) Get(id string) (model.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, src := range s.order {
		for _, it := range s.sources[src] {
			if it.ID == id {
				return it, true
			}
		}
	}
	return model.Item{}, false
}

// Replace swaps every item contributed by source. Items are validated first;
// on error the store is left unchanged.
func (s *Store) Replace(source string, items []model.Item) error {
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return fmt.Errorf("source %q: %w", source, err)
		}
	}
	cp := make([]model.Item, len(items))
	copy(cp, items)

	s.mu.Lock()
	if id, ok := s.conflictLocked(source, cp); ok {
		s.mu.Unlock()
		return fmt.Errorf("source %q: %w: %q", source, model.ErrDuplicateID, id)
	}
	if _, ok := s.sources[source]; !ok {
		s.order = append(s.order, source)
	}
	s.sources[source] = cp
	v := s.bumpLocked()
	subs := s.subs
	s.mu.Unlock()

	appLog.Info("store source replaced", "source", source, "items", len(cp), "version", v)
	notify(subs, v)
	return nil
}

// conflictLocked reports the first id in items that repeats within items or
// appears in a source other than source.
func (s *Store) conflictLocked(source string, items []model.Item) (string, bool) {
	seen := make(map[string]struct{}, len(items))
	for src, existing := range s.sources {
		if src == source {
			continue
		}
		for _, it := range existing {
			seen[it.ID] = struct{}{}
		}
	}
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			return it.ID, true
		}
		seen[it.ID] = struct{}{}
	}
	return "", false
}

// Add appends an item to source, generating an id when it has none.
func (s *Store) Add(source string, it model.Item) (model.Item, error) {
	it.Name = strings.TrimSpace(it.Name)
	if it.Name == "" {
		return model.Item{}, ErrEmptyName
	}
	if err := it.Validate(); err != nil {
		return model.Item{}, err
	}
	if it.ID == "" {
		it.ID = uuid.NewString()
	}

	s.mu.Lock()
	for _, items := range s.sources {
		for _, existing := range items {
			if existing.ID == it.ID {
				s.mu.Unlock()
				return model.Item{}, fmt.Errorf("%w: %q", model.ErrDuplicateID, it.ID)
			}
		}
	}
	if _, ok := s.sources[source]; !ok {
		s.order = append(s.order, source)
	}
	s.sources[source] = append(s.sources[source], it)
	v := s.bumpLocked()
	subs := s.subs
	s.mu.Unlock()

	appLog.Info("store item added", "id", it.ID, "source", source, "version", v)
	notify(subs, v)
	return it, nil
}

// Rename replaces the name of one item. Dates are untouched, so the lane
// assignment and geometry of every item stay the same on the next layout.
func (s *Store) Rename(id, name string) (model.Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Item{}, ErrEmptyName
	}

	s.mu.Lock()
	var (
		updated model.Item
		found   bool
	)
	for _, src := range s.order {
		items := s.sources[src]
		for i := range items {
			if items[i].ID != id {
				continue
			}
			items[i].Name = name
			updated = items[i]
			found = true
			break
		}
		if found {
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return model.Item{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	v := s.bumpLocked()
	subs := s.subs
	s.mu.Unlock()

	appLog.Info("store item renamed", "id", id, "version", v)
	notify(subs, v)
	return updated, nil
}

func (s *Store) bumpLocked() uint64 {
	s.version++
	return s.version
}

func notify(subs []func(uint64), v uint64) {
	for _, fn := range subs {
		fn(v)
	}
}
