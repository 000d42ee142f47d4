// Package entity provides the shared in-memory working set for one resource
// family (clients, sales, inventory), together with the current selection.
//
// A Store holds the entities a view is working with, keeps insertion order
// for listing, and announces every mutation on the data-changed bus so
// other views refetch. Stores register with the session store as
// Resettables, so a logout or forced session end wipes them.
package entity

import (
	"sync"

	gestion "github.com/Abraham03/gestion-go"
)

// Publisher receives the data-changed signal after a mutation.
type Publisher interface {
	Publish()
}

// Store is the working set of one entity family, keyed by the entity ID.
type Store[T any] struct {
	idOf func(T) int64
	bus  Publisher

	mu       sync.RWMutex
	items    map[int64]T
	order    []int64
	selected int64
}

var _ gestion.Resettable = (*Store[struct{}])(nil)

// New builds a Store that derives each entity's key with idOf. bus may be
// nil when no other view needs change notifications.
func New[T any](idOf func(T) int64, bus Publisher) *Store[T] {
	return &Store[T]{
		idOf:  idOf,
		bus:   bus,
		items: make(map[int64]T),
	}
}

// Put inserts or replaces one entity and announces the change.
func (s *Store[T]) Put(item T) {
	s.mu.Lock()
	id := s.idOf(item)
	if _, exists := s.items[id]; !exists {
		s.order = append(s.order, id)
	}
	s.items[id] = item
	s.mu.Unlock()
	s.publish()
}

// Replace swaps the whole working set for items, keeping their order. The
// selection survives when the selected entity is still present.
func (s *Store[T]) Replace(items []T) {
	s.mu.Lock()
	s.items = make(map[int64]T, len(items))
	s.order = s.order[:0]
	for _, item := range items {
		id := s.idOf(item)
		if _, exists := s.items[id]; !exists {
			s.order = append(s.order, id)
		}
		s.items[id] = item
	}
	if _, ok := s.items[s.selected]; !ok {
		s.selected = 0
	}
	s.mu.Unlock()
	s.publish()
}

// Get returns the entity with id.
func (s *Store[T]) Get(id int64) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	return item, ok
}

// All returns the working set in insertion order.
func (s *Store[T]) All() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

// Len returns the working set size.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Delete removes the entity with id. Deleting the selected entity clears
// the selection. Removing an absent id is a no-op and does not announce.
func (s *Store[T]) Delete(id int64) {
	s.mu.Lock()
	if _, ok := s.items[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.items, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.selected == id {
		s.selected = 0
	}
	s.mu.Unlock()
	s.publish()
}

// Select marks the entity with id as current. Selecting an absent id
// reports false and leaves the selection unchanged.
func (s *Store[T]) Select(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	s.selected = id
	return true
}

// Selected returns the current entity, if any.
func (s *Store[T]) Selected() (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == 0 {
		var zero T
		return zero, false
	}
	item, ok := s.items[s.selected]
	return item, ok
}

// ClearSelection drops the current selection.
func (s *Store[T]) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = 0
}

// Reset wipes the working set and the selection without announcing. It
// implements the session store's Resettable, so user data never survives
// the session that loaded it.
func (s *Store[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[int64]T)
	s.order = s.order[:0]
	s.selected = 0
}

func (s *Store[T]) publish() {
	if s.bus != nil {
		s.bus.Publish()
	}
}
