// Package store holds published values behind opaque handles. It stands in
// for the reactive store the UI layer subscribes to: the calendar index only
// creates, reads, replaces and releases values by handle.
package store

import "sync"

// Handle identifies one stored value. The zero Handle is never issued.
type Handle uint64

// Store maps handles to values. Readers outside the owning goroutine may
// call Get while the owner writes, so access is guarded.
type Store[T any] struct {
	mu     sync.RWMutex
	next   Handle
	values map[Handle]T
}

func New[T any]() *Store[T] {
	return &Store[T]{values: make(map[Handle]T)}
}

// Create stores v under a fresh handle.
func (s *Store[T]) Create(v T) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	s.values[s.next] = v
	return s.next
}

func (s *Store[T]) Get(h Handle) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[h]
	return v, ok
}

// Set replaces the value behind h. It reports false for unknown handles
// and never creates one.
func (s *Store[T]) Set(h Handle, v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[h]; !ok {
		return false
	}
	s.values[h] = v
	return true
}

// Release forgets h. Releasing an unknown handle is a no-op.
func (s *Store[T]) Release(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, h)
}

func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.values)
}
