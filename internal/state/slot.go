// Package state holds observable values that a rendering layer reads and watches.
package state

import "sync"

// Slot is a value that can be read, replaced and watched for changes.
type Slot[T any] struct {
	mu      sync.RWMutex
	value   T
	changed chan struct{}
}

// NewSlot creates a slot holding initial
func NewSlot[T any](initial T) *Slot[T] {
	return &Slot[T]{value: initial, changed: make(chan struct{})}
}

// Get returns the current value
func (s *Slot[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set replaces the value and wakes every watcher
func (s *Slot[T]) Set(v T) {
	s.mu.Lock()
	s.value = v
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()
}

// Update replaces the value with f(current) atomically
func (s *Slot[T]) Update(f func(T) T) {
	s.mu.Lock()
	s.value = f(s.value)
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()
}

// Changed returns a channel closed on the next Set or Update
func (s *Slot[T]) Changed() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changed
}
