// Package event provides a single-consumption message envelope.
package event

import "sync/atomic"

// Event wraps a value that is handed out to at most one reader.
type Event[T any] struct {
	content  T
	consumed atomic.Bool
}

// New wraps content in an unread event
func New[T any](content T) *Event[T] {
	return &Event[T]{content: content}
}

// Take returns the content and true on the first call, the zero value and
// false on every later call. Safe for concurrent readers.
func (e *Event[T]) Take() (T, bool) {
	if e == nil || !e.consumed.CompareAndSwap(false, true) {
		var zero T
		return zero, false
	}
	return e.content, true
}

// Consumed reports whether Take has already handed out the content
func (e *Event[T]) Consumed() bool {
	return e != nil && e.consumed.Load()
}
