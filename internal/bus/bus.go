// Package bus provides a minimal typed publish/subscribe primitive.
// Each producer exposes a fixed set of named signals; consumers subscribe
// by capability instead of holding a reference to the concrete producer.
package bus

import "sync"

// Signal is a fan-out callback registry for one event type.
// Emit invokes every subscriber synchronously in subscription order.
// The zero value is ready to use.
type Signal[T any] struct {
	mu   sync.RWMutex
	subs []func(T)
}

// Subscribe registers a handler. Handlers cannot be removed; subscribers
// are wired once at startup.
func (s *Signal[T]) Subscribe(fn func(T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Emit delivers v to all subscribers.
func (s *Signal[T]) Emit(v T) {
	s.mu.RLock()
	subs := s.subs
	s.mu.RUnlock()
	for _, fn := range subs {
		fn(v)
	}
}

// Len returns the number of subscribers.
func (s *Signal[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
