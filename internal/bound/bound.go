// Package bound provides fixed-capacity containers with FIFO eviction.
// Used for the realtime dedup window and the short-lived lookup caches,
// which would otherwise grow without limit over a long-running session.
package bound

import (
	"container/list"
	"sync"
	"time"
)

// Set is a fixed-capacity membership set. When the capacity is exceeded,
// the oldest inserted key is evicted. Safe for concurrent use.
type Set struct {
	mu    sync.Mutex
	cap   int
	order *list.List
	keys  map[string]*list.Element
}

// NewSet creates a Set holding at most capacity keys. Capacity must be > 0.
func NewSet(capacity int) *Set {
	if capacity <= 0 {
		capacity = 1
	}
	return &Set{
		cap:   capacity,
		order: list.New(),
		keys:  make(map[string]*list.Element, capacity),
	}
}

// Add inserts key and reports whether it was already present.
// Evicts the oldest key when the set is full.
func (s *Set) Add(key string) (seen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[key]; ok {
		return true
	}
	s.keys[key] = s.order.PushBack(key)
	if s.order.Len() > s.cap {
		oldest := s.order.Front()
		s.order.Remove(oldest)
		delete(s.keys, oldest.Value.(string))
	}
	return false
}

// Contains reports membership without inserting.
func (s *Set) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok
}

// Len returns the current number of keys.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

type mapEntry[K comparable, V any] struct {
	key     K
	value   V
	addedAt time.Time
}

// Map is a fixed-capacity key/value cache with FIFO eviction and an
// optional per-entry TTL (zero = entries never expire). Safe for
// concurrent use.
type Map[K comparable, V any] struct {
	mu    sync.Mutex
	cap   int
	ttl   time.Duration
	order *list.List
	items map[K]*list.Element

	now func() time.Time // test hook
}

// NewMap creates a Map holding at most capacity entries with the given TTL.
func NewMap[K comparable, V any](capacity int, ttl time.Duration) *Map[K, V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Map[K, V]{
		cap:   capacity,
		ttl:   ttl,
		order: list.New(),
		items: make(map[K]*list.Element, capacity),
		now:   time.Now,
	}
}

// Get returns the value for key if present and not expired.
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	elem, ok := m.items[key]
	if !ok {
		return zero, false
	}
	entry := elem.Value.(*mapEntry[K, V])
	if m.ttl > 0 && m.now().Sub(entry.addedAt) >= m.ttl {
		m.order.Remove(elem)
		delete(m.items, key)
		return zero, false
	}
	return entry.value, true
}

// Put stores key→value, refreshing the entry's age if it already exists.
func (m *Map[K, V]) Put(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.items[key]; ok {
		entry := elem.Value.(*mapEntry[K, V])
		entry.value = value
		entry.addedAt = m.now()
		m.order.MoveToBack(elem)
		return
	}
	m.items[key] = m.order.PushBack(&mapEntry[K, V]{key: key, value: value, addedAt: m.now()})
	if m.order.Len() > m.cap {
		oldest := m.order.Front()
		m.order.Remove(oldest)
		delete(m.items, oldest.Value.(*mapEntry[K, V]).key)
	}
}

// Delete removes key if present.
func (m *Map[K, V]) Delete(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if elem, ok := m.items[key]; ok {
		m.order.Remove(elem)
		delete(m.items, key)
	}
}

// Len returns the current number of entries, including expired ones not
// yet touched by Get.
func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}
