package store

import (
	"context"
	"sync"
	"time"
)

// memoryStore keeps records in process memory. Used when no Mongo URI is
// configured (mappings are then lost on restart) and by tests.
type memoryStore struct {
	mu      sync.Mutex
	chats   map[string]ChatRecord
	users   map[string]UserRecord
	filters map[string]struct{}
}

// NewMemory creates an empty in-memory store.
func NewMemory() Store {
	return &memoryStore{
		chats:   make(map[string]ChatRecord),
		users:   make(map[string]UserRecord),
		filters: make(map[string]struct{}),
	}
}

func (s *memoryStore) UpsertChat(_ context.Context, rec ChatRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[rec.ThreadID] = rec
	return nil
}

func (s *memoryStore) DeleteChat(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chats, threadID)
	return nil
}

func (s *memoryStore) ListChats(_ context.Context) ([]ChatRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chats := make([]ChatRecord, 0, len(s.chats))
	for _, rec := range s.chats {
		chats = append(chats, rec)
	}
	return chats, nil
}

func (s *memoryStore) TouchChat(_ context.Context, threadID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.chats[threadID]; ok {
		rec.LastActiveAt = at
		s.chats[threadID] = rec
	}
	return nil
}

func (s *memoryStore) UpsertUser(_ context.Context, rec UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[rec.UserID] = rec
	return nil
}

func (s *memoryStore) ListFilterWords(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	words := make([]string, 0, len(s.filters))
	for w := range s.filters {
		words = append(words, w)
	}
	return words, nil
}

func (s *memoryStore) AddFilterWord(_ context.Context, word string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters[word] = struct{}{}
	return nil
}

func (s *memoryStore) RemoveFilterWord(_ context.Context, word string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.filters, word)
	return nil
}

func (s *memoryStore) Close(_ context.Context) error { return nil }
