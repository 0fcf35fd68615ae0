package bridge

import (
	"sort"
	"strings"
	"sync"
)

// Filter suppresses messages whose lowercase, trimmed body starts with a
// blocked word. Applied in both relay directions. Safe for concurrent use.
type Filter struct {
	mu       sync.RWMutex
	prefixes map[string]struct{}
}

// NewFilter builds a filter from the given words. Words are
// case-normalized and trimmed; empty entries are dropped.
func NewFilter(words []string) *Filter {
	f := &Filter{prefixes: make(map[string]struct{})}
	for _, w := range words {
		f.Add(w)
	}
	return f
}

// Add inserts a blocked prefix.
func (f *Filter) Add(word string) {
	w := normalizeWord(word)
	if w == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefixes[w] = struct{}{}
}

// Remove deletes a blocked prefix. Returns whether it was present.
func (f *Filter) Remove(word string) bool {
	w := normalizeWord(word)
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.prefixes[w]
	delete(f.prefixes, w)
	return ok
}

// Blocked reports whether body starts with any blocked word.
func (f *Filter) Blocked(body string) bool {
	b := strings.ToLower(strings.TrimSpace(body))
	if b == "" {
		return false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for p := range f.prefixes {
		if strings.HasPrefix(b, p) {
			return true
		}
	}
	return false
}

// Words returns the blocked words, sorted for stable command output.
func (f *Filter) Words() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	words := make([]string, 0, len(f.prefixes))
	for p := range f.prefixes {
		words = append(words, p)
	}
	sort.Strings(words)
	return words
}

func normalizeWord(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}
