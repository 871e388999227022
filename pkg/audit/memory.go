package audit

import (
	"context"
	"sort"
	"sync"
)

// MemoryStorage keeps entries in process memory. Suitable for tests and local runs.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryStorage) Query(_ context.Context, criteria Criteria) ([]Entry, error) {
	matched := s.filter(criteria)
	criteria = criteria.Normalize()

	if criteria.Offset >= len(matched) {
		return []Entry{}, nil
	}
	end := min(criteria.Offset+criteria.Limit, len(matched))
	return matched[criteria.Offset:end], nil
}

func (s *MemoryStorage) Count(_ context.Context, criteria Criteria) (int64, error) {
	return int64(len(s.filter(criteria))), nil
}

// Entries returns every stored entry in insertion order.
func (s *MemoryStorage) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.entries...)
}

func (s *MemoryStorage) filter(criteria Criteria) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Entry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		if criteria.Matches(s.entries[i]) {
			matched = append(matched, s.entries[i])
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched
}
