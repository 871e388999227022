package trigger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FiringStore persists firing records. Record must act as a compare-and-set
// on (OrganizationID, Key, Window): the loser of a race gets ErrAlreadyFired.
type FiringStore interface {
	Firings(ctx context.Context, organizationID uuid.UUID) ([]Firing, error)
	Has(ctx context.Context, organizationID uuid.UUID, key Key, window time.Time) (bool, error)
	Record(ctx context.Context, f Firing) error
}

type firingID struct {
	org    uuid.UUID
	key    Key
	window int64
}

func idOf(org uuid.UUID, key Key, window time.Time) firingID {
	return firingID{org: org, key: key, window: window.UnixNano()}
}

// MemoryStore keeps firings in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	firings map[firingID]Firing
}

// NewMemoryStore creates an empty firing store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{firings: make(map[firingID]Firing)}
}

func (s *MemoryStore) Firings(_ context.Context, organizationID uuid.UUID) ([]Firing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Firing
	for id, f := range s.firings {
		if id.org == organizationID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *MemoryStore) Has(_ context.Context, organizationID uuid.UUID, key Key, window time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.firings[idOf(organizationID, key, window)]
	return ok, nil
}

func (s *MemoryStore) Record(_ context.Context, f Firing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := idOf(f.OrganizationID, f.Key, f.Window)
	if _, ok := s.firings[id]; ok {
		return ErrAlreadyFired
	}
	s.firings[id] = f
	return nil
}

// Len returns the number of stored firings.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.firings)
}
