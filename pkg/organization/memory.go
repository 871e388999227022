package organization

import (
	"bytes"
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/beautydesk/backoffice/pkg/audit"
)

// MemoryStore is an in-process Store. Atomic serializes callers and commits
// organizations, processed events and buffered audit entries only when the
// callback succeeds.
type MemoryStore struct {
	mu     sync.Mutex
	orgs   map[uuid.UUID]Organization
	events map[string]ProcessedEvent
	audit  audit.Storage
}

// NewMemoryStore creates an empty store. Audit entries written inside
// transactions are flushed to auditStorage on commit.
func NewMemoryStore(auditStorage audit.Storage) *MemoryStore {
	if auditStorage == nil {
		panic("organization: audit storage cannot be nil")
	}
	return &MemoryStore{
		orgs:   make(map[uuid.UUID]Organization),
		events: make(map[string]ProcessedEvent),
		audit:  auditStorage,
	}
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orgs[id]
	if !ok {
		return Organization{}, ErrNotFound
	}
	return o.clone(), nil
}

func (s *MemoryStore) List(_ context.Context, filter ListFilter) ([]Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Organization, 0, len(s.orgs))
	for _, o := range s.orgs {
		if filter.AfterID != uuid.Nil && bytes.Compare(o.ID[:], filter.AfterID[:]) <= 0 {
			continue
		}
		if filter.Matches(o) {
			out = append(out, o.clone())
		}
	}
	slices.SortFunc(out, func(a, b Organization) int {
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ProcessedEvents returns the idempotency records, for inspection in tests.
func (s *MemoryStore) ProcessedEvents() []ProcessedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ProcessedEvent, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev)
	}
	return out
}

func (s *MemoryStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{
		store:  s,
		orgs:   make(map[uuid.UUID]Organization),
		events: make(map[string]ProcessedEvent),
		audit:  audit.NewMemoryStorage(),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	for _, e := range tx.audit.Entries() {
		if err := s.audit.Append(ctx, e); err != nil {
			return err
		}
	}
	for id, o := range tx.orgs {
		s.orgs[id] = o
	}
	for id, ev := range tx.events {
		s.events[id] = ev
	}
	return nil
}

// memoryTx holds writes until commit. Reads see its own writes first.
type memoryTx struct {
	store  *MemoryStore
	orgs   map[uuid.UUID]Organization
	events map[string]ProcessedEvent
	audit  *audit.MemoryStorage
}

func (t *memoryTx) lookup(id uuid.UUID) (Organization, bool) {
	if o, ok := t.orgs[id]; ok {
		return o, true
	}
	o, ok := t.store.orgs[id]
	return o, ok
}

func (t *memoryTx) Get(_ context.Context, id uuid.UUID) (Organization, error) {
	o, ok := t.lookup(id)
	if !ok {
		return Organization{}, ErrNotFound
	}
	return o.clone(), nil
}

func (t *memoryTx) FindBySubscriptionRef(_ context.Context, ref string) (Organization, error) {
	if ref == "" {
		return Organization{}, ErrNotFound
	}
	for id := range t.store.orgs {
		if _, ok := t.orgs[id]; ok {
			continue
		}
		if t.store.orgs[id].BillingSubscriptionRef == ref {
			return t.store.orgs[id].clone(), nil
		}
	}
	for _, o := range t.orgs {
		if o.BillingSubscriptionRef == ref {
			return o.clone(), nil
		}
	}
	return Organization{}, ErrNotFound
}

func (t *memoryTx) Create(_ context.Context, org Organization) error {
	if _, ok := t.lookup(org.ID); ok {
		return ErrInvalidOrganization
	}
	for _, m := range []map[uuid.UUID]Organization{t.store.orgs, t.orgs} {
		for _, o := range m {
			if o.Slug == org.Slug {
				return ErrSlugTaken
			}
		}
	}
	t.orgs[org.ID] = org.clone()
	return nil
}

func (t *memoryTx) Update(_ context.Context, org Organization) error {
	if _, ok := t.lookup(org.ID); !ok {
		return ErrNotFound
	}
	t.orgs[org.ID] = org.clone()
	return nil
}

func (t *memoryTx) MarkEventProcessed(_ context.Context, ev ProcessedEvent) error {
	if _, ok := t.store.events[ev.EventID]; ok {
		return ErrDuplicateEvent
	}
	if _, ok := t.events[ev.EventID]; ok {
		return ErrDuplicateEvent
	}
	t.events[ev.EventID] = ev
	return nil
}

func (t *memoryTx) Audit() audit.Storage { return t.audit }
