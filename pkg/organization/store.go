package organization

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/beautydesk/backoffice/pkg/audit"
	"github.com/beautydesk/backoffice/pkg/billing"
)

// Store persists organizations. Every mutation goes through Atomic so the
// organization row, its audit entry and the processed billing event commit
// together.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (Organization, error)
	List(ctx context.Context, filter ListFilter) ([]Organization, error)
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the transactional view handed to Store.Atomic callbacks.
type Tx interface {
	// Get loads an organization for update. Returns ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (Organization, error)
	// FindBySubscriptionRef returns ErrNotFound when no organization matches.
	FindBySubscriptionRef(ctx context.Context, ref string) (Organization, error)
	// Create returns ErrSlugTaken on slug collision.
	Create(ctx context.Context, org Organization) error
	Update(ctx context.Context, org Organization) error
	// MarkEventProcessed returns ErrDuplicateEvent when the event id was recorded before.
	MarkEventProcessed(ctx context.Context, ev ProcessedEvent) error
	// Audit returns the audit storage bound to this transaction.
	Audit() audit.Storage
}

// ProcessedEvent is the idempotency record of an applied billing event.
type ProcessedEvent struct {
	EventID        string
	OrganizationID uuid.UUID
	Kind           billing.EventKind
	OccurredAt     time.Time
	ProcessedAt    time.Time
}

// ListFilter selects organizations for batch work. Results are ordered by id.
type ListFilter struct {
	// IncludeCancelledSince adds organizations cancelled at or after this time.
	// Zero excludes every cancelled organization.
	IncludeCancelledSince time.Time
	// DowngradeDueBy restricts to organizations with a pending plan effective at or before it.
	DowngradeDueBy time.Time
	// AfterID and Limit page through results; zero values mean from the start, no limit.
	AfterID uuid.UUID
	Limit   int
}

// Matches reports whether o passes the filter, ignoring pagination.
func (f ListFilter) Matches(o Organization) bool {
	if o.Status == StatusCancelled {
		if f.IncludeCancelledSince.IsZero() || o.CancelledAt == nil || o.CancelledAt.Before(f.IncludeCancelledSince) {
			return false
		}
	}
	if !f.DowngradeDueBy.IsZero() {
		if o.PendingPlan == nil || o.PendingPlanAt == nil || o.PendingPlanAt.After(f.DowngradeDueBy) {
			return false
		}
	}
	return true
}
