package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Well-known actors for actions not performed by a person.
const (
	ActorSystem  = "system"
	ActorBilling = "billing"
)

// Target identifies the object an action was applied to.
type Target struct {
	Type string
	ID   string
}

// Entry is a single immutable audit record.
type Entry struct {
	ID             uuid.UUID       `json:"id"`
	Actor          string          `json:"actor"`
	Action         string          `json:"action"`
	TargetType     string          `json:"target_type"`
	TargetID       string          `json:"target_id,omitempty"`
	OrganizationID *uuid.UUID      `json:"organization_id,omitempty"` // nil for platform-wide actions
	Before         json.RawMessage `json:"before,omitempty"`
	After          json.RawMessage `json:"after,omitempty"`
	IP             string          `json:"ip,omitempty"`
	UserAgent      string          `json:"user_agent,omitempty"`
	RequestID      string          `json:"request_id,omitempty"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Validate checks the fields every entry must carry.
func (e *Entry) Validate() error {
	switch {
	case e.Action == "":
		return fmt.Errorf("%w: action is required", ErrEntryValidation)
	case e.Actor == "":
		return fmt.Errorf("%w: actor is required", ErrEntryValidation)
	case e.TargetType == "":
		return fmt.Errorf("%w: target type is required", ErrEntryValidation)
	}
	return nil
}

// EntryOption customizes an entry before it is stored.
type EntryOption func(*Entry)

// Storage is the append-only sink for entries.
// Implementations must never update or delete stored entries.
type Storage interface {
	Append(ctx context.Context, entry Entry) error
	Query(ctx context.Context, criteria Criteria) ([]Entry, error)
}

// StorageCounter is implemented by storages able to count without loading rows.
type StorageCounter interface {
	Count(ctx context.Context, criteria Criteria) (int64, error)
}

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Criteria filters the audit log. Zero values mean "any".
// Results are ordered newest first.
type Criteria struct {
	Actor          string
	Action         string
	TargetType     string
	OrganizationID *uuid.UUID
	From           time.Time // inclusive
	To             time.Time // exclusive
	Limit          int
	Offset         int
}

// Normalize clamps the pagination parameters.
func (c Criteria) Normalize() Criteria {
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	if c.Limit > MaxLimit {
		c.Limit = MaxLimit
	}
	if c.Offset < 0 {
		c.Offset = 0
	}
	return c
}

// Matches reports whether e satisfies the filter part of the criteria.
func (c Criteria) Matches(e Entry) bool {
	if c.Actor != "" && e.Actor != c.Actor {
		return false
	}
	if c.Action != "" && e.Action != c.Action {
		return false
	}
	if c.TargetType != "" && e.TargetType != c.TargetType {
		return false
	}
	if c.OrganizationID != nil && (e.OrganizationID == nil || *e.OrganizationID != *c.OrganizationID) {
		return false
	}
	if !c.From.IsZero() && e.CreatedAt.Before(c.From) {
		return false
	}
	if !c.To.IsZero() && !e.CreatedAt.Before(c.To) {
		return false
	}
	return true
}
