package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Trail appends entries to storage, filling request metadata from context.
type Trail struct {
	storage     Storage
	ipFn        contextExtractor
	userAgentFn contextExtractor
	requestIDFn contextExtractor
	redactor    *Redactor
	now         func() time.Time
}

// NewTrail creates a trail over storage. Panics when storage is nil.
func NewTrail(storage Storage, opts ...Option) *Trail {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}

	t := &Trail{
		storage:     storage,
		ipFn:        metaIP,
		userAgentFn: metaUserAgent,
		requestIDFn: metaRequestID,
		redactor:    NewRedactor(),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// In returns a copy of the trail appending to storage, typically a
// transaction-scoped storage so the entry commits with the change it records.
func (t *Trail) In(storage Storage) *Trail {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}
	cp := *t
	cp.storage = storage
	return &cp
}

// Record appends one entry. before and after are encoded as JSON snapshots;
// nil snapshots are omitted. Any failure is returned so the caller can abort.
func (t *Trail) Record(ctx context.Context, actor, action string, target Target, before, after any, opts ...EntryOption) (Entry, error) {
	entry := Entry{
		ID:         uuid.New(),
		Actor:      actor,
		Action:     action,
		TargetType: target.Type,
		TargetID:   target.ID,
		CreatedAt:  t.now().UTC(),
	}

	var err error
	if entry.Before, err = snapshot(before); err != nil {
		return Entry{}, err
	}
	if entry.After, err = snapshot(after); err != nil {
		return Entry{}, err
	}

	t.fillFromContext(ctx, &entry)

	for _, opt := range opts {
		opt(&entry)
	}

	if err := entry.Validate(); err != nil {
		return Entry{}, err
	}

	if t.redactor != nil {
		entry.Metadata = t.redactor.Apply(entry.Metadata)
	}

	if err := t.storage.Append(ctx, entry); err != nil {
		return Entry{}, errors.Join(ErrStorageFailed, err)
	}
	return entry, nil
}

func (t *Trail) fillFromContext(ctx context.Context, e *Entry) {
	if t.ipFn != nil {
		if v, ok := t.ipFn(ctx); ok {
			e.IP = v
		}
	}
	if t.userAgentFn != nil {
		if v, ok := t.userAgentFn(ctx); ok {
			e.UserAgent = v
		}
	}
	if t.requestIDFn != nil {
		if v, ok := t.requestIDFn(ctx); ok {
			e.RequestID = v
		}
	}
}

func snapshot(v any) (json.RawMessage, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return s, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return raw, nil
}
