package audit

import (
	"context"
	"errors"
)

// Page is one slice of a filtered audit view.
type Page struct {
	Entries []Entry `json:"entries"`
	Total   int64   `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// HasMore reports whether entries exist past this page.
func (p Page) HasMore() bool {
	return int64(p.Offset+len(p.Entries)) < p.Total
}

// Reader provides the read side of the audit log.
type Reader struct {
	storage Storage
}

// NewReader creates a reader. Panics when storage is nil.
func NewReader(storage Storage) *Reader {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}
	return &Reader{storage: storage}
}

// Find returns entries matching the criteria, newest first.
func (r *Reader) Find(ctx context.Context, criteria Criteria) ([]Entry, error) {
	entries, err := r.storage.Query(ctx, criteria.Normalize())
	if err != nil {
		return nil, errors.Join(ErrStorageFailed, err)
	}
	return entries, nil
}

// Count returns the number of matching entries, ignoring pagination.
// Storages implementing StorageCounter count natively; others are scanned page by page.
func (r *Reader) Count(ctx context.Context, criteria Criteria) (int64, error) {
	criteria.Offset = 0
	if counter, ok := r.storage.(StorageCounter); ok {
		n, err := counter.Count(ctx, criteria)
		if err != nil {
			return 0, errors.Join(ErrStorageFailed, err)
		}
		return n, nil
	}

	var total int64
	criteria.Limit = MaxLimit
	for {
		entries, err := r.Find(ctx, criteria)
		if err != nil {
			return 0, err
		}
		total += int64(len(entries))
		if len(entries) < MaxLimit {
			return total, nil
		}
		criteria.Offset += MaxLimit
	}
}

// Page returns one page together with the total count.
func (r *Reader) Page(ctx context.Context, criteria Criteria) (Page, error) {
	criteria = criteria.Normalize()

	entries, err := r.Find(ctx, criteria)
	if err != nil {
		return Page{}, err
	}
	total, err := r.Count(ctx, criteria)
	if err != nil {
		return Page{}, err
	}

	if entries == nil {
		entries = []Entry{}
	}
	return Page{Entries: entries, Total: total, Limit: criteria.Limit, Offset: criteria.Offset}, nil
}
