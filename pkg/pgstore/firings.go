package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/beautydesk/backoffice/pkg/pg"
	"github.com/beautydesk/backoffice/pkg/trigger"
)

var _ trigger.FiringStore = (*FiringStore)(nil)

// FiringStore records trigger firings. The primary key on
// (organization, key, window) makes Record a compare-and-set.
type FiringStore struct {
	db querier
}

// NewFiringStore panics on a nil pool.
func NewFiringStore(pool *pgxpool.Pool) *FiringStore {
	if pool == nil {
		panic(ErrNilPool)
	}
	return &FiringStore{db: pool}
}

func (s *FiringStore) Firings(ctx context.Context, organizationID uuid.UUID) ([]trigger.Firing, error) {
	rows, err := s.db.Query(ctx, `SELECT organization_id, trigger_key, window_start, sent_at
		FROM trigger_firings WHERE organization_id = $1 ORDER BY sent_at`, organizationID)
	if err != nil {
		return nil, errors.Join(trigger.ErrStoreFailed, err)
	}
	defer rows.Close()

	var out []trigger.Firing
	for rows.Next() {
		var (
			f   trigger.Firing
			key string
		)
		if err := rows.Scan(&f.OrganizationID, &key, &f.Window, &f.SentAt); err != nil {
			return nil, errors.Join(trigger.ErrStoreFailed, err)
		}
		f.Key = trigger.Key(key)
		f.Window = fromWindow(f.Window)
		f.SentAt = f.SentAt.UTC()
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(trigger.ErrStoreFailed, err)
	}
	return out, nil
}

func (s *FiringStore) Has(ctx context.Context, organizationID uuid.UUID, key trigger.Key, window time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM trigger_firings WHERE organization_id = $1 AND trigger_key = $2 AND window_start = $3)`,
		organizationID, string(key), toWindow(window)).Scan(&exists)
	if err != nil {
		return false, errors.Join(trigger.ErrStoreFailed, err)
	}
	return exists, nil
}

func (s *FiringStore) Record(ctx context.Context, f trigger.Firing) error {
	_, err := s.db.Exec(ctx, `INSERT INTO trigger_firings (organization_id, trigger_key, window_start, sent_at)
		VALUES ($1, $2, $3, $4)`,
		f.OrganizationID, string(f.Key), toWindow(f.Window), pgTime(f.SentAt))
	if pg.IsDuplicateKeyError(err) {
		return trigger.ErrAlreadyFired
	}
	if err != nil {
		return errors.Join(trigger.ErrStoreFailed, err)
	}
	return nil
}

// Once-ever firings carry the zero window, stored as the Unix epoch.
var epoch = time.Unix(0, 0).UTC()

func toWindow(w time.Time) time.Time {
	if w.IsZero() {
		return epoch
	}
	return pgTime(w)
}

func fromWindow(w time.Time) time.Time {
	if w.Equal(epoch) {
		return time.Time{}
	}
	return w.UTC()
}
