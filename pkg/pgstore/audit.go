package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/beautydesk/backoffice/pkg/audit"
)

var (
	_ audit.Storage        = (*AuditStore)(nil)
	_ audit.StorageCounter = (*AuditStore)(nil)
)

const auditColumns = `id, actor, action, target_type, target_id, organization_id,
	before, after, ip, user_agent, request_id, metadata, created_at`

// AuditStore is the append-only audit_log table.
type AuditStore struct {
	db querier
}

// NewAuditStore panics on a nil pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	if pool == nil {
		panic(ErrNilPool)
	}
	return &AuditStore{db: pool}
}

func (s *AuditStore) Append(ctx context.Context, e audit.Entry) error {
	var meta []byte
	if len(e.Metadata) > 0 {
		var err error
		if meta, err = json.Marshal(e.Metadata); err != nil {
			return errors.Join(audit.ErrStorageFailed, err)
		}
	}
	_, err := s.db.Exec(ctx, `INSERT INTO audit_log (`+auditColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		e.ID, e.Actor, e.Action, e.TargetType, e.TargetID, e.OrganizationID,
		nullJSON(e.Before), nullJSON(e.After), e.IP, e.UserAgent, e.RequestID, nullJSON(meta),
		pgTime(e.CreatedAt))
	if err != nil {
		return errors.Join(audit.ErrStorageFailed, err)
	}
	return nil
}

func (s *AuditStore) Query(ctx context.Context, criteria audit.Criteria) ([]audit.Entry, error) {
	c := criteria.Normalize()
	where, args := auditWhere(c)
	args = append(args, c.Limit, c.Offset)
	q := fmt.Sprintf("SELECT %s FROM audit_log%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		auditColumns, where, len(args)-1, len(args))

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Join(audit.ErrStorageFailed, err)
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var (
			e                   audit.Entry
			before, after, meta []byte
		)
		err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.TargetType, &e.TargetID, &e.OrganizationID,
			&before, &after, &e.IP, &e.UserAgent, &e.RequestID, &meta, &e.CreatedAt)
		if err != nil {
			return nil, errors.Join(audit.ErrStorageFailed, err)
		}
		if len(before) > 0 {
			e.Before = json.RawMessage(before)
		}
		if len(after) > 0 {
			e.After = json.RawMessage(after)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, errors.Join(audit.ErrStorageFailed, err)
			}
		}
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(audit.ErrStorageFailed, err)
	}
	return out, nil
}

func (s *AuditStore) Count(ctx context.Context, criteria audit.Criteria) (int64, error) {
	where, args := auditWhere(criteria)
	var n int64
	if err := s.db.QueryRow(ctx, "SELECT count(*) FROM audit_log"+where, args...).Scan(&n); err != nil {
		return 0, errors.Join(audit.ErrStorageFailed, err)
	}
	return n, nil
}

// auditWhere translates the filter part of criteria.
func auditWhere(c audit.Criteria) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if c.Actor != "" {
		add("actor = $%d", c.Actor)
	}
	if c.Action != "" {
		add("action = $%d", c.Action)
	}
	if c.TargetType != "" {
		add("target_type = $%d", c.TargetType)
	}
	if c.OrganizationID != nil {
		add("organization_id = $%d", *c.OrganizationID)
	}
	if !c.From.IsZero() {
		add("created_at >= $%d", pgTime(c.From))
	}
	if !c.To.IsZero() {
		add("created_at < $%d", pgTime(c.To))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
