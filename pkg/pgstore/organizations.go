package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/beautydesk/backoffice/pkg/audit"
	"github.com/beautydesk/backoffice/pkg/organization"
	"github.com/beautydesk/backoffice/pkg/pg"
	"github.com/beautydesk/backoffice/pkg/plan"
)

var _ organization.Store = (*OrganizationStore)(nil)

const orgColumns = `id, name, slug, contact_email, contact_phone, chat_webhook_url,
	status, plan, pending_plan, pending_plan_at, trial_ends_at, current_period_end,
	billing_customer_ref, billing_subscription_ref,
	activated_at, suspended_at, cancelled_at, last_billing_event_at, last_login_at,
	usage_locations, usage_users, usage_storage_gb, created_at, updated_at,
	billing_price_ref`

// OrganizationStore persists organizations and processed billing events.
// Atomic runs the callback in a READ COMMITTED transaction and locks the
// rows it reads with FOR UPDATE.
type OrganizationStore struct {
	pool *pgxpool.Pool
}

// NewOrganizationStore panics on a nil pool.
func NewOrganizationStore(pool *pgxpool.Pool) *OrganizationStore {
	if pool == nil {
		panic(ErrNilPool)
	}
	return &OrganizationStore{pool: pool}
}

func (s *OrganizationStore) Get(ctx context.Context, id uuid.UUID) (organization.Organization, error) {
	return getOrganization(ctx, s.pool, id, false)
}

func (s *OrganizationStore) List(ctx context.Context, filter organization.ListFilter) ([]organization.Organization, error) {
	where, args := listWhere(filter)
	q := "SELECT " + orgColumns + " FROM organizations" + where + " ORDER BY id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Join(ErrQueryFailed, err)
	}
	defer rows.Close()

	var out []organization.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, errors.Join(ErrQueryFailed, err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrQueryFailed, err)
	}
	return out, nil
}

func (s *OrganizationStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx organization.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return errors.Join(ErrTxFailed, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &orgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Join(ErrTxFailed, err)
	}
	return nil
}

// listWhere translates a ListFilter, excluding pagination limit.
func listWhere(f organization.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.IncludeCancelledSince.IsZero() {
		conds = append(conds, "status <> 'CANCELLED'")
	} else {
		conds = append(conds, "(status <> 'CANCELLED' OR cancelled_at >= "+arg(pgTime(f.IncludeCancelledSince))+")")
	}
	if !f.DowngradeDueBy.IsZero() {
		conds = append(conds, "pending_plan IS NOT NULL AND pending_plan_at <= "+arg(pgTime(f.DowngradeDueBy)))
	}
	if f.AfterID != uuid.Nil {
		conds = append(conds, "id > "+arg(f.AfterID))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type orgTx struct {
	tx pgx.Tx
}

func (t *orgTx) Get(ctx context.Context, id uuid.UUID) (organization.Organization, error) {
	return getOrganization(ctx, t.tx, id, true)
}

func (t *orgTx) FindBySubscriptionRef(ctx context.Context, ref string) (organization.Organization, error) {
	if ref == "" {
		return organization.Organization{}, organization.ErrNotFound
	}
	row := t.tx.QueryRow(ctx,
		"SELECT "+orgColumns+" FROM organizations WHERE billing_subscription_ref = $1 ORDER BY created_at LIMIT 1 FOR UPDATE", ref)
	o, err := scanOrganization(row)
	if pg.IsNotFoundError(err) {
		return organization.Organization{}, organization.ErrNotFound
	}
	if err != nil {
		return organization.Organization{}, errors.Join(ErrQueryFailed, err)
	}
	return o, nil
}

func (t *orgTx) Create(ctx context.Context, o organization.Organization) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO organizations (`+orgColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`,
		orgArgs(o)...)
	if pg.IsDuplicateKeyError(err) && pg.ConstraintName(err) == "organizations_slug_key" {
		return organization.ErrSlugTaken
	}
	if err != nil {
		return errors.Join(ErrQueryFailed, err)
	}
	return nil
}

func (t *orgTx) Update(ctx context.Context, o organization.Organization) error {
	tag, err := t.tx.Exec(ctx, `UPDATE organizations SET
		name = $2, slug = $3, contact_email = $4, contact_phone = $5, chat_webhook_url = $6,
		status = $7, plan = $8, pending_plan = $9, pending_plan_at = $10, trial_ends_at = $11,
		current_period_end = $12, billing_customer_ref = $13, billing_subscription_ref = $14,
		activated_at = $15, suspended_at = $16, cancelled_at = $17, last_billing_event_at = $18,
		last_login_at = $19, usage_locations = $20, usage_users = $21, usage_storage_gb = $22,
		created_at = $23, updated_at = $24, billing_price_ref = $25
		WHERE id = $1`, orgArgs(o)...)
	if pg.IsDuplicateKeyError(err) {
		return organization.ErrSlugTaken
	}
	if err != nil {
		return errors.Join(ErrQueryFailed, err)
	}
	if tag.RowsAffected() == 0 {
		return organization.ErrNotFound
	}
	return nil
}

func (t *orgTx) MarkEventProcessed(ctx context.Context, ev organization.ProcessedEvent) error {
	tag, err := t.tx.Exec(ctx, `INSERT INTO processed_billing_events (event_id, organization_id, kind, occurred_at, processed_at)
		VALUES ($1, $2, $3, $4, $5) ON CONFLICT (event_id) DO NOTHING`,
		ev.EventID, ev.OrganizationID, string(ev.Kind), pgTime(ev.OccurredAt), pgTime(ev.ProcessedAt))
	if err != nil {
		return errors.Join(ErrQueryFailed, err)
	}
	if tag.RowsAffected() == 0 {
		return organization.ErrDuplicateEvent
	}
	return nil
}

func (t *orgTx) Audit() audit.Storage {
	return &AuditStore{db: t.tx}
}

func getOrganization(ctx context.Context, db querier, id uuid.UUID, forUpdate bool) (organization.Organization, error) {
	q := "SELECT " + orgColumns + " FROM organizations WHERE id = $1"
	if forUpdate {
		q += " FOR UPDATE"
	}
	o, err := scanOrganization(db.QueryRow(ctx, q, id))
	if pg.IsNotFoundError(err) {
		return organization.Organization{}, organization.ErrNotFound
	}
	if err != nil {
		return organization.Organization{}, errors.Join(ErrQueryFailed, err)
	}
	return o, nil
}

func orgArgs(o organization.Organization) []any {
	var pending *string
	if o.PendingPlan != nil {
		p := string(*o.PendingPlan)
		pending = &p
	}
	return []any{
		o.ID, o.Name, o.Slug, o.ContactEmail, o.ContactPhone, o.ChatWebhookURL,
		string(o.Status), string(o.Plan), pending, pgTimePtr(o.PendingPlanAt),
		pgTimePtr(o.TrialEndsAt), pgTimePtr(o.CurrentPeriodEnd),
		o.BillingCustomerRef, o.BillingSubscriptionRef,
		pgTimePtr(o.ActivatedAt), pgTimePtr(o.SuspendedAt), pgTimePtr(o.CancelledAt),
		pgTimePtr(o.LastBillingEventAt), pgTimePtr(o.LastLoginAt),
		o.Usage.Locations, o.Usage.Users, o.Usage.StorageGB,
		pgTime(o.CreatedAt), pgTime(o.UpdatedAt),
		o.BillingPriceRef,
	}
}

func scanOrganization(row pgx.Row) (organization.Organization, error) {
	var (
		o              organization.Organization
		status, planID string
		pending        *string
	)
	err := row.Scan(
		&o.ID, &o.Name, &o.Slug, &o.ContactEmail, &o.ContactPhone, &o.ChatWebhookURL,
		&status, &planID, &pending, &o.PendingPlanAt, &o.TrialEndsAt, &o.CurrentPeriodEnd,
		&o.BillingCustomerRef, &o.BillingSubscriptionRef,
		&o.ActivatedAt, &o.SuspendedAt, &o.CancelledAt, &o.LastBillingEventAt, &o.LastLoginAt,
		&o.Usage.Locations, &o.Usage.Users, &o.Usage.StorageGB, &o.CreatedAt, &o.UpdatedAt,
		&o.BillingPriceRef,
	)
	if err != nil {
		return organization.Organization{}, err
	}
	o.Status = organization.Status(status)
	o.Plan = plan.ID(planID)
	if pending != nil {
		p := plan.ID(*pending)
		o.PendingPlan = &p
	}
	o.PendingPlanAt = utcPtr(o.PendingPlanAt)
	o.TrialEndsAt = utcPtr(o.TrialEndsAt)
	o.CurrentPeriodEnd = utcPtr(o.CurrentPeriodEnd)
	o.ActivatedAt = utcPtr(o.ActivatedAt)
	o.SuspendedAt = utcPtr(o.SuspendedAt)
	o.CancelledAt = utcPtr(o.CancelledAt)
	o.LastBillingEventAt = utcPtr(o.LastBillingEventAt)
	o.LastLoginAt = utcPtr(o.LastLoginAt)
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return o, nil
}
