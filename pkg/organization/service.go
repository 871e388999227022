package organization

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/beautydesk/backoffice/pkg/audit"
	"github.com/beautydesk/backoffice/pkg/billing"
	"github.com/beautydesk/backoffice/pkg/logger"
	"github.com/beautydesk/backoffice/pkg/plan"
	"github.com/beautydesk/backoffice/pkg/slug"
)

// Service owns the subscription lifecycle of organizations.
type Service struct {
	store     Store
	catalog   *plan.Catalog
	trail     *audit.Trail
	provider  billing.Provider
	logger    *slog.Logger
	now       func() time.Time
	trialDays int
}

// NewService creates the lifecycle service. Panics on nil dependencies.
func NewService(store Store, catalog *plan.Catalog, trail *audit.Trail, opts ...ServiceOption) *Service {
	if store == nil {
		panic("organization: store cannot be nil")
	}
	if catalog == nil {
		panic("organization: catalog cannot be nil")
	}
	if trail == nil {
		panic("organization: audit trail cannot be nil")
	}

	s := &Service{
		store:     store,
		catalog:   catalog,
		trail:     trail,
		logger:    slog.Default(),
		now:       time.Now,
		trialDays: DefaultTrialDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the plan catalog the service resolves plans against.
func (s *Service) Catalog() *plan.Catalog { return s.catalog }

// Get returns an organization by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Organization, error) {
	return s.store.Get(ctx, id)
}

// List returns organizations matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Organization, error) {
	return s.store.List(ctx, filter)
}

// StartTrial creates an organization in TRIAL with the trial countdown started.
func (s *Service) StartTrial(ctx context.Context, in NewOrganization, actor string) (Organization, error) {
	now := s.now().UTC()

	org, err := s.newOrganization(in, now)
	if err != nil {
		return Organization{}, err
	}

	err = s.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Create(ctx, org); err != nil {
			return err
		}
		_, err := s.record(ctx, tx, actor, ActionCreated, nil, &org)
		return err
	})
	if err != nil {
		return Organization{}, err
	}
	return org, nil
}

func (s *Service) newOrganization(in NewOrganization, now time.Time) (Organization, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Organization{}, fmt.Errorf("%w: name is required", ErrInvalidOrganization)
	}

	key := strings.TrimSpace(in.Slug)
	if key == "" {
		key = slug.Make(name)
	}
	if !slug.Valid(key) {
		return Organization{}, fmt.Errorf("%w: invalid slug %q", ErrInvalidOrganization, key)
	}

	if _, err := mail.ParseAddress(in.ContactEmail); err != nil {
		return Organization{}, fmt.Errorf("%w: invalid contact email", ErrInvalidOrganization)
	}

	planID := in.Plan
	if planID == "" {
		planID = plan.Solo
	}
	if _, ok := s.catalog.Lookup(planID); !ok {
		return Organization{}, fmt.Errorf("%w: %q", plan.ErrUnknownPlan, planID)
	}

	return Organization{
		ID:             uuid.New(),
		Name:           name,
		Slug:           key,
		ContactEmail:   strings.TrimSpace(in.ContactEmail),
		ContactPhone:   strings.TrimSpace(in.ContactPhone),
		ChatWebhookURL: strings.TrimSpace(in.ChatWebhookURL),
		Status:         StatusTrial,
		Plan:           planID,
		TrialEndsAt:    ptr(now.AddDate(0, 0, s.trialDays)),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Activate moves an organization to ACTIVE on subscriptionRef. Re-activating
// with the subscription already on file is a no-op without audit entry; a
// different reference replaces the subscription.
func (s *Service) Activate(ctx context.Context, id uuid.UUID, subscriptionRef string, periodEnd time.Time, actor string) (Organization, error) {
	return s.mutate(ctx, id, actor, func(o Organization, now time.Time) (Organization, string, []audit.EntryOption, error) {
		var end *time.Time
		if !periodEnd.IsZero() {
			end = &periodEnd
		}
		next, changed, err := activate(o, subscriptionRef, end, now)
		if err != nil || !changed {
			return o, "", nil, err
		}
		return next, ActionActivated, nil, nil
	})
}

// Suspend moves an ACTIVE (or expired TRIAL) organization to SUSPENDED.
// Data is kept; paid capabilities are gated by status.
func (s *Service) Suspend(ctx context.Context, id uuid.UUID, reason, actor string) (Organization, error) {
	return s.mutate(ctx, id, actor, func(o Organization, now time.Time) (Organization, string, []audit.EntryOption, error) {
		next, err := suspend(o, now)
		if err != nil {
			return o, "", nil, err
		}
		return next, ActionSuspended, reasonOpt(reason), nil
	})
}

// Cancel moves any non-cancelled organization to CANCELLED.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason, actor string) (Organization, error) {
	return s.mutate(ctx, id, actor, func(o Organization, now time.Time) (Organization, string, []audit.EntryOption, error) {
		next, err := cancel(o, now)
		if err != nil {
			return o, "", nil, err
		}
		return next, ActionCancelled, reasonOpt(reason), nil
	})
}

// ChangePlan requests a move to target. Upgrades apply immediately;
// downgrades wait for the end of the paid period. For a paid subscription
// the billing processor is moved to the new price first, so the updates it
// sends afterwards agree with the local plan.
func (s *Service) ChangePlan(ctx context.Context, id uuid.UUID, target plan.ID, actor string) (Organization, PlanChange, error) {
	pushed, preview, err := s.pushPlanChange(ctx, id, target)
	if err != nil {
		return Organization{}, PlanChange{}, err
	}

	var change PlanChange
	org, err := s.mutate(ctx, id, actor, func(o Organization, now time.Time) (Organization, string, []audit.EntryOption, error) {
		next, c, err := changePlan(s.catalog, o, target, now)
		if errors.Is(err, ErrSamePlan) && pushed != "" {
			// the processor's own update for this change was applied first
			change = preview
			return o, "", nil, nil
		}
		if err != nil {
			return o, "", nil, err
		}
		if pushed != "" {
			next.BillingPriceRef = pushed
		}
		change = c
		opts := []audit.EntryOption{audit.WithMetadata("change", string(c.Kind))}
		if len(c.OverQuota) > 0 {
			opts = append(opts, audit.WithMetadata("over_quota", c.OverQuota))
		}
		return next, planChangeAction(c), opts, nil
	})
	if err != nil {
		return Organization{}, PlanChange{}, err
	}
	return org, change, nil
}

// pushPlanChange moves the subscription of an active organization to the
// price of target. It returns the pushed price, empty when nothing was sent.
func (s *Service) pushPlanChange(ctx context.Context, id uuid.UUID, target plan.ID) (string, PlanChange, error) {
	if s.provider == nil {
		return "", PlanChange{}, nil
	}
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return "", PlanChange{}, err
	}
	if o.Status != StatusActive || o.BillingSubscriptionRef == "" {
		return "", PlanChange{}, nil
	}

	_, change, err := changePlan(s.catalog, o, target, s.now().UTC())
	if err != nil {
		return "", PlanChange{}, err
	}
	priceRef := s.catalog.Get(target).PriceRef
	if priceRef == "" || priceRef == o.BillingPriceRef {
		return "", change, nil
	}

	proration := billing.NextPeriod
	if change.Kind == ChangeUpgrade {
		proration = billing.ProrateNow
	}
	if err := s.provider.UpdateSubscription(ctx, billing.SubscriptionUpdate{
		SubscriptionRef: o.BillingSubscriptionRef,
		PriceRef:        priceRef,
		Proration:       proration,
	}); err != nil {
		return "", PlanChange{}, fmt.Errorf("organization %s: %w", id, err)
	}
	return priceRef, change, nil
}

// DowngradeFailure is a pending plan that could not be promoted.
type DowngradeFailure struct {
	OrganizationID uuid.UUID
	Err            error
}

// ApplyDueDowngrades promotes every pending plan effective at or before now.
// Each promotion commits separately with its own audit entry; one failing
// organization does not stop the others. The error is set only when the
// due organizations could not be listed.
func (s *Service) ApplyDueDowngrades(ctx context.Context, now time.Time) (int, []DowngradeFailure, error) {
	due, err := s.store.List(ctx, ListFilter{DowngradeDueBy: now})
	if err != nil {
		return 0, nil, err
	}

	applied := 0
	var failures []DowngradeFailure
	for _, o := range due {
		promoted := false
		_, err := s.mutate(ctx, o.ID, audit.ActorSystem, func(o Organization, _ time.Time) (Organization, string, []audit.EntryOption, error) {
			next, ok := applyDueDowngrade(o, now)
			if !ok {
				return o, "", nil, nil
			}
			promoted = true
			return next, ActionDowngradeApplied, nil, nil
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "downgrade not applied",
				logger.OrganizationID(o.ID.String()),
				logger.Error(err),
			)
			failures = append(failures, DowngradeFailure{OrganizationID: o.ID, Err: err})
			continue
		}
		if promoted {
			applied++
		}
	}
	return applied, failures, nil
}

// CanCreate checks whether one more unit of res fits the effective plan.
// Organizations above quota keep their resources but cannot grow.
func (s *Service) CanCreate(ctx context.Context, id uuid.UUID, res plan.Resource) error {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !o.Status.Entitled() {
		return ErrNotActive
	}
	quotas := s.catalog.QuotasFor(o.EffectivePlan(s.now()))
	if !quotas.Allows(res, o.Usage.Map()[res]) {
		return fmt.Errorf("%w: %s limit is %d", ErrQuotaExceeded, res, quotas.Limit(res))
	}
	return nil
}

// HasFeature reports whether the organization may use f. Fails closed: any
// lookup error or a status other than TRIAL/ACTIVE yields false.
func (s *Service) HasFeature(ctx context.Context, id uuid.UUID, f plan.Feature) bool {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return false
	}
	if !o.Status.Entitled() {
		return false
	}
	return s.catalog.FeaturesFor(o.EffectivePlan(s.now()))[f]
}

// RecordLogin advances LastLoginAt. Older timestamps are ignored.
func (s *Service) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if o.LastLoginAt != nil && !at.After(*o.LastLoginAt) {
			return nil
		}
		o.LastLoginAt = ptr(at.UTC())
		o.UpdatedAt = s.now().UTC()
		return tx.Update(ctx, o)
	})
}

// UpdateUsage replaces the usage counters of an organization.
func (s *Service) UpdateUsage(ctx context.Context, id uuid.UUID, usage Usage) error {
	if usage.Locations < 0 || usage.Users < 0 || usage.StorageGB < 0 {
		return fmt.Errorf("%w: negative usage", ErrInvalidOrganization)
	}
	return s.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		o.Usage = usage
		o.UpdatedAt = s.now().UTC()
		return tx.Update(ctx, o)
	})
}

// ApplyBillingEvent applies a webhook event exactly once. The event id is
// recorded in the same transaction as its effect; redelivery returns
// ErrDuplicateEvent, reordering returns ErrStaleEvent and unmatched events
// return ErrUnknownOrganization. All three leave no trace.
func (s *Service) ApplyBillingEvent(ctx context.Context, ev billing.Event) (Outcome, error) {
	var outcome Outcome
	err := s.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		o, err := s.resolve(ctx, tx, ev)
		if err != nil {
			return err
		}

		if err := tx.MarkEventProcessed(ctx, ProcessedEvent{
			EventID:        ev.ID,
			OrganizationID: o.ID,
			Kind:           ev.Kind,
			OccurredAt:     ev.OccurredAt,
			ProcessedAt:    s.now().UTC(),
		}); err != nil {
			return err
		}

		next, out, err := Reduce(o, ev, s.catalog)
		if err != nil {
			return err
		}
		outcome = out

		next.UpdatedAt = s.now().UTC()
		if err := tx.Update(ctx, next); err != nil {
			return err
		}
		if !out.Changed() {
			return nil
		}

		opts := []audit.EntryOption{
			audit.WithMetadata("event_id", ev.ID),
			audit.WithMetadata("provider_event", ev.ProviderEvent),
		}
		if out.PlanChange != nil {
			opts = append(opts, audit.WithMetadata("change", string(out.PlanChange.Kind)))
		}
		_, err = s.record(ctx, tx, audit.ActorBilling, out.Action, &o, &next, opts...)
		return err
	})

	switch {
	case err == nil:
		return outcome, nil
	case errors.Is(err, ErrDuplicateEvent), errors.Is(err, ErrStaleEvent), errors.Is(err, ErrUnknownOrganization):
		s.logger.InfoContext(ctx, "billing event dropped",
			logger.EventID(ev.ID),
			logger.EventType(ev.ProviderEvent),
			logger.Error(err),
		)
	}
	return Outcome{}, err
}

// resolve finds the organization an event belongs to: by the organization id
// echoed from checkout, then by subscription reference.
func (s *Service) resolve(ctx context.Context, tx Tx, ev billing.Event) (Organization, error) {
	if ev.OrganizationID != nil {
		o, err := tx.Get(ctx, *ev.OrganizationID)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Organization{}, err
		}
	}
	if ev.SubscriptionRef != "" {
		o, err := tx.FindBySubscriptionRef(ctx, ev.SubscriptionRef)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Organization{}, err
		}
	}
	return Organization{}, fmt.Errorf("%w: event %s", ErrUnknownOrganization, ev.ID)
}

// CheckoutLink creates a hosted checkout for target.
func (s *Service) CheckoutLink(ctx context.Context, id uuid.UUID, target plan.ID, successURL string) (*billing.CheckoutLink, error) {
	if s.provider == nil {
		return nil, ErrNoBillingProvider
	}
	def, ok := s.catalog.Lookup(target)
	if !ok {
		return nil, fmt.Errorf("%w: %q", plan.ErrUnknownPlan, target)
	}
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.provider.CreateCheckoutLink(ctx, billing.CheckoutRequest{
		PriceRef:       def.PriceRef,
		OrganizationID: o.ID,
		Email:          o.ContactEmail,
		SuccessURL:     successURL,
	})
}

// PortalLink opens the billing processor's customer portal.
func (s *Service) PortalLink(ctx context.Context, id uuid.UUID) (*billing.PortalLink, error) {
	if s.provider == nil {
		return nil, ErrNoBillingProvider
	}
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.BillingCustomerRef == "" {
		return nil, ErrMissingSubscription
	}
	return s.provider.CreatePortalLink(ctx, billing.PortalRequest{
		CustomerRef:     o.BillingCustomerRef,
		SubscriptionRef: o.BillingSubscriptionRef,
	})
}

// mutation computes the next state of o. An empty action means nothing changed.
type mutation func(o Organization, now time.Time) (next Organization, action string, opts []audit.EntryOption, err error)

// mutate runs fn on the locked organization and commits the update together
// with exactly one audit entry.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, actor string, fn mutation) (Organization, error) {
	var result Organization
	err := s.store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		cur, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		next, action, opts, err := fn(cur, now)
		if err != nil {
			return err
		}
		if action == "" {
			result = cur
			return nil
		}

		next.UpdatedAt = now
		if err := tx.Update(ctx, next); err != nil {
			return err
		}
		if _, err := s.record(ctx, tx, actor, action, &cur, &next, opts...); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return Organization{}, err
	}
	return result, nil
}

func (s *Service) record(ctx context.Context, tx Tx, actor, action string, before, after *Organization, opts ...audit.EntryOption) (audit.Entry, error) {
	var id uuid.UUID
	var b, a any
	if before != nil {
		id, b = before.ID, before.snapshot()
	}
	if after != nil {
		id, a = after.ID, after.snapshot()
	}
	opts = append(opts, audit.WithOrganization(id))
	return s.trail.In(tx.Audit()).Record(ctx, actor, action,
		audit.Target{Type: TargetType, ID: id.String()}, b, a, opts...)
}

func reasonOpt(reason string) []audit.EntryOption {
	if reason == "" {
		return nil
	}
	return []audit.EntryOption{audit.WithMetadata("reason", reason)}
}
