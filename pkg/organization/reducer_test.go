package organization_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beautydesk/backoffice/pkg/billing"
	"github.com/beautydesk/backoffice/pkg/organization"
	"github.com/beautydesk/backoffice/pkg/plan"
)

func activeOrg(p plan.ID, periodEnd time.Time) organization.Organization {
	last := t0
	return organization.Organization{
		Status:                 organization.StatusActive,
		Plan:                   p,
		BillingSubscriptionRef: "sub_01",
		BillingCustomerRef:     "ctm_01",
		CurrentPeriodEnd:       &periodEnd,
		LastBillingEventAt:     &last,
	}
}

func TestReduce(t *testing.T) {
	t.Parallel()
	cat := plan.Default()
	periodEnd := t0.AddDate(0, 1, 0)

	t.Run("activation sets plan from price", func(t *testing.T) {
		t.Parallel()
		trialEnd := t0.AddDate(0, 0, 30)
		o := organization.Organization{Status: organization.StatusTrial, Plan: plan.Solo, TrialEndsAt: &trialEnd}

		next, out, err := organization.Reduce(o, billing.Event{
			ID:              "evt_1",
			Kind:            billing.SubscriptionActivated,
			OccurredAt:      t0,
			SubscriptionRef: "sub_01",
			PriceRef:        "pri_duo_monthly",
			PeriodEnd:       &periodEnd,
		}, cat)
		require.NoError(t, err)
		assert.Equal(t, organization.ActionActivated, out.Action)
		assert.Equal(t, organization.StatusActive, next.Status)
		assert.Equal(t, plan.Duo, next.Plan)
		assert.Equal(t, "pri_duo_monthly", next.BillingPriceRef)
		assert.Equal(t, periodEnd, *next.CurrentPeriodEnd)
		assert.Equal(t, t0, *next.ActivatedAt)
		assert.Equal(t, organization.StatusTrial, o.Status, "input must not be modified")
	})

	t.Run("stale event is rejected", func(t *testing.T) {
		t.Parallel()
		o := activeOrg(plan.Solo, periodEnd)

		_, _, err := organization.Reduce(o, billing.Event{
			ID:              "evt_old",
			Kind:            billing.SubscriptionCancelled,
			OccurredAt:      t0.Add(-time.Second),
			SubscriptionRef: "sub_01",
		}, cat)
		assert.ErrorIs(t, err, organization.ErrStaleEvent)
	})

	t.Run("payment failure suspends active subscription", func(t *testing.T) {
		t.Parallel()
		o := activeOrg(plan.Solo, periodEnd)

		next, out, err := organization.Reduce(o, billing.Event{
			ID:              "evt_1",
			Kind:            billing.PaymentFailed,
			OccurredAt:      t0.Add(time.Hour),
			SubscriptionRef: "sub_01",
		}, cat)
		require.NoError(t, err)
		assert.Equal(t, organization.ActionSuspended, out.Action)
		assert.Equal(t, organization.StatusSuspended, next.Status)
		assert.Equal(t, t0.Add(time.Hour), *next.LastBillingEventAt)
	})

	t.Run("events for a replaced subscription are ignored", func(t *testing.T) {
		t.Parallel()
		o := activeOrg(plan.Solo, periodEnd)

		for _, kind := range []billing.EventKind{billing.PaymentFailed, billing.SubscriptionCancelled, billing.PeriodRenewed} {
			next, out, err := organization.Reduce(o, billing.Event{
				ID:              "evt_" + string(kind),
				Kind:            kind,
				OccurredAt:      t0.Add(time.Hour),
				SubscriptionRef: "sub_old",
			}, cat)
			require.NoError(t, err, kind)
			assert.False(t, out.Changed(), kind)
			assert.Equal(t, organization.StatusActive, next.Status, kind)
		}
	})

	t.Run("renewal extends period and applies due downgrade", func(t *testing.T) {
		t.Parallel()
		o := activeOrg(plan.Team, periodEnd)
		pending := plan.Solo
		o.PendingPlan = &pending
		o.PendingPlanAt = &periodEnd

		nextEnd := periodEnd.AddDate(0, 1, 0)
		next, out, err := organization.Reduce(o, billing.Event{
			ID:              "evt_1",
			Kind:            billing.PeriodRenewed,
			OccurredAt:      periodEnd.Add(time.Minute),
			SubscriptionRef: "sub_01",
			PeriodEnd:       &nextEnd,
		}, cat)
		require.NoError(t, err)
		assert.Equal(t, organization.ActionDowngradeApplied, out.Action)
		assert.Equal(t, plan.Solo, next.Plan)
		assert.Nil(t, next.PendingPlan)
		assert.Equal(t, nextEnd, *next.CurrentPeriodEnd)
	})

	t.Run("renewal reactivates suspended subscription", func(t *testing.T) {
		t.Parallel()
		o := activeOrg(plan.Solo, periodEnd)
		o.Status = organization.StatusSuspended

		next, out, err := organization.Reduce(o, billing.Event{
			ID:              "evt_1",
			Kind:            billing.PeriodRenewed,
			OccurredAt:      t0.Add(time.Hour),
			SubscriptionRef: "sub_01",
		}, cat)
		require.NoError(t, err)
		assert.Equal(t, organization.ActionActivated, out.Action)
		assert.Equal(t, organization.StatusActive, next.Status)
	})

	t.Run("plan change from processor", func(t *testing.T) {
		t.Parallel()
		o := activeOrg(plan.Duo, periodEnd)

		next, out, err := organization.Reduce(o, billing.Event{
			ID:              "evt_1",
			Kind:            billing.PlanChanged,
			OccurredAt:      t0.Add(time.Hour),
			SubscriptionRef: "sub_01",
			PriceRef:        "pri_premium_monthly",
		}, cat)
		require.NoError(t, err)
		assert.Equal(t, organization.ActionPlanChanged, out.Action)
		require.NotNil(t, out.PlanChange)
		assert.Equal(t, organization.ChangeUpgrade, out.PlanChange.Kind)
		assert.Equal(t, plan.Premium, next.Plan)

		_, _, err = organization.Reduce(o, billing.Event{
			ID:              "evt_2",
			Kind:            billing.PlanChanged,
			OccurredAt:      t0.Add(time.Hour),
			SubscriptionRef: "sub_01",
			PriceRef:        "pri_unknown",
		}, cat)
		assert.ErrorIs(t, err, organization.ErrUnknownPrice)
	})

	t.Run("update with the known price only moves the period", func(t *testing.T) {
		t.Parallel()
		o := activeOrg(plan.Team, periodEnd)
		o.BillingPriceRef = "pri_duo_monthly"
		renewed := periodEnd.AddDate(0, 1, 0)

		next, out, err := organization.Reduce(o, billing.Event{
			ID:              "evt_1",
			Kind:            billing.PlanChanged,
			OccurredAt:      t0.Add(time.Hour),
			SubscriptionRef: "sub_01",
			PriceRef:        "pri_duo_monthly",
			PeriodEnd:       &renewed,
		}, cat)
		require.NoError(t, err)
		assert.False(t, out.Changed())
		assert.Equal(t, plan.Team, next.Plan)
		assert.Nil(t, next.PendingPlan)
		assert.Equal(t, renewed, *next.CurrentPeriodEnd)
	})

	t.Run("cancelled subscription can be replaced", func(t *testing.T) {
		t.Parallel()
		o := activeOrg(plan.Solo, periodEnd)
		o.Status = organization.StatusCancelled

		next, out, err := organization.Reduce(o, billing.Event{
			ID:              "evt_1",
			Kind:            billing.SubscriptionActivated,
			OccurredAt:      t0.Add(time.Hour),
			SubscriptionRef: "sub_02",
			PriceRef:        "pri_team_monthly",
		}, cat)
		require.NoError(t, err)
		assert.Equal(t, organization.ActionActivated, out.Action)
		assert.Equal(t, organization.StatusActive, next.Status)
		assert.Equal(t, "sub_02", next.BillingSubscriptionRef)
		assert.Equal(t, plan.Team, next.Plan)
		assert.Nil(t, next.CancelledAt)
	})
}
