package organization

import (
	"fmt"
	"time"

	"github.com/beautydesk/backoffice/pkg/plan"
)

// ChangeKind classifies the result of a plan change request.
type ChangeKind string

const (
	ChangeUpgrade            ChangeKind = "upgrade"
	ChangeDowngrade          ChangeKind = "downgrade"
	ChangeDowngradeCancelled ChangeKind = "downgrade_cancelled"
)

// PlanChange describes an accepted plan change.
type PlanChange struct {
	From        plan.ID         `json:"from"`
	To          plan.ID         `json:"to"`
	Kind        ChangeKind      `json:"kind"`
	Pending     bool            `json:"pending"`
	EffectiveAt time.Time       `json:"effective_at"`
	OverQuota   []plan.Resource `json:"over_quota,omitempty"`
}

// The functions below are the pure lifecycle rules shared by administrative
// operations and the billing reducer. They return a modified copy and report
// whether anything changed.

func activate(o Organization, subscriptionRef string, periodEnd *time.Time, now time.Time) (Organization, bool, error) {
	if subscriptionRef == "" {
		return o, false, ErrMissingSubscription
	}
	if o.Status == StatusActive && o.BillingSubscriptionRef == subscriptionRef {
		return o, false, nil
	}

	status, err := nextStatus(o.Status, EventActivate)
	if err != nil {
		return o, false, err
	}

	next := o.clone()
	if o.Status != StatusActive {
		next.ActivatedAt = ptr(now)
	}
	next.Status = status
	next.BillingSubscriptionRef = subscriptionRef
	next.SuspendedAt = nil
	next.CancelledAt = nil
	if periodEnd != nil {
		next.CurrentPeriodEnd = ptr(*periodEnd)
	}
	return next, true, nil
}

func suspend(o Organization, now time.Time) (Organization, error) {
	status, err := nextStatus(o.Status, EventSuspend)
	if err != nil {
		return o, err
	}
	next := o.clone()
	next.Status = status
	next.SuspendedAt = ptr(now)
	return next, nil
}

func cancel(o Organization, now time.Time) (Organization, error) {
	status, err := nextStatus(o.Status, EventCancel)
	if err != nil {
		return o, err
	}
	next := o.clone()
	next.Status = status
	next.CancelledAt = ptr(now)
	// a cancelled subscription has nothing left to downgrade
	next.PendingPlan = nil
	next.PendingPlanAt = nil
	return next, nil
}

func changePlan(cat *plan.Catalog, o Organization, target plan.ID, now time.Time) (Organization, PlanChange, error) {
	if _, ok := cat.Lookup(target); !ok {
		return o, PlanChange{}, fmt.Errorf("%w: %q", plan.ErrUnknownPlan, target)
	}
	if _, err := nextStatus(o.Status, EventChangePlan); err != nil {
		return o, PlanChange{}, err
	}

	next := o.clone()

	if target == o.Plan {
		if o.PendingPlan == nil {
			return o, PlanChange{}, ErrSamePlan
		}
		next.PendingPlan = nil
		next.PendingPlanAt = nil
		return next, PlanChange{
			From:        *o.PendingPlan,
			To:          target,
			Kind:        ChangeDowngradeCancelled,
			EffectiveAt: now,
		}, nil
	}
	if o.PendingPlan != nil && *o.PendingPlan == target {
		return o, PlanChange{}, fmt.Errorf("%w: downgrade to %s already scheduled", ErrSamePlan, target)
	}

	cmp, err := cat.Compare(o.Plan, target)
	if err != nil {
		return o, PlanChange{}, err
	}

	change := PlanChange{
		From:        o.Plan,
		To:          target,
		EffectiveAt: now,
		OverQuota:   cat.QuotasFor(target).Exceeded(o.Usage.Map()),
	}

	paidPeriodLeft := o.Status == StatusActive && o.CurrentPeriodEnd != nil && o.CurrentPeriodEnd.After(now)

	switch {
	case cmp.Kind == plan.Upgrade:
		change.Kind = ChangeUpgrade
		next.Plan = target
		next.PendingPlan = nil
		next.PendingPlanAt = nil
	case paidPeriodLeft:
		change.Kind = ChangeDowngrade
		change.Pending = true
		change.EffectiveAt = *o.CurrentPeriodEnd
		next.PendingPlan = ptr(target)
		next.PendingPlanAt = ptr(*o.CurrentPeriodEnd)
	default:
		change.Kind = ChangeDowngrade
		next.Plan = target
		next.PendingPlan = nil
		next.PendingPlanAt = nil
	}

	return next, change, nil
}

// applyDueDowngrade promotes a pending plan once its effective time has passed.
func applyDueDowngrade(o Organization, now time.Time) (Organization, bool) {
	if o.PendingPlan == nil || o.PendingPlanAt == nil || now.Before(*o.PendingPlanAt) {
		return o, false
	}
	next := o.clone()
	next.Plan = *o.PendingPlan
	next.PendingPlan = nil
	next.PendingPlanAt = nil
	return next, true
}
