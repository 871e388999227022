package organization

import (
	"fmt"
	"time"

	"github.com/beautydesk/backoffice/pkg/billing"
	"github.com/beautydesk/backoffice/pkg/plan"
)

// Outcome describes what a billing event did to an organization.
// Action is empty when the event left the billing state unchanged.
type Outcome struct {
	Action     string
	PlanChange *PlanChange
}

// Changed reports whether the event produced an auditable change.
func (o Outcome) Changed() bool { return o.Action != "" }

// Reduce applies a billing event to an organization. It is pure: the result
// depends only on its arguments. Events older than the last applied event
// return ErrStaleEvent, so redelivered or reordered events never regress
// status. LastBillingEventAt advances for every accepted event, including
// those without effect.
func Reduce(o Organization, ev billing.Event, cat *plan.Catalog) (Organization, Outcome, error) {
	if o.LastBillingEventAt != nil && ev.OccurredAt.Before(*o.LastBillingEventAt) {
		return o, Outcome{}, fmt.Errorf("%w: %s at %s, last applied %s",
			ErrStaleEvent, ev.ID, ev.OccurredAt.Format(time.RFC3339), o.LastBillingEventAt.Format(time.RFC3339))
	}

	next, out, err := reduce(o, ev, cat)
	if err != nil {
		return o, Outcome{}, err
	}

	next = next.clone()
	next.LastBillingEventAt = ptr(ev.OccurredAt)
	if next.BillingCustomerRef == "" && ev.CustomerRef != "" {
		next.BillingCustomerRef = ev.CustomerRef
	}
	return next, out, nil
}

func reduce(o Organization, ev billing.Event, cat *plan.Catalog) (Organization, Outcome, error) {
	at := ev.OccurredAt
	foreign := o.BillingSubscriptionRef != "" && ev.SubscriptionRef != o.BillingSubscriptionRef

	switch ev.Kind {
	case billing.SubscriptionActivated, billing.PaymentSucceeded:
		return reduceActivation(o, ev, cat, ActionActivated)

	case billing.PaymentFailed:
		if o.Status != StatusActive || foreign {
			return o, Outcome{}, nil
		}
		next, err := suspend(o, at)
		if err != nil {
			return o, Outcome{}, err
		}
		return next, Outcome{Action: ActionSuspended}, nil

	case billing.SubscriptionCancelled:
		if o.Status == StatusCancelled || foreign {
			return o, Outcome{}, nil
		}
		next, err := cancel(o, at)
		if err != nil {
			return o, Outcome{}, err
		}
		return next, Outcome{Action: ActionCancelled}, nil

	case billing.PeriodRenewed:
		if o.Status != StatusActive {
			// a successful renewal charge reactivates a suspended subscription
			return reduceActivation(o, ev, cat, ActionActivated)
		}
		if foreign {
			return o, Outcome{}, nil
		}
		next := o.clone()
		if ev.PeriodEnd != nil && (o.CurrentPeriodEnd == nil || ev.PeriodEnd.After(*o.CurrentPeriodEnd)) {
			next.CurrentPeriodEnd = ptr(*ev.PeriodEnd)
		}
		next, applied := applyDueDowngrade(next, at)
		if !applied && equalTime(next.CurrentPeriodEnd, o.CurrentPeriodEnd) {
			return o, Outcome{}, nil
		}
		action := ActionPeriodRenewed
		if applied {
			action = ActionDowngradeApplied
		}
		return next, Outcome{Action: action}, nil

	case billing.PlanChanged:
		if foreign || !CanTransition(o.Status, EventChangePlan) {
			return o, Outcome{}, nil
		}
		// Updates that keep the known price (renewals, payment method
		// changes) carry no plan decision.
		priceMoved := ev.PriceRef != o.BillingPriceRef
		target, ok := cat.ByPriceRef(ev.PriceRef)
		if priceMoved && !ok {
			return o, Outcome{}, fmt.Errorf("%w: %q", ErrUnknownPrice, ev.PriceRef)
		}
		o = o.clone()
		o.BillingPriceRef = ev.PriceRef
		if ev.PeriodEnd != nil {
			o.CurrentPeriodEnd = ptr(*ev.PeriodEnd)
		}
		if !priceMoved {
			return o, Outcome{}, nil
		}
		if target == o.Plan && o.PendingPlan == nil {
			return o, Outcome{}, nil
		}
		if o.PendingPlan != nil && target == *o.PendingPlan {
			return o, Outcome{}, nil
		}
		next, change, err := changePlan(cat, o, target, at)
		if err != nil {
			return o, Outcome{}, err
		}
		return next, Outcome{Action: planChangeAction(change), PlanChange: &change}, nil

	default:
		return o, Outcome{}, fmt.Errorf("%w: unsupported event kind %q", ErrInvalidTransition, ev.Kind)
	}
}

// reduceActivation handles every event that means "the subscription is paid".
func reduceActivation(o Organization, ev billing.Event, cat *plan.Catalog, action string) (Organization, Outcome, error) {
	if o.Status == StatusActive && o.BillingSubscriptionRef == ev.SubscriptionRef {
		// redelivery or plain payment: only the period may move
		if ev.PeriodEnd != nil && (o.CurrentPeriodEnd == nil || ev.PeriodEnd.After(*o.CurrentPeriodEnd)) {
			next := o.clone()
			next.CurrentPeriodEnd = ptr(*ev.PeriodEnd)
			return next, Outcome{}, nil
		}
		return o, Outcome{}, nil
	}

	next, changed, err := activate(o, ev.SubscriptionRef, ev.PeriodEnd, ev.OccurredAt)
	if err != nil {
		return o, Outcome{}, err
	}
	if changed && ev.PriceRef != "" {
		next.BillingPriceRef = ev.PriceRef
	}

	// A new subscription defines the plan outright; no downgrade deferral applies.
	if id, ok := cat.ByPriceRef(ev.PriceRef); ok && id != next.Plan {
		next.Plan = id
		next.PendingPlan = nil
		next.PendingPlanAt = nil
		changed = true
	}

	if !changed {
		return o, Outcome{}, nil
	}
	return next, Outcome{Action: action}, nil
}

func planChangeAction(c PlanChange) string {
	switch {
	case c.Kind == ChangeDowngradeCancelled:
		return ActionDowngradeCancelled
	case c.Pending:
		return ActionDowngradeScheduled
	default:
		return ActionPlanChanged
	}
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
