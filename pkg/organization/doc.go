// Package organization manages the billing lifecycle of tenant organizations.
//
// An organization starts in TRIAL, becomes ACTIVE when its subscription is
// paid, may be SUSPENDED on payment failure and ends CANCELLED. Status is
// driven by administrative operations and by billing events from the payment
// processor; both paths share the same pure transition rules.
//
// Plan changes are asymmetric. Upgrades take effect immediately. Downgrades of
// an ACTIVE organization are scheduled for the end of the paid period and are
// never destructive: resources above the new quota stay in place, only new
// ones are refused.
//
// Billing events are applied exactly once. The event id, the organization
// update and its audit entry commit in a single Store.Atomic call:
//
//	svc := organization.NewService(store, plan.Default(), trail,
//		organization.WithLogger(log),
//	)
//	out, err := svc.ApplyBillingEvent(ctx, *event)
//	if errors.Is(err, organization.ErrDuplicateEvent) {
//		// already applied, acknowledge the webhook
//	}
//
// Every state-changing operation produces exactly one audit entry; operations
// that change nothing produce none.
package organization
