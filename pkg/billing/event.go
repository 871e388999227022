package billing

import (
	"time"

	"github.com/google/uuid"
)

// EventKind is the normalized type of an inbound billing event.
type EventKind string

const (
	SubscriptionActivated EventKind = "subscription_activated"
	PaymentSucceeded      EventKind = "payment_succeeded"
	PaymentFailed         EventKind = "payment_failed"
	SubscriptionCancelled EventKind = "subscription_cancelled"
	PeriodRenewed         EventKind = "period_renewed"
	PlanChanged           EventKind = "plan_changed"
)

// Event is a provider webhook normalized for the organization lifecycle.
// ID is the provider's own event identifier and serves as the idempotency key.
type Event struct {
	ID              string
	Kind            EventKind
	ProviderEvent   string
	OccurredAt      time.Time
	OrganizationID  *uuid.UUID // from checkout custom data, when present
	CustomerRef     string
	SubscriptionRef string
	PriceRef        string
	PeriodEnd       *time.Time
}
