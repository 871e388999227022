package organization

import (
	"time"

	"github.com/google/uuid"

	"github.com/beautydesk/backoffice/pkg/plan"
)

// Status is the billing status of an organization.
type Status string

const (
	StatusTrial     Status = "TRIAL"
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusCancelled Status = "CANCELLED"
)

// Name implements statemachine.State.
func (s Status) Name() string { return string(s) }

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusTrial, StatusActive, StatusSuspended, StatusCancelled:
		return true
	}
	return false
}

// Entitled reports whether paid capabilities are available in this status.
func (s Status) Entitled() bool {
	return s == StatusTrial || s == StatusActive
}

// Usage is the current resource consumption of an organization.
type Usage struct {
	Locations int64 `json:"locations"`
	Users     int64 `json:"users"`
	StorageGB int64 `json:"storage_gb"`
}

// Map returns usage keyed by plan resource.
func (u Usage) Map() map[plan.Resource]int64 {
	return map[plan.Resource]int64{
		plan.ResourceLocations: u.Locations,
		plan.ResourceUsers:     u.Users,
		plan.ResourceStorageGB: u.StorageGB,
	}
}

// Organization is the tenant root entity. It is never deleted; cancellation
// is a status change.
type Organization struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	ContactEmail   string    `json:"contact_email"`
	ContactPhone   string    `json:"contact_phone,omitempty"`
	ChatWebhookURL string    `json:"chat_webhook_url,omitempty"`

	Status        Status     `json:"status"`
	Plan          plan.ID    `json:"plan"`
	PendingPlan   *plan.ID   `json:"pending_plan,omitempty"`
	PendingPlanAt *time.Time `json:"pending_plan_at,omitempty"`

	// TrialEndsAt is authoritative only while Status is TRIAL.
	TrialEndsAt      *time.Time `json:"trial_ends_at,omitempty"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`

	BillingCustomerRef     string `json:"billing_customer_ref,omitempty"`
	BillingSubscriptionRef string `json:"billing_subscription_ref,omitempty"`
	// BillingPriceRef is the price the processor last reported, or was last
	// told, for the subscription.
	BillingPriceRef string `json:"billing_price_ref,omitempty"`

	// ActivatedAt is the start of the current continuous ACTIVE stretch.
	ActivatedAt        *time.Time `json:"activated_at,omitempty"`
	SuspendedAt        *time.Time `json:"suspended_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	LastBillingEventAt *time.Time `json:"last_billing_event_at,omitempty"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty"`

	Usage Usage `json:"usage"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EffectivePlan returns the plan whose quotas and features apply at now.
// A pending downgrade takes over once its effective time is reached.
func (o Organization) EffectivePlan(now time.Time) plan.ID {
	if o.PendingPlan != nil && o.PendingPlanAt != nil && !now.Before(*o.PendingPlanAt) {
		return *o.PendingPlan
	}
	return o.Plan
}

// TrialDaysLeft returns the whole days until the trial ends, rounded up, or 0
// when not in trial.
func (o Organization) TrialDaysLeft(now time.Time) int {
	if o.Status != StatusTrial || o.TrialEndsAt == nil || !o.TrialEndsAt.After(now) {
		return 0
	}
	left := o.TrialEndsAt.Sub(now)
	days := int(left / (24 * time.Hour))
	if left%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// clone deep-copies pointer fields so mutations never leak into stored values.
func (o Organization) clone() Organization {
	o.PendingPlan = clonePtr(o.PendingPlan)
	o.PendingPlanAt = clonePtr(o.PendingPlanAt)
	o.TrialEndsAt = clonePtr(o.TrialEndsAt)
	o.CurrentPeriodEnd = clonePtr(o.CurrentPeriodEnd)
	o.ActivatedAt = clonePtr(o.ActivatedAt)
	o.SuspendedAt = clonePtr(o.SuspendedAt)
	o.CancelledAt = clonePtr(o.CancelledAt)
	o.LastBillingEventAt = clonePtr(o.LastBillingEventAt)
	o.LastLoginAt = clonePtr(o.LastLoginAt)
	return o
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func ptr[T any](v T) *T { return &v }

// NewOrganization holds the signup data for StartTrial.
type NewOrganization struct {
	Name           string
	Slug           string
	ContactEmail   string
	ContactPhone   string
	ChatWebhookURL string
	Plan           plan.ID // defaults to SOLO
}

// snapshot is the audited view of an organization's billing state.
type snapshot struct {
	Status           Status     `json:"status"`
	Plan             plan.ID    `json:"plan"`
	PendingPlan      *plan.ID   `json:"pending_plan,omitempty"`
	PendingPlanAt    *time.Time `json:"pending_plan_at,omitempty"`
	SubscriptionRef  string     `json:"subscription_ref,omitempty"`
	PriceRef         string     `json:"price_ref,omitempty"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	TrialEndsAt      *time.Time `json:"trial_ends_at,omitempty"`
}

func (o Organization) snapshot() snapshot {
	return snapshot{
		Status:           o.Status,
		Plan:             o.Plan,
		PendingPlan:      o.PendingPlan,
		PendingPlanAt:    o.PendingPlanAt,
		SubscriptionRef:  o.BillingSubscriptionRef,
		PriceRef:         o.BillingPriceRef,
		CurrentPeriodEnd: o.CurrentPeriodEnd,
		TrialEndsAt:      o.TrialEndsAt,
	}
}
