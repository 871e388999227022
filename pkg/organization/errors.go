package organization

import "errors"

var (
	ErrNotFound            = errors.New("organization: not found")
	ErrSlugTaken           = errors.New("organization: slug already taken")
	ErrInvalidOrganization = errors.New("organization: invalid organization")
	ErrInvalidTransition   = errors.New("organization: invalid status transition")
	ErrSamePlan            = errors.New("organization: organization is already on this plan")
	ErrQuotaExceeded       = errors.New("organization: plan quota exceeded")
	ErrNotActive           = errors.New("organization: organization is not active")
	ErrMissingSubscription = errors.New("organization: billing subscription reference is required")
	ErrNoBillingProvider   = errors.New("organization: billing provider not configured")

	// Billing event outcomes. The webhook handler acknowledges all three.
	ErrStaleEvent          = errors.New("organization: billing event older than last applied event")
	ErrDuplicateEvent      = errors.New("organization: billing event already processed")
	ErrUnknownOrganization = errors.New("organization: billing event matches no organization")
	ErrUnknownPrice        = errors.New("organization: billing price matches no plan")
)
