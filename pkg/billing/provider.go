package billing

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Provider is the boundary to the external billing processor.
// Checkout and portal pages are hosted by the processor.
type Provider interface {
	// CreateCheckoutLink creates a hosted checkout for a plan purchase.
	CreateCheckoutLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error)

	// CreatePortalLink returns a short-lived customer portal URL.
	CreatePortalLink(ctx context.Context, req PortalRequest) (*PortalLink, error)

	// UpdateSubscription moves an existing subscription to another price.
	UpdateSubscription(ctx context.Context, req SubscriptionUpdate) error

	// ParseWebhook verifies the request signature and normalizes the payload.
	// Events the lifecycle does not act on return ErrIgnoredEvent.
	ParseWebhook(r *http.Request) (*Event, error)
}

// CheckoutRequest contains data needed to create a checkout session.
type CheckoutRequest struct {
	PriceRef       string
	OrganizationID uuid.UUID // echoed back in webhook custom data
	Email          string
	SuccessURL     string
}

// CheckoutLink is a hosted checkout session.
type CheckoutLink struct {
	URL       string    `json:"url"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Proration tells the processor when a price change is billed.
type Proration string

const (
	// ProrateNow charges the prorated difference immediately.
	ProrateNow Proration = "prorate_now"
	// NextPeriod bills the new price from the next renewal on.
	NextPeriod Proration = "next_period"
)

// SubscriptionUpdate switches the single item of a subscription to PriceRef.
type SubscriptionUpdate struct {
	SubscriptionRef string
	PriceRef        string
	Proration       Proration
}

// PortalRequest identifies the customer whose portal is opened.
type PortalRequest struct {
	CustomerRef     string
	SubscriptionRef string
}

// PortalLink is a pre-authenticated customer portal session.
type PortalLink struct {
	URL              string    `json:"url"`
	CancelURL        string    `json:"cancel_url,omitempty"`
	UpdatePaymentURL string    `json:"update_payment_url,omitempty"`
	ExpiresAt        time.Time `json:"expires_at"`
}
