package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
	"github.com/google/uuid"
)

// Config holds the Paddle credentials.
type Config struct {
	APIKey        string `env:"PADDLE_API_KEY,required"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
	MaxBodyBytes  int64  `env:"PADDLE_WEBHOOK_MAX_BODY" envDefault:"1048576"`
	// BaseURL overrides the API endpoint of the selected environment.
	BaseURL string `env:"PADDLE_BASE_URL"`
}

// customDataOrgKey is the checkout custom data key carrying our organization id.
const customDataOrgKey = "organization_id"

// linkTTL is how long Paddle keeps checkout and portal links valid.
const linkTTL = 24 * time.Hour

type webhookVerifier interface {
	Verify(req *http.Request) (bool, error)
}

// Paddle implements Provider on top of the Paddle Billing API.
type Paddle struct {
	client   *paddle.SDK
	verifier webhookVerifier
	maxBody  int64
	now      func() time.Time
}

// NewPaddle creates a Paddle provider for the configured environment.
func NewPaddle(cfg Config) (*Paddle, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: paddle API key is required", ErrInvalidRequest)
	}
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: paddle webhook secret is required", ErrInvalidRequest)
	}

	var (
		client *paddle.SDK
		err    error
		opts   []paddle.Option
	)
	if cfg.BaseURL != "" {
		opts = append(opts, paddle.WithBaseURL(cfg.BaseURL))
	}
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey, opts...)
	case "production", "":
		client, err = paddle.New(cfg.APIKey, opts...)
	default:
		return nil, fmt.Errorf("%w: unknown paddle environment %q", ErrInvalidRequest, cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	return &Paddle{
		client:   client,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
		maxBody:  maxBody,
		now:      time.Now,
	}, nil
}

// CreateCheckoutLink creates a Paddle transaction and returns its hosted checkout URL.
func (p *Paddle) CreateCheckoutLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error) {
	if req.PriceRef == "" {
		return nil, fmt.Errorf("%w: price ref is required", ErrInvalidRequest)
	}
	if req.OrganizationID == uuid.Nil {
		return nil, fmt.Errorf("%w: organization id is required", ErrInvalidRequest)
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PriceRef,
		Quantity: 1,
	})

	txReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			customDataOrgKey: req.OrganizationID.String(),
		},
	}
	if req.Email != "" {
		txReq.CustomData["email"] = req.Email
	}
	if req.SuccessURL != "" {
		txReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(req.SuccessURL),
		}
	}

	tx, err := p.client.TransactionsClient.CreateTransaction(ctx, txReq)
	if err != nil {
		return nil, errors.Join(ErrProviderFailed, err)
	}
	if tx.Checkout == nil || tx.Checkout.URL == nil || *tx.Checkout.URL == "" {
		return nil, ErrNoRedirectURL
	}

	return &CheckoutLink{
		URL:       *tx.Checkout.URL,
		SessionID: tx.ID,
		ExpiresAt: p.now().Add(linkTTL),
	}, nil
}

// CreatePortalLink opens a Paddle customer portal session.
func (p *Paddle) CreatePortalLink(ctx context.Context, req PortalRequest) (*PortalLink, error) {
	if req.CustomerRef == "" {
		return nil, fmt.Errorf("%w: customer ref is required", ErrInvalidRequest)
	}

	sessionReq := &paddle.CreateCustomerPortalSessionRequest{
		CustomerID: req.CustomerRef,
	}
	if req.SubscriptionRef != "" {
		sessionReq.SubscriptionIDs = []string{req.SubscriptionRef}
	}

	session, err := p.client.CustomerPortalSessionsClient.CreateCustomerPortalSession(ctx, sessionReq)
	if err != nil {
		return nil, errors.Join(ErrProviderFailed, err)
	}

	link := &PortalLink{
		URL:       session.URLs.General.Overview,
		ExpiresAt: p.now().Add(linkTTL),
	}
	for _, sub := range session.URLs.Subscriptions {
		if sub.ID == req.SubscriptionRef {
			link.CancelURL = sub.CancelSubscription
			link.UpdatePaymentURL = sub.UpdateSubscriptionPaymentMethod
			break
		}
	}

	if link.URL == "" {
		return nil, ErrNoRedirectURL
	}
	return link, nil
}

// UpdateSubscription replaces the subscription items with one catalog price.
func (p *Paddle) UpdateSubscription(ctx context.Context, req SubscriptionUpdate) error {
	if req.SubscriptionRef == "" || req.PriceRef == "" {
		return fmt.Errorf("%w: subscription and price refs are required", ErrInvalidRequest)
	}

	mode := paddle.ProrationBillingModeProratedImmediately
	if req.Proration == NextPeriod {
		mode = paddle.ProrationBillingModeFullNextBillingPeriod
	}

	item := paddle.NewUpdateSubscriptionItemsSubscriptionUpdateItemFromCatalog(&paddle.SubscriptionUpdateItemFromCatalog{
		PriceID:  req.PriceRef,
		Quantity: 1,
	})
	_, err := p.client.SubscriptionsClient.UpdateSubscription(ctx, &paddle.UpdateSubscriptionRequest{
		SubscriptionID:       req.SubscriptionRef,
		Items:                paddle.NewPatchField([]paddle.UpdateSubscriptionItems{*item}),
		ProrationBillingMode: paddle.NewPatchField(mode),
	})
	if err != nil {
		return errors.Join(ErrProviderFailed, err)
	}
	return nil
}

// ParseWebhook verifies the Paddle-Signature header and normalizes the event.
func (p *Paddle) ParseWebhook(r *http.Request) (*Event, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, p.maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	valid, err := p.verifier.Verify(r)
	if err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}
	if !valid {
		return nil, ErrInvalidSignature
	}

	return decodePaddleEvent(body)
}

type paddlePeriod struct {
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

type paddleItem struct {
	PriceID string `json:"price_id"`
	Price   *struct {
		ID string `json:"id"`
	} `json:"price"`
}

type paddleEnvelope struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       struct {
		ID                   string         `json:"id"`
		Status               string         `json:"status"`
		Origin               string         `json:"origin"`
		CustomerID           string         `json:"customer_id"`
		SubscriptionID       string         `json:"subscription_id"`
		CustomData           map[string]any `json:"custom_data"`
		Items                []paddleItem   `json:"items"`
		CurrentBillingPeriod *paddlePeriod  `json:"current_billing_period"`
		BillingPeriod        *paddlePeriod  `json:"billing_period"`
	} `json:"data"`
}

// decodePaddleEvent maps a verified Paddle notification onto Event.
func decodePaddleEvent(payload []byte) (*Event, error) {
	var env paddleEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if env.EventID == "" || env.OccurredAt.IsZero() {
		return nil, fmt.Errorf("%w: event id and occurred_at are required", ErrMalformedEvent)
	}

	ev := &Event{
		ID:            env.EventID,
		ProviderEvent: env.EventType,
		OccurredAt:    env.OccurredAt.UTC(),
		CustomerRef:   env.Data.CustomerID,
	}

	var period *paddlePeriod
	switch {
	case strings.HasPrefix(env.EventType, "subscription."):
		ev.SubscriptionRef = env.Data.ID
		period = env.Data.CurrentBillingPeriod
	case strings.HasPrefix(env.EventType, "transaction."):
		ev.SubscriptionRef = env.Data.SubscriptionID
		period = env.Data.BillingPeriod
	}
	if period != nil && !period.EndsAt.IsZero() {
		end := period.EndsAt.UTC()
		ev.PeriodEnd = &end
	}

	if len(env.Data.Items) > 0 {
		item := env.Data.Items[0]
		ev.PriceRef = item.PriceID
		if item.Price != nil && item.Price.ID != "" {
			ev.PriceRef = item.Price.ID
		}
	}

	if raw, ok := env.Data.CustomData[customDataOrgKey].(string); ok {
		if id, err := uuid.Parse(raw); err == nil {
			ev.OrganizationID = &id
		}
	}

	kind, ok := paddleEventKind(env.EventType, env.Data.Status, env.Data.Origin)
	if !ok {
		return ev, fmt.Errorf("%w: %s", ErrIgnoredEvent, env.EventType)
	}
	ev.Kind = kind

	// Every handled kind acts on a subscription.
	if ev.SubscriptionRef == "" {
		return ev, fmt.Errorf("%w: %s without subscription", ErrIgnoredEvent, env.EventType)
	}
	if kind == PlanChanged && ev.PriceRef == "" {
		return ev, fmt.Errorf("%w: %s without price", ErrMalformedEvent, env.EventType)
	}

	return ev, nil
}

func paddleEventKind(eventType, status, origin string) (EventKind, bool) {
	switch eventType {
	case "subscription.activated", "subscription.resumed":
		return SubscriptionActivated, true
	case "subscription.created":
		// trialing subscriptions are activated later
		return SubscriptionActivated, status == "active"
	case "subscription.updated":
		return PlanChanged, true
	case "subscription.past_due", "transaction.payment_failed":
		return PaymentFailed, true
	case "subscription.canceled":
		return SubscriptionCancelled, true
	case "transaction.completed":
		if origin == "subscription_recurring" {
			return PeriodRenewed, true
		}
		return PaymentSucceeded, true
	default:
		return "", false
	}
}
