package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/beautydesk/backoffice/pkg/archive"
	"github.com/beautydesk/backoffice/pkg/audit"
	"github.com/beautydesk/backoffice/pkg/billing"
	"github.com/beautydesk/backoffice/pkg/notify"
	"github.com/beautydesk/backoffice/pkg/organization"
	"github.com/beautydesk/backoffice/pkg/plan"
	"github.com/beautydesk/backoffice/pkg/sweep"
	"github.com/beautydesk/backoffice/pkg/trigger"
	"github.com/beautydesk/backoffice/svc/api"
)

const (
	adminToken  = "admin-token"
	sweepSecret = "sweep-secret"
	adminActor  = "claire@beautydesk.io"
	signedOK    = "valid"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// fakeProvider accepts webhook bodies that are JSON-encoded billing.Event
// values signed with the X-Test-Signature header.
type fakeProvider struct{}

func (fakeProvider) CreateCheckoutLink(_ context.Context, req billing.CheckoutRequest) (*billing.CheckoutLink, error) {
	return &billing.CheckoutLink{URL: "https://pay.example.com/" + req.PriceRef, SessionID: "txn_1"}, nil
}

func (fakeProvider) CreatePortalLink(_ context.Context, req billing.PortalRequest) (*billing.PortalLink, error) {
	return &billing.PortalLink{URL: "https://portal.example.com/" + req.CustomerRef}, nil
}

func (fakeProvider) UpdateSubscription(context.Context, billing.SubscriptionUpdate) error {
	return nil
}

func (fakeProvider) ParseWebhook(r *http.Request) (*billing.Event, error) {
	if r.Header.Get("X-Test-Signature") != signedOK {
		return nil, billing.ErrInvalidSignature
	}
	var ev billing.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		return nil, errors.Join(billing.ErrMalformedEvent, err)
	}
	if ev.Kind == "" {
		return nil, billing.ErrIgnoredEvent
	}
	return &ev, nil
}

type fakeSweeper struct {
	mu    sync.Mutex
	calls int
}

func (s *fakeSweeper) Run(_ context.Context, now time.Time) (sweep.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return sweep.Report{StartedAt: now, Organizations: 3, Sent: 2}, nil
}

type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) Export(ctx context.Context, criteria audit.Criteria) (archive.Object, error) {
	args := m.Called(ctx, criteria)
	return args.Get(0).(archive.Object), args.Error(1)
}

func (m *MockArchiver) List(ctx context.Context, limit int) ([]archive.Object, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]archive.Object), args.Error(1)
}

type mailbox struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (m *mailbox) Deliver(_ context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mailbox) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// auditStorage refuses writes while down is set.
type auditStorage struct {
	*audit.MemoryStorage
	down atomic.Bool
}

func (s *auditStorage) Append(ctx context.Context, e audit.Entry) error {
	if s.down.Load() {
		return errors.New("audit database unavailable")
	}
	return s.MemoryStorage.Append(ctx, e)
}

type fixture struct {
	orgs     *organization.Service
	audit    *auditStorage
	mailbox  *mailbox
	sweeper  *fakeSweeper
	archiver *MockArchiver
	handler  http.Handler
}

type fixtureOption func(*api.Deps)

func withoutArchiver() fixtureOption {
	return func(d *api.Deps) { d.Archiver = nil }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	now := func() time.Time { return t0 }
	storage := &auditStorage{MemoryStorage: audit.NewMemoryStorage()}
	trail := audit.NewTrail(storage, audit.WithClock(now))
	orgs := organization.NewService(organization.NewMemoryStore(storage), plan.Default(), trail,
		organization.WithClock(now),
		organization.WithBillingProvider(fakeProvider{}),
	)

	box := &mailbox{}
	dispatcher := notify.NewDispatcher(trigger.NewMemoryStore(), notify.MustNewTemplates(notify.DefaultTemplates()), trail,
		notify.WithTransport(notify.ChannelEmail, box),
		notify.WithClock(now),
	)

	f := &fixture{
		orgs:     orgs,
		audit:    storage,
		mailbox:  box,
		sweeper:  &fakeSweeper{},
		archiver: &MockArchiver{},
	}
	deps := api.Deps{
		Organizations: orgs,
		Dispatcher:    dispatcher,
		Audit:         audit.NewReader(storage),
		Billing:       fakeProvider{},
		Sweeper:       f.sweeper,
		Archiver:      f.archiver,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	srv := api.New(api.Config{
		AdminToken:         adminToken,
		SweepSecret:        sweepSecret,
		CheckoutSuccessURL: "https://app.example.com/billing/success",
	}, deps,
		api.WithClock(now),
		api.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	f.handler = srv.Handler()
	return f
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) admin(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, encode(t, body))
	req.Header.Set("Authorization", "Bearer "+adminToken)
	req.Header.Set(api.HeaderAdminActor, adminActor)
	return f.do(t, req)
}

func (f *fixture) webhook(t *testing.T, ev billing.Event) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", encode(t, ev))
	req.Header.Set("X-Test-Signature", signedOK)
	return f.do(t, req)
}

func (f *fixture) create(t *testing.T, name string) organization.Organization {
	t.Helper()
	o, err := f.orgs.StartTrial(context.Background(), organization.NewOrganization{
		Name:         name,
		ContactEmail: "owner@example.com",
		Plan:         plan.Solo,
	}, "signup")
	require.NoError(t, err)
	return o
}

func encode(t *testing.T, body any) io.Reader {
	t.Helper()
	if body == nil {
		return http.NoBody
	}
	if s, ok := body.(string); ok {
		return strings.NewReader(s)
	}
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type orgResponse struct {
	ID            uuid.UUID           `json:"id"`
	Status        organization.Status `json:"status"`
	Plan          plan.ID             `json:"plan"`
	EffectivePlan plan.ID             `json:"effective_plan"`
	TrialDaysLeft int                 `json:"trial_days_left"`
	AllowedEvents []string            `json:"allowed_events"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func TestHealth(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminAuth(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + adminToken, http.StatusUnauthorized},
		{"valid token", "Bearer " + adminToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/admin/plans", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := f.do(t, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAdminOrganizations(t *testing.T) {
	t.Parallel()

	t.Run("create starts a trial", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.admin(t, http.MethodPost, "/admin/organizations/", map[string]any{
			"name":          "Institut Rose",
			"contact_email": "rose@example.com",
			"plan":          "DUO",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		o := decode[orgResponse](t, rec)
		assert.Equal(t, organization.StatusTrial, o.Status)
		assert.Equal(t, plan.Duo, o.Plan)
		assert.Equal(t, organization.DefaultTrialDays, o.TrialDaysLeft)

		entries := f.audit.Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, adminActor, entries[0].Actor)
		assert.Equal(t, organization.ActionCreated, entries[0].Action)
		assert.Equal(t, "192.0.2.1", entries[0].IP)
		assert.NotEmpty(t, entries[0].RequestID)
	})

	t.Run("create rejects invalid input", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.admin(t, http.MethodPost, "/admin/organizations/", map[string]any{"contact_email": "rose@example.com"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = f.admin(t, http.MethodPost, "/admin/organizations/", map[string]any{"name": "Rose", "colour": "pink"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = f.admin(t, http.MethodPost, "/admin/organizations/", map[string]any{
			"name": "Rose", "contact_email": "rose@example.com", "plan": "GOLD",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate slug conflicts", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.create(t, "Institut Rose")

		rec := f.admin(t, http.MethodPost, "/admin/organizations/", map[string]any{
			"name": "Institut Rose", "contact_email": "other@example.com",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("get", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		o := f.create(t, "Institut Rose")

		rec := f.admin(t, http.MethodGet, "/admin/organizations/"+o.ID.String()+"/", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[orgResponse](t, rec)
		assert.Equal(t, o.ID, got.ID)
		assert.Equal(t, plan.Solo, got.EffectivePlan)
		assert.ElementsMatch(t, []string{"activate", "suspend", "cancel", "change_plan"}, got.AllowedEvents)

		rec = f.admin(t, http.MethodGet, "/admin/organizations/"+uuid.NewString()+"/", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = f.admin(t, http.MethodGet, "/admin/organizations/not-a-uuid/", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list pages by id", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.create(t, "Institut Rose")
		f.create(t, "Institut Lilas")
		f.create(t, "Institut Jasmin")

		rec := f.admin(t, http.MethodGet, "/admin/organizations/?limit=2", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		first := decode[struct {
			Organizations []orgResponse `json:"organizations"`
			NextAfter     *uuid.UUID    `json:"next_after"`
		}](t, rec)
		require.Len(t, first.Organizations, 2)
		require.NotNil(t, first.NextAfter)

		rec = f.admin(t, http.MethodGet, "/admin/organizations/?limit=2&after="+first.NextAfter.String(), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		second := decode[struct {
			Organizations []orgResponse `json:"organizations"`
			NextAfter     *uuid.UUID    `json:"next_after"`
		}](t, rec)
		assert.Len(t, second.Organizations, 1)
		assert.Nil(t, second.NextAfter)

		rec = f.admin(t, http.MethodGet, "/admin/organizations/?limit=abc", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("plan change", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		o := f.create(t, "Institut Rose")
		path := "/admin/organizations/" + o.ID.String() + "/plan"

		rec := f.admin(t, http.MethodPost, path, map[string]any{"plan": "SOLO"})
		assert.Equal(t, http.StatusConflict, rec.Code)

		rec = f.admin(t, http.MethodPost, path, map[string]any{"plan": "TEAM"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[struct {
			Organization orgResponse             `json:"organization"`
			Change       organization.PlanChange `json:"change"`
		}](t, rec)
		assert.Equal(t, plan.Team, resp.Organization.Plan)
		assert.Equal(t, organization.ChangeUpgrade, resp.Change.Kind)
		assert.False(t, resp.Change.Pending)
	})

	t.Run("cancel then suspend conflicts", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		o := f.create(t, "Institut Rose")
		base := "/admin/organizations/" + o.ID.String()

		rec := f.admin(t, http.MethodPost, base+"/cancel", map[string]any{"reason": "closing the salon"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, organization.StatusCancelled, decode[orgResponse](t, rec).Status)

		rec = f.admin(t, http.MethodPost, base+"/suspend", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "conflict", decode[errorResponse](t, rec).Code)

		entries := f.audit.Entries()
		last := entries[len(entries)-1]
		assert.Equal(t, organization.ActionCancelled, last.Action)
		assert.Equal(t, "closing the salon", last.Metadata["reason"])
	})

	t.Run("suspend with empty body", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		o := f.create(t, "Institut Rose")

		rec := f.admin(t, http.MethodPost, "/admin/organizations/"+o.ID.String()+"/suspend", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, organization.StatusSuspended, decode[orgResponse](t, rec).Status)
	})

	t.Run("activate", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		o := f.create(t, "Institut Rose")
		path := "/admin/organizations/" + o.ID.String() + "/activate"

		rec := f.admin(t, http.MethodPost, path, map[string]any{})
		assert.Equal(t, http.StatusConflict, rec.Code)

		rec = f.admin(t, http.MethodPost, path, map[string]any{
			"subscription_ref": "sub_123",
			"period_end":       t0.AddDate(0, 1, 0),
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, organization.StatusActive, decode[orgResponse](t, rec).Status)
	})
}

func TestAdminEntitlements(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	o := f.create(t, "Institut Rose")
	base := "/admin/organizations/" + o.ID.String()

	rec := f.admin(t, http.MethodGet, base+"/quotas/locations", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.admin(t, http.MethodPut, base+"/usage", map[string]any{"locations": 1, "users": 1, "storage_gb": 2})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.admin(t, http.MethodGet, base+"/quotas/locations", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.admin(t, http.MethodGet, base+"/quotas/chairs", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.admin(t, http.MethodGet, base+"/features/crm", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["enabled"])

	rec = f.admin(t, http.MethodGet, base+"/features/shop", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["enabled"])

	rec = f.admin(t, http.MethodPost, base+"/logins", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	got, err := f.orgs.Get(context.Background(), o.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, got.LastLoginAt.Equal(t0))
}

func TestBillingWebhook(t *testing.T) {
	t.Parallel()

	activation := func(org uuid.UUID) billing.Event {
		return billing.Event{
			ID:              "evt_1",
			Kind:            billing.SubscriptionActivated,
			ProviderEvent:   "subscription.activated",
			OccurredAt:      t0.Add(time.Hour),
			OrganizationID:  &org,
			CustomerRef:     "ctm_1",
			SubscriptionRef: "sub_1",
			PriceRef:        "pri_duo_monthly",
		}
	}

	t.Run("rejects bad signature", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", strings.NewReader("{}"))
		rec := f.do(t, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed payload", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", strings.NewReader("{"))
		req.Header.Set("X-Test-Signature", signedOK)
		assert.Equal(t, http.StatusBadRequest, f.do(t, req).Code)
	})

	t.Run("acknowledges ignored events", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.webhook(t, billing.Event{ID: "evt_0"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ignored", decode[map[string]string](t, rec)["status"])
	})

	t.Run("applies activation once", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		o := f.create(t, "Institut Rose")

		rec := f.webhook(t, activation(o.ID))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decode[map[string]string](t, rec)
		assert.Equal(t, "applied", body["status"])
		assert.Equal(t, organization.ActionActivated, body["action"])

		got, err := f.orgs.Get(context.Background(), o.ID)
		require.NoError(t, err)
		assert.Equal(t, organization.StatusActive, got.Status)
		assert.Equal(t, plan.Duo, got.Plan)
		assert.Equal(t, "ctm_1", got.BillingCustomerRef)

		rec = f.webhook(t, activation(o.ID))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "duplicate", decode[map[string]string](t, rec)["status"])

		entries := f.audit.Entries()
		assert.Len(t, entries, 2)
		assert.Equal(t, audit.ActorBilling, entries[1].Actor)
	})

	t.Run("stale event", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		o := f.create(t, "Institut Rose")
		require.Equal(t, http.StatusOK, f.webhook(t, activation(o.ID)).Code)

		old := activation(o.ID)
		old.ID = "evt_old"
		old.Kind = billing.PaymentFailed
		old.OccurredAt = t0
		rec := f.webhook(t, old)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "stale", decode[map[string]string](t, rec)["status"])

		got, err := f.orgs.Get(context.Background(), o.ID)
		require.NoError(t, err)
		assert.Equal(t, organization.StatusActive, got.Status)
	})

	t.Run("unknown organization is acknowledged", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.webhook(t, activation(uuid.New()))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "unknown_organization", decode[map[string]string](t, rec)["status"])
	})

	t.Run("unknown price is retried", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		o := f.create(t, "Institut Rose")
		require.Equal(t, http.StatusOK, f.webhook(t, activation(o.ID)).Code)

		change := activation(o.ID)
		change.ID = "evt_2"
		change.Kind = billing.PlanChanged
		change.OccurredAt = t0.Add(2 * time.Hour)
		change.PriceRef = "pri_unknown"
		rec := f.webhook(t, change)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		// nothing was recorded, so a redelivery is processed again
		rec = f.webhook(t, change)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestSweepEndpoint(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/internal/sweep", nil)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/internal/sweep", nil)
	req.Header.Set(api.HeaderSweepSecret, "guess")
	assert.Equal(t, http.StatusUnauthorized, f.do(t, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/internal/sweep", nil)
	req.Header.Set(api.HeaderSweepSecret, sweepSecret)
	rec := f.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rep := decode[sweep.Report](t, rec)
	assert.Equal(t, 2, rep.Sent)
	assert.True(t, rep.StartedAt.Equal(t0))
	assert.Equal(t, 1, f.sweeper.calls)
}

func TestTriggerRoutes(t *testing.T) {
	t.Parallel()

	t.Run("list definitions", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.admin(t, http.MethodGet, "/admin/triggers", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		defs := decode[[]trigger.Definition](t, rec)
		assert.Len(t, defs, len(trigger.Keys()))
	})

	t.Run("preview", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		o := f.create(t, "Institut Rose")

		rec := f.admin(t, http.MethodGet, "/admin/organizations/"+o.ID.String()+"/triggers/ONBOARDING_DAY_1/preview", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decode[map[string]string](t, rec)
		assert.Equal(t, string(notify.ChannelEmail), body["channel"])
		assert.NotEmpty(t, body["subject"])
		assert.Zero(t, f.mailbox.len())
	})

	t.Run("resend delivers and audits", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		o := f.create(t, "Institut Rose")
		path := "/admin/organizations/" + o.ID.String() + "/triggers/ONBOARDING_DAY_1/resend"

		rec := f.admin(t, http.MethodPost, path, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "sent", decode[map[string]any](t, rec)["status"])

		rec = f.admin(t, http.MethodPost, path, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 2, f.mailbox.len())

		entries := f.audit.Entries()
		last := entries[len(entries)-1]
		assert.Equal(t, notify.ActionResent, last.Action)
		assert.Equal(t, adminActor, last.Actor)
	})

	t.Run("resend without an audit entry fails and sends nothing", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		o := f.create(t, "Institut Rose")
		f.audit.down.Store(true)

		rec := f.admin(t, http.MethodPost, "/admin/organizations/"+o.ID.String()+"/triggers/ONBOARDING_DAY_1/resend", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Zero(t, f.mailbox.len())
	})

	t.Run("unknown key", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		o := f.create(t, "Institut Rose")

		rec := f.admin(t, http.MethodPost, "/admin/organizations/"+o.ID.String()+"/triggers/BIRTHDAY/resend", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBillingLinks(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	o := f.create(t, "Institut Rose")
	base := "/admin/organizations/" + o.ID.String()

	rec := f.admin(t, http.MethodGet, base+"/checkout?plan=DUO", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "https://pay.example.com/pri_duo_monthly", decode[billing.CheckoutLink](t, rec).URL)

	rec = f.admin(t, http.MethodGet, base+"/checkout", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.admin(t, http.MethodGet, base+"/checkout?plan=GOLD", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.admin(t, http.MethodGet, base+"/portal", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuditRoutes(t *testing.T) {
	t.Parallel()

	t.Run("filtered page", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rose := f.create(t, "Institut Rose")
		f.create(t, "Institut Lilas")

		rec := f.admin(t, http.MethodGet, "/admin/audit?organization_id="+rose.ID.String(), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		page := decode[audit.Page](t, rec)
		assert.EqualValues(t, 1, page.Total)
		require.Len(t, page.Entries, 1)
		assert.Equal(t, rose.ID.String(), page.Entries[0].TargetID)

		rec = f.admin(t, http.MethodGet, "/admin/audit?action="+organization.ActionCreated+"&limit=1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		page = decode[audit.Page](t, rec)
		assert.EqualValues(t, 2, page.Total)
		assert.Len(t, page.Entries, 1)
	})

	t.Run("invalid filters", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		for _, q := range []string{"from=yesterday", "organization_id=42", "offset=-1", "from=2025-03-02T00:00:00Z&to=2025-03-01T00:00:00Z"} {
			rec := f.admin(t, http.MethodGet, "/admin/audit?"+q, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		}
	})

	t.Run("csv export", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.create(t, "Institut Rose")

		rec := f.admin(t, http.MethodGet, "/admin/audit.csv", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

		lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "id,created_at,actor,action"))
	})

	t.Run("archive", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		obj := archive.Object{Key: "audit-exports/2025/03/01/audit-all-090000.csv", Size: 120, Rows: 1, CreatedAt: t0}
		f.archiver.On("Export", mock.Anything, mock.MatchedBy(func(c audit.Criteria) bool {
			return c.Action == organization.ActionCreated
		})).Return(obj, nil).Once()
		f.archiver.On("List", mock.Anything, 10).Return([]archive.Object{obj}, nil).Once()

		rec := f.admin(t, http.MethodPost, "/admin/audit/archives?action="+organization.ActionCreated, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, obj.Key, decode[archive.Object](t, rec).Key)

		rec = f.admin(t, http.MethodGet, "/admin/audit/archives?limit=10", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]archive.Object](t, rec), 1)

		f.archiver.AssertExpectations(t)
	})

	t.Run("archive upload failure", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.archiver.On("Export", mock.Anything, mock.Anything).
			Return(archive.Object{}, errors.Join(archive.ErrUploadFailed, errors.New("AccessDenied"))).Once()

		rec := f.admin(t, http.MethodPost, "/admin/audit/archives", nil)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("archive not configured", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, withoutArchiver())

		rec := f.admin(t, http.MethodPost, "/admin/audit/archives", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestForwardedClientIP(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/organizations/", encode(t, map[string]any{
		"name": "Institut Rose", "contact_email": "rose@example.com",
	}))
	req.Header.Set("Authorization", "Bearer "+adminToken)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	rec := f.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	entries := f.audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "203.0.113.9", entries[0].IP)
	assert.Equal(t, "admin", entries[0].Actor)
}
