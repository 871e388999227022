package notify_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beautydesk/backoffice/pkg/audit"
	"github.com/beautydesk/backoffice/pkg/notify"
	"github.com/beautydesk/backoffice/pkg/plan"
	"github.com/beautydesk/backoffice/pkg/trigger"
)

var now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type recordingTransport struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (r *recordingTransport) Deliver(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingTransport) sent() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.msgs...)
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
	dispatcher *notify.Dispatcher
	firings    *trigger.MemoryStore
	audit      *auditStorage
	email      *recordingTransport
	sms        *recordingTransport
	chat       *recordingTransport
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		firings: trigger.NewMemoryStore(),
		audit:   &auditStorage{MemoryStorage: audit.NewMemoryStorage()},
		email:   &recordingTransport{},
		sms:     &recordingTransport{},
		chat:    &recordingTransport{},
	}
	f.dispatcher = notify.NewDispatcher(f.firings,
		notify.MustNewTemplates(notify.DefaultTemplates()),
		audit.NewTrail(f.audit),
		notify.WithTransport(notify.ChannelEmail, f.email),
		notify.WithTransport(notify.ChannelSMS, f.sms),
		notify.WithTransport(notify.ChannelChat, f.chat),
		notify.WithLinks("https://app.example.test", "support@example.test"),
		notify.WithClock(func() time.Time { return now }),
	)
	return f
}

func recipient() notify.Recipient {
	return notify.Recipient{
		OrganizationID: uuid.New(),
		Name:           "Institut Lumière",
		Email:          "owner@lumiere.test",
		Phone:          "+33612345678",
		Plan:           plan.Duo,
		PlanPrice:      "€49.00",
		TrialDaysLeft:  5,
	}
}

func TestTemplates(t *testing.T) {
	t.Parallel()

	t.Run("every trigger needs a template", func(t *testing.T) {
		t.Parallel()
		defs := notify.DefaultTemplates()
		delete(defs, trigger.TrialExpired)

		_, err := notify.NewTemplates(defs)
		assert.ErrorIs(t, err, notify.ErrNoTemplate)
	})

	t.Run("rejects unknown variables", func(t *testing.T) {
		t.Parallel()
		defs := notify.DefaultTemplates()
		defs[trigger.TrialExpired] = notify.Template{Channel: notify.ChannelEmail, Subject: "Bye", Body: "{{.Nope}}"}

		tpl, err := notify.NewTemplates(defs)
		require.NoError(t, err)
		_, err = tpl.Render(context.Background(), trigger.TrialExpired, notify.Vars{Name: "x"})
		assert.ErrorIs(t, err, notify.ErrRenderFailed)
	})

	t.Run("email needs a subject", func(t *testing.T) {
		t.Parallel()
		defs := notify.DefaultTemplates()
		defs[trigger.TrialExpired] = notify.Template{Channel: notify.ChannelEmail, Body: "<p>hi</p>"}

		_, err := notify.NewTemplates(defs)
		assert.ErrorIs(t, err, notify.ErrInvalidTemplate)
	})

	t.Run("email is wrapped in the layout and escaped", func(t *testing.T) {
		t.Parallel()
		tpl := notify.MustNewTemplates(notify.DefaultTemplates())

		out, err := tpl.Render(context.Background(), trigger.TrialEndingSoon, notify.Vars{
			Name:          "Spa <Zen>",
			Plan:          "DUO",
			PlanPrice:     "€49.00",
			DashboardURL:  "https://app.example.test",
			TrialDaysLeft: 5,
		})
		require.NoError(t, err)
		assert.Equal(t, notify.ChannelEmail, out.Channel)
		assert.Equal(t, "Your trial ends in 5 days", out.Subject)
		assert.Contains(t, out.HTML, "<!DOCTYPE html>")
		assert.Contains(t, out.HTML, "Spa &lt;Zen&gt;")
		assert.Contains(t, out.Text, "Hello Spa <Zen>,")
		assert.NotContains(t, out.Text, "<p>")
	})

	t.Run("sms is plain text", func(t *testing.T) {
		t.Parallel()
		tpl := notify.MustNewTemplates(notify.DefaultTemplates())

		out, err := tpl.Render(context.Background(), trigger.NoLogin7Days, notify.Vars{Name: "Spa & Co", DashboardURL: "https://app.example.test"})
		require.NoError(t, err)
		assert.Equal(t, notify.ChannelSMS, out.Channel)
		assert.Empty(t, out.HTML)
		assert.Contains(t, out.Text, "Spa & Co")
	})
}

func TestDispatcher_Dispatch(t *testing.T) {
	t.Parallel()

	t.Run("delivers once per firing", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		r := recipient()
		due := trigger.Due{OrganizationID: r.OrganizationID, Key: trigger.OnboardingDay1}

		res := f.dispatcher.Dispatch(context.Background(), r, due)
		require.NoError(t, res.Err)
		assert.Equal(t, notify.StatusSent, res.Status)
		assert.Equal(t, notify.ChannelEmail, res.Channel)

		res = f.dispatcher.Dispatch(context.Background(), r, due)
		assert.Equal(t, notify.StatusSkipped, res.Status)

		msgs := f.email.sent()
		require.Len(t, msgs, 1)
		assert.Equal(t, "owner@lumiere.test", msgs[0].To)
		assert.Equal(t, string(trigger.OnboardingDay1), msgs[0].Tag)
		assert.Equal(t, 1, f.firings.Len())

		entries := f.audit.Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, notify.ActionSent, entries[0].Action)
		assert.Equal(t, audit.ActorSystem, entries[0].Actor)
		assert.Equal(t, string(trigger.OnboardingDay1), entries[0].Metadata["trigger"])
	})

	t.Run("failed delivery leaves the trigger due", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.sms.err = errors.New("carrier down")
		r := recipient()
		due := trigger.Due{OrganizationID: r.OrganizationID, Key: trigger.NoLogin7Days, Window: now.Add(-8 * 24 * time.Hour)}

		res := f.dispatcher.Dispatch(context.Background(), r, due)
		assert.Equal(t, notify.StatusFailed, res.Status)
		assert.ErrorIs(t, res.Err, notify.ErrDeliveryFailed)
		assert.Equal(t, 0, f.firings.Len())
		assert.Empty(t, f.audit.Entries())

		f.sms.err = nil
		res = f.dispatcher.Dispatch(context.Background(), r, due)
		assert.Equal(t, notify.StatusSent, res.Status)
		assert.Equal(t, notify.ChannelSMS, res.Channel)
	})

	t.Run("chat falls back to email without a webhook", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		r := recipient()
		due := trigger.Due{OrganizationID: r.OrganizationID, Key: trigger.SubscriptionActive60, Window: now.Add(-60 * 24 * time.Hour)}

		res := f.dispatcher.Dispatch(context.Background(), r, due)
		require.NoError(t, res.Err)
		assert.Equal(t, notify.ChannelEmail, res.Channel)
		assert.Empty(t, f.chat.sent())

		msgs := f.email.sent()
		require.Len(t, msgs, 1)
		assert.Equal(t, "Two months together", msgs[0].Subject)
		assert.Contains(t, msgs[0].HTML, "<!DOCTYPE html>")
	})

	t.Run("chat webhook when configured", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		r := recipient()
		r.ChatWebhookURL = "https://chat.example.test/hook"
		due := trigger.Due{OrganizationID: r.OrganizationID, Key: trigger.SubscriptionActive60, Window: now}

		res := f.dispatcher.Dispatch(context.Background(), r, due)
		require.NoError(t, res.Err)
		assert.Equal(t, notify.ChannelChat, res.Channel)
		msgs := f.chat.sent()
		require.Len(t, msgs, 1)
		assert.Equal(t, "https://chat.example.test/hook", msgs[0].To)
		assert.Equal(t, r.OrganizationID.String(), msgs[0].OrganizationID)
	})

	t.Run("no address at all", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		r := recipient()
		r.Email, r.Phone = "", ""
		due := trigger.Due{OrganizationID: r.OrganizationID, Key: trigger.NoLogin7Days, Window: now}

		res := f.dispatcher.Dispatch(context.Background(), r, due)
		assert.Equal(t, notify.StatusFailed, res.Status)
		assert.ErrorIs(t, res.Err, notify.ErrNoChannel)
		assert.Equal(t, 0, f.firings.Len())
	})

	t.Run("audit failure is reported after delivery", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.audit.down.Store(true)
		r := recipient()
		due := trigger.Due{OrganizationID: r.OrganizationID, Key: trigger.OnboardingDay1}

		res := f.dispatcher.Dispatch(context.Background(), r, due)
		assert.Equal(t, notify.StatusSent, res.Status)
		assert.ErrorIs(t, res.Err, notify.ErrAuditNotWritten)
		assert.Len(t, f.email.sent(), 1)
		assert.Equal(t, 1, f.firings.Len())
	})

	t.Run("recipient of another organization is rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		due := trigger.Due{OrganizationID: uuid.New(), Key: trigger.OnboardingDay1}

		res := f.dispatcher.Dispatch(context.Background(), recipient(), due)
		assert.Equal(t, notify.StatusFailed, res.Status)
		assert.ErrorIs(t, res.Err, notify.ErrRecipientMismatch)
		assert.Empty(t, f.email.sent())
		assert.Equal(t, 0, f.firings.Len())
	})

	t.Run("rearmed window is a new firing", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		r := recipient()
		first := trigger.Due{OrganizationID: r.OrganizationID, Key: trigger.NoLogin7Days, Window: now.Add(-30 * 24 * time.Hour)}
		second := trigger.Due{OrganizationID: r.OrganizationID, Key: trigger.NoLogin7Days, Window: now.Add(-8 * 24 * time.Hour)}

		assert.Equal(t, notify.StatusSent, f.dispatcher.Dispatch(context.Background(), r, first).Status)
		assert.Equal(t, notify.StatusSent, f.dispatcher.Dispatch(context.Background(), r, second).Status)
		assert.Len(t, f.sms.sent(), 2)
	})
}

func TestDispatcher_Resend(t *testing.T) {
	t.Parallel()

	t.Run("delivers again with an admin audit entry", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		r := recipient()
		due := trigger.Due{OrganizationID: r.OrganizationID, Key: trigger.CancellationFarewell}

		require.Equal(t, notify.StatusSent, f.dispatcher.Dispatch(context.Background(), r, due).Status)

		res := f.dispatcher.Resend(context.Background(), r, trigger.CancellationFarewell, "admin@beautydesk.test")
		require.NoError(t, res.Err)
		assert.Equal(t, notify.StatusSent, res.Status)
		assert.Len(t, f.email.sent(), 2)
		assert.Equal(t, 1, f.firings.Len())

		entries := f.audit.Entries()
		require.Len(t, entries, 2)
		assert.Equal(t, notify.ActionResent, entries[1].Action)
		assert.Equal(t, "admin@beautydesk.test", entries[1].Actor)
	})

	t.Run("nothing is sent when the audit entry cannot be written", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.audit.down.Store(true)

		res := f.dispatcher.Resend(context.Background(), recipient(), trigger.CancellationFarewell, "admin@beautydesk.test")
		assert.Equal(t, notify.StatusFailed, res.Status)
		assert.ErrorIs(t, res.Err, notify.ErrAuditNotWritten)
		assert.Empty(t, f.email.sent())
		assert.Equal(t, 0, f.firings.Len())
	})

	t.Run("delivery failure keeps the trigger unfired", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.email.err = errors.New("smtp down")

		res := f.dispatcher.Resend(context.Background(), recipient(), trigger.CancellationFarewell, "admin@beautydesk.test")
		assert.Equal(t, notify.StatusFailed, res.Status)
		assert.ErrorIs(t, res.Err, notify.ErrDeliveryFailed)
		assert.Equal(t, 0, f.firings.Len())
	})
}

func TestDispatcher_Preview(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	out, err := f.dispatcher.Preview(context.Background(), recipient(), trigger.CancellationFarewell)
	require.NoError(t, err)
	assert.Contains(t, out.HTML, "support@example.test")
	assert.Empty(t, f.email.sent())
}
