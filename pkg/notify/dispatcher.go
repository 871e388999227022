package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/beautydesk/backoffice/pkg/audit"
	"github.com/beautydesk/backoffice/pkg/email"
	"github.com/beautydesk/backoffice/pkg/logger"
	"github.com/beautydesk/backoffice/pkg/organization"
	"github.com/beautydesk/backoffice/pkg/trigger"
)

// Audit actions written by the dispatcher.
const (
	ActionSent   = "notification.sent"
	ActionResent = "notification.resent"
)

// Status is the outcome of a dispatch.
type Status string

const (
	StatusSent    Status = "sent"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Result reports what Dispatch or Resend did.
type Result struct {
	Key     trigger.Key `json:"key"`
	Status  Status      `json:"status"`
	Channel Channel     `json:"channel,omitempty"`
	Err     error       `json:"-"`
}

// Dispatcher renders and delivers trigger messages at most once per firing.
type Dispatcher struct {
	firings      trigger.FiringStore
	templates    *Templates
	trail        *audit.Trail
	transports   map[Channel]Transport
	timeout      time.Duration
	dashboardURL string
	supportEmail string
	now          func() time.Time
	logger       *slog.Logger
}

// NewDispatcher creates a dispatcher. Panics on nil dependencies.
func NewDispatcher(firings trigger.FiringStore, templates *Templates, trail *audit.Trail, opts ...Option) *Dispatcher {
	if firings == nil {
		panic("notify: firing store cannot be nil")
	}
	if templates == nil {
		panic("notify: templates cannot be nil")
	}
	if trail == nil {
		panic("notify: audit trail cannot be nil")
	}
	d := &Dispatcher{
		firings:    firings,
		templates:  templates,
		trail:      trail,
		transports: make(map[Channel]Transport),
		timeout:    DefaultTimeout,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch delivers due to r. A firing already on record yields Skipped.
// The firing is written only after the channel confirmed delivery, so a
// channel failure leaves the trigger due for the next run. A failed audit
// write after delivery keeps Status Sent and sets Err.
func (d *Dispatcher) Dispatch(ctx context.Context, r Recipient, due trigger.Due) Result {
	res := Result{Key: due.Key}
	log := d.logger.With(logger.OrganizationID(due.OrganizationID.String()), logger.TriggerKey(string(due.Key)))

	if due.OrganizationID != r.OrganizationID {
		return d.failed(ctx, log, res, fmt.Errorf("%w: recipient %s", ErrRecipientMismatch, r.OrganizationID))
	}

	fired, err := d.firings.Has(ctx, due.OrganizationID, due.Key, due.Window)
	if err != nil {
		return d.failed(ctx, log, res, errors.Join(trigger.ErrStoreFailed, err))
	}
	if fired {
		res.Status = StatusSkipped
		return res
	}

	msg, err := d.prepare(ctx, r, due.Key)
	res.Channel = msg.Channel
	if err != nil {
		return d.failed(ctx, log, res, err)
	}
	if err := d.send(ctx, msg); err != nil {
		return d.failed(ctx, log, res, err)
	}

	sentAt := d.now().UTC()
	if err := d.firings.Record(ctx, due.Firing(sentAt)); err != nil {
		if errors.Is(err, trigger.ErrAlreadyFired) {
			log.WarnContext(ctx, "concurrent dispatch won the firing record")
			res.Status = StatusSkipped
			return res
		}
		return d.failed(ctx, log, res, errors.Join(ErrFiringNotWritten, err))
	}

	res.Status = StatusSent
	if _, err := d.record(ctx, audit.ActorSystem, ActionSent, r, due, msg.Channel); err != nil {
		log.ErrorContext(ctx, "notification audit failed", logger.Error(err))
		res.Err = errors.Join(ErrAuditNotWritten, err)
	}
	log.InfoContext(ctx, "notification sent", logger.Channel(string(msg.Channel)))
	return res
}

// Resend delivers key to r again on behalf of actor, ignoring earlier
// firings. The audit entry is written before anything leaves; when it
// cannot be written nothing is sent. The firing is recorded when missing.
func (d *Dispatcher) Resend(ctx context.Context, r Recipient, key trigger.Key, actor string) Result {
	res := Result{Key: key}
	log := d.logger.With(logger.OrganizationID(r.OrganizationID.String()), logger.TriggerKey(string(key)), logger.Actor(actor))

	msg, err := d.prepare(ctx, r, key)
	res.Channel = msg.Channel
	if err != nil {
		return d.failed(ctx, log, res, err)
	}

	due := trigger.Due{OrganizationID: r.OrganizationID, Key: key}
	if _, err := d.record(ctx, actor, ActionResent, r, due, msg.Channel); err != nil {
		return d.failed(ctx, log, res, errors.Join(ErrAuditNotWritten, err))
	}
	if err := d.send(ctx, msg); err != nil {
		return d.failed(ctx, log, res, err)
	}
	res.Status = StatusSent

	if err := d.firings.Record(ctx, due.Firing(d.now().UTC())); err != nil && !errors.Is(err, trigger.ErrAlreadyFired) {
		log.ErrorContext(ctx, "resend firing not recorded", logger.Error(err))
	}
	return res
}

// Preview renders key for r without delivering it.
func (d *Dispatcher) Preview(ctx context.Context, r Recipient, key trigger.Key) (Rendered, error) {
	return d.templates.Render(ctx, key, d.vars(r))
}

// prepare renders key for r and addresses it to the channel that will
// carry it. The returned message has its Channel set even on error once
// one was picked.
func (d *Dispatcher) prepare(ctx context.Context, r Recipient, key trigger.Key) (Message, error) {
	rendered, err := d.templates.Render(ctx, key, d.vars(r))
	if err != nil {
		return Message{}, err
	}

	ch, err := d.pickChannel(r, rendered.Channel)
	if err != nil {
		return Message{}, err
	}
	if ch != rendered.Channel {
		// fall back to email with the plain body wrapped in the layout
		rendered, err = d.asEmail(ctx, rendered, r)
		if err != nil {
			return Message{Channel: ch}, err
		}
	}

	return Message{
		Channel:        ch,
		To:             r.address(ch),
		Subject:        rendered.Subject,
		HTML:           rendered.HTML,
		Text:           rendered.Text,
		Tag:            string(key),
		OrganizationID: r.OrganizationID.String(),
	}, nil
}

func (d *Dispatcher) send(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.transports[msg.Channel].Deliver(ctx, msg); err != nil {
		return fmt.Errorf("%w over %s: %w", ErrDeliveryFailed, msg.Channel, err)
	}
	return nil
}

// pickChannel uses the preferred channel when the recipient has an address
// and a transport exists for it, else email.
func (d *Dispatcher) pickChannel(r Recipient, preferred Channel) (Channel, error) {
	for _, ch := range []Channel{preferred, ChannelEmail} {
		if _, ok := d.transports[ch]; ok && r.address(ch) != "" {
			return ch, nil
		}
	}
	return "", fmt.Errorf("%w: preferred %s", ErrNoChannel, preferred)
}

func (d *Dispatcher) asEmail(ctx context.Context, in Rendered, r Recipient) (Rendered, error) {
	subject := in.Subject
	if subject == "" {
		subject = "News from BeautyDesk"
	}
	page, err := email.Render(ctx, layout(subject, textToHTML(in.Text), d.vars(r)))
	if err != nil {
		return Rendered{}, fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}
	return Rendered{Channel: ChannelEmail, Subject: subject, HTML: page, Text: in.Text}, nil
}

func (d *Dispatcher) vars(r Recipient) Vars {
	return Vars{
		Name:          r.Name,
		Plan:          string(r.Plan),
		PlanPrice:     r.PlanPrice,
		DashboardURL:  d.dashboardURL,
		SupportEmail:  d.supportEmail,
		TrialDaysLeft: r.TrialDaysLeft,
	}
}

func (d *Dispatcher) failed(ctx context.Context, log *slog.Logger, res Result, err error) Result {
	log.WarnContext(ctx, "notification failed", logger.Channel(string(res.Channel)), logger.Error(err))
	res.Status = StatusFailed
	res.Err = err
	return res
}

type sentSnapshot struct {
	Trigger trigger.Key `json:"trigger"`
	Channel Channel     `json:"channel"`
	Window  *time.Time  `json:"window,omitempty"`
}

func (d *Dispatcher) record(ctx context.Context, actor, action string, r Recipient, due trigger.Due, ch Channel) (audit.Entry, error) {
	snap := sentSnapshot{Trigger: due.Key, Channel: ch}
	if !due.Window.IsZero() {
		w := due.Window
		snap.Window = &w
	}
	return d.trail.Record(ctx, actor, action,
		audit.Target{Type: organization.TargetType, ID: r.OrganizationID.String()},
		nil, snap,
		audit.WithOrganization(r.OrganizationID),
		audit.WithMetadata("trigger", string(due.Key)),
		audit.WithMetadata("channel", string(ch)),
	)
}
