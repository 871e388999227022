package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/beautydesk/backoffice/pkg/billing"
	"github.com/beautydesk/backoffice/pkg/logger"
	"github.com/beautydesk/backoffice/pkg/organization"
)

// Webhook acknowledgement statuses.
const (
	webhookApplied   = "applied"
	webhookUnchanged = "unchanged"
	webhookIgnored   = "ignored"
	webhookDuplicate = "duplicate"
	webhookStale     = "stale"
	webhookUnmatched = "unknown_organization"
	webhookRejected  = "rejected"
)

type webhookResponse struct {
	Status string `json:"status"`
	Action string `json:"action,omitempty"`
}

// billingWebhook verifies and applies a billing processor event. Events that
// can never succeed on redelivery are acknowledged with 200 so the processor
// stops retrying; transient failures answer 5xx.
func (s *Server) billingWebhook(w http.ResponseWriter, r *http.Request) {
	if s.deps.Billing == nil {
		s.writeError(w, r, ErrServiceUnavailable.WithMessage("billing provider not configured"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	ev, err := s.deps.Billing.ParseWebhook(r)
	switch {
	case errors.Is(err, billing.ErrIgnoredEvent):
		writeJSON(w, http.StatusOK, webhookResponse{Status: webhookIgnored})
		return
	case errors.Is(err, billing.ErrInvalidSignature):
		s.writeError(w, r, ErrUnauthorized.WithMessage("invalid webhook signature"))
		return
	case err != nil:
		s.writeError(w, r, ErrBadRequest.WithMessage(err.Error()))
		return
	}

	ctx := r.Context()
	if ev.OrganizationID != nil {
		ctx = logger.WithOrganization(ctx, *ev.OrganizationID)
	}
	log := s.logger.With(logger.EventID(ev.ID), logger.EventType(ev.ProviderEvent))

	out, err := s.deps.Organizations.ApplyBillingEvent(ctx, *ev)
	switch {
	case err == nil:
		status := webhookUnchanged
		if out.Changed() {
			status = webhookApplied
			log.InfoContext(ctx, "billing event applied", slog.String("action", out.Action))
		}
		writeJSON(w, http.StatusOK, webhookResponse{Status: status, Action: out.Action})
	case errors.Is(err, organization.ErrDuplicateEvent):
		writeJSON(w, http.StatusOK, webhookResponse{Status: webhookDuplicate})
	case errors.Is(err, organization.ErrStaleEvent):
		writeJSON(w, http.StatusOK, webhookResponse{Status: webhookStale})
	case errors.Is(err, organization.ErrUnknownOrganization):
		log.WarnContext(ctx, "billing event for unknown organization", logger.Error(err))
		writeJSON(w, http.StatusOK, webhookResponse{Status: webhookUnmatched})
	case errors.Is(err, organization.ErrInvalidTransition):
		log.WarnContext(ctx, "billing event rejected by lifecycle", logger.Error(err))
		writeJSON(w, http.StatusOK, webhookResponse{Status: webhookRejected})
	case errors.Is(err, organization.ErrUnknownPrice):
		// Retried by the processor until the catalog knows the price.
		s.writeError(w, r.WithContext(ctx), ErrUnprocessableEntity.WithMessage(err.Error()))
	default:
		s.writeError(w, r.WithContext(ctx), err)
	}
}
