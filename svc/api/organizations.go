package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/beautydesk/backoffice/pkg/organization"
	"github.com/beautydesk/backoffice/pkg/plan"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

type organizationView struct {
	organization.Organization
	EffectivePlan plan.ID     `json:"effective_plan"`
	TrialDaysLeft int         `json:"trial_days_left"`
	AllowedEvents []string    `json:"allowed_events"`
	Quotas        plan.Quotas `json:"quotas"`
}

func (s *Server) view(o organization.Organization) organizationView {
	now := s.now()
	effective := o.EffectivePlan(now)
	return organizationView{
		Organization:  o,
		EffectivePlan: effective,
		TrialDaysLeft: o.TrialDaysLeft(now),
		AllowedEvents: organization.AllowedEvents(o.Status),
		Quotas:        s.deps.Organizations.Catalog().QuotasFor(effective),
	}
}

type organizationList struct {
	Organizations []organizationView `json:"organizations"`
	NextAfter     *uuid.UUID         `json:"next_after,omitempty"`
}

// listOrganizations pages by id. ?after=<id>&limit=<n>&include_cancelled=true
func (s *Server) listOrganizations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := intParam(q.Get("limit"), defaultPageSize)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit = min(max(limit, 1), maxPageSize)

	filter := organization.ListFilter{Limit: limit}
	if after := q.Get("after"); after != "" {
		id, err := uuid.Parse(after)
		if err != nil {
			s.writeError(w, r, ErrBadRequest.WithMessage("invalid after cursor"))
			return
		}
		filter.AfterID = id
	}
	if q.Get("include_cancelled") == "true" {
		filter.IncludeCancelledSince = time.Unix(0, 0).UTC()
	}

	orgs, err := s.deps.Organizations.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := organizationList{Organizations: make([]organizationView, 0, len(orgs))}
	for _, o := range orgs {
		resp.Organizations = append(resp.Organizations, s.view(o))
	}
	if len(orgs) == limit {
		last := orgs[len(orgs)-1].ID
		resp.NextAfter = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

type createOrganizationRequest struct {
	Name           string  `json:"name"`
	Slug           string  `json:"slug"`
	ContactEmail   string  `json:"contact_email"`
	ContactPhone   string  `json:"contact_phone"`
	ChatWebhookURL string  `json:"chat_webhook_url"`
	Plan           plan.ID `json:"plan"`
}

func (s *Server) createOrganization(w http.ResponseWriter, r *http.Request) {
	var req createOrganizationRequest
	if err := s.decodeJSON(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	o, err := s.deps.Organizations.StartTrial(r.Context(), organization.NewOrganization{
		Name:           req.Name,
		Slug:           req.Slug,
		ContactEmail:   req.ContactEmail,
		ContactPhone:   req.ContactPhone,
		ChatWebhookURL: req.ChatWebhookURL,
		Plan:           req.Plan,
	}, actorFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.view(o))
}

func (s *Server) getOrganization(w http.ResponseWriter, r *http.Request) {
	o, err := s.deps.Organizations.Get(r.Context(), organizationFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(o))
}

type activateRequest struct {
	SubscriptionRef string    `json:"subscription_ref"`
	PeriodEnd       time.Time `json:"period_end"`
}

func (s *Server) activateOrganization(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := s.decodeJSON(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	o, err := s.deps.Organizations.Activate(ctx, organizationFrom(ctx), req.SubscriptionRef, req.PeriodEnd, actorFrom(ctx))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(o))
}

type changePlanRequest struct {
	Plan plan.ID `json:"plan"`
}

type changePlanResponse struct {
	Organization organizationView        `json:"organization"`
	Change       organization.PlanChange `json:"change"`
}

func (s *Server) changePlan(w http.ResponseWriter, r *http.Request) {
	var req changePlanRequest
	if err := s.decodeJSON(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	o, change, err := s.deps.Organizations.ChangePlan(ctx, organizationFrom(ctx), req.Plan, actorFrom(ctx))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, changePlanResponse{Organization: s.view(o), Change: change})
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) suspendOrganization(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := s.decodeJSON(w, r, &req, true); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	o, err := s.deps.Organizations.Suspend(ctx, organizationFrom(ctx), req.Reason, actorFrom(ctx))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(o))
}

func (s *Server) cancelOrganization(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := s.decodeJSON(w, r, &req, true); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	o, err := s.deps.Organizations.Cancel(ctx, organizationFrom(ctx), req.Reason, actorFrom(ctx))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(o))
}

func (s *Server) updateUsage(w http.ResponseWriter, r *http.Request) {
	var usage organization.Usage
	if err := s.decodeJSON(w, r, &usage, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	if err := s.deps.Organizations.UpdateUsage(ctx, organizationFrom(ctx), usage); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) recordLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.deps.Organizations.RecordLogin(ctx, organizationFrom(ctx), s.now()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) checkoutLink(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target := plan.ID(q.Get("plan"))
	if target == "" {
		s.writeError(w, r, ErrBadRequest.WithMessage("plan is required"))
		return
	}
	successURL := q.Get("success_url")
	if successURL == "" {
		successURL = s.cfg.CheckoutSuccessURL
	}

	ctx := r.Context()
	link, err := s.deps.Organizations.CheckoutLink(ctx, organizationFrom(ctx), target, successURL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (s *Server) portalLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	link, err := s.deps.Organizations.PortalLink(ctx, organizationFrom(ctx))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// canCreate answers 204 when one more unit of {resource} fits the effective plan.
func (s *Server) canCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res := plan.Resource(chi.URLParam(r, "resource"))
	switch res {
	case plan.ResourceLocations, plan.ResourceUsers, plan.ResourceStorageGB:
	default:
		s.writeError(w, r, ErrBadRequest.WithMessage("unknown resource "+strconv.Quote(string(res))))
		return
	}
	if err := s.deps.Organizations.CanCreate(ctx, organizationFrom(ctx), res); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) hasFeature(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f := plan.Feature(chi.URLParam(r, "feature"))
	writeJSON(w, http.StatusOK, map[string]any{
		"feature": f,
		"enabled": s.deps.Organizations.HasFeature(ctx, organizationFrom(ctx), f),
	})
}

type planView struct {
	ID       plan.ID               `json:"id"`
	Name     string                `json:"name"`
	Price    plan.Money            `json:"price"`
	Display  string                `json:"display_price"`
	Quotas   plan.Quotas           `json:"quotas"`
	Features map[plan.Feature]bool `json:"features"`
}

func (s *Server) listPlans(w http.ResponseWriter, _ *http.Request) {
	defs := s.deps.Organizations.Catalog().All()
	out := make([]planView, 0, len(defs))
	for _, d := range defs {
		out = append(out, planView{
			ID:       d.ID,
			Name:     d.Name,
			Price:    d.Price,
			Display:  d.Price.Format(s.lang),
			Quotas:   d.Quotas,
			Features: d.Features,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, ErrBadRequest.WithMessage("invalid integer parameter " + strconv.Quote(raw))
	}
	return n, nil
}
