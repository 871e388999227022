package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"golang.org/x/text/language"

	"github.com/beautydesk/backoffice/pkg/archive"
	"github.com/beautydesk/backoffice/pkg/audit"
	"github.com/beautydesk/backoffice/pkg/billing"
	"github.com/beautydesk/backoffice/pkg/httpserver"
	"github.com/beautydesk/backoffice/pkg/notify"
	"github.com/beautydesk/backoffice/pkg/organization"
	"github.com/beautydesk/backoffice/pkg/sweep"
)

// Sweeper runs one daily pass on demand.
type Sweeper interface {
	Run(ctx context.Context, now time.Time) (sweep.Report, error)
}

// Archiver stores audit exports.
type Archiver interface {
	Export(ctx context.Context, criteria audit.Criteria) (archive.Object, error)
	List(ctx context.Context, limit int) ([]archive.Object, error)
}

// Deps are the services behind the routes. Organizations, Dispatcher and
// Audit are required; routes backed by a nil optional dependency answer 503.
type Deps struct {
	Organizations *organization.Service
	Dispatcher    *notify.Dispatcher
	Audit         *audit.Reader
	Billing       billing.Provider
	Sweeper       Sweeper
	Archiver      Archiver
	Checks        map[string]httpserver.Check
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLanguage sets the language used for prices in previews and resends.
func WithLanguage(tag language.Tag) Option {
	return func(s *Server) { s.lang = tag }
}

// Server is the HTTP surface of the back office: billing webhooks, the sweep
// trigger and administrative routes.
type Server struct {
	cfg    Config
	deps   Deps
	lang   language.Tag
	now    func() time.Time
	logger *slog.Logger
}

// New creates a server. Panics when a required dependency is nil.
func New(cfg Config, deps Deps, opts ...Option) *Server {
	if deps.Organizations == nil {
		panic("api: organization service cannot be nil")
	}
	if deps.Dispatcher == nil {
		panic("api: dispatcher cannot be nil")
	}
	if deps.Audit == nil {
		panic("api: audit reader cannot be nil")
	}

	s := &Server{
		cfg:    cfg.withDefaults(),
		deps:   deps,
		lang:   language.French,
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestMeta, middleware.Recoverer)

	r.Get("/healthz", httpserver.Liveness())
	r.Get("/readyz", httpserver.Readiness(s.logger, s.deps.Checks))

	r.With(httprate.LimitByIP(s.cfg.WebhookRateLimit, s.cfg.RateWindow)).
		Post("/webhooks/billing", s.billingWebhook)

	r.With(s.sweepAuth).Post("/internal/sweep", s.runSweep)

	r.Route("/admin", func(r chi.Router) {
		r.Use(httprate.LimitByIP(s.cfg.AdminRateLimit, s.cfg.RateWindow), s.adminAuth)

		r.Get("/plans", s.listPlans)
		r.Get("/triggers", s.listTriggers)

		r.Get("/audit", s.listAudit)
		r.Get("/audit.csv", s.exportAudit)
		r.Get("/audit/archives", s.listArchives)
		r.Post("/audit/archives", s.archiveAudit)

		r.Route("/organizations", func(r chi.Router) {
			r.Get("/", s.listOrganizations)
			r.Post("/", s.createOrganization)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(s.organizationCtx)

				r.Get("/", s.getOrganization)
				r.Post("/activate", s.activateOrganization)
				r.Post("/plan", s.changePlan)
				r.Post("/suspend", s.suspendOrganization)
				r.Post("/cancel", s.cancelOrganization)
				r.Put("/usage", s.updateUsage)
				r.Post("/logins", s.recordLogin)
				r.Get("/quotas/{resource}", s.canCreate)
				r.Get("/features/{feature}", s.hasFeature)
				r.Get("/triggers/{key}/preview", s.previewTrigger)
				r.Post("/triggers/{key}/resend", s.resendTrigger)
				r.Get("/checkout", s.checkoutLink)
				r.Get("/portal", s.portalLink)
			})
		})
	})

	return r
}
