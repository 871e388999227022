package api

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/beautydesk/backoffice/pkg/audit"
	"github.com/beautydesk/backoffice/pkg/logger"
)

const (
	HeaderAdminActor  = "X-Admin-Actor"
	HeaderSweepSecret = "X-Sweep-Secret"

	defaultActor = "admin"
)

type actorKey struct{}
type organizationKey struct{}

// requestMeta copies the caller's address, user agent and request id into
// the context for audit entries.
func requestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		ctx := audit.WithRequestMeta(r.Context(), audit.RequestMeta{
			IP:        ip,
			UserAgent: r.UserAgent(),
			RequestID: middleware.GetReqID(r.Context()),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminAuth requires "Authorization: Bearer <admin token>" and stores the
// acting administrator from X-Admin-Actor.
func (s *Server) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || !secretEqual(token, s.cfg.AdminToken) {
			s.writeError(w, r, ErrUnauthorized.WithMessage("invalid admin token"))
			return
		}

		actor := strings.TrimSpace(r.Header.Get(HeaderAdminActor))
		if actor == "" {
			actor = defaultActor
		}
		ctx := context.WithValue(r.Context(), actorKey{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) sweepAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !secretEqual(r.Header.Get(HeaderSweepSecret), s.cfg.SweepSecret) {
			s.writeError(w, r, ErrUnauthorized.WithMessage("invalid sweep secret"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// organizationCtx parses {id} and tags the request logger with it.
func (s *Server) organizationCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, r, ErrBadRequest.WithMessage("invalid organization id"))
			return
		}
		ctx := logger.WithOrganization(r.Context(), id)
		ctx = context.WithValue(ctx, organizationKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// secretEqual compares in constant time. An empty expected secret never matches.
func secretEqual(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func actorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok {
		return actor
	}
	return defaultActor
}

func organizationFrom(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(organizationKey{}).(uuid.UUID)
	return id
}
