package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/beautydesk/backoffice/pkg/audit"
	"github.com/beautydesk/backoffice/pkg/logger"
)

// criteriaFrom reads audit filters from the query string:
// actor, action, target_type, organization_id, from, to (RFC 3339), limit, offset.
func criteriaFrom(q url.Values) (audit.Criteria, error) {
	c := audit.Criteria{
		Actor:      q.Get("actor"),
		Action:     q.Get("action"),
		TargetType: q.Get("target_type"),
	}

	if raw := q.Get("organization_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c, ErrBadRequest.WithMessage("invalid organization_id")
		}
		c.OrganizationID = &id
	}

	var err error
	if c.From, err = timeParam(q, "from"); err != nil {
		return c, err
	}
	if c.To, err = timeParam(q, "to"); err != nil {
		return c, err
	}
	if !c.From.IsZero() && !c.To.IsZero() && !c.From.Before(c.To) {
		return c, ErrBadRequest.WithMessage("from must be before to")
	}

	if c.Limit, err = intParam(q.Get("limit"), 0); err != nil {
		return c, err
	}
	if c.Offset, err = intParam(q.Get("offset"), 0); err != nil {
		return c, err
	}
	return c.Normalize(), nil
}

func timeParam(q url.Values, name string) (time.Time, error) {
	raw := q.Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, ErrBadRequest.WithMessage(fmt.Sprintf("invalid %s: expected RFC 3339", name))
	}
	return t.UTC(), nil
}

func (s *Server) listAudit(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaFrom(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	page, err := s.deps.Audit.Page(r.Context(), criteria)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// exportAudit streams matching entries as CSV. Pagination parameters are
// ignored; every match is exported.
func (s *Server) exportAudit(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaFrom(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	criteria.Limit, criteria.Offset = 0, 0

	name := fmt.Sprintf("audit-%s.csv", s.now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))

	n, err := s.deps.Audit.ExportCSV(r.Context(), w, criteria)
	if err != nil {
		// Headers are gone once rows were written.
		s.logger.ErrorContext(r.Context(), "audit export interrupted",
			logger.Error(err),
			logger.Actor(actorFrom(r.Context())),
		)
		return
	}
	s.logger.InfoContext(r.Context(), "audit exported",
		logger.Actor(actorFrom(r.Context())),
		logger.Component("audit"),
		slog.Int("rows", n),
	)
}

func (s *Server) archiveAudit(w http.ResponseWriter, r *http.Request) {
	if s.deps.Archiver == nil {
		s.writeError(w, r, ErrServiceUnavailable.WithMessage("audit archive not configured"))
		return
	}
	criteria, err := criteriaFrom(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	criteria.Limit, criteria.Offset = 0, 0

	obj, err := s.deps.Archiver.Export(r.Context(), criteria)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, obj)
}

func (s *Server) listArchives(w http.ResponseWriter, r *http.Request) {
	if s.deps.Archiver == nil {
		s.writeError(w, r, ErrServiceUnavailable.WithMessage("audit archive not configured"))
		return
	}
	limit, err := intParam(r.URL.Query().Get("limit"), defaultPageSize)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	objects, err := s.deps.Archiver.List(r.Context(), min(max(limit, 1), maxPageSize))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, objects)
}
