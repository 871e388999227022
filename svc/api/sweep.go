package api

import (
	"net/http"

	"github.com/beautydesk/backoffice/pkg/logger"
)

// runSweep runs the daily pass now. The sweeper's lease makes concurrent
// calls safe; a call losing the lease reports lease_held.
func (s *Server) runSweep(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sweeper == nil {
		s.writeError(w, r, ErrServiceUnavailable.WithMessage("sweep not configured"))
		return
	}

	rep, err := s.deps.Sweeper.Run(r.Context(), s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.InfoContext(r.Context(), "sweep triggered over http",
		logger.Component("sweep"),
		logger.Duration(rep.Duration),
	)
	writeJSON(w, http.StatusOK, rep)
}
