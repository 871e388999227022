package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/beautydesk/backoffice/pkg/notify"
	"github.com/beautydesk/backoffice/pkg/trigger"
)

func (s *Server) listTriggers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, trigger.Definitions())
}

// recipient loads the organization in the request path and the trigger key.
func (s *Server) recipient(r *http.Request) (notify.Recipient, trigger.Key, error) {
	key, err := trigger.ParseKey(chi.URLParam(r, "key"))
	if err != nil {
		return notify.Recipient{}, "", err
	}
	o, err := s.deps.Organizations.Get(r.Context(), organizationFrom(r.Context()))
	if err != nil {
		return notify.Recipient{}, "", err
	}
	return notify.RecipientOf(o, s.deps.Organizations.Catalog(), s.now(), s.lang), key, nil
}

type previewResponse struct {
	Key     trigger.Key    `json:"key"`
	Channel notify.Channel `json:"channel"`
	Subject string         `json:"subject,omitempty"`
	HTML    string         `json:"html,omitempty"`
	Text    string         `json:"text,omitempty"`
}

func (s *Server) previewTrigger(w http.ResponseWriter, r *http.Request) {
	rcpt, key, err := s.recipient(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out, err := s.deps.Dispatcher.Preview(r.Context(), rcpt, key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{
		Key:     key,
		Channel: out.Channel,
		Subject: out.Subject,
		HTML:    out.HTML,
		Text:    out.Text,
	})
}

// resendTrigger delivers a message again regardless of earlier firings.
// Nothing is sent when the audit entry cannot be written.
func (s *Server) resendTrigger(w http.ResponseWriter, r *http.Request) {
	rcpt, key, err := s.recipient(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res := s.deps.Dispatcher.Resend(r.Context(), rcpt, key, actorFrom(r.Context()))
	if res.Status == notify.StatusFailed {
		s.writeError(w, r, res.Err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
