package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/beautydesk/backoffice/pkg/logger"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err and logs it: server errors at error level, client
// errors at warn.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	httpErr := toHTTPError(err)

	level := slog.LevelWarn
	if httpErr.Code >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed",
		logger.Error(err),
		slog.Int("status", httpErr.Code),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	writeJSON(w, httpErr.Code, errorBody{Error: httpErr.Error(), Code: httpErr.Key})
}

// decodeJSON reads a JSON body into dst. An empty body is accepted when
// optional is true.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any, optional bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ErrBadRequest.WithMessage("request body too large")
		}
		return ErrBadRequest.WithMessage(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}
