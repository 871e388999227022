package api

import (
	"errors"
	"net/http"

	"github.com/beautydesk/backoffice/pkg/archive"
	"github.com/beautydesk/backoffice/pkg/audit"
	"github.com/beautydesk/backoffice/pkg/billing"
	"github.com/beautydesk/backoffice/pkg/notify"
	"github.com/beautydesk/backoffice/pkg/organization"
	"github.com/beautydesk/backoffice/pkg/plan"
	"github.com/beautydesk/backoffice/pkg/trigger"
)

// HTTPError is an error with a status code and a stable machine-readable key.
type HTTPError struct {
	Code    int
	Key     string
	Message string
}

func (e HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Key
}

// WithMessage returns a copy carrying a human-readable message.
func (e HTTPError) WithMessage(msg string) HTTPError {
	e.Message = msg
	return e
}

var (
	ErrBadRequest          = HTTPError{Code: http.StatusBadRequest, Key: "bad_request"}
	ErrUnauthorized        = HTTPError{Code: http.StatusUnauthorized, Key: "unauthorized"}
	ErrForbidden           = HTTPError{Code: http.StatusForbidden, Key: "forbidden"}
	ErrNotFound            = HTTPError{Code: http.StatusNotFound, Key: "not_found"}
	ErrConflict            = HTTPError{Code: http.StatusConflict, Key: "conflict"}
	ErrUnprocessableEntity = HTTPError{Code: http.StatusUnprocessableEntity, Key: "unprocessable_entity"}
	ErrInternalServerError = HTTPError{Code: http.StatusInternalServerError, Key: "internal_server_error"}
	ErrBadGateway          = HTTPError{Code: http.StatusBadGateway, Key: "bad_gateway"}
	ErrServiceUnavailable  = HTTPError{Code: http.StatusServiceUnavailable, Key: "service_unavailable"}
)

// toHTTPError maps domain errors onto HTTP statuses. Unknown errors become
// 500 without leaking their text.
func toHTTPError(err error) HTTPError {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	switch {
	case errors.Is(err, organization.ErrNotFound):
		return ErrNotFound.WithMessage("organization not found")
	case errors.Is(err, organization.ErrInvalidTransition),
		errors.Is(err, organization.ErrSamePlan),
		errors.Is(err, organization.ErrSlugTaken),
		errors.Is(err, organization.ErrNotActive),
		errors.Is(err, organization.ErrMissingSubscription):
		return ErrConflict.WithMessage(err.Error())
	case errors.Is(err, organization.ErrQuotaExceeded):
		return ErrForbidden.WithMessage(err.Error())
	case errors.Is(err, organization.ErrInvalidOrganization),
		errors.Is(err, plan.ErrUnknownPlan),
		errors.Is(err, trigger.ErrUnknownKey),
		errors.Is(err, billing.ErrInvalidRequest),
		errors.Is(err, audit.ErrEntryValidation):
		return ErrBadRequest.WithMessage(err.Error())
	case errors.Is(err, notify.ErrNoChannel):
		return ErrUnprocessableEntity.WithMessage(err.Error())
	case errors.Is(err, notify.ErrDeliveryFailed),
		errors.Is(err, billing.ErrProviderFailed),
		errors.Is(err, billing.ErrNoRedirectURL),
		errors.Is(err, archive.ErrUploadFailed),
		errors.Is(err, archive.ErrListFailed):
		return ErrBadGateway.WithMessage(err.Error())
	case errors.Is(err, organization.ErrNoBillingProvider):
		return ErrServiceUnavailable.WithMessage(err.Error())
	}
	return ErrInternalServerError
}
