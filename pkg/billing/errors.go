package billing

import "errors"

var (
	ErrInvalidSignature = errors.New("billing: webhook signature verification failed")
	ErrMalformedEvent   = errors.New("billing: malformed webhook event")
	ErrIgnoredEvent     = errors.New("billing: event type not handled")
	ErrInvalidRequest   = errors.New("billing: invalid request")
	ErrProviderFailed   = errors.New("billing: provider request failed")
	ErrNoRedirectURL    = errors.New("billing: provider returned no URL")
)
