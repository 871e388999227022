package webhook

import "errors"

var (
	ErrDeliveryFailed   = errors.New("webhook: delivery failed")
	ErrPermanentFailure = errors.New("webhook: permanent failure")
	ErrCircuitOpen      = errors.New("webhook: endpoint circuit is open")
	ErrInvalidURL       = errors.New("webhook: invalid url")
	ErrInvalidPayload   = errors.New("webhook: invalid payload")
	ErrInvalidSignature = errors.New("webhook: invalid signature")
	ErrMissingSecret    = errors.New("webhook: signing secret is required")
)
