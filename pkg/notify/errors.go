package notify

import "errors"

var (
	ErrNoTemplate        = errors.New("notify: no template for trigger")
	ErrInvalidTemplate   = errors.New("notify: invalid template")
	ErrRenderFailed      = errors.New("notify: render failed")
	ErrNoChannel         = errors.New("notify: no deliverable channel")
	ErrDeliveryFailed    = errors.New("notify: delivery failed")
	ErrFiringNotWritten  = errors.New("notify: firing record not written")
	ErrAuditNotWritten   = errors.New("notify: audit entry not written")
	ErrRecipientMismatch = errors.New("notify: recipient does not match the due trigger")
)
