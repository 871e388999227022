package organization

import (
	"log/slog"
	"time"

	"github.com/beautydesk/backoffice/pkg/billing"
)

// DefaultTrialDays is the length of the unpaid evaluation period.
const DefaultTrialDays = 30

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for dropped billing events.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTrialDays overrides DefaultTrialDays.
func WithTrialDays(days int) ServiceOption {
	return func(s *Service) {
		if days > 0 {
			s.trialDays = days
		}
	}
}

// WithBillingProvider enables checkout and customer portal links.
func WithBillingProvider(p billing.Provider) ServiceOption {
	return func(s *Service) {
		s.provider = p
	}
}
