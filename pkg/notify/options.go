package notify

import (
	"log/slog"
	"time"
)

// DefaultTimeout bounds a single channel delivery.
const DefaultTimeout = 15 * time.Second

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTransport registers the transport for ch.
func WithTransport(ch Channel, t Transport) Option {
	return func(d *Dispatcher) {
		if t != nil {
			d.transports[ch] = t
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithLinks sets the dashboard URL and support address exposed to templates.
func WithLinks(dashboardURL, supportEmail string) Option {
	return func(d *Dispatcher) {
		d.dashboardURL = dashboardURL
		d.supportEmail = supportEmail
	}
}

// WithClock overrides the time source used for firing records.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}
