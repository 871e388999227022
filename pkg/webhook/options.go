package webhook

import (
	"log/slog"
	"net/http"
	"time"
)

// Option configures a Sender.
type Option func(*Sender)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Sender) {
		if c != nil {
			s.client = c
		}
	}
}

// WithMaxRetries sets the number of retries after the first attempt. Zero disables retries.
func WithMaxRetries(n int) Option {
	return func(s *Sender) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithBackoff sets the delay between attempts.
func WithBackoff(b Backoff) Option {
	return func(s *Sender) {
		if b != nil {
			s.backoff = b
		}
	}
}

// WithBreaker skips a host for cooldown after threshold consecutive failed sends.
func WithBreaker(threshold int, cooldown time.Duration) Option {
	return func(s *Sender) {
		if threshold > 0 && cooldown > 0 {
			s.breakers = newBreakers(threshold, cooldown, func() time.Time { return s.now() })
		}
	}
}

// WithClock overrides the time source used for signatures and the breaker.
func WithClock(now func() time.Time) Option {
	return func(s *Sender) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger for failed attempts.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sender) {
		if l != nil {
			s.logger = l
		}
	}
}
