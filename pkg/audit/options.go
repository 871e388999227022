package audit

import (
	"context"
	"time"
)

// Option configures a Trail.
type Option func(*Trail)

// Extractors default to the RequestMeta stored by WithRequestMeta. Passing nil
// disables extraction of that field.

func WithIPExtractor(fn func(context.Context) (string, bool)) Option {
	return func(t *Trail) {
		t.ipFn = fn
	}
}

func WithUserAgentExtractor(fn func(context.Context) (string, bool)) Option {
	return func(t *Trail) {
		t.userAgentFn = fn
	}
}

func WithRequestIDExtractor(fn func(context.Context) (string, bool)) Option {
	return func(t *Trail) {
		t.requestIDFn = fn
	}
}

// WithRedactor replaces the default redaction rules. Nil stores metadata as given.
func WithRedactor(r *Redactor) Option {
	return func(t *Trail) {
		t.redactor = r
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(t *Trail) {
		if now != nil {
			t.now = now
		}
	}
}
