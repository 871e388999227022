package sweep

import (
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/text/language"
)

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithLocker enables run leases.
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(s *Sweeper) {
		s.locker = l
		if ttl > 0 {
			s.leaseTTL = ttl
		}
	}
}

// WithConcurrency bounds how many organizations are dispatched at once.
func WithConcurrency(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithPageSize sets how many organizations are loaded per query.
func WithPageSize(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithLanguage sets the locale used to format plan prices in messages.
func WithLanguage(tag language.Tag) Option {
	return func(s *Sweeper) { s.lang = tag }
}

// WithClock overrides the time source of RunDaily.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the sweeper logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

func defaultConcurrency() int {
	return max(2, runtime.GOMAXPROCS(0))
}
