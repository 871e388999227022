package webhook

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff returns the delay before retry attempt (1-based).
type Backoff interface {
	Delay(attempt int) time.Duration
}

// Exponential grows the delay by Factor per attempt, capped at Max, with
// +/- Jitter randomization.
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
	Jitter  float64
}

func (e Exponential) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	d := float64(e.Initial) * math.Pow(e.Factor, float64(attempt-1))
	if e.Jitter > 0 {
		d *= 1 + (rand.Float64()*2-1)*e.Jitter
	}
	if e.Max > 0 && d > float64(e.Max) {
		d = float64(e.Max)
	}
	return time.Duration(d)
}

// Fixed waits the same interval before every retry.
type Fixed time.Duration

func (f Fixed) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return time.Duration(f)
}

// DefaultBackoff suits chat endpoints: 500ms, 1s, 2s ... capped at 5s.
func DefaultBackoff() Backoff {
	return Exponential{Initial: 500 * time.Millisecond, Max: 5 * time.Second, Factor: 2, Jitter: 0.1}
}
