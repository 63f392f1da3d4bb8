package resilience

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff returns the delay before retry number attempt (1-based: attempt 1
// is the delay after the first failure).
type Backoff func(attempt int) time.Duration

// Default backoff bounds, matching the query cache defaults.
const (
	DefaultInitialDelay = time.Second
	DefaultMaxDelay     = 30 * time.Second
)

// DefaultBackoff is Exponential(DefaultInitialDelay, DefaultMaxDelay).
func DefaultBackoff() Backoff {
	return Exponential(DefaultInitialDelay, DefaultMaxDelay)
}

// Exponential doubles the delay on every attempt, capped at max.
// The result is non-decreasing in attempt.
func Exponential(initial, max time.Duration) Backoff {
	return ExponentialWithMultiplier(initial, max, 2.0)
}

// ExponentialWithMultiplier grows the delay by multiplier per attempt,
// capped at max. A multiplier below 1 is treated as 1.
func ExponentialWithMultiplier(initial, max time.Duration, multiplier float64) Backoff {
	if multiplier < 1 {
		multiplier = 1
	}
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		f := float64(initial) * math.Pow(multiplier, float64(attempt-1))
		if max > 0 && f >= float64(max) {
			return max
		}
		return time.Duration(f)
	}
}

// Linear increases the delay by initial per attempt, capped at max.
func Linear(initial, max time.Duration) Backoff {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		d := initial * time.Duration(attempt)
		if max > 0 && d > max {
			return max
		}
		return d
	}
}

// Constant always returns d.
func Constant(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// WithJitter adds up to 25% random jitter on top of b.
func WithJitter(b Backoff) Backoff {
	return func(attempt int) time.Duration {
		delay := b(attempt)
		if delay/4 <= 0 {
			return delay
		}
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		return delay + time.Duration(rand.Int64N(int64(delay/4)))
	}
}
