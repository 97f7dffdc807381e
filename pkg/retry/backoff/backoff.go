// Package backoff provides delay curves for retry strategies.
package backoff

import (
	"math"
	"time"
)

// Strategy maps an attempt number (starting at 1) to the delay before the
// next attempt.
type Strategy func(attempts uint) time.Duration

// Constant waits the same interval between every attempt.
func Constant(interval time.Duration) Strategy {
	return func(uint) time.Duration {
		return interval
	}
}

// Linear grows the delay by baseDelay with each attempt:
// baseDelay, 2*baseDelay, 3*baseDelay, ...
func Linear(baseDelay time.Duration) Strategy {
	return func(attempts uint) time.Duration {
		delay := baseDelay * time.Duration(attempts)
		if delay < 0 {
			// overflow
			return math.MaxInt64
		}
		return delay
	}
}

// Exponential multiplies the delay by base with each attempt, starting at
// baseDelay: baseDelay, baseDelay*base, baseDelay*base^2, ...
func Exponential(baseDelay time.Duration, base float64) Strategy {
	return func(attempts uint) time.Duration {
		delay := baseDelay * time.Duration(math.Pow(base, float64(attempts-1)))
		if delay < 0 {
			return math.MaxInt64
		}
		return delay
	}
}

// BinaryExponential is Exponential with a base of 2:
// baseDelay, 2*baseDelay, 4*baseDelay, ...
func BinaryExponential(baseDelay time.Duration) Strategy {
	return Exponential(baseDelay, 2)
}
