package domain

import (
	"math"
	"math/rand/v2"
	"time"
)

// maxBackoffDelay is where Delay saturates. Half the range leaves room for a full jitter.
const maxBackoffDelay = time.Duration(math.MaxInt64 / 2)

// BackoffPolicy computes the next eligibility time of a failed record:
// base * 2^min(attempts, capExponent) plus a jitter in [0, jitterFraction*delay).
// The delay saturates instead of overflowing and the jitter fraction is capped at 1.
type BackoffPolicy struct {
	Base           time.Duration
	CapExponent    int
	JitterFraction float64
	// Random returns a value in [0, 1). Defaults to math/rand.
	Random func() float64
}

// DefaultBackoffPolicy returns the policy used when nothing is configured.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{Base: 5 * time.Second, CapExponent: 8, JitterFraction: 0.1}
}

// Delay returns the unjittered delay after attempts previous failures.
func (p BackoffPolicy) Delay(attempts int) time.Duration {
	if p.Base <= 0 {
		return 0
	}
	exponent := min(max(attempts, 0), max(p.CapExponent, 0))
	if p.Base > maxBackoffDelay>>exponent {
		return maxBackoffDelay
	}
	return p.Base << exponent
}

// Next returns the time at which a record that failed attempts times before may be retried.
func (p BackoffPolicy) Next(now time.Time, attempts int) time.Time {
	delay := p.Delay(attempts)
	if p.JitterFraction > 0 {
		random := p.Random
		if random == nil {
			random = rand.Float64
		}
		delay += time.Duration(random() * min(p.JitterFraction, 1) * float64(delay))
	}
	return now.Add(delay)
}
