// Package backoff computes wait durations between retry attempts.
package backoff

import (
	"math/rand"
	"time"
)

// Policy computes exponential backoff with bounded uniform jitter.
// Delay is monotonically non-decreasing in expectation and never exceeds Max.
type Policy struct {
	// Base is the delay before the first retry (attempt 0).
	Base time.Duration
	// Max caps the computed delay, jitter included.
	Max time.Duration
	// Multiplier grows the delay per attempt.
	Multiplier float64
	// Jitter is the fraction of the delay added at random, clamped to [0, 1].
	Jitter float64
}

// Default returns the standard policy: 100ms base, doubling per attempt,
// capped at 30s, with 10% jitter.
func Default() Policy {
	return Policy{
		Base:       100 * time.Millisecond,
		Max:        30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// NewPolicy builds a doubling policy over the given window with 10% jitter.
func NewPolicy(base, max time.Duration) Policy {
	return Policy{
		Base:       base,
		Max:        max,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// Delay returns the wait before retry number attempt, starting at 0 for the
// first retry. The first attempt of a call incurs no delay; this is only
// consulted once a retryable failure has occurred.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// Exponent is capped so the float math cannot overflow.
	if attempt > 30 {
		attempt = 30
	}

	d := time.Duration(float64(p.Base) * pow(p.Multiplier, attempt))
	if d < 0 || d > p.Max {
		d = p.Max
	}

	jitter := p.Jitter
	if jitter < 0 {
		jitter = 0
	}
	if jitter > 1 {
		jitter = 1
	}
	if jitter > 0 {
		extra := time.Duration(float64(d) * jitter * rand.Float64())
		if d+extra > p.Max {
			d = p.Max
		} else {
			d += extra
		}
	}

	return d
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
