// Package ratelimit provides weight-based admission control for outbound
// API calls. A single token bucket is shared by all concurrent calls from
// one client; refill is computed lazily from elapsed time, never by a
// background timer.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter gates outbound calls against a request-weight budget.
// Acquire never rejects while the context lives; callers wait until
// capacity accrues, so no caller starves.
type Limiter struct {
	mu       sync.RWMutex
	bucket   *rate.Limiter
	requests int
	period   time.Duration
	metrics  *Metrics
}

// Metrics tracks admission statistics.
type Metrics struct {
	totalAcquires  atomic.Int64
	admitted       atomic.Int64
	denied         atomic.Int64
	weightAdmitted atomic.Int64
}

// New creates a Limiter allowing the given total weight per period.
// The bucket capacity equals the per-period budget; the refill rate is the
// budget spread evenly across the period.
func New(requests int, period time.Duration) *Limiter {
	rps := float64(requests) / period.Seconds()
	return &Limiter{
		bucket:   rate.NewLimiter(rate.Limit(rps), requests),
		requests: requests,
		period:   period,
		metrics:  &Metrics{},
	}
}

// Acquire blocks until weight tokens are available, then debits them.
// It returns an error only when the context is cancelled or its deadline
// passes before admission, or when weight exceeds the bucket capacity
// (a configuration error).
func (l *Limiter) Acquire(ctx context.Context, weight int) error {
	if weight <= 0 {
		weight = 1
	}

	l.metrics.totalAcquires.Add(1)

	l.mu.RLock()
	bucket := l.bucket
	capacity := l.requests
	l.mu.RUnlock()

	if weight > capacity {
		l.metrics.denied.Add(1)
		return fmt.Errorf("weight %d exceeds bucket capacity %d", weight, capacity)
	}

	if err := bucket.WaitN(ctx, weight); err != nil {
		l.metrics.denied.Add(1)
		return err
	}

	l.metrics.admitted.Add(1)
	l.metrics.weightAdmitted.Add(int64(weight))
	return nil
}

// TryAcquire debits weight tokens if they are immediately available.
func (l *Limiter) TryAcquire(weight int) bool {
	if weight <= 0 {
		weight = 1
	}

	l.metrics.totalAcquires.Add(1)

	l.mu.RLock()
	bucket := l.bucket
	l.mu.RUnlock()

	if !bucket.AllowN(time.Now(), weight) {
		l.metrics.denied.Add(1)
		return false
	}

	l.metrics.admitted.Add(1)
	l.metrics.weightAdmitted.Add(int64(weight))
	return true
}

// Tokens returns the weight currently available without waiting.
func (l *Limiter) Tokens() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.bucket.Tokens()
}

// Capacity returns the maximum weight the bucket can hold.
func (l *Limiter) Capacity() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.requests
}

// SetLimit replaces the budget. Tokens already accrued are kept up to the
// new capacity.
func (l *Limiter) SetLimit(requests int, period time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = requests
	l.period = period
	rps := float64(requests) / period.Seconds()
	l.bucket.SetLimit(rate.Limit(rps))
	l.bucket.SetBurst(requests)
}

// Metrics returns a snapshot of admission statistics.
func (l *Limiter) Metrics() MetricsSnapshot {
	return MetricsSnapshot{
		TotalAcquires:  l.metrics.totalAcquires.Load(),
		Admitted:       l.metrics.admitted.Load(),
		Denied:         l.metrics.denied.Load(),
		WeightAdmitted: l.metrics.weightAdmitted.Load(),
	}
}

// MetricsSnapshot is a point-in-time capture of limiter statistics.
type MetricsSnapshot struct {
	// TotalAcquires is the number of admission attempts.
	TotalAcquires int64
	// Admitted is the number of attempts that gained admission.
	Admitted int64
	// Denied is the number of attempts cancelled or rejected.
	Denied int64
	// WeightAdmitted is the total weight debited from the bucket.
	WeightAdmitted int64
}
