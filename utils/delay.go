package utils

import (
	"context"
	"math/rand"
	"time"
)

// Jitter is a randomized delay bounded by [Min, Max].
// The zero value never sleeps, which is what tests want.
type Jitter struct {
	Min time.Duration
	Max time.Duration
}

// Duration picks a random delay inside the bounds.
func (j Jitter) Duration() time.Duration {
	if j.Max <= 0 {
		return 0
	}
	lo := j.Min
	if lo < 0 {
		lo = 0
	}
	if j.Max <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(j.Max-lo)+1))
}

// Wait sleeps for a random duration or until ctx is done.
func (j Jitter) Wait(ctx context.Context) error {
	d := j.Duration()
	if d == 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
