package utils

import "time"

// Clock provides times.
type Clock interface {
	// Now returns current local time.
	Now() time.Time
}

// SystemClock is the Clock backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock always reports the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time {
	return c.At
}
