package scheduler

import "amazon-scraper/utils"

type options struct {
	clock utils.Clock
}

// Option is custom configuration of Evaluator and Coordinator.
type Option func(o *options)

// WithClock sets the Clock used for due checks and lastRun stamps.
func WithClock(clock utils.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

func newOptions(ops []Option) options {
	o := options{clock: utils.SystemClock{}}
	for _, op := range ops {
		op(&o)
	}
	return o
}
