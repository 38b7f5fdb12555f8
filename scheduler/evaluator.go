package scheduler

import (
	"context"
	"fmt"
	"time"

	"amazon-scraper/config"
	"amazon-scraper/models"
	"amazon-scraper/storage"
	"amazon-scraper/utils"
)

//go:generate mockery --name Runner --filename runner.go

// Runner executes one claimed schedule.
type Runner interface {
	Run(ctx context.Context, s *models.Schedule) error
}

// Evaluator polls the schedule store and dispatches due schedules.
type Evaluator struct {
	store    storage.ScheduleStore
	runner   Runner
	pool     *utils.WorkerPool
	maxRuns  int
	interval time.Duration
	clock    utils.Clock
	logger   *utils.Logger
}

// NewEvaluator returns an Evaluator running at most cfg.MaxConcurrentRuns schedules at once.
func NewEvaluator(cfg config.Scheduler, store storage.ScheduleStore, runner Runner, logger *utils.Logger, ops ...Option) *Evaluator {
	o := newOptions(ops)
	maxRuns := cfg.MaxConcurrentRuns
	if maxRuns < 1 {
		maxRuns = 1
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}

	return &Evaluator{
		store:    store,
		runner:   runner,
		pool:     utils.NewWorkerPool(maxRuns),
		maxRuns:  maxRuns,
		interval: interval,
		clock:    o.clock,
		logger:   logger,
	}
}

// ResetStale fails schedules a previous process left running so they become eligible again.
// Call it once before Run.
func (e *Evaluator) ResetStale(ctx context.Context) (int, error) {
	n, err := e.store.ResetRunning(ctx)
	if err != nil {
		return 0, fmt.Errorf("reset running schedules: %w", err)
	}
	if n > 0 {
		e.logger.Warn("[scheduler] Marked %d schedules left running by a previous process as failed", n)
	}
	return n, nil
}

// Run ticks immediately and then once per interval until ctx is done.
// Dispatched runs share ctx; call Wait to let them finish.
func (e *Evaluator) Run(ctx context.Context) error {
	e.logger.Info("[scheduler] Evaluating schedules every %s", e.interval)
	e.Tick(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("[scheduler] Stopping schedule evaluation")
			return nil
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Tick evaluates every idle schedule once and returns how many runs it dispatched.
// Dispatch never waits for a run to finish.
func (e *Evaluator) Tick(ctx context.Context) int {
	schedules, err := e.store.ListIdle(ctx)
	if err != nil {
		e.logger.Error("[scheduler] Can't list schedules: %v", err)
		return 0
	}

	now := e.clock.Now()
	dispatched := 0
	for _, s := range schedules {
		if !IsDue(s, now) {
			continue
		}

		claimed, err := e.store.Claim(ctx, s.ID)
		if err != nil {
			e.logger.Error("[scheduler] Can't claim schedule %s: %v", s.ID, err)
			continue
		}
		if !claimed {
			e.logger.Debug("[scheduler] Schedule %s already claimed elsewhere", s.ID)
			continue
		}
		s.IsRunning = true
		s.Status = models.StatusActive

		started := e.pool.TrySubmit(func() {
			if err := e.runner.Run(ctx, s); err != nil {
				e.logger.Debug("[scheduler] Run of %s (%s) ended with error: %v", s.ID, s.Frequency, err)
			}
		})
		if !started {
			e.logger.Warn("[scheduler] All %d run slots busy, releasing schedule %s", e.maxRuns, s.ID)
			if err := e.store.Release(context.WithoutCancel(ctx), s.ID); err != nil {
				e.logger.Error("[scheduler] Can't release schedule %s: %v", s.ID, err)
			}
			continue
		}

		e.logger.Info("[scheduler] Dispatched %s schedule %s", s.Frequency, s.ID)
		dispatched++
	}
	return dispatched
}

// Wait blocks until every dispatched run has returned.
func (e *Evaluator) Wait() {
	e.pool.Wait()
}
