package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"amazon-scraper/config"
	"amazon-scraper/metrics"
	"amazon-scraper/models"
	"amazon-scraper/notify"
	"amazon-scraper/scraper/amazon"
	"amazon-scraper/services"
	"amazon-scraper/storage"
	"amazon-scraper/utils"
)

const notifyTimeout = 30 * time.Second

//go:generate mockery --name Crawler --filename crawler.go

// Crawler scrapes one query into one collection.
type Crawler interface {
	Crawl(ctx context.Context, query, collection string) (*amazon.CrawlResult, error)
}

// Coordinator runs one claimed schedule: delays, category crawls, status transitions and alerts.
type Coordinator struct {
	store    storage.ScheduleStore
	crawler  Crawler
	notifier notify.Notifier
	summary  *services.SummaryService
	logger   *utils.Logger
	clock    utils.Clock

	defaults     map[string]string
	isolate      bool
	recentWindow time.Duration
	recentDelay  utils.Jitter
	startDelay   utils.Jitter
}

func NewCoordinator(
	cfg config.Scheduler,
	store storage.ScheduleStore,
	crawler Crawler,
	notifier notify.Notifier,
	summary *services.SummaryService,
	logger *utils.Logger,
	ops ...Option,
) *Coordinator {
	o := newOptions(ops)
	return &Coordinator{
		store:        store,
		crawler:      crawler,
		notifier:     notifier,
		summary:      summary,
		logger:       logger,
		clock:        o.clock,
		defaults:     cfg.Categories,
		isolate:      cfg.IsolateCategories,
		recentWindow: cfg.RecentWindow,
		recentDelay:  utils.Jitter{Min: cfg.RecentDelayMin, Max: cfg.RecentDelayMax},
		startDelay:   utils.Jitter{Min: cfg.StartDelayMin, Max: cfg.StartDelayMax},
	}
}

// Run executes a schedule that the caller has already claimed.
// Success completes it and stamps lastRun, failure marks it failed and notifies once.
// A run stopped by ctx is released back to idle.
func (c *Coordinator) Run(ctx context.Context, s *models.Schedule) error {
	logger := c.logger.With("run_id", uuid.NewString()).With("schedule", s.ID)
	started := time.Now()
	frequency := string(s.Frequency)

	total, err := c.execute(ctx, s, logger)

	// status writes must land even when ctx is already cancelled
	statusCtx := context.WithoutCancel(ctx)
	switch {
	case err == nil:
		if err := c.store.Complete(statusCtx, s.ID, c.clock.Now()); err != nil {
			logger.Error("[coordinator] Can't mark schedule %s complete: %v", s.ID, err)
		}
		metrics.RecordRun(frequency, string(models.StatusComplete), time.Since(started))
		logger.Info("[coordinator] %s run complete: %d listings persisted", frequency, total)
		return nil

	case ctx.Err() != nil:
		if rerr := c.store.Release(statusCtx, s.ID); rerr != nil {
			logger.Error("[coordinator] Can't release schedule %s: %v", s.ID, rerr)
		}
		metrics.RecordRun(frequency, "cancelled", time.Since(started))
		logger.Warn("[coordinator] %s run interrupted after %d listings: %v", frequency, total, err)
		return err

	default:
		if ferr := c.store.Fail(statusCtx, s.ID); ferr != nil {
			logger.Error("[coordinator] Can't mark schedule %s failed: %v", s.ID, ferr)
		}
		metrics.RecordRun(frequency, string(models.StatusFailed), time.Since(started))
		logger.Error("[coordinator] %s run failed after %d listings: %v", frequency, total, err)

		notifyCtx, cancel := context.WithTimeout(statusCtx, notifyTimeout)
		defer cancel()
		if nerr := c.notifier.NotifyFailure(notifyCtx, err.Error(), frequency); nerr != nil {
			logger.Error("[coordinator] Failure notification not delivered: %v", nerr)
		}
		return err
	}
}

// execute runs the crawls of s. A panic inside them becomes the run error.
func (c *Coordinator) execute(ctx context.Context, s *models.Schedule, logger *utils.Logger) (total int, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("[coordinator] Run panicked: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("run panicked: %v", r)
		}
	}()
	return c.crawlAll(ctx, s, logger)
}

func (c *Coordinator) crawlAll(ctx context.Context, s *models.Schedule, logger *utils.Logger) (int, error) {
	if s.LastRun != nil && c.recentWindow > 0 && c.clock.Now().Sub(*s.LastRun) < c.recentWindow {
		logger.Info("[coordinator] Previous run finished at %s, backing off", s.LastRun.Format(time.RFC3339))
		if err := c.recentDelay.Wait(ctx); err != nil {
			return 0, err
		}
	}
	if err := c.startDelay.Wait(ctx); err != nil {
		return 0, err
	}

	categories := s.Categories
	if len(categories) == 0 {
		categories = c.defaults
	}
	if len(categories) == 0 {
		return 0, fmt.Errorf("schedule %s has no categories to scrape", s.ID)
	}
	queries := lo.Keys(categories)
	sort.Strings(queries)

	total := 0
	var errs []error
	for _, query := range queries {
		collection := categories[query]
		res, err := c.crawler.Crawl(ctx, query, collection)
		if res != nil {
			total += len(res.Listings)
			c.summary.Log(c.summary.Generate(query, collection, res.Listings))
		}
		if err == nil {
			continue
		}

		err = fmt.Errorf("category %q: %w", query, err)
		if !c.isolate || ctx.Err() != nil {
			return total, err
		}
		logger.Warn("[coordinator] %v; continuing with remaining categories", err)
		errs = append(errs, err)
	}
	return total, errors.Join(errs...)
}
