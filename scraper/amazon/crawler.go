package amazon

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"amazon-scraper/browser"
	"amazon-scraper/config"
	"amazon-scraper/metrics"
	"amazon-scraper/models"
	"amazon-scraper/storage"
	"amazon-scraper/utils"
)

// CrawlResult is the outcome of crawling one query.
type CrawlResult struct {
	Query      string
	Collection string
	Pages      int
	Listings   []*models.Listing
	Skipped    int
	Failed     int
}

// Option is custom configuration of Crawler.
type Option func(c *Crawler)

// WithClock sets the Clock stamping scrapedAt and diagnostics files.
func WithClock(clock utils.Clock) Option {
	return func(c *Crawler) {
		c.clock = clock
	}
}

// Crawler drives the search results pagination of one query at a time.
// It is safe for concurrent use; every Crawl opens its own page.
type Crawler struct {
	cfg         config.Scraper
	browser     browser.Browser
	store       storage.ListingStore
	logger      *utils.Logger
	limiter     *rate.Limiter
	retry       *utils.RetryConfig
	clock       utils.Clock
	extractor   *Extractor
	diagnostics *Diagnostics
}

// NewCrawler returns a ready-to-use Crawler.
func NewCrawler(cfg *config.Config, b browser.Browser, store storage.ListingStore, logger *utils.Logger, ops ...Option) (*Crawler, error) {
	baseURL, err := url.Parse(cfg.Scraper.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("amazon: parse base url: %w", err)
	}
	if !strings.Contains(cfg.Scraper.SearchURL, "%s") {
		return nil, fmt.Errorf("amazon: search url %q has no %%s query placeholder", cfg.Scraper.SearchURL)
	}

	limit := rate.Inf
	if cfg.Scraper.RateLimit() > 0 {
		limit = rate.Every(cfg.Scraper.RateLimit())
	}

	c := &Crawler{
		cfg:     cfg.Scraper,
		browser: b,
		store:   store,
		logger:  logger,
		limiter: rate.NewLimiter(limit, 1),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.Scraper.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
			Retryable:   retryableNavigation,
		},
		clock: utils.SystemClock{},
	}
	for _, op := range ops {
		op(c)
	}

	c.extractor = NewExtractor(store, logger, baseURL,
		utils.Jitter{Min: cfg.Scraper.ItemDelayMin, Max: cfg.Scraper.ItemDelayMax}, c.clock)
	c.diagnostics = NewDiagnostics(cfg.DiagnosticsDir, logger, c.clock)
	return c, nil
}

// Crawl scrapes query page by page into collection.
// It stops at the page ceiling, at the item cap or when there is no usable next page control.
// Render timeouts and verification pages are terminal and wrap ErrRenderTimeout or ErrBotDetected.
func (c *Crawler) Crawl(ctx context.Context, query, collection string) (*CrawlResult, error) {
	result := &CrawlResult{Query: query, Collection: collection}

	if err := c.store.EnsureIndexes(ctx, collection); err != nil {
		return result, fmt.Errorf("ensure indexes on %s: %w", collection, err)
	}

	page, err := c.browser.NewPage(ctx)
	if err != nil {
		return result, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	searchURL := fmt.Sprintf(c.cfg.SearchURL, url.QueryEscape(query))
	c.logger.Info("[amazon] Scraping category %q into %s: %s", query, collection, searchURL)

	err = c.retry.Do(ctx, "navigate-"+query, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return page.Navigate(ctx, searchURL, c.cfg.NavTimeout)
	})
	if err != nil {
		metrics.RecordCrawlError("navigation")
		return result, fmt.Errorf("navigate to results: %w", err)
	}

	maxPages := c.cfg.MaxPages
	if maxPages < 1 {
		maxPages = 1
	}
	seen := utils.NewIDSet()
	pageDelay := utils.Jitter{Min: c.cfg.PageDelayMin, Max: c.cfg.PageDelayMax}

	for pageNum := 1; ; pageNum++ {
		if err := c.awaitResults(ctx, page, query, pageNum); err != nil {
			return result, err
		}

		items, err := page.QueryAll(ctx, itemSelector)
		if err != nil {
			return result, fmt.Errorf("query listings on page %d: %w", pageNum, err)
		}
		if len(items) == 0 {
			c.logger.Warn("[amazon] Page %d of %q rendered 0 listings", pageNum, query)
		}

		limit := 0
		if c.cfg.MaxProducts > 0 {
			limit = c.cfg.MaxProducts - len(result.Listings)
		}
		pr, err := c.extractor.Extract(ctx, items, Target{Query: query, Collection: collection, Limit: limit, Seen: seen})
		result.Listings = append(result.Listings, pr.Persisted...)
		result.Skipped += pr.Skipped
		result.Failed += pr.Failed
		if err != nil {
			return result, err
		}

		result.Pages++
		metrics.RecordPage(query)
		c.logger.Info("[amazon] Page %d done: %d persisted, %d skipped, %d failed (total %d)",
			pageNum, len(pr.Persisted), pr.Skipped, pr.Failed, len(result.Listings))

		if c.cfg.MaxProducts > 0 && len(result.Listings) >= c.cfg.MaxProducts {
			c.logger.Info("[amazon] Reached item cap of %d for %q", c.cfg.MaxProducts, query)
			break
		}
		if pageNum >= maxPages {
			break
		}
		if !c.nextPage(ctx, page, pageNum) {
			break
		}
		if err := pageDelay.Wait(ctx); err != nil {
			return result, err
		}
	}

	c.logger.Info("[amazon] Completed %q: %d listings over %d pages", query, len(result.Listings), result.Pages)
	return result, nil
}

// awaitResults waits for the result grid and classifies a failed wait.
func (c *Crawler) awaitResults(ctx context.Context, page browser.Page, query string, pageNum int) error {
	if c.botCheck(ctx, page) {
		c.diagnostics.Capture(ctx, page, query, "bot")
		metrics.RecordCrawlError("bot")
		return fmt.Errorf("%w: query %q page %d", ErrBotDetected, query, pageNum)
	}

	err := page.WaitFor(ctx, resultsSelector, c.cfg.WaitTimeout)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if c.botCheck(ctx, page) {
		c.diagnostics.Capture(ctx, page, query, "bot")
		metrics.RecordCrawlError("bot")
		return fmt.Errorf("%w: query %q page %d", ErrBotDetected, query, pageNum)
	}
	c.diagnostics.Capture(ctx, page, query, "timeout")
	metrics.RecordCrawlError("render_timeout")
	return fmt.Errorf("%w: query %q page %d: %w", ErrRenderTimeout, query, pageNum, err)
}

func (c *Crawler) botCheck(ctx context.Context, page browser.Page) bool {
	html, err := page.Content(ctx)
	if err != nil {
		c.logger.Debug("[amazon] Can't read page content for bot check: %v", err)
		return false
	}
	return hasBotMarkers(html)
}

// navigationPoll is how often the page location is checked after activating the next control.
const navigationPoll = 100 * time.Millisecond

// nextPage activates the next page control and reports whether the page moved to a new location.
// The results grid of the previous page still matches until the browser leaves it.
func (c *Crawler) nextPage(ctx context.Context, page browser.Page, pageNum int) bool {
	next, err := browser.QueryFirst(ctx, page, nextPageSelectors...)
	if err != nil {
		if !errors.Is(err, browser.ErrNotFound) {
			c.logger.Warn("[amazon] Looking up next page control failed: %v", err)
		}
		c.logger.Info("[amazon] No next page after page %d", pageNum)
		return false
	}

	enabled, err := next.IsEnabled(ctx)
	if err != nil || !enabled {
		c.logger.Info("[amazon] Next page control disabled after page %d", pageNum)
		return false
	}

	prev, err := page.URL(ctx)
	if err != nil {
		c.logger.Warn("[amazon] Can't read page location after page %d: %v", pageNum, err)
		return false
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return false
	}
	if err := next.Click(ctx); err != nil {
		c.logger.Warn("[amazon] Can't activate next page control after page %d: %v", pageNum, err)
		return false
	}
	if err := c.awaitNavigation(ctx, page, prev); err != nil {
		c.logger.Warn("[amazon] Next page control did not leave page %d: %v", pageNum, err)
		return false
	}
	return true
}

// awaitNavigation waits until the page location differs from prev.
func (c *Crawler) awaitNavigation(ctx context.Context, page browser.Page, prev string) error {
	deadline := time.NewTimer(c.cfg.WaitTimeout)
	defer deadline.Stop()
	poll := time.NewTicker(navigationPoll)
	defer poll.Stop()

	for {
		if loc, err := page.URL(ctx); err == nil && loc != prev {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w: location stayed at %s", browser.ErrWaitTimeout, prev)
		case <-poll.C:
		}
	}
}

func hasBotMarkers(html string) bool {
	lower := strings.ToLower(html)
	for _, m := range botMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func retryableNavigation(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, browser.ErrUnsupported)
}
