package amazon

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"amazon-scraper/browser"
	"amazon-scraper/metrics"
	"amazon-scraper/models"
	"amazon-scraper/storage"
	"amazon-scraper/utils"
)

// errSkip marks an element that is not a usable listing (no asin or no title).
var errSkip = errors.New("listing element skipped")

// Target describes where the listings of one crawl go.
type Target struct {
	Query      string
	Collection string
	// Limit caps persisted listings; zero or less is unlimited.
	Limit int
	// Seen drops ids already persisted earlier in the same crawl. Optional.
	Seen *utils.IDSet
}

// PageResult is the outcome of extracting one page.
type PageResult struct {
	Persisted []*models.Listing
	Skipped   int
	Failed    int
}

// Extractor turns listing elements into persisted listings.
type Extractor struct {
	fields    Fields
	store     storage.ListingStore
	logger    *utils.Logger
	baseURL   *url.URL
	itemDelay utils.Jitter
	clock     utils.Clock
}

// NewExtractor returns an Extractor resolving links against baseURL.
func NewExtractor(store storage.ListingStore, logger *utils.Logger, baseURL *url.URL, itemDelay utils.Jitter, clock utils.Clock) *Extractor {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &Extractor{
		fields:    DefaultFields(),
		store:     store,
		logger:    logger,
		baseURL:   baseURL,
		itemDelay: itemDelay,
		clock:     clock,
	}
}

// Extract persists the listings of items in order until the target limit is reached.
// A failing item is counted and logged, never fatal; only ctx cancellation stops the page.
func (e *Extractor) Extract(ctx context.Context, items []browser.Element, target Target) (PageResult, error) {
	var res PageResult

	for _, item := range items {
		if target.Limit > 0 && len(res.Persisted) >= target.Limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		listing, err := e.build(ctx, item, target.Query)
		if errors.Is(err, errSkip) {
			res.Skipped++
			metrics.RecordListing(target.Collection, metrics.OutcomeSkipped)
			continue
		}
		if err != nil {
			res.Failed++
			metrics.RecordListing(target.Collection, metrics.OutcomeFailed)
			e.logger.Warn("[amazon] Skipped one listing due to error: %v", err)
			continue
		}

		if target.Seen != nil && target.Seen.Contains(listing.ID) {
			e.logger.Debug("[amazon] Skipping duplicate: %s", listing.ID)
			res.Skipped++
			metrics.RecordListing(target.Collection, metrics.OutcomeSkipped)
			continue
		}

		listing.ScrapedAt = e.clock.Now()
		if err := e.store.Upsert(ctx, target.Collection, listing); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Failed++
			metrics.RecordListing(target.Collection, metrics.OutcomeFailed)
			e.logger.Error("[amazon] Upsert %s into %s failed: %v", listing.ID, target.Collection, err)
			continue
		}
		if target.Seen != nil {
			target.Seen.Add(listing.ID)
		}

		res.Persisted = append(res.Persisted, listing)
		metrics.RecordListing(target.Collection, metrics.OutcomePersisted)
		e.logger.Info("[amazon] [%d] %s | %s | %s | %.1f | reviews: %d",
			len(res.Persisted), truncate(listing.Title, 60), formatPrice(listing.Price),
			listing.Brand, listing.Rating, listing.ReviewCount)

		if err := e.itemDelay.Wait(ctx); err != nil {
			return res, err
		}
	}

	return res, nil
}

// build assembles one listing. Panics from the driver are returned as errors.
func (e *Extractor) build(ctx context.Context, item browser.Element, query string) (l *models.Listing, err error) {
	defer func() {
		if r := recover(); r != nil {
			l, err = nil, fmt.Errorf("panic while extracting listing: %v", r)
		}
	}()

	id, ok := e.fields.ID.Extract(ctx, item)
	if !ok {
		return nil, errSkip
	}
	title, ok := e.fields.Title.Extract(ctx, item)
	if !ok {
		e.logger.Debug("[amazon] Listing %s has no title, skipping", id)
		return nil, errSkip
	}

	l = &models.Listing{
		ID:       id,
		Title:    title,
		Brand:    models.UnknownBrand,
		Category: query,
		Tags:     Classify(query, title),
	}

	if price, ok := e.fields.Price.Extract(ctx, item); ok {
		l.Price = &price
	}
	if brand, ok := e.fields.Brand.Extract(ctx, item); ok {
		l.Brand = brand
	} else if brand, ok := brandFromTitle(title); ok {
		l.Brand = brand
	}
	l.Rating, _ = e.fields.Rating.Extract(ctx, item)
	l.ReviewCount, _ = e.fields.Reviews.Extract(ctx, item)
	l.ImageURL, _ = e.fields.Image.Extract(ctx, item)
	if href, ok := e.fields.Link.Extract(ctx, item); ok {
		l.DetailURL = absoluteURL(e.baseURL, href)
	}

	return l, nil
}

func formatPrice(p *float64) string {
	if p == nil {
		return "N/A"
	}
	return fmt.Sprintf("₹%.2f", *p)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
