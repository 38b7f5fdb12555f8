package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"amazon-scraper/models"
)

var (
	// ErrIncompleteListing is returned for records missing the asin or the title. They are never written.
	ErrIncompleteListing = errors.New("storage: listing is missing asin or title")
	// ErrScheduleNotFound is returned when no schedule has the requested id.
	ErrScheduleNotFound = errors.New("storage: schedule not found")
)

// ListingStore is the product persistence any backend must satisfy.
type ListingStore interface {
	// EnsureIndexes creates the unique asin index for collection if it does not exist yet.
	EnsureIndexes(ctx context.Context, collection string) error
	// Upsert inserts the listing or overwrites every non-key field of the stored one.
	Upsert(ctx context.Context, collection string, l *models.Listing) error
}

// ListingReader reads back what a ListingStore persisted.
type ListingReader interface {
	// FetchListings returns the listings of collection ordered by asin.
	FetchListings(ctx context.Context, collection string) ([]*models.Listing, error)
}

// ScheduleStore persists schedule definitions and their execution state.
type ScheduleStore interface {
	// ListIdle returns every schedule that is not running.
	ListIdle(ctx context.Context) ([]*models.Schedule, error)
	// Claim atomically moves an idle schedule to running/active.
	// It reports false without error when another caller claimed it first.
	Claim(ctx context.Context, id string) (bool, error)
	// Release puts a claimed schedule back to idle without touching lastRun.
	Release(ctx context.Context, id string) error
	// Complete marks the run as complete and records at as lastRun.
	Complete(ctx context.Context, id string, at time.Time) error
	// Fail marks the run as failed and leaves lastRun unchanged.
	Fail(ctx context.Context, id string) error
	// ResetRunning marks every schedule still flagged running as failed and returns how many there were.
	// Called at startup, before any claim, to recover runs lost with the previous process.
	ResetRunning(ctx context.Context) (int, error)

	Create(ctx context.Context, s *models.Schedule) (*models.Schedule, error)
	List(ctx context.Context) ([]*models.Schedule, error)
	Get(ctx context.Context, id string) (*models.Schedule, error)
	Delete(ctx context.Context, id string) error
}

// Store is a complete backend.
type Store interface {
	ListingStore
	ListingReader
	ScheduleStore
	Close() error
}

// ValidateListing rejects records that must never be written.
func ValidateListing(l *models.Listing) error {
	if l == nil || strings.TrimSpace(l.ID) == "" || strings.TrimSpace(l.Title) == "" {
		return ErrIncompleteListing
	}
	return nil
}

func newSchedule(s *models.Schedule) *models.Schedule {
	cp := *s
	cp.IsRunning = false
	if cp.Status == "" {
		cp.Status = models.StatusIdle
	}
	return &cp
}
