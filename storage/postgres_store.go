package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"amazon-scraper/models"
)

// PostgresStore persists listings and schedules to PostgreSQL.
// Listings of every collection share one table keyed by (collection, asin).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresStore.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

func (ps *PostgresStore) migrate(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			collection  VARCHAR(100)  NOT NULL,
			asin        VARCHAR(20)   NOT NULL,
			title       TEXT          NOT NULL,
			price       NUMERIC(12,2),
			brand       TEXT          NOT NULL DEFAULT 'Unknown',
			rating      NUMERIC(3,2)  NOT NULL DEFAULT 0,
			reviews     INTEGER       NOT NULL DEFAULT 0,
			image_url   TEXT          NOT NULL DEFAULT '',
			product_url TEXT          NOT NULL DEFAULT '',
			tags        TEXT[]        NOT NULL DEFAULT '{}',
			category    TEXT          NOT NULL DEFAULT '',
			scraped_at  TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
			PRIMARY KEY (collection, asin)
		);

		CREATE INDEX IF NOT EXISTS idx_listings_price    ON listings(price);
		CREATE INDEX IF NOT EXISTS idx_listings_rating   ON listings(rating);
		CREATE INDEX IF NOT EXISTS idx_listings_category ON listings(category);

		CREATE TABLE IF NOT EXISTS schedules (
			id          UUID         PRIMARY KEY,
			frequency   VARCHAR(10)  NOT NULL,
			time_of_day VARCHAR(5)   NOT NULL DEFAULT '',
			day_of_week VARCHAR(3)   NOT NULL DEFAULT '',
			categories  JSONB        NOT NULL DEFAULT '{}',
			is_running  BOOLEAN      NOT NULL DEFAULT FALSE,
			status      VARCHAR(10)  NOT NULL DEFAULT 'idle',
			last_run    TIMESTAMPTZ,
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_schedules_is_running ON schedules(is_running);
	`)
	return err
}

// EnsureIndexes is a no-op: the (collection, asin) primary key created by migrate is the unique index.
func (ps *PostgresStore) EnsureIndexes(context.Context, string) error {
	return nil
}

func (ps *PostgresStore) Upsert(ctx context.Context, collection string, l *models.Listing) error {
	if err := ValidateListing(l); err != nil {
		return err
	}

	_, err := ps.db.ExecContext(ctx, `
		INSERT INTO listings (collection, asin, title, price, brand, rating, reviews, image_url, product_url, tags, category, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (collection, asin) DO UPDATE SET
			title       = EXCLUDED.title,
			price       = EXCLUDED.price,
			brand       = EXCLUDED.brand,
			rating      = EXCLUDED.rating,
			reviews     = EXCLUDED.reviews,
			image_url   = EXCLUDED.image_url,
			product_url = EXCLUDED.product_url,
			tags        = EXCLUDED.tags,
			category    = EXCLUDED.category,
			scraped_at  = EXCLUDED.scraped_at
	`, collection, l.ID, l.Title, l.Price, l.Brand, l.Rating, l.ReviewCount,
		l.ImageURL, l.DetailURL, pq.Array(l.Tags), l.Category, l.ScrapedAt)
	if err != nil {
		return fmt.Errorf("postgres: upsert %s into %s: %w", l.ID, collection, err)
	}
	return nil
}

// FetchListings retrieves the stored listings of collection ordered by asin.
func (ps *PostgresStore) FetchListings(ctx context.Context, collection string) ([]*models.Listing, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT asin, title, price, brand, rating, reviews, image_url, product_url, tags, category, scraped_at
		FROM listings
		WHERE collection = $1
		ORDER BY asin
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch listings: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l := &models.Listing{}
		var price sql.NullFloat64
		if err := rows.Scan(
			&l.ID, &l.Title, &price, &l.Brand, &l.Rating, &l.ReviewCount,
			&l.ImageURL, &l.DetailURL, pq.Array(&l.Tags), &l.Category, &l.ScrapedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		if price.Valid {
			l.Price = &price.Float64
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

const scheduleColumns = `id, frequency, time_of_day, day_of_week, categories, is_running, status, last_run`

func (ps *PostgresStore) ListIdle(ctx context.Context) ([]*models.Schedule, error) {
	return ps.querySchedules(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE is_running = FALSE ORDER BY created_at, id`)
}

func (ps *PostgresStore) List(ctx context.Context) ([]*models.Schedule, error) {
	return ps.querySchedules(ctx, `SELECT `+scheduleColumns+` FROM schedules ORDER BY created_at, id`)
}

func (ps *PostgresStore) querySchedules(ctx context.Context, query string, args ...any) ([]*models.Schedule, error) {
	rows, err := ps.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query schedules: %w", err)
	}
	defer rows.Close()

	var out []*models.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*models.Schedule, error) {
	var (
		s          models.Schedule
		categories []byte
		lastRun    sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.Frequency, &s.TimeOfDay, &s.DayOfWeek, &categories, &s.IsRunning, &s.Status, &lastRun); err != nil {
		return nil, err
	}
	if len(categories) > 0 {
		if err := json.Unmarshal(categories, &s.Categories); err != nil {
			return nil, fmt.Errorf("postgres: decode categories of %s: %w", s.ID, err)
		}
	}
	if len(s.Categories) == 0 {
		s.Categories = nil
	}
	if lastRun.Valid {
		at := lastRun.Time
		s.LastRun = &at
	}
	return &s, nil
}

// Claim flips is_running in a single conditional update.
func (ps *PostgresStore) Claim(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, fmt.Errorf("%w: %q is not a uuid", ErrScheduleNotFound, id)
	}

	res, err := ps.db.ExecContext(ctx,
		`UPDATE schedules SET is_running = TRUE, status = $2 WHERE id = $1 AND is_running = FALSE`,
		id, models.StatusActive)
	if err != nil {
		return false, fmt.Errorf("postgres: claim schedule %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("postgres: claim schedule %s: %w", id, err)
	}
	if n == 1 {
		return true, nil
	}

	var exists bool
	if err := ps.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM schedules WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres: claim schedule %s: %w", id, err)
	}
	if !exists {
		return false, ErrScheduleNotFound
	}
	return false, nil
}

func (ps *PostgresStore) Release(ctx context.Context, id string) error {
	return ps.finish(ctx, `UPDATE schedules SET is_running = FALSE, status = $2 WHERE id = $1`, id, models.StatusIdle)
}

func (ps *PostgresStore) Complete(ctx context.Context, id string, at time.Time) error {
	return ps.finish(ctx, `UPDATE schedules SET is_running = FALSE, status = $2, last_run = $3 WHERE id = $1`, id, models.StatusComplete, at)
}

func (ps *PostgresStore) Fail(ctx context.Context, id string) error {
	return ps.finish(ctx, `UPDATE schedules SET is_running = FALSE, status = $2 WHERE id = $1`, id, models.StatusFailed)
}

func (ps *PostgresStore) ResetRunning(ctx context.Context) (int, error) {
	res, err := ps.db.ExecContext(ctx,
		`UPDATE schedules SET is_running = FALSE, status = $1 WHERE is_running = TRUE`, models.StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("postgres: reset running schedules: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("postgres: reset running schedules: %w", err)
	}
	return int(n), nil
}

func (ps *PostgresStore) finish(ctx context.Context, query, id string, args ...any) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q is not a uuid", ErrScheduleNotFound, id)
	}

	res, err := ps.db.ExecContext(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("postgres: update schedule %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: update schedule %s: %w", id, err)
	}
	if n == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (ps *PostgresStore) Create(ctx context.Context, s *models.Schedule) (*models.Schedule, error) {
	n := newSchedule(s)
	n.ID = uuid.NewString()

	categories, err := json.Marshal(n.Categories)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode categories: %w", err)
	}
	if n.Categories == nil {
		categories = []byte("{}")
	}

	_, err = ps.db.ExecContext(ctx, `
		INSERT INTO schedules (id, frequency, time_of_day, day_of_week, categories, is_running, status, last_run)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)
	`, n.ID, n.Frequency, n.TimeOfDay, n.DayOfWeek, categories, n.Status, n.LastRun)
	if err != nil {
		return nil, fmt.Errorf("postgres: insert schedule: %w", err)
	}
	return n, nil
}

func (ps *PostgresStore) Get(ctx context.Context, id string) (*models.Schedule, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q is not a uuid", ErrScheduleNotFound, id)
	}

	row := ps.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id)
	s, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get schedule %s: %w", id, err)
	}
	return s, nil
}

func (ps *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q is not a uuid", ErrScheduleNotFound, id)
	}

	res, err := ps.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete schedule %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: delete schedule %s: %w", id, err)
	}
	if n == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
