package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"amazon-scraper/models"
)

var csvHeader = []string{
	"collection", "asin", "title", "price", "brand", "rating", "reviews",
	"image_url", "product_url", "tags", "category", "scraped_at",
}

// CSVWriter appends persisted listings to a CSV export.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	closer io.Closer
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	c, err := newCSVWriter(f, f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return c, nil
}

func newCSVWriter(w io.Writer, closer io.Closer) (*CSVWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	return &CSVWriter{closer: closer, writer: cw}, nil
}

// Write appends one row and flushes it.
func (c *CSVWriter) Write(collection string, l *models.Listing) error {
	price := ""
	if l.Price != nil {
		price = strconv.FormatFloat(*l.Price, 'f', 2, 64)
	}

	row := []string{
		collection,
		l.ID,
		l.Title,
		price,
		l.Brand,
		strconv.FormatFloat(l.Rating, 'f', -1, 64),
		strconv.Itoa(l.ReviewCount),
		l.ImageURL,
		l.DetailURL,
		strings.Join(l.Tags, "|"),
		l.Category,
		l.ScrapedAt.Format(time.RFC3339),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writer.Write(row); err != nil {
		return fmt.Errorf("csv: write row: %w", err)
	}
	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writer.Flush()
	if c.closer == nil {
		return c.writer.Error()
	}
	return c.closer.Close()
}

// csvTee exports every listing the wrapped store accepted.
type csvTee struct {
	Store
	csv *CSVWriter
}

// WithCSV returns a Store that also appends each persisted listing to w.
// Closing it closes both.
func WithCSV(store Store, w *CSVWriter) Store {
	return &csvTee{Store: store, csv: w}
}

func (t *csvTee) Upsert(ctx context.Context, collection string, l *models.Listing) error {
	if err := t.Store.Upsert(ctx, collection, l); err != nil {
		return err
	}
	if err := t.csv.Write(collection, l); err != nil {
		return fmt.Errorf("listing %s stored but not exported: %w", l.ID, err)
	}
	return nil
}

func (t *csvTee) Close() error {
	csvErr := t.csv.Close()
	if err := t.Store.Close(); err != nil {
		return err
	}
	return csvErr
}
