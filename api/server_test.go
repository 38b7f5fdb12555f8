package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amazon-scraper/api"
	"amazon-scraper/models"
	"amazon-scraper/scraper/amazon"
	"amazon-scraper/storage"
	"amazon-scraper/utils"
)

type crawlFunc func(ctx context.Context, query, collection string) (*amazon.CrawlResult, error)

func (f crawlFunc) Crawl(ctx context.Context, query, collection string) (*amazon.CrawlResult, error) {
	return f(ctx, query, collection)
}

func noCrawl(t *testing.T) crawlFunc {
	return func(context.Context, string, string) (*amazon.CrawlResult, error) {
		t.Fatal("unexpected crawl")
		return nil, nil
	}
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateSchedule(t *testing.T) {
	store := storage.NewMemoryStore()
	h := api.NewServer(store, noCrawl(t), utils.NopLogger()).Handler()

	tests := map[string]struct {
		body       string
		wantStatus int
	}{
		"weekly":        {`{"frequency":"weekly","time":"9:30","day":"Monday","categories":{"laptop":"laptops"}}`, http.StatusCreated},
		"hourly":        {`{"frequency":"hourly"}`, http.StatusCreated},
		"bad frequency": {`{"frequency":"monthly","time":"09:00"}`, http.StatusBadRequest},
		"bad time":      {`{"frequency":"daily","time":"25:00"}`, http.StatusBadRequest},
		"weekly no day": {`{"frequency":"weekly","time":"09:00"}`, http.StatusBadRequest},
		"not json":      {`frequency=daily`, http.StatusBadRequest},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/schedules", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}

	schedules, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, schedules, 2)
}

func TestCreateScheduleNormalisesFields(t *testing.T) {
	store := storage.NewMemoryStore()
	h := api.NewServer(store, noCrawl(t), utils.NopLogger()).Handler()

	rec := do(t, h, http.MethodPost, "/schedules", `{"frequency":"weekly","time":"9:30","day":"Monday"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var got models.Schedule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "09:30", got.TimeOfDay)
	assert.Equal(t, "mon", got.DayOfWeek)
	assert.Equal(t, models.StatusIdle, got.Status)
	assert.False(t, got.IsRunning)
}

func TestListGetDeleteSchedules(t *testing.T) {
	store := storage.NewMemoryStore()
	created, err := store.Create(context.Background(), &models.Schedule{Frequency: models.Hourly})
	require.NoError(t, err)
	h := api.NewServer(store, noCrawl(t), utils.NopLogger()).Handler()

	rec := do(t, h, http.MethodGet, "/schedules", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Schedule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/schedules/"+created.ID, "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodDelete, "/schedules/"+created.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/schedules/"+created.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/schedules/"+created.ID, "").Code)

	rec = do(t, h, http.MethodGet, "/schedules", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestScrapeDefaultsCollection(t *testing.T) {
	var gotQuery, gotCollection string
	crawler := crawlFunc(func(_ context.Context, query, collection string) (*amazon.CrawlResult, error) {
		gotQuery, gotCollection = query, collection
		return &amazon.CrawlResult{Pages: 2, Listings: []*models.Listing{{ID: "B01"}, {ID: "B02"}}}, nil
	})
	h := api.NewServer(storage.NewMemoryStore(), crawler, utils.NopLogger()).Handler()

	rec := do(t, h, http.MethodPost, "/scrape", `{"category":"Laptop"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Laptop", gotQuery)
	assert.Equal(t, "laptop_collection", gotCollection)
	assert.JSONEq(t, `{"status":"success","category":"Laptop","collection":"laptop_collection","scraped":2,"pages":2}`, rec.Body.String())
}

func TestScrapeRequestShapes(t *testing.T) {
	var gotQuery, gotCollection string
	crawler := crawlFunc(func(_ context.Context, query, collection string) (*amazon.CrawlResult, error) {
		gotQuery, gotCollection = query, collection
		return &amazon.CrawlResult{}, nil
	})
	h := api.NewServer(storage.NewMemoryStore(), crawler, utils.NopLogger()).Handler()

	rec := do(t, h, http.MethodPost, "/scrape", `{"query":"sofa","collection":"sofas","max_products":5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sofa", gotQuery)
	assert.Equal(t, "sofas", gotCollection)

	rec = do(t, h, http.MethodGet, "/scrape/toys", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "toys", gotQuery)
	assert.Equal(t, "toys_collection", gotCollection)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/scrape", `{"collection":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/scrape", `{"category":`).Code)
}

func TestScrapeFailureReportsPartialCount(t *testing.T) {
	crawler := crawlFunc(func(context.Context, string, string) (*amazon.CrawlResult, error) {
		return &amazon.CrawlResult{Pages: 1, Listings: []*models.Listing{{ID: "B01"}}}, amazon.ErrBotDetected
	})
	h := api.NewServer(storage.NewMemoryStore(), crawler, utils.NopLogger()).Handler()

	rec := do(t, h, http.MethodPost, "/scrape", `{"category":"mobile","collection":"mobiles"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "error", got["status"])
	assert.EqualValues(t, 1, got["scraped"])
	assert.Contains(t, got["message"], "bot verification")
}

func TestListListings(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Upsert(context.Background(), "laptops", &models.Listing{ID: "B01", Title: "Laptop"}))
	h := api.NewServer(store, noCrawl(t), utils.NopLogger()).Handler()

	rec := do(t, h, http.MethodGet, "/collections/laptops/listings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []models.Listing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "B01", got[0].ID)

	rec = do(t, h, http.MethodGet, "/collections/empty/listings", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	h := api.NewServer(storage.NewMemoryStore(), noCrawl(t), utils.NopLogger()).Handler()

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	h := api.NewServer(storage.NewMemoryStore(), noCrawl(t), utils.NopLogger()).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/schedules", nil)
	req.Header.Set("Origin", "http://admin.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Contains(t, []string{"*", "http://admin.test"}, rec.Header().Get("Access-Control-Allow-Origin"))
}
