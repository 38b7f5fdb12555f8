package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Listing outcomes.
const (
	OutcomePersisted = "persisted"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

var (
	listingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_listings_total",
			Help: "Listing elements processed, by destination collection and outcome.",
		},
		[]string{"collection", "outcome"},
	)
	pagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_pages_crawled_total",
			Help: "Result pages crawled, by query.",
		},
		[]string{"query"},
	)
	crawlErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_crawl_errors_total",
			Help: "Terminal crawl errors, by reason.",
		},
		[]string{"reason"},
	)
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_runs_total",
			Help: "Finished schedule runs, by frequency and final status.",
		},
		[]string{"frequency", "status"},
	)
	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_run_duration_seconds",
			Help:    "Histogram of schedule run durations.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"frequency"},
	)
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "endpoint", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)
)

func init() {
	prometheus.MustRegister(listingsTotal)
	prometheus.MustRegister(pagesTotal)
	prometheus.MustRegister(crawlErrorsTotal)
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(runDuration)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
}

// RecordListing counts one processed listing element.
func RecordListing(collection, outcome string) {
	listingsTotal.WithLabelValues(collection, outcome).Inc()
}

func RecordPage(query string) {
	pagesTotal.WithLabelValues(query).Inc()
}

func RecordCrawlError(reason string) {
	crawlErrorsTotal.WithLabelValues(reason).Inc()
}

// RecordRun counts a finished run and observes its duration.
func RecordRun(frequency, status string, duration time.Duration) {
	runsTotal.WithLabelValues(frequency, status).Inc()
	runDuration.WithLabelValues(frequency).Observe(duration.Seconds())
}

// RecordRequest records metrics for one HTTP request.
func RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

func classifyStatus(statusCode int) string {
	if statusCode < 100 || statusCode >= 600 {
		return "unknown"
	}
	return strconv.Itoa(statusCode/100) + "xx"
}

// MetricsHandler returns the HTTP handler exporting Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
