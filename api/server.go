// Package api is the admin HTTP surface: schedule management and one-off scrapes.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"amazon-scraper/metrics"
	"amazon-scraper/scraper/amazon"
	"amazon-scraper/storage"
	"amazon-scraper/utils"
)

// Crawler scrapes one query into one collection.
type Crawler interface {
	Crawl(ctx context.Context, query, collection string) (*amazon.CrawlResult, error)
}

// Store is the persistence the admin surface needs.
type Store interface {
	storage.ScheduleStore
	storage.ListingReader
}

// Server routes admin requests.
type Server struct {
	store   Store
	crawler Crawler
	logger  *utils.Logger
	router  *mux.Router
}

func NewServer(store Store, crawler Crawler, logger *utils.Logger) *Server {
	s := &Server{
		store:   store,
		crawler: crawler,
		logger:  logger,
		router:  mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(observe(s.logger))

	s.router.HandleFunc("/schedules", s.createSchedule).Methods(http.MethodPost)
	s.router.HandleFunc("/schedules", s.listSchedules).Methods(http.MethodGet)
	s.router.HandleFunc("/schedules/{id}", s.getSchedule).Methods(http.MethodGet)
	s.router.HandleFunc("/schedules/{id}", s.deleteSchedule).Methods(http.MethodDelete)

	s.router.HandleFunc("/scrape", s.scrape).Methods(http.MethodPost)
	s.router.HandleFunc("/scrape/{category}", s.scrape).Methods(http.MethodGet)
	s.router.HandleFunc("/collections/{collection}/listings", s.listListings).Methods(http.MethodGet)

	s.router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	s.router.Handle("/metrics", metrics.MetricsHandler()).Methods(http.MethodGet)
}

// Handler returns the router wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Status: "error", Message: message})
}
