package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"amazon-scraper/metrics"
	"amazon-scraper/utils"
)

// responseWriter keeps the status code written by the handler.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// observe records request metrics and writes one access log event per request.
func observe(logger *utils.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r)

			duration := time.Since(start)
			endpoint := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if tpl, err := route.GetPathTemplate(); err == nil {
					endpoint = tpl
				}
			}
			metrics.RecordRequest(r.Method, endpoint, rw.status, duration)

			logger.Zerolog().Info().
				Str("method", r.Method).
				Str("endpoint", endpoint).
				Int("status", rw.status).
				Dur("duration", duration).
				Msg("[api] request")
		})
	}
}
