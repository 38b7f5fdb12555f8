package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/tidwall/gjson"

	"amazon-scraper/models"
)

const maxBodyBytes = 1 << 20

type scrapeResponse struct {
	Status     string `json:"status"`
	Category   string `json:"category"`
	Collection string `json:"collection"`
	Scraped    int    `json:"scraped"`
	Pages      int    `json:"pages"`
	Message    string `json:"message,omitempty"`
}

// scrape runs a one-off crawl and answers once it is done.
// POST accepts {"category": "...", "collection": "..."}; "query" is accepted for "category".
func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	category, collection, err := scrapeTarget(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if collection == "" {
		collection = strings.ToLower(category) + "_collection"
	}

	s.logger.Info("[api] One-off scrape of %q into %s", category, collection)
	res, err := s.crawler.Crawl(r.Context(), category, collection)

	resp := scrapeResponse{Status: "success", Category: category, Collection: collection}
	if res != nil {
		resp.Scraped = len(res.Listings)
		resp.Pages = res.Pages
	}
	if err != nil {
		s.logger.Error("[api] One-off scrape of %q failed: %v", category, err)
		resp.Status = "error"
		resp.Message = err.Error()
		writeJSON(w, http.StatusBadGateway, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func scrapeTarget(r *http.Request) (category, collection string, err error) {
	if c, ok := mux.Vars(r)["category"]; ok {
		return strings.TrimSpace(c), strings.TrimSpace(r.URL.Query().Get("collection")), nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return "", "", fmt.Errorf("can't read body: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return "", "", fmt.Errorf("invalid JSON body")
	}

	doc := gjson.ParseBytes(body)
	category = strings.TrimSpace(doc.Get("category").String())
	if category == "" {
		category = strings.TrimSpace(doc.Get("query").String())
	}
	if category == "" {
		return "", "", fmt.Errorf("category is required")
	}
	return category, strings.TrimSpace(doc.Get("collection").String()), nil
}

func (s *Server) listListings(w http.ResponseWriter, r *http.Request) {
	collection := mux.Vars(r)["collection"]
	listings, err := s.store.FetchListings(r.Context(), collection)
	if err != nil {
		s.logger.Error("[api] Can't fetch listings of %s: %v", collection, err)
		writeError(w, http.StatusInternalServerError, "can't fetch listings")
		return
	}
	if listings == nil {
		listings = []*models.Listing{}
	}
	writeJSON(w, http.StatusOK, listings)
}
