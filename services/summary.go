package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"amazon-scraper/models"
	"amazon-scraper/utils"
)

// SummaryService computes and reports statistics over the listings of one crawl.
type SummaryService struct {
	logger *utils.Logger
}

func NewSummaryService(logger *utils.Logger) *SummaryService {
	return &SummaryService{logger: logger}
}

func (s *SummaryService) Generate(query, collection string, listings []*models.Listing) *models.Summary {
	report := &models.Summary{
		Query:      query,
		Collection: collection,
		ByBrand:    make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	var priced []*models.Listing
	var rated []*models.Listing

	for _, l := range listings {
		if l.Price != nil {
			priced = append(priced, l)
		}
		if l.Rating > 0 {
			rated = append(rated, l)
		}
		if l.Brand != "" {
			report.ByBrand[l.Brand]++
		}
	}

	// Price stats (only listings with a parsed price)
	report.PricedCount = len(priced)
	if len(priced) > 0 {
		report.MinPrice = *priced[0].Price
		report.MaxPrice = *priced[0].Price
		report.MostExpensive = priced[0]
		var total float64
		for _, l := range priced {
			p := *l.Price
			total += p
			if p < report.MinPrice {
				report.MinPrice = p
			}
			if p > report.MaxPrice {
				report.MaxPrice = p
				report.MostExpensive = l
			}
		}
		report.AveragePrice = round2(total / float64(len(priced)))
		report.MinPrice = round2(report.MinPrice)
		report.MaxPrice = round2(report.MaxPrice)
	}

	// Top 3 by rating, review count breaks ties
	sort.SliceStable(rated, func(i, j int) bool {
		if rated[i].Rating != rated[j].Rating {
			return rated[i].Rating > rated[j].Rating
		}
		return rated[i].ReviewCount > rated[j].ReviewCount
	})
	if len(rated) > 3 {
		report.TopRated = rated[:3]
	} else {
		report.TopRated = rated
	}

	return report
}

// Log writes a compact summary line per report, for scheduled runs.
func (s *SummaryService) Log(r *models.Summary) {
	if r.TotalListings == 0 {
		s.logger.Warn("[summary] %q → %s: no listings persisted", r.Query, r.Collection)
		return
	}
	s.logger.Info("[summary] %q → %s: %d listings, %d priced, avg ₹%.2f (min ₹%.2f, max ₹%.2f), brands: %s",
		r.Query, r.Collection, r.TotalListings, r.PricedCount, r.AveragePrice, r.MinPrice, r.MaxPrice, topBrands(r.ByBrand, 3))
}

// Print renders the report for a terminal.
func (s *SummaryService) Print(w io.Writer, r *models.Summary) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 SCRAPE SUMMARY: %s\033[0m\n", r.Query)
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Listings persisted : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  Collection         : \033[1m%s\033[0m\n", r.Collection)
	fmt.Fprintln(w)

	// Price Stats
	fmt.Fprintf(w, "\033[1;33m  Price Statistics\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.PricedCount > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32m₹%.2f\033[0m\n", r.AveragePrice)
		fmt.Fprintf(w, "  Minimum price : \033[1;32m₹%.2f\033[0m\n", r.MinPrice)
		fmt.Fprintf(w, "  Maximum price : \033[1;32m₹%.2f\033[0m\n", r.MaxPrice)
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	if r.MostExpensive != nil {
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.MostExpensive.Title, 50))
		fmt.Fprintf(w, "  Brand : %s\n", r.MostExpensive.Brand)
		fmt.Fprintf(w, "  Price : \033[1;31m₹%.2f\033[0m\n", *r.MostExpensive.Price)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Top Rated\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopRated) == 0 {
		fmt.Fprintf(w, "  No rated listings found\n")
	} else {
		for i, l := range r.TopRated {
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;32m%.1f ★\033[0m (%d)\n",
				i+1, truncate(l.Title, 38), l.Rating, l.ReviewCount)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Listings by Brand\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	for _, bc := range brandCounts(r.ByBrand) {
		bar := strings.Repeat("█", bc.count)
		fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(bc.brand, 28), bar, bc.count)
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

type brandCount struct {
	brand string
	count int
}

// brandCounts sorts brands by count descending, then by name.
func brandCounts(byBrand map[string]int) []brandCount {
	out := make([]brandCount, 0, len(byBrand))
	for b, c := range byBrand {
		out = append(out, brandCount{b, c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].brand < out[j].brand
	})
	return out
}

func topBrands(byBrand map[string]int, n int) string {
	counts := brandCounts(byBrand)
	if len(counts) > n {
		counts = counts[:n]
	}
	parts := make([]string, 0, len(counts))
	for _, bc := range counts {
		parts = append(parts, fmt.Sprintf("%s(%d)", bc.brand, bc.count))
	}
	return strings.Join(parts, ", ")
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
