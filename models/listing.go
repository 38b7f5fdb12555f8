package models

import "time"

// UnknownBrand is stored when neither the brand label nor the title yields a brand.
const UnknownBrand = "Unknown"

// Listing is one product extracted from a search results page.
// ID is the site-assigned ASIN and the upsert key.
type Listing struct {
	ID          string    `bson:"asin" json:"asin"`
	Title       string    `bson:"title" json:"title"`
	Price       *float64  `bson:"price" json:"price"`
	Brand       string    `bson:"brand" json:"brand"`
	Rating      float64   `bson:"rating" json:"rating"`
	ReviewCount int       `bson:"reviews" json:"reviews"`
	ImageURL    string    `bson:"image_url,omitempty" json:"image_url,omitempty"`
	DetailURL   string    `bson:"product_url,omitempty" json:"product_url,omitempty"`
	Tags        []string  `bson:"tags" json:"tags"`
	Category    string    `bson:"category" json:"category"`
	ScrapedAt   time.Time `bson:"scraped_at" json:"scraped_at"`
}

// Summary holds computed statistics over the listings persisted by one crawl.
type Summary struct {
	Query         string
	Collection    string
	TotalListings int
	PricedCount   int
	AveragePrice  float64
	MinPrice      float64
	MaxPrice      float64
	MostExpensive *Listing
	TopRated      []*Listing
	ByBrand       map[string]int
}
