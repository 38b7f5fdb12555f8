package amazon

// Markup of the search results page.
const (
	resultsSelector = "div.s-main-slot"
	itemSelector    = "div.s-main-slot div[data-component-type='s-search-result']"
	idAttribute     = "data-asin"
)

var nextPageSelectors = []string{
	"a.s-pagination-next",
	".s-pagination-next",
	"li.a-last a",
}

var (
	titleSelectors = []string{"h2 a span", "h2 span", "h2 a", "h2"}
	brandSelectors = []string{"span.a-size-base-plus.a-color-secondary", "h5.s-line-clamp-1 span"}
	linkSelectors  = []string{"h2 a", "a.a-link-normal.s-no-outline"}

	priceSelector         = "span.a-price > span.a-offscreen"
	priceWholeSelector    = "span.a-price-whole"
	priceFractionSelector = "span.a-price-fraction"

	ratingSelector  = "span.a-icon-alt"
	reviewSelectors = []string{
		"span.s-underline-text",
		"span[aria-label][class*='a-size-base']",
		"span.a-size-small span[aria-label]",
		"span[data-hook='total-review-count']",
	}
	imageSelector = "img.s-image"
)

// botMarkers appear on the verification page served instead of results.
var botMarkers = []string{
	"/errors/validatecaptcha",
	"enter the characters you see below",
	"make sure you're not a robot",
	"api-services-support@amazon.com",
}
