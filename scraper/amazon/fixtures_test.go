package amazon

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"amazon-scraper/browser"
	"amazon-scraper/config"
)

const baseURL = "https://shop.test"

const laptopItem = `
<div data-component-type="s-search-result" data-asin="B0LAP00001">
  <h2><a href="/Lenovo-IdeaPad/dp/B0LAP00001?ref=sr_1_1&amp;keywords=laptop"><span>Lenovo IdeaPad   Slim 3</span></a></h2>
  <span class="a-size-base-plus a-color-secondary">Lenovo</span>
  <span class="a-price"><span class="a-offscreen">₹45,990.00</span></span>
  <span class="a-icon-alt">4.3 out of 5 stars</span>
  <span class="s-underline-text">(1,234)</span>
  <img class="s-image" src="https://m.media-amazon.com/images/I/lap.jpg">
</div>`

const noIDItem = `
<div data-component-type="s-search-result" data-asin="">
  <h2><a href="/sponsored"><span>Sponsored laptop bag</span></a></h2>
  <span class="a-price"><span class="a-offscreen">₹999</span></span>
</div>`

const noTitleItem = `
<div data-component-type="s-search-result" data-asin="B0NOTITLE1">
  <span class="a-price"><span class="a-offscreen">₹999</span></span>
</div>`

const splitPriceItem = `
<div data-component-type="s-search-result" data-asin="B0SPLIT001">
  <h2><span>Samsung Galaxy M14</span></h2>
  <span class="a-price"><span class="a-price-whole">1,234.</span><span class="a-price-fraction">56</span></span>
</div>`

const unpricedItem = `
<div data-component-type="s-search-result" data-asin="B0NOPRICE1">
  <h2><span>Wooden Train Set</span></h2>
  <span class="a-price"><span class="a-offscreen">Currently unavailable</span></span>
</div>`

const shoeItem = `
<div data-component-type="s-search-result" data-asin="B0SHOE0001">
  <h2><span>Nike Air Shoes</span></h2>
  <span class="a-size-base-plus a-color-secondary">Limited time deal</span>
</div>`

// resultsPage wraps items in the search results grid. An empty next omits the control.
func resultsPage(next string, items ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="s-main-slot">`)
	for _, it := range items {
		b.WriteString(it)
	}
	b.WriteString(`</div>`)
	if next != "" {
		b.WriteString(next)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func nextLink(href string) string {
	return fmt.Sprintf(`<a class="s-pagination-next" href="%s">Next</a>`, href)
}

const disabledNext = `<span class="s-pagination-next s-pagination-disabled">Next</span>`

const captchaPage = `<html><body><form action="/errors/validateCaptcha">
<h4>Enter the characters you see below</h4></form></body></html>`

// pageItems parses a results page and returns its listing elements.
func pageItems(t *testing.T, html string) []browser.Element {
	t.Helper()
	page, err := browser.ParseHTML(html, baseURL+"/s?k=test")
	require.NoError(t, err)
	items, err := page.QueryAll(context.Background(), itemSelector)
	require.NoError(t, err)
	return items
}

// siteFetcher serves fixed pages by absolute url and counts fetches.
type siteFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	fetched []string
}

func (f *siteFetcher) Fetch(_ context.Context, url string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, url)
	body, ok := f.pages[url]
	if !ok {
		return nil, browser.ErrStatusNotOK
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (f *siteFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DiagnosticsDir: t.TempDir(),
		Scraper: config.Scraper{
			SearchURL:   baseURL + "/s?k=%s",
			BaseURL:     baseURL,
			MaxPages:    3,
			MaxProducts: 0,
			MaxRetries:  1,
			NavTimeout:  time.Second,
			WaitTimeout: time.Second,
		},
	}
}
