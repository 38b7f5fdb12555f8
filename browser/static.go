package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrStatusNotOK is returned when a fetched page answers with a non 200 status.
var ErrStatusNotOK = errors.New("browser: response status is not 200 OK")

// Fetcher fetches raw documents. The caller is responsible for closing the returned ReadCloser.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// HTTPFetcher is a Fetcher over net/http.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher returns new HTTPFetcher.
func NewHTTPFetcher(client *http.Client, userAgent string) *HTTPFetcher {
	return &HTTPFetcher{client: client, userAgent: userAgent}
}

// Fetch returns the response body of a GET request to url.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("can't build http request: %w", err)
	}
	req.Header.Add("Accept", "text/html")
	req.Header.Add("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("can't get http response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %d", ErrStatusNotOK, resp.StatusCode)
	}
	return resp.Body, nil
}

// Static is a Browser without a JavaScript engine. It parses served HTML with goquery,
// so it only sees what the server renders. Clicking a link follows its href.
type Static struct {
	fetcher Fetcher
}

// NewStatic returns a Static browser using fetcher for every navigation.
func NewStatic(fetcher Fetcher) *Static {
	return &Static{fetcher: fetcher}
}

func (s *Static) NewPage(_ context.Context) (Page, error) {
	return &StaticPage{fetcher: s.fetcher}, nil
}

func (s *Static) Close() error { return nil }

// StaticPage holds the currently loaded document.
type StaticPage struct {
	fetcher Fetcher
	doc     *goquery.Document
	url     *url.URL
}

// ParseHTML builds a page from markup already in memory. pageURL resolves relative links.
func ParseHTML(markup, pageURL string) (*StaticPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("goquery parse: %w", err)
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	return &StaticPage{doc: doc, url: u}, nil
}

func (p *StaticPage) Navigate(ctx context.Context, rawURL string, timeout time.Duration) error {
	if p.fetcher == nil {
		return fmt.Errorf("navigate %s: %w", rawURL, ErrUnsupported)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", rawURL, err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := p.fetcher.Fetch(fetchCtx, rawURL)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", rawURL, err)
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return fmt.Errorf("navigate %s: goquery parse: %w", rawURL, err)
	}
	p.doc, p.url = doc, u
	return nil
}

// WaitFor succeeds only if the selector already matches; a static document never changes.
func (p *StaticPage) WaitFor(_ context.Context, selector string, timeout time.Duration) error {
	if p.doc != nil && p.doc.Find(selector).Length() > 0 {
		return nil
	}
	return fmt.Errorf("%w: %q after %v", ErrWaitTimeout, selector, timeout)
}

func (p *StaticPage) QueryAll(_ context.Context, selector string) ([]Element, error) {
	if p.doc == nil {
		return nil, nil
	}
	return p.wrap(p.doc.Find(selector)), nil
}

func (p *StaticPage) QueryOne(ctx context.Context, selector string) (Element, error) {
	els, err := p.QueryAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, ErrNotFound
	}
	return els[0], nil
}

func (p *StaticPage) URL(_ context.Context) (string, error) {
	if p.url == nil {
		return "", nil
	}
	return p.url.String(), nil
}

func (p *StaticPage) Content(_ context.Context) (string, error) {
	if p.doc == nil {
		return "", nil
	}
	return p.doc.Html()
}

func (p *StaticPage) Screenshot(_ context.Context) ([]byte, error) {
	return nil, ErrUnsupported
}

func (p *StaticPage) Close() error { return nil }

func (p *StaticPage) wrap(sel *goquery.Selection) []Element {
	els := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		els = append(els, &staticElement{page: p, sel: s})
	})
	return els
}

type staticElement struct {
	page *StaticPage
	sel  *goquery.Selection
}

func (e *staticElement) QueryOne(ctx context.Context, selector string) (Element, error) {
	els, _ := e.QueryAll(ctx, selector)
	if len(els) == 0 {
		return nil, ErrNotFound
	}
	return els[0], nil
}

func (e *staticElement) QueryAll(_ context.Context, selector string) ([]Element, error) {
	return e.page.wrap(e.sel.Find(selector)), nil
}

func (e *staticElement) Text(_ context.Context) (string, error) {
	return e.sel.Text(), nil
}

func (e *staticElement) Attribute(_ context.Context, name string) (string, bool, error) {
	val, ok := e.sel.Attr(name)
	return val, ok, nil
}

// Click follows the element's href relative to the current page.
func (e *staticElement) Click(ctx context.Context) error {
	href, ok := e.sel.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return fmt.Errorf("click: element has no href: %w", ErrUnsupported)
	}
	target, err := e.page.url.Parse(href)
	if err != nil {
		return fmt.Errorf("click: resolve href %q: %w", href, err)
	}
	return e.page.Navigate(ctx, target.String(), 30*time.Second)
}

func (e *staticElement) IsEnabled(_ context.Context) (bool, error) {
	_, hasDisabled := e.sel.Attr("disabled")
	return !disabledByMarkup(e.sel.AttrOr("class", ""), hasDisabled, e.sel.AttrOr("aria-disabled", "")), nil
}
