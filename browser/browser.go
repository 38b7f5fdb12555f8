// Package browser is the rendering capability the scraper consumes.
// Drivers expose the page as a DOM query interface; callers never see driver types.
package browser

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by QueryOne when no element matches.
	ErrNotFound = errors.New("browser: element not found")
	// ErrWaitTimeout is returned by WaitFor when the selector never appears.
	ErrWaitTimeout = errors.New("browser: wait timed out")
	// ErrUnsupported is returned for operations a driver can't perform.
	ErrUnsupported = errors.New("browser: operation not supported by driver")
)

// Browser opens pages. One Browser is created per process and shared by concurrent runs.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is one open tab.
type Page interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	QueryOne(ctx context.Context, selector string) (Element, error)
	// URL returns the location of the loaded document.
	URL(ctx context.Context) (string, error)
	// Content returns the current document markup.
	Content(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Element is a node of the rendered document.
type Element interface {
	QueryOne(ctx context.Context, selector string) (Element, error)
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	Text(ctx context.Context) (string, error)
	// Attribute reports the attribute value and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	Click(ctx context.Context) error
	IsEnabled(ctx context.Context) (bool, error)
}

// QueryFirst tries selectors in order and returns the first element found.
func QueryFirst(ctx context.Context, p Page, selectors ...string) (Element, error) {
	for _, sel := range selectors {
		el, err := p.QueryOne(ctx, sel)
		if err == nil {
			return el, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// disabledByMarkup applies the markup conventions used for inert pagination controls.
func disabledByMarkup(class string, hasDisabled bool, ariaDisabled string) bool {
	if hasDisabled || ariaDisabled == "true" {
		return true
	}
	for _, c := range strings.Fields(class) {
		if strings.Contains(c, "disabled") {
			return true
		}
	}
	return false
}
