package amazon

import (
	"context"
	"strings"

	"amazon-scraper/browser"
)

// Strategy reads one raw value out of a listing element.
// It reports false when its markup is absent so the next strategy can be tried.
type Strategy func(ctx context.Context, el browser.Element) (string, bool)

// Field is an ordered list of strategies plus the conversion of the raw value.
type Field[T any] struct {
	Name       string
	Strategies []Strategy
	Parse      func(raw string) (T, bool)
}

// Extract tries each strategy in order; the first raw value that parses wins.
// It never fails: absent or unparseable values report false with the zero T.
func (f Field[T]) Extract(ctx context.Context, el browser.Element) (val T, found bool) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			val, found = zero, false
		}
	}()

	for _, s := range f.Strategies {
		raw, ok := s(ctx, el)
		if !ok {
			continue
		}
		if v, ok := f.Parse(raw); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// TextOf reads the text of the first descendant matching selector.
func TextOf(selector string) Strategy {
	return func(ctx context.Context, el browser.Element) (string, bool) {
		target, err := el.QueryOne(ctx, selector)
		if err != nil {
			return "", false
		}
		return textValue(ctx, target)
	}
}

// AttrOf reads an attribute of the first descendant matching selector.
// An empty selector reads the listing element itself.
func AttrOf(selector, name string) Strategy {
	return func(ctx context.Context, el browser.Element) (string, bool) {
		target := el
		if selector != "" {
			found, err := el.QueryOne(ctx, selector)
			if err != nil {
				return "", false
			}
			target = found
		}
		val, ok, err := target.Attribute(ctx, name)
		if err != nil || !ok || strings.TrimSpace(val) == "" {
			return "", false
		}
		return val, true
	}
}

// SplitText joins a number rendered as separate whole and fraction elements.
// The fraction is optional.
func SplitText(wholeSelector, fractionSelector string) Strategy {
	return func(ctx context.Context, el browser.Element) (string, bool) {
		wholeEl, err := el.QueryOne(ctx, wholeSelector)
		if err != nil {
			return "", false
		}
		whole, ok := textValue(ctx, wholeEl)
		if !ok {
			return "", false
		}

		var fraction string
		if fracEl, err := el.QueryOne(ctx, fractionSelector); err == nil {
			fraction, _ = textValue(ctx, fracEl)
		}
		joined := joinPrice(whole, fraction)
		return joined, joined != ""
	}
}

func textValue(ctx context.Context, el browser.Element) (string, bool) {
	text, err := el.Text(ctx)
	if err != nil || strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

func textOfEach(selectors []string) []Strategy {
	out := make([]Strategy, 0, len(selectors))
	for _, sel := range selectors {
		out = append(out, TextOf(sel))
	}
	return out
}

// Fields is the extraction table of a search result element.
type Fields struct {
	ID      Field[string]
	Title   Field[string]
	Price   Field[float64]
	Brand   Field[string]
	Rating  Field[float64]
	Reviews Field[int]
	Image   Field[string]
	Link    Field[string]
}

// DefaultFields returns the table for the current search results markup.
func DefaultFields() Fields {
	reviews := make([]Strategy, 0, 2*len(reviewSelectors))
	for _, sel := range reviewSelectors {
		reviews = append(reviews, TextOf(sel), AttrOf(sel, "aria-label"))
	}

	return Fields{
		ID: Field[string]{
			Name:       "asin",
			Strategies: []Strategy{AttrOf("", idAttribute)},
			Parse:      parseText,
		},
		Title: Field[string]{
			Name:       "title",
			Strategies: textOfEach(titleSelectors),
			Parse:      parseText,
		},
		Price: Field[float64]{
			Name: "price",
			Strategies: []Strategy{
				TextOf(priceSelector),
				SplitText(priceWholeSelector, priceFractionSelector),
			},
			Parse: parsePrice,
		},
		Brand: Field[string]{
			Name:       "brand",
			Strategies: textOfEach(brandSelectors),
			Parse:      parseBrand,
		},
		Rating: Field[float64]{
			Name:       "rating",
			Strategies: []Strategy{TextOf(ratingSelector), AttrOf("i.a-icon-star-small", "aria-label")},
			Parse:      parseRating,
		},
		Reviews: Field[int]{
			Name:       "reviews",
			Strategies: reviews,
			Parse:      parseReviews,
		},
		Image: Field[string]{
			Name:       "image",
			Strategies: []Strategy{AttrOf(imageSelector, "src")},
			Parse:      parseText,
		},
		Link: Field[string]{
			Name:       "link",
			Strategies: []Strategy{AttrOf(linkSelectors[0], "href"), AttrOf(linkSelectors[1], "href")},
			Parse:      parseText,
		},
	}
}
