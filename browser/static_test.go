package browser

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapFetcher map[string]string

func (m mapFetcher) Fetch(_ context.Context, url string) (io.ReadCloser, error) {
	body, ok := m[url]
	if !ok {
		return nil, ErrStatusNotOK
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

const fixture = `<html><body>
<div class="results">
  <div class="item" data-id="a1"><h2>First <b>item</b></h2></div>
  <div class="item" data-id="a2"><h2>Second</h2></div>
</div>
<a class="next" href="/page/2">Next</a>
<span class="next-off s-pagination-disabled">Next</span>
<button class="aria" aria-disabled="true">x</button>
</body></html>`

func TestParseHTMLQueries(t *testing.T) {
	ctx := context.Background()
	page, err := ParseHTML(fixture, "https://shop.test/page/1")
	require.NoError(t, err)

	items, err := page.QueryAll(ctx, "div.item")
	require.NoError(t, err)
	require.Len(t, items, 2)

	id, ok, err := items[0].Attribute(ctx, "data-id")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a1", id)

	_, ok, _ = items[0].Attribute(ctx, "data-missing")
	assert.False(t, ok)

	h2, err := items[0].QueryOne(ctx, "h2")
	require.NoError(t, err)
	text, _ := h2.Text(ctx)
	assert.Equal(t, "First item", text)

	_, err = items[1].QueryOne(ctx, "span.none")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStaticWaitFor(t *testing.T) {
	ctx := context.Background()
	page, err := ParseHTML(fixture, "https://shop.test/")
	require.NoError(t, err)

	assert.NoError(t, page.WaitFor(ctx, "div.results", time.Second))
	assert.ErrorIs(t, page.WaitFor(ctx, "div.absent", time.Second), ErrWaitTimeout)
}

func TestStaticIsEnabled(t *testing.T) {
	ctx := context.Background()
	page, err := ParseHTML(fixture, "https://shop.test/")
	require.NoError(t, err)

	for sel, want := range map[string]bool{
		"a.next":        true,
		"span.next-off": false,
		"button.aria":   false,
	} {
		el, err := page.QueryOne(ctx, sel)
		require.NoError(t, err, sel)
		got, err := el.IsEnabled(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got, sel)
	}
}

func TestStaticClickFollowsHref(t *testing.T) {
	ctx := context.Background()
	b := NewStatic(mapFetcher{
		"https://shop.test/page/1": fixture,
		"https://shop.test/page/2": `<html><body><div class="item" data-id="b1"></div></body></html>`,
	})

	page, err := b.NewPage(ctx)
	require.NoError(t, err)
	require.NoError(t, page.Navigate(ctx, "https://shop.test/page/1", time.Second))

	next, err := QueryFirst(ctx, page, "a.missing", "a.next")
	require.NoError(t, err)
	require.NoError(t, next.Click(ctx))

	items, err := page.QueryAll(ctx, "div.item")
	require.NoError(t, err)
	require.Len(t, items, 1)
	id, _, _ := items[0].Attribute(ctx, "data-id")
	assert.Equal(t, "b1", id)
}

func TestStaticClickWithoutHref(t *testing.T) {
	ctx := context.Background()
	page, err := ParseHTML(fixture, "https://shop.test/")
	require.NoError(t, err)

	el, err := page.QueryOne(ctx, "button.aria")
	require.NoError(t, err)
	assert.ErrorIs(t, el.Click(ctx), ErrUnsupported)
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("<p>hi</p>"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.Client(), "test-agent")

	body, err := f.Fetch(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	raw, _ := io.ReadAll(body)
	_ = body.Close()
	assert.Equal(t, "<p>hi</p>", string(raw))

	_, err = f.Fetch(context.Background(), srv.URL+"/blocked")
	assert.ErrorIs(t, err, ErrStatusNotOK)
}

func TestStaticPageURLFollowsClicks(t *testing.T) {
	ctx := context.Background()
	page, err := NewStatic(mapFetcher{
		"https://shop.test/page/1": fixture,
		"https://shop.test/page/2": `<html><body></body></html>`,
	}).NewPage(ctx)
	require.NoError(t, err)

	loc, err := page.URL(ctx)
	require.NoError(t, err)
	assert.Empty(t, loc)

	require.NoError(t, page.Navigate(ctx, "https://shop.test/page/1", time.Second))
	loc, _ = page.URL(ctx)
	assert.Equal(t, "https://shop.test/page/1", loc)

	next, err := page.QueryOne(ctx, "a.next")
	require.NoError(t, err)
	require.NoError(t, next.Click(ctx))
	loc, _ = page.URL(ctx)
	assert.Equal(t, "https://shop.test/page/2", loc)
}
