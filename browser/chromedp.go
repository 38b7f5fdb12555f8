package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

// queryTimeout bounds element lookups that should resolve against an already rendered DOM.
const queryTimeout = 5 * time.Second

// ChromeOptions configures the headless Chrome allocator.
type ChromeOptions struct {
	Headless  bool
	ChromeBin string
	UserAgent string
}

// Chrome is a Browser backed by one Chrome process driven over CDP.
type Chrome struct {
	ctx         context.Context
	cancelAlloc context.CancelFunc
	cancelCtx   context.CancelFunc
}

// LaunchChrome starts the browser process. Close must be called to release it.
func LaunchChrome(opts ChromeOptions) (*Chrome, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if bin := findChromeBinary(opts.ChromeBin); bin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	// Suppress chromedp log noise
	browserCtx, cancelCtx := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// the first Run on a fresh context starts the browser process
	if err := chromedp.Run(browserCtx); err != nil {
		cancelCtx()
		cancelAlloc()
		return nil, fmt.Errorf("chromedp: start browser: %w", err)
	}

	return &Chrome{ctx: browserCtx, cancelAlloc: cancelAlloc, cancelCtx: cancelCtx}, nil
}

// NewPage opens a new tab.
func (c *Chrome) NewPage(ctx context.Context) (Page, error) {
	tabCtx, cancel := chromedp.NewContext(c.ctx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("chromedp: open tab: %w", err)
	}
	return &chromePage{ctx: tabCtx, cancel: cancel}, nil
}

// Close shuts the browser process down.
func (c *Chrome) Close() error {
	c.cancelCtx()
	c.cancelAlloc()
	return nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
func (p *chromePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := p.run(ctx, timeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("chromedp navigate %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	err := p.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %q after %v", ErrWaitTimeout, selector, timeout)
	}
	return fmt.Errorf("chromedp wait %q: %w", selector, err)
}

func (p *chromePage) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	return p.query(ctx, selector)
}

func (p *chromePage) QueryOne(ctx context.Context, selector string) (Element, error) {
	els, err := p.query(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, ErrNotFound
	}
	return els[0], nil
}

func (p *chromePage) query(ctx context.Context, selector string, opts ...chromedp.QueryOption) ([]Element, error) {
	var nodes []*cdp.Node
	opts = append([]chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}, opts...)
	if err := p.run(ctx, queryTimeout, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("chromedp query %q: %w", selector, err)
	}

	els := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &chromeElement{page: p, node: n})
	}
	return els, nil
}

func (p *chromePage) URL(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, queryTimeout, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("chromedp location: %w", err)
	}
	return loc, nil
}

func (p *chromePage) Content(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, queryTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("chromedp content: %w", err)
	}
	return html, nil
}

func (p *chromePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, 2*queryTimeout, chromedp.FullScreenshot(&buf, 80)); err != nil {
		return nil, fmt.Errorf("chromedp screenshot: %w", err)
	}
	return buf, nil
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}

type chromeElement struct {
	page *chromePage
	node *cdp.Node
}

func (e *chromeElement) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *chromeElement) QueryOne(ctx context.Context, selector string) (Element, error) {
	els, err := e.page.query(ctx, selector, chromedp.FromNode(e.node))
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, ErrNotFound
	}
	return els[0], nil
}

func (e *chromeElement) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	return e.page.query(ctx, selector, chromedp.FromNode(e.node))
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.page.run(ctx, queryTimeout, chromedp.TextContent(e.ids(), &text, chromedp.ByNodeID)); err != nil {
		return "", fmt.Errorf("chromedp text: %w", err)
	}
	return text, nil
}

func (e *chromeElement) Attribute(_ context.Context, name string) (string, bool, error) {
	val, ok := e.node.Attribute(name)
	return val, ok, nil
}

func (e *chromeElement) Click(ctx context.Context) error {
	if err := e.page.run(ctx, queryTimeout, chromedp.Click(e.ids(), chromedp.ByNodeID)); err != nil {
		return fmt.Errorf("chromedp click: %w", err)
	}
	return nil
}

func (e *chromeElement) IsEnabled(_ context.Context) (bool, error) {
	_, hasDisabled := e.node.Attribute("disabled")
	return !disabledByMarkup(e.node.AttributeValue("class"), hasDisabled, e.node.AttributeValue("aria-disabled")), nil
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
