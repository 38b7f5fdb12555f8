package amazon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"amazon-scraper/browser"
	"amazon-scraper/utils"
)

// Diagnostics saves the page state of a failed crawl for operator inspection.
type Diagnostics struct {
	dir    string
	logger *utils.Logger
	clock  utils.Clock
}

// NewDiagnostics writes captures under dir. An empty dir disables capturing.
func NewDiagnostics(dir string, logger *utils.Logger, clock utils.Clock) *Diagnostics {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &Diagnostics{dir: dir, logger: logger, clock: clock}
}

// Capture writes the page markup and, when the driver supports it, a screenshot.
// It returns the written paths. Capture failures are logged, never returned.
func (d *Diagnostics) Capture(ctx context.Context, page browser.Page, query, reason string) []string {
	if d == nil || d.dir == "" {
		return nil
	}
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		d.logger.Warn("[diagnostics] Can't create %s: %v", d.dir, err)
		return nil
	}

	base := filepath.Join(d.dir, fmt.Sprintf("%s_%s_%s", reason, slug(query), d.clock.Now().Format("20060102T150405")))
	var written []string

	if html, err := page.Content(ctx); err != nil {
		d.logger.Warn("[diagnostics] Can't read page content: %v", err)
	} else if err := os.WriteFile(base+".html", []byte(html), 0644); err != nil {
		d.logger.Warn("[diagnostics] Can't write %s.html: %v", base, err)
	} else {
		written = append(written, base+".html")
	}

	png, err := page.Screenshot(ctx)
	switch {
	case errors.Is(err, browser.ErrUnsupported):
	case err != nil:
		d.logger.Warn("[diagnostics] Can't take screenshot: %v", err)
	default:
		if err := os.WriteFile(base+".png", png, 0644); err != nil {
			d.logger.Warn("[diagnostics] Can't write %s.png: %v", base, err)
		} else {
			written = append(written, base+".png")
		}
	}

	if len(written) > 0 {
		d.logger.Warn("[diagnostics] Saved %s capture for %q: %s", reason, query, strings.Join(written, ", "))
	}
	return written
}

func slug(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return '-'
	}, strings.TrimSpace(s))
	s = strings.Trim(s, "-")
	if s == "" {
		return "query"
	}
	return s
}
