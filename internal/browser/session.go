// Package browser drives a real Chrome session against LinkedIn. The
// pipeline only sees its narrow interfaces; everything rod-specific
// stays behind this package boundary.
package browser

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/config"
)

// Session owns one browser instance for the lifetime of a run. Always pair
// Open with a deferred Close so a failed run never leaks the process.
type Session struct {
	browser *rod.Browser
	cleanup func()
	cfg     config.BrowserConfig
}

// Open launches a browser and connects to it.
func Open(cfg config.BrowserConfig) (*Session, error) {
	l := launcher.New().Leakless(false).Headless(cfg.Headless)
	if cfg.BinPath != "" {
		l = l.Bin(cfg.BinPath)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, eris.Wrap(err, "browser: launch")
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, eris.Wrap(err, "browser: connect")
	}

	zap.L().Info("browser: session opened", zap.Bool("headless", cfg.Headless))
	return &Session{browser: b, cleanup: l.Cleanup, cfg: cfg}, nil
}

// Close shuts the browser down. Safe to call on every exit path.
func (s *Session) Close() {
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			zap.L().Warn("browser: close failed", zap.Error(err))
		}
	}
	if s.cleanup != nil {
		s.cleanup()
	}
}

// navTimeout returns the per-navigation timeout.
func (s *Session) navTimeout() time.Duration {
	secs := s.cfg.NavTimeoutSecs
	if secs <= 0 {
		secs = 60
	}
	return time.Duration(secs) * time.Second
}

// newPage opens a fresh tab bound to ctx.
func (s *Session) newPage(ctx context.Context) (*rod.Page, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, eris.Wrap(err, "browser: new page")
	}
	return page.Context(ctx), nil
}

// loadPage navigates a page to url and waits for it to settle.
func (s *Session) loadPage(page *rod.Page, url string) error {
	page = page.Timeout(s.navTimeout())
	if err := page.Navigate(url); err != nil {
		return eris.Wrapf(err, "browser: navigate %s", url)
	}
	if err := page.WaitLoad(); err != nil {
		return eris.Wrapf(err, "browser: wait load %s", url)
	}
	// Give client-side rendering a moment to settle.
	time.Sleep(1500 * time.Millisecond)
	return nil
}

// pageText extracts the rendered text of the whole document plus an appended
// list of profile links, so downstream DOM analysis sees both copy and URLs.
func pageText(page *rod.Page) (string, error) {
	body, err := page.Element("body")
	if err != nil {
		return "", eris.Wrap(err, "browser: locate body")
	}
	text, err := body.Text()
	if err != nil {
		return "", eris.Wrap(err, "browser: read body text")
	}

	links, err := page.Elements(`a[href*="/in/"]`)
	if err != nil || len(links) == 0 {
		return text, nil
	}
	out := text + "\n\nProfile links on page:\n"
	for _, link := range links {
		href, attrErr := link.Attribute("href")
		if attrErr != nil || href == nil {
			continue
		}
		label, _ := link.Text()
		out += label + " | " + *href + "\n"
	}
	return out, nil
}
