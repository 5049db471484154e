// Package fetch retrieves fully rendered marketplace pages. The DOM
// extractors depend only on the PageFetcher interface; the shipped
// implementation drives a headless Chrome through rod so script-built
// result grids are present in the returned markup.
package fetch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"partscout/internal/logging"
)

// PageFetcher fetches the rendered HTML of a URL.
type PageFetcher interface {
	// FetchRendered navigates to url, waits for the page to settle, and
	// returns the serialized DOM.
	FetchRendered(ctx context.Context, url string) (string, error)
}

// Config holds fetcher configuration.
type Config struct {
	Headless          bool
	ViewportWidth     int
	ViewportHeight    int
	UserAgent         string
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		ViewportWidth:     1920,
		ViewportHeight:    1080,
		NavigationTimeout: 30 * time.Second,
		SettleDelay:       3 * time.Second,
	}
}

func (c Config) viewportWidth() int {
	if c.ViewportWidth == 0 {
		return 1920
	}
	return c.ViewportWidth
}

func (c Config) viewportHeight() int {
	if c.ViewportHeight == 0 {
		return 1080
	}
	return c.ViewportHeight
}

func (c Config) navigationTimeout() time.Duration {
	if c.NavigationTimeout == 0 {
		return 30 * time.Second
	}
	return c.NavigationTimeout
}

// RodFetcher owns one detached Chrome instance and fetches pages through
// fresh incognito contexts so listings never share cookies between runs.
type RodFetcher struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
}

// NewRodFetcher creates a fetcher; the browser launches lazily on first use.
func NewRodFetcher(cfg Config) *RodFetcher {
	return &RodFetcher{cfg: cfg}
}

// ensureStarted launches and connects the browser if needed. A stale
// connection from a crashed Chrome is detected and replaced.
func (f *RodFetcher) ensureStarted(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		if _, err := f.browser.Version(); err == nil {
			return nil
		}
		logging.Fetch("Stale browser connection detected, relaunching")
		_ = f.browser.Close()
		f.browser = nil
	}

	url, err := launcher.New().Headless(f.cfg.Headless).Launch()
	if err != nil {
		return fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(url).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	f.browser = browser
	logging.Fetch("Browser launched (headless=%v)", f.cfg.Headless)
	return nil
}

// FetchRendered navigates to url in a fresh incognito page, waits for load
// plus the configured settle delay, and returns the serialized DOM.
func (f *RodFetcher) FetchRendered(ctx context.Context, url string) (string, error) {
	timer := logging.StartTimer(logging.CategoryFetch, "FetchRendered")
	defer timer.StopWithThreshold(20 * time.Second)

	if err := f.ensureStarted(ctx); err != nil {
		return "", err
	}

	incognito, err := f.browser.Incognito()
	if err != nil {
		return "", fmt.Errorf("incognito context: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("create page: %w", err)
	}
	defer page.Close()

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             f.cfg.viewportWidth(),
		Height:            f.cfg.viewportHeight(),
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		logging.FetchDebug("Failed to set viewport: %v", err)
	}

	if f.cfg.UserAgent != "" {
		if err := (proto.NetworkSetUserAgentOverride{
			UserAgent: f.cfg.UserAgent,
		}).Call(page); err != nil {
			logging.FetchDebug("Failed to set user agent: %v", err)
		}
	}

	page = page.Context(ctx).Timeout(f.cfg.navigationTimeout())
	if err := page.Navigate(url); err != nil {
		return "", fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait load %s: %w", url, err)
	}

	// Result grids render after the load event; give scripts a moment.
	settle := f.cfg.SettleDelay
	if settle > 0 {
		select {
		case <-time.After(settle):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("serialize dom %s: %w", url, err)
	}

	logging.Fetch("Fetched %s (%d bytes)", url, len(html))
	return html, nil
}

// Close shuts the browser down.
func (f *RodFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.browser == nil {
		return nil
	}
	err := f.browser.Close()
	f.browser = nil
	return err
}

// LooksBlocked reports whether a page body is a captcha or robot
// interstitial rather than a result listing.
func LooksBlocked(html string) bool {
	lower := strings.ToLower(html)
	return strings.Contains(lower, "captcha") ||
		strings.Contains(lower, "robot check") ||
		strings.Contains(lower, "enter the characters you see below")
}
