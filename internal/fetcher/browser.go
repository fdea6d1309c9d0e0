package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/Shelfie/internal/config"
	"github.com/IshaanNene/Shelfie/internal/types"
)

// BrowserSession drives a single headless Chromium page via Rod.
type BrowserSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	cfg      *config.BrowserConfig
	logger   *slog.Logger
	closed   bool
}

// NewBrowserSession launches Chromium and opens one page with the
// configured fingerprint applied.
func NewBrowserSession(ctx context.Context, cfg *config.BrowserConfig, proxies *ProxyRotator, logger *slog.Logger) (*BrowserSession, error) {
	bs := &BrowserSession{
		cfg:    cfg,
		logger: logger.With("component", "browser_session"),
	}

	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-blink-features", "AutomationControlled")
	if cfg.BinPath != "" {
		l = l.Bin(cfg.BinPath)
	}
	if cfg.WindowSize != "" {
		l = l.Set("window-size", cfg.WindowSize)
	}
	if proxyURL := proxies.Next(); proxyURL != nil {
		l = l.Proxy(proxyURL.String())
		bs.logger.Debug("browser proxy selected", "proxy", proxyURL.Host)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	bs.launcher = l

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	bs.browser = browser

	var page *rod.Page
	if cfg.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		_ = bs.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	bs.page = page

	fingerprint := NewStealthConfig(cfg.UserAgent, cfg.Language, cfg.WindowSize)
	if cfg.UserAgent != "" {
		err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      cfg.UserAgent,
			AcceptLanguage: fingerprint.AcceptLanguage(),
			Platform:       fingerprint.Platform,
		})
		if err != nil {
			bs.logger.Warn("failed to set user agent", "error", err)
		}
	}
	if cfg.Stealth {
		if _, err := page.EvalOnNewDocument(fingerprint.StealthJS()); err != nil {
			bs.logger.Warn("failed to install stealth script", "error", err)
		}
	}

	bs.logger.Info("browser session ready",
		"headless", cfg.Headless,
		"stealth", cfg.Stealth,
	)

	return bs, nil
}

// Navigate loads url and waits for the DOM to settle.
func (bs *BrowserSession) Navigate(ctx context.Context, url string) error {
	if bs.closed {
		return types.ErrSessionClosed
	}

	p := bs.page.Context(ctx).Timeout(bs.cfg.NavigationTimeout)
	if err := p.Navigate(url); err != nil {
		return &types.NavigationError{URL: url, Err: err}
	}
	if err := p.WaitLoad(); err != nil {
		bs.logger.Warn("page load timeout, continuing", "url", url, "error", err)
	}
	return nil
}

// WaitVisible waits until selector matches an element or timeout elapses.
func (bs *BrowserSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if bs.closed {
		return types.ErrSessionClosed
	}

	if _, err := bs.page.Context(ctx).Timeout(timeout).Element(selector); err != nil {
		pageURL, _ := bs.CurrentURL(ctx)
		return &types.NavigationError{URL: pageURL, Err: fmt.Errorf("wait for %q: %w", selector, err)}
	}
	return nil
}

// Has reports whether selector currently matches an element.
func (bs *BrowserSession) Has(ctx context.Context, selector string) (bool, error) {
	if bs.closed {
		return false, types.ErrSessionClosed
	}
	found, _, err := bs.page.Context(ctx).Has(selector)
	return found, err
}

// HTML returns the rendered page source.
func (bs *BrowserSession) HTML(ctx context.Context) (string, error) {
	if bs.closed {
		return "", types.ErrSessionClosed
	}
	return bs.page.Context(ctx).HTML()
}

// Eval runs js in the page and decodes the result into out. out may be nil
// when the result is not needed.
func (bs *BrowserSession) Eval(ctx context.Context, js string, out any) error {
	if bs.closed {
		return types.ErrSessionClosed
	}

	result, err := bs.page.Context(ctx).Eval(js)
	if err != nil {
		return fmt.Errorf("eval: %w", err)
	}
	if out == nil {
		return nil
	}
	if err := result.Value.Unmarshal(out); err != nil {
		return fmt.Errorf("decode eval result: %w", err)
	}
	return nil
}

// Click clicks the first element matching selector.
func (bs *BrowserSession) Click(ctx context.Context, selector string) error {
	if bs.closed {
		return types.ErrSessionClosed
	}

	el, err := bs.page.Context(ctx).Timeout(10 * time.Second).Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %s: %w", selector, err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// CurrentURL returns the page URL after any redirects.
func (bs *BrowserSession) CurrentURL(ctx context.Context) (string, error) {
	if bs.closed {
		return "", types.ErrSessionClosed
	}
	info, err := bs.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// WaitURLChange polls the page URL until it differs from from.
func (bs *BrowserSession) WaitURLChange(ctx context.Context, from string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		current, err := bs.CurrentURL(ctx)
		if err == nil && current != from {
			return current, nil
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("url did not change from %s: %w", from, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Scroll walks the viewport down the page in steps so lazy content loads.
func (bs *BrowserSession) Scroll(ctx context.Context, steps int, pause time.Duration) error {
	if bs.closed {
		return types.ErrSessionClosed
	}

	p := bs.page.Context(ctx)
	result, err := p.Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return fmt.Errorf("read scroll height: %w", err)
	}
	height := result.Value.Int()

	for i := 1; i <= steps; i++ {
		if _, err := p.Eval(fmt.Sprintf(`() => window.scrollTo(0, %d)`, height*i/steps)); err != nil {
			return fmt.Errorf("scroll step %d: %w", i, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pause):
		}
	}
	return nil
}

// Close shuts down the page, the browser and the launched process.
func (bs *BrowserSession) Close() error {
	if bs.closed {
		return nil
	}
	bs.closed = true

	var errs []error
	if bs.page != nil {
		if err := bs.page.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if bs.browser != nil {
		if err := bs.browser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if bs.launcher != nil {
		bs.launcher.Kill()
	}
	bs.logger.Debug("browser session closed")
	return errors.Join(errs...)
}

// Type returns the session type identifier.
func (bs *BrowserSession) Type() string {
	return "browser"
}
