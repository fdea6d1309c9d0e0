// Package fetcher provides the page sessions a crawl run drives: a
// headless Chromium session for script-rendered storefronts and a plain
// HTTP session for server-rendered ones.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/Shelfie/internal/config"
	"github.com/IshaanNene/Shelfie/internal/types"
)

// Session is one exclusively owned page in a browser-like client. A
// Session is not safe for concurrent use.
type Session interface {
	// Navigate loads url and waits for the document to load.
	Navigate(ctx context.Context, url string) error

	// WaitVisible waits until selector matches an element.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// Has reports whether selector currently matches an element.
	Has(ctx context.Context, selector string) (bool, error)

	// HTML returns the current page source.
	HTML(ctx context.Context) (string, error)

	// Eval runs a script in the page and decodes its JSON result into out.
	Eval(ctx context.Context, js string, out any) error

	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error

	// CurrentURL returns the URL of the loaded page.
	CurrentURL(ctx context.Context) (string, error)

	// WaitURLChange waits until the page URL differs from from and returns
	// the new URL.
	WaitURLChange(ctx context.Context, from string, timeout time.Duration) (string, error)

	// Scroll scrolls through the page in steps, pausing between each.
	Scroll(ctx context.Context, steps int, pause time.Duration) error

	// Close releases the page and its client.
	Close() error

	// Type returns the session type identifier.
	Type() string
}

// Opener starts a new Session.
type Opener func(ctx context.Context) (Session, error)

// NewOpener returns an Opener for the configured fetcher type. Sessions
// opened from the same Opener share one proxy rotation.
func NewOpener(cfg *config.BrowserConfig, logger *slog.Logger) Opener {
	var proxies *ProxyRotator
	if len(cfg.Proxies) > 0 {
		proxies = NewProxyRotator(cfg.Proxies, cfg.ProxyRotation, logger)
	}

	return func(ctx context.Context) (Session, error) {
		var (
			s   Session
			err error
		)
		switch cfg.Fetcher {
		case "http":
			s, err = NewHTTPSession(cfg, proxies, logger)
		case "browser", "":
			s, err = NewBrowserSession(ctx, cfg, proxies, logger)
		default:
			err = fmt.Errorf("unknown fetcher type %q", cfg.Fetcher)
		}
		if err != nil {
			return nil, &types.SessionError{Op: "open", Err: err}
		}
		return s, nil
	}
}

// Capture reads the current page into a static snapshot.
func Capture(ctx context.Context, s Session) (*types.Snapshot, error) {
	body, err := s.HTML(ctx)
	if err != nil {
		return nil, err
	}
	pageURL, err := s.CurrentURL(ctx)
	if err != nil {
		return nil, err
	}
	return types.NewSnapshot(pageURL, body), nil
}
