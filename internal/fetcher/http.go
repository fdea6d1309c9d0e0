package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/Shelfie/internal/config"
	"github.com/IshaanNene/Shelfie/internal/types"
)

// HTTPSession fetches server-rendered pages with net/http. It cannot run
// scripts or click, so those operations return types.ErrUnsupported and
// callers fall back to static strategies.
type HTTPSession struct {
	client      *http.Client
	cfg         *config.BrowserConfig
	fingerprint *StealthConfig
	logger      *slog.Logger

	url    string
	body   string
	doc    *goquery.Document
	closed bool
}

// NewHTTPSession creates a session with its own cookie jar and, when
// proxies are configured, one proxy pinned for its lifetime.
func NewHTTPSession(cfg *config.BrowserConfig, proxies *ProxyRotator, logger *slog.Logger) (*HTTPSession, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		Proxy:               fixedProxy(proxies.Next()),
		DisableCompression:  true, // decompressed by hand so brotli is covered
	}

	return &HTTPSession{
		client: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   cfg.NavigationTimeout,
		},
		cfg:         cfg,
		fingerprint: NewStealthConfig(cfg.UserAgent, cfg.Language, cfg.WindowSize),
		logger:      logger.With("component", "http_session"),
	}, nil
}

// Navigate GETs url and keeps the decoded body as the current page.
func (s *HTTPSession) Navigate(ctx context.Context, url string) error {
	if s.closed {
		return types.ErrSessionClosed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &types.NavigationError{URL: url, Err: err}
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", s.fingerprint.AcceptLanguage())
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return &types.NavigationError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &types.NavigationError{
			URL: url,
			Err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
		}
	}

	decoded, err := decompressReader(resp, resp.Body)
	if err != nil {
		return &types.NavigationError{URL: url, Err: err}
	}
	defer decoded.Close()

	// The limit applies to the decoded page, not the wire size.
	var reader io.Reader = decoded
	if s.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(decoded, s.cfg.MaxBodySize)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return &types.NavigationError{URL: url, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return &types.NavigationError{URL: url, Err: &types.ParseError{URL: url, Err: err}}
	}

	s.url = resp.Request.URL.String()
	s.body = string(body)
	s.doc = doc

	s.logger.Debug("page fetched",
		"url", url,
		"final_url", s.url,
		"status", resp.StatusCode,
		"size", len(body),
		"duration", time.Since(start),
	)
	return nil
}

// WaitVisible checks selector against the fetched document. Static HTML
// never changes, so there is nothing to wait for.
func (s *HTTPSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	found, err := s.Has(ctx, selector)
	if err != nil {
		return err
	}
	if !found {
		return &types.NavigationError{URL: s.url, Err: fmt.Errorf("%q: %w", selector, types.ErrSelectorAbsent)}
	}
	return nil
}

// Has reports whether selector matches the fetched document.
func (s *HTTPSession) Has(_ context.Context, selector string) (bool, error) {
	if s.closed {
		return false, types.ErrSessionClosed
	}
	if s.doc == nil {
		return false, nil
	}
	return s.doc.Find(selector).Length() > 0, nil
}

// HTML returns the fetched page source.
func (s *HTTPSession) HTML(_ context.Context) (string, error) {
	if s.closed {
		return "", types.ErrSessionClosed
	}
	if s.doc == nil {
		return "", fmt.Errorf("no page loaded")
	}
	return s.body, nil
}

// Eval is unsupported without a script engine.
func (s *HTTPSession) Eval(context.Context, string, any) error {
	return types.ErrUnsupported
}

// Click is unsupported without a script engine.
func (s *HTTPSession) Click(context.Context, string) error {
	return types.ErrUnsupported
}

// CurrentURL returns the final URL of the last fetch.
func (s *HTTPSession) CurrentURL(_ context.Context) (string, error) {
	if s.closed {
		return "", types.ErrSessionClosed
	}
	return s.url, nil
}

// WaitURLChange is unsupported: the URL only changes on Navigate.
func (s *HTTPSession) WaitURLChange(context.Context, string, time.Duration) (string, error) {
	return "", types.ErrUnsupported
}

// Scroll is a no-op; the whole document is already present.
func (s *HTTPSession) Scroll(context.Context, int, time.Duration) error {
	if s.closed {
		return types.ErrSessionClosed
	}
	return nil
}

// Close releases idle connections.
func (s *HTTPSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.client.CloseIdleConnections()
	return nil
}

// Type returns the session type identifier.
func (s *HTTPSession) Type() string {
	return "http"
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings. Closing the result
// releases the decompressor, not the underlying reader.
func decompressReader(resp *http.Response, reader io.Reader) (io.ReadCloser, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return io.NopCloser(brotli.NewReader(reader)), nil
	default:
		return io.NopCloser(reader), nil
	}
}
