package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/Shelfie/internal/config"
	"github.com/IshaanNene/Shelfie/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const listingHTML = `<html><body>
<div class="product-card"><span class="name">Frozen Peas 500g</span></div>
<a class="next" href="?page=2">Next</a>
</body></html>`

func testBrowserConfig() *config.BrowserConfig {
	cfg := config.DefaultConfig().Browser
	cfg.Fetcher = "http"
	cfg.NavigationTimeout = 5 * time.Second
	return &cfg
}

func TestHTTPSessionNavigate(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(listingHTML))
	}))
	defer server.Close()

	s, err := NewHTTPSession(testBrowserConfig(), nil, testLogger)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.Navigate(ctx, server.URL+"/frozen"); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if !strings.Contains(gotUA, "Mozilla") {
		t.Errorf("expected browser user agent, got %q", gotUA)
	}

	if err := s.WaitVisible(ctx, ".product-card", time.Second); err != nil {
		t.Errorf("expected product card present: %v", err)
	}
	err = s.WaitVisible(ctx, ".missing", time.Second)
	if !errors.Is(err, types.ErrSelectorAbsent) {
		t.Errorf("expected ErrSelectorAbsent, got %v", err)
	}

	current, _ := s.CurrentURL(ctx)
	if current != server.URL+"/frozen" {
		t.Errorf("unexpected current URL %q", current)
	}

	snap, err := Capture(ctx, s)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if !strings.Contains(snap.HTML, "Frozen Peas") {
		t.Error("snapshot should contain page source")
	}
}

func TestHTTPSessionBrotli(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "br") {
			t.Error("expected br in Accept-Encoding")
		}
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		bw.Write([]byte(listingHTML))
		bw.Close()
		w.Header().Set("Content-Encoding", "br")
		w.Write(buf.Bytes())
	}))
	defer server.Close()

	s, _ := NewHTTPSession(testBrowserConfig(), nil, testLogger)
	defer s.Close()

	ctx := context.Background()
	if err := s.Navigate(ctx, server.URL); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	found, _ := s.Has(ctx, "a.next")
	if !found {
		t.Error("expected decoded brotli body to contain next link")
	}
}

func TestHTTPSessionLimitsDecodedBody(t *testing.T) {
	page := listingHTML + "<!--" + strings.Repeat("padding ", 64*1024) + "-->"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		gw.Write([]byte(page))
		gw.Close()
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(buf.Bytes())
	}))
	defer server.Close()

	cfg := testBrowserConfig()
	cfg.MaxBodySize = 4096
	s, _ := NewHTTPSession(cfg, nil, testLogger)
	defer s.Close()

	ctx := context.Background()
	if err := s.Navigate(ctx, server.URL); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	body, _ := s.HTML(ctx)
	if len(body) != 4096 {
		t.Errorf("expected decoded body cut at 4096 bytes, got %d", len(body))
	}
	if found, _ := s.Has(ctx, ".product-card"); !found {
		t.Error("expected the start of the page to survive the limit")
	}
}

func TestHTTPSessionStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer server.Close()

	s, _ := NewHTTPSession(testBrowserConfig(), nil, testLogger)
	defer s.Close()

	err := s.Navigate(context.Background(), server.URL)
	var navErr *types.NavigationError
	if !errors.As(err, &navErr) {
		t.Fatalf("expected NavigationError, got %v", err)
	}
	if !strings.Contains(navErr.Error(), "403") {
		t.Errorf("expected status in error, got %v", navErr)
	}
}

func TestHTTPSessionUnsupported(t *testing.T) {
	s, _ := NewHTTPSession(testBrowserConfig(), nil, testLogger)
	ctx := context.Background()

	if err := s.Click(ctx, "a.next"); !errors.Is(err, types.ErrUnsupported) {
		t.Errorf("Click: expected ErrUnsupported, got %v", err)
	}
	if err := s.Eval(ctx, "() => 1", nil); !errors.Is(err, types.ErrUnsupported) {
		t.Errorf("Eval: expected ErrUnsupported, got %v", err)
	}
	if _, err := s.WaitURLChange(ctx, "", time.Millisecond); !errors.Is(err, types.ErrUnsupported) {
		t.Errorf("WaitURLChange: expected ErrUnsupported, got %v", err)
	}

	s.Close()
	if err := s.Navigate(ctx, "http://localhost"); !errors.Is(err, types.ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed after Close, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}

func TestOpenerUnknownFetcher(t *testing.T) {
	cfg := testBrowserConfig()
	cfg.Fetcher = "telnet"

	_, err := NewOpener(cfg, testLogger)(context.Background())
	var sessErr *types.SessionError
	if !errors.As(err, &sessErr) {
		t.Fatalf("expected SessionError, got %v", err)
	}
}

func TestProxyRotator(t *testing.T) {
	pr := NewProxyRotator([]string{"http://a:8080", "::bad", "http://b:8080"}, "round_robin", testLogger)
	if pr.Count() != 2 {
		t.Fatalf("expected 2 valid proxies, got %d", pr.Count())
	}

	hosts := []string{pr.Next().Host, pr.Next().Host, pr.Next().Host}
	want := []string{"a:8080", "b:8080", "a:8080"}
	for i := range want {
		if hosts[i] != want[i] {
			t.Errorf("rotation %d: expected %s, got %s", i, want[i], hosts[i])
		}
	}

	var empty *ProxyRotator
	if empty.Next() != nil {
		t.Error("nil rotator should yield a direct connection")
	}
}

func TestStealthConfig(t *testing.T) {
	sc := NewStealthConfig("Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0)", "en-GB", "1440,900")
	if sc.Platform != "MacIntel" {
		t.Errorf("expected MacIntel platform, got %q", sc.Platform)
	}
	if got := sc.AcceptLanguage(); got != "en-GB,en;q=0.9" {
		t.Errorf("unexpected Accept-Language %q", got)
	}
	js := sc.StealthJS()
	if !strings.Contains(js, "webdriver") || !strings.Contains(js, "'en-GB'") {
		t.Error("stealth script should mask webdriver and set language")
	}
}
