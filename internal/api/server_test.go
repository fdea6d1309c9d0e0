package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/IshaanNene/Shelfie/internal/config"
	"github.com/IshaanNene/Shelfie/internal/dashboard"
	"github.com/IshaanNene/Shelfie/internal/fetcher"
	"github.com/IshaanNene/Shelfie/internal/fetcher/fetchertest"
	"github.com/IshaanNene/Shelfie/internal/observability"
	"github.com/IshaanNene/Shelfie/internal/sites"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func spinneysPage(page, count int) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 1; i <= count; i++ {
		fmt.Fprintf(&b, `<div class="product-info"><div class="product-name"><a href="/en-ae/p/%d-%d">Birds Eye Meal %d-%d 400g</a></div>`+
			`<div class="product-price"><span class="price">AED %d.50</span></div></div>`, page, i, page, i, i)
	}
	b.WriteString(`<ul class="pagination"><li><a>1</a></li><li><a>2</a></li><li class="next"><a>Next</a></li></ul>`)
	b.WriteString("</body></html>")
	return b.String()
}

func spinneysPages() map[string][]string {
	base := sites.Spinneys().DefaultURL
	return map[string][]string{
		base:              {spinneysPage(1, 3)},
		base + "?page=2": {spinneysPage(2, 2)},
	}
}

type testEnv struct {
	server  *Server
	router  *gin.Engine
	state   *dashboard.RunState
	metrics *observability.Metrics
	cfg     *config.Config
}

func newTestEnv(t *testing.T, opener fetcher.Opener) *testEnv {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Export.OutputDir = t.TempDir()
	cfg.Export.Formats = []string{"csv"}
	cfg.Server.Mode = gin.TestMode
	cfg.Server.StartRate = 100
	cfg.Server.StartBurst = 100

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	state := dashboard.NewRunState()
	metrics := observability.NewMetrics(testLogger)
	s := NewServer(cfg, state, opener, metrics, testLogger)
	s.SetSleeper(func(ctx context.Context, _ time.Duration) error { return ctx.Err() })

	return &testEnv{server: s, router: s.Router(ctx), state: state, metrics: metrics, cfg: cfg}
}

func fakeOpener(pages map[string][]string) fetcher.Opener {
	return func(context.Context) (fetcher.Session, error) {
		return fetchertest.New(pages), nil
	}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, fakeOpener(nil))
	rec := env.do(http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := decode(t, rec); body["status"] != "ok" || body["running"] != false {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestSitesListsProfiles(t *testing.T) {
	env := newTestEnv(t, fakeOpener(nil))
	rec := env.do(http.MethodGet, "/api/sites", "")

	var got []SiteInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != len(sites.Slugs()) {
		t.Fatalf("expected %d sites, got %d", len(sites.Slugs()), len(got))
	}
	for _, s := range got {
		if s.DefaultURL == "" || s.Name == "" {
			t.Errorf("incomplete site info: %+v", s)
		}
	}
}

func TestDashboardPage(t *testing.T) {
	env := newTestEnv(t, fakeOpener(nil))
	rec := env.do(http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Shelfie") {
		t.Errorf("expected dashboard page, got %d", rec.Code)
	}
}

func TestStartRunCompletesAndExports(t *testing.T) {
	env := newTestEnv(t, fakeOpener(spinneysPages()))

	rec := env.do(http.MethodPost, "/api/runs", `{"site":"Spinneys"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["run_id"] == "" || body["site"] != "spinneys" {
		t.Errorf("unexpected start body: %v", body)
	}

	env.server.Wait()

	st := env.state.Snapshot()
	if st.Running || st.Error != "" {
		t.Fatalf("run should finish cleanly: %+v", st)
	}
	if st.ProductCount != 5 || st.TotalPages != 2 || st.Progress != 100 {
		t.Errorf("unexpected status: %+v", st)
	}
	if len(st.OutputFiles) != 1 || !strings.HasSuffix(st.OutputFiles[0], ".csv") {
		t.Fatalf("expected one csv output, got %v", st.OutputFiles)
	}
	if env.metrics.ProductsStored.Load() != 5 {
		t.Errorf("expected 5 stored products, got %d", env.metrics.ProductsStored.Load())
	}

	status := decode(t, env.do(http.MethodGet, "/api/status", ""))
	if status["product_count"] != float64(5) {
		t.Errorf("status endpoint disagrees: %v", status)
	}

	name := filepath.Base(st.OutputFiles[0])
	dl := env.do(http.MethodGet, "/api/download/"+name, "")
	if dl.Code != http.StatusOK || !strings.Contains(dl.Body.String(), "Meal 2-2") {
		t.Errorf("download failed: %d", dl.Code)
	}

	csv := env.do(http.MethodGet, "/api/download.csv", "")
	if csv.Code != http.StatusOK {
		t.Fatalf("expected csv download, got %d", csv.Code)
	}
	if !strings.Contains(csv.Header().Get("Content-Disposition"), "shelfie_spinneys_products_") {
		t.Errorf("unexpected disposition %q", csv.Header().Get("Content-Disposition"))
	}
	if lines := strings.Count(strings.TrimSpace(csv.Body.String()), "\n"); lines != 5 {
		t.Errorf("expected header + 5 rows, got %d newlines", lines)
	}
}

func TestStartRunConflictWhileRunning(t *testing.T) {
	gate := make(chan struct{})
	opener := func(ctx context.Context) (fetcher.Session, error) {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return fetchertest.New(spinneysPages()), nil
	}
	env := newTestEnv(t, opener)

	if rec := env.do(http.MethodPost, "/api/runs", `{"site":"spinneys"}`); rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	rec := env.do(http.MethodPost, "/api/runs", `{"site":"lulu"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 while running, got %d", rec.Code)
	}

	close(gate)
	env.server.Wait()

	if rec := env.do(http.MethodPost, "/api/runs", `{"site":"spinneys"}`); rec.Code != http.StatusAccepted {
		t.Errorf("expected a new run to start after the first finished, got %d", rec.Code)
	}
	env.server.Wait()
}

func TestStartRunValidation(t *testing.T) {
	env := newTestEnv(t, fakeOpener(nil))
	tests := []struct {
		name string
		body string
	}{
		{"missing site", `{}`},
		{"unknown site", `{"site":"carrefour"}`},
		{"bad url", `{"site":"lulu","urls":["ftp://example.com"]}`},
		{"negative pages", `{"site":"lulu","max_pages":-1}`},
		{"bad format", `{"site":"lulu","formats":["pdf"]}`},
		{"malformed", `{"site":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/api/runs", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
	if env.state.Running() {
		t.Error("no run should have started")
	}
}

func TestStartRunRateLimited(t *testing.T) {
	env := newTestEnv(t, fakeOpener(spinneysPages()))
	env.cfg.Server.StartRate = 0.001
	env.cfg.Server.StartBurst = 1
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	router := env.server.Router(ctx)

	do := func() int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(`{"site":"spinneys"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do(); code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", code)
	}
	env.server.Wait()
	if code := do(); code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", code)
	}
}

func TestFailedRunReportsError(t *testing.T) {
	opener := func(context.Context) (fetcher.Session, error) {
		return nil, fmt.Errorf("chrome not found")
	}
	env := newTestEnv(t, opener)

	if rec := env.do(http.MethodPost, "/api/runs", `{"site":"almeera"}`); rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	env.server.Wait()

	st := env.state.Snapshot()
	if st.Running || !strings.Contains(st.Error, "chrome not found") {
		t.Errorf("expected failure recorded, got %+v", st)
	}
	if env.metrics.RunsFailed.Load() != 1 {
		t.Errorf("expected 1 failed run, got %d", env.metrics.RunsFailed.Load())
	}
	if rec := env.do(http.MethodGet, "/api/download.csv", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 with no products, got %d", rec.Code)
	}
}

func TestDownloadRejectsTraversal(t *testing.T) {
	env := newTestEnv(t, fakeOpener(nil))
	outside := filepath.Join(filepath.Dir(env.cfg.Export.OutputDir), "secret.txt")
	if err := os.WriteFile(outside, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{"/api/download/..%2Fsecret.txt", "/api/download/.hidden", "/api/download/missing.csv"} {
		rec := env.do(http.MethodGet, path, "")
		if rec.Code == http.StatusOK {
			t.Errorf("%s: expected rejection, got 200", path)
		}
	}
}

func TestClearLogs(t *testing.T) {
	env := newTestEnv(t, fakeOpener(nil))
	env.state.Log("something happened")

	if rec := env.do(http.MethodPost, "/api/logs/clear", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if n := len(env.state.Snapshot().Logs); n != 0 {
		t.Errorf("expected no logs, got %d", n)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, fakeOpener(nil))
	env.metrics.PagesVisited.Add(3)

	rec := env.do(http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "shelfie_pages_visited_total 3") {
		t.Errorf("unexpected metrics output: %d %s", rec.Code, rec.Body.String())
	}
}
