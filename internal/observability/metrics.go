package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks operational metrics for crawl runs.
type Metrics struct {
	// Run metrics
	RunsStarted  atomic.Int64
	RunsFailed   atomic.Int64
	ActiveRuns   atomic.Int32
	SessionsOpen atomic.Int32

	// Page metrics
	PagesVisited atomic.Int64
	PagesEmpty   atomic.Int64
	PageRetries  atomic.Int64
	PageErrors   atomic.Int64

	// Discovery metrics
	DiscoveryFallbacks atomic.Int64

	// Product metrics
	ProductsExtracted atomic.Int64
	ProductsDropped   atomic.Int64
	ProductsStored    atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		kind  string
		value int64
	}{
		{"shelfie_runs_started_total", "Total crawl runs started", "counter", m.RunsStarted.Load()},
		{"shelfie_runs_failed_total", "Total crawl runs that failed", "counter", m.RunsFailed.Load()},
		{"shelfie_active_runs", "Crawl runs in progress", "gauge", int64(m.ActiveRuns.Load())},
		{"shelfie_sessions_open", "Page sessions currently open", "gauge", int64(m.SessionsOpen.Load())},
		{"shelfie_pages_visited_total", "Total listing pages visited", "counter", m.PagesVisited.Load()},
		{"shelfie_pages_empty_total", "Total listing pages that stayed empty after retry", "counter", m.PagesEmpty.Load()},
		{"shelfie_page_retries_total", "Total listing page retries", "counter", m.PageRetries.Load()},
		{"shelfie_page_errors_total", "Total listing page load errors", "counter", m.PageErrors.Load()},
		{"shelfie_discovery_fallbacks_total", "Total page counts decided by fallback", "counter", m.DiscoveryFallbacks.Load()},
		{"shelfie_products_extracted_total", "Total products extracted", "counter", m.ProductsExtracted.Load()},
		{"shelfie_products_dropped_total", "Total products dropped as run duplicates", "counter", m.ProductsDropped.Load()},
		{"shelfie_products_stored_total", "Total products written to sinks", "counter", m.ProductsStored.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", metric.name, metric.kind)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer starts the metrics HTTP server.
func (m *Metrics) StartServer(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"runs_started":        m.RunsStarted.Load(),
		"runs_failed":         m.RunsFailed.Load(),
		"active_runs":         int64(m.ActiveRuns.Load()),
		"sessions_open":       int64(m.SessionsOpen.Load()),
		"pages_visited":       m.PagesVisited.Load(),
		"pages_empty":         m.PagesEmpty.Load(),
		"page_retries":        m.PageRetries.Load(),
		"page_errors":         m.PageErrors.Load(),
		"discovery_fallbacks": m.DiscoveryFallbacks.Load(),
		"products_extracted":  m.ProductsExtracted.Load(),
		"products_dropped":    m.ProductsDropped.Load(),
		"products_stored":     m.ProductsStored.Load(),
	}
}
