package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/IshaanNene/Shelfie/internal/config"
	"github.com/IshaanNene/Shelfie/internal/extractor"
	"github.com/IshaanNene/Shelfie/internal/fetcher"
	"github.com/IshaanNene/Shelfie/internal/observability"
	"github.com/IshaanNene/Shelfie/internal/pagination"
	"github.com/IshaanNene/Shelfie/internal/pipeline"
	"github.com/IshaanNene/Shelfie/internal/sites"
	"github.com/IshaanNene/Shelfie/internal/types"
)

// State represents the crawler's lifecycle state.
type State int32

const (
	StateInit      State = 0
	StateDiscovery State = 1
	StatePageLoop  State = 2
	StateFinalize  State = 3
	StateDone      State = 4
	StateFailed    State = 5
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateDiscovery:
		return "page_discovery"
	case StatePageLoop:
		return "per_page_loop"
	case StateFinalize:
		return "finalize"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stats tracks crawl statistics.
type Stats struct {
	TotalPages        atomic.Int64
	PagesVisited      atomic.Int64
	PagesEmpty        atomic.Int64
	PageRetries       atomic.Int64
	PageErrors        atomic.Int64
	ProductsExtracted atomic.Int64
	ProductsDropped   atomic.Int64
	StartTime         time.Time
}

// Snapshot returns a copy of stats safe for reading.
func (s *Stats) Snapshot() map[string]any {
	elapsed := time.Duration(0)
	if !s.StartTime.IsZero() {
		elapsed = time.Since(s.StartTime)
	}
	return map[string]any{
		"total_pages":        s.TotalPages.Load(),
		"pages_visited":      s.PagesVisited.Load(),
		"pages_empty":        s.PagesEmpty.Load(),
		"page_retries":       s.PageRetries.Load(),
		"page_errors":        s.PageErrors.Load(),
		"products_extracted": s.ProductsExtracted.Load(),
		"products_dropped":   s.ProductsDropped.Load(),
		"elapsed":            elapsed.String(),
	}
}

// Observer receives progress callbacks. Calls are made synchronously from
// the crawling goroutine.
type Observer interface {
	OnDiscovered(total int)
	OnPageStart(page, total int)
	OnPageDone(page, count int)
}

type nopObserver struct{}

func (nopObserver) OnDiscovered(int)     {}
func (nopObserver) OnPageStart(int, int) {}
func (nopObserver) OnPageDone(int, int)  {}

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Result is what one crawl run produced.
type Result struct {
	Site    string
	BaseURL string

	// Products in page order, then in-page order. No two share a raw name.
	Products []*types.Product

	TotalPages   int
	PagesVisited int
	EarlyStop    bool
	Discovery    pagination.Outcome

	StartedAt  time.Time
	FinishedAt time.Time
}

// Crawler drives one crawl run over a category: open a session, bound
// the page count, then visit every page in order. It is single use.
type Crawler struct {
	cfg      *config.Config
	profile  *sites.Profile
	base     string
	maxPages int

	opener     fetcher.Opener
	extractor  *extractor.Extractor
	discoverer *pagination.Discoverer
	observer   Observer
	sleep      Sleeper
	metrics    *observability.Metrics

	started atomic.Bool
	state   atomic.Int32
	stats   *Stats
	logger  *slog.Logger
}

// New creates a Crawler for the category at rawURL. An empty rawURL
// crawls the profile's default category.
func New(cfg *config.Config, profile *sites.Profile, rawURL string, opener fetcher.Opener, logger *slog.Logger) *Crawler {
	logger = logger.With("component", "engine", "site", profile.Slug)
	return &Crawler{
		cfg:        cfg,
		profile:    profile,
		base:       profile.Base(rawURL),
		maxPages:   cfg.Crawl.MaxPages,
		opener:     opener,
		extractor:  profile.Extractor(logger),
		discoverer: profile.Discoverer(&cfg.Crawl, logger),
		observer:   nopObserver{},
		sleep:      SleepContext,
		stats:      &Stats{},
		logger:     logger,
	}
}

// SetObserver sets the progress observer.
func (c *Crawler) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	c.observer = o
}

// SetSleeper replaces the sleep used for delays and retries.
func (c *Crawler) SetSleeper(s Sleeper) {
	if s != nil {
		c.sleep = s
	}
}

// SetMetrics attaches process-wide metrics.
func (c *Crawler) SetMetrics(m *observability.Metrics) {
	c.metrics = m
}

// SetMaxPages overrides crawl.max_pages. Zero means no cap.
func (c *Crawler) SetMaxPages(n int) {
	c.maxPages = n
}

// Stats returns the run statistics.
func (c *Crawler) Stats() *Stats {
	return c.stats
}

// GetState returns the current state.
func (c *Crawler) GetState() State {
	return State(c.state.Load())
}

// BaseURL returns the normalized category URL.
func (c *Crawler) BaseURL() string {
	return c.base
}

func (c *Crawler) setState(s State) {
	c.state.Store(int32(s))
	c.logger.Debug("state changed", "state", s)
}

// Run executes the crawl. The session is closed on every exit path. Only
// a session failure or cancellation of ctx is returned as an error; the
// Result then holds whatever was collected before it.
func (c *Crawler) Run(ctx context.Context) (res *Result, err error) {
	if !c.started.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("crawler is in state %s, cannot run again", c.GetState())
	}

	c.stats.StartTime = time.Now()
	res = &Result{
		Site:      c.profile.Slug,
		BaseURL:   c.base,
		StartedAt: c.stats.StartTime,
	}
	c.metricsDo(func(m *observability.Metrics) {
		m.RunsStarted.Add(1)
		m.ActiveRuns.Add(1)
	})

	c.logger.Info("crawl starting", "url", c.base, "max_pages", c.maxPages)

	session, err := c.opener(ctx)
	if err != nil {
		c.setState(StateFailed)
		res.FinishedAt = time.Now()
		c.metricsDo(func(m *observability.Metrics) {
			m.RunsFailed.Add(1)
			m.ActiveRuns.Add(-1)
		})
		var se *types.SessionError
		if !errors.As(err, &se) {
			err = &types.SessionError{Op: "open", Err: err}
		}
		c.logger.Error("session launch failed", "error", err)
		return res, err
	}
	c.metricsDo(func(m *observability.Metrics) { m.SessionsOpen.Add(1) })

	defer func() {
		c.setState(StateFinalize)
		if closeErr := session.Close(); closeErr != nil {
			c.logger.Warn("session close failed", "error", closeErr)
		}
		res.FinishedAt = time.Now()
		c.metricsDo(func(m *observability.Metrics) {
			m.SessionsOpen.Add(-1)
			m.ActiveRuns.Add(-1)
			if err != nil {
				m.RunsFailed.Add(1)
			}
		})
		if err != nil {
			c.setState(StateFailed)
		} else {
			c.setState(StateDone)
		}
		c.logger.Info("crawl finished",
			"products", len(res.Products),
			"pages_visited", res.PagesVisited,
			"total_pages", res.TotalPages,
			"early_stop", res.EarlyStop,
			"error", err,
			"stats", c.stats.Snapshot(),
		)
	}()

	c.setState(StateDiscovery)
	outcome, err := c.discover(ctx, session)
	if err != nil {
		return res, err
	}
	res.Discovery = outcome
	res.TotalPages = outcome.Pages
	c.stats.TotalPages.Store(int64(outcome.Pages))
	c.observer.OnDiscovered(outcome.Pages)

	c.setState(StatePageLoop)
	err = c.pageLoop(ctx, session, res)
	return res, err
}

// discover loads the first page and runs the pagination cascade. A page
// that cannot be loaded is treated as a single page; only a dead session
// or a cancelled context is an error.
func (c *Crawler) discover(ctx context.Context, session fetcher.Session) (pagination.Outcome, error) {
	first := c.profile.Page(c.base, 1)

	snap, err := c.loadFirst(ctx, session, first)
	if err != nil {
		if fatal := c.fatal(ctx, err); fatal != nil {
			return pagination.Outcome{}, fatal
		}
		c.logger.Warn("first page unavailable for discovery", "url", first, "error", err)
		snap = types.NewSnapshot(first, "")
	}

	outcome := c.discoverer.Discover(ctx, &pagination.Probe{Session: session, Snapshot: snap}, c.maxPages)
	if outcome.Fallback {
		c.metricsDo(func(m *observability.Metrics) { m.DiscoveryFallbacks.Add(1) })
	}
	if err := ctx.Err(); err != nil {
		return outcome, err
	}
	return outcome, nil
}

func (c *Crawler) loadFirst(ctx context.Context, session fetcher.Session, url string) (*types.Snapshot, error) {
	if err := session.Navigate(ctx, url); err != nil {
		return nil, err
	}
	if sel := c.profile.ReadySelector; sel != "" {
		if err := session.WaitVisible(ctx, sel, c.readyTimeout()); err != nil {
			c.logger.Warn("first page not ready", "url", url, "selector", sel, "error", err)
		}
	}
	return fetcher.Capture(ctx, session)
}

func (c *Crawler) pageLoop(ctx context.Context, session fetcher.Session, res *Result) error {
	total := res.TotalPages
	seen := pipeline.New(c.logger).Use(pipeline.NewDedupMiddleware(pipeline.ByRawName))

	for page := 1; page <= total; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.observer.OnPageStart(page, total)
		products, err := c.scrapeWithRetry(ctx, session, page)
		if err != nil {
			return err
		}
		res.PagesVisited++

		kept := seen.ProcessAll(products)
		if dropped := len(products) - len(kept); dropped > 0 {
			c.stats.ProductsDropped.Add(int64(dropped))
			c.metricsDo(func(m *observability.Metrics) { m.ProductsDropped.Add(int64(dropped)) })
			c.logger.Debug("run duplicates dropped", "page", page, "dropped", dropped)
		}
		res.Products = append(res.Products, kept...)
		c.observer.OnPageDone(page, len(kept))

		if len(products) == 0 && c.profile.EarlyStop && page > 3 && page < total {
			stop, err := c.lookAheadEmpty(ctx, session, page)
			if err != nil {
				return err
			}
			if stop {
				c.logger.Info("listing exhausted, stopping early", "page", page, "total", total)
				res.EarlyStop = true
				return nil
			}
		}

		if page < total {
			if err := c.sleep(ctx, c.pageDelay()); err != nil {
				return err
			}
		}
	}
	return nil
}

// scrapeWithRetry reads one page, retrying once after crawl.retry_delay
// when it comes back empty.
func (c *Crawler) scrapeWithRetry(ctx context.Context, session fetcher.Session, page int) ([]*types.Product, error) {
	url := c.profile.Page(c.base, page)

	products, err := c.scrapePage(ctx, session, url)
	if fatal := c.fatal(ctx, err); fatal != nil {
		return nil, fatal
	}
	if len(products) > 0 {
		return products, nil
	}

	c.logger.Info("page empty, retrying", "page", page, "url", url, "error", err)
	c.stats.PageRetries.Add(1)
	c.metricsDo(func(m *observability.Metrics) { m.PageRetries.Add(1) })
	if err := c.sleep(ctx, c.cfg.Crawl.RetryDelay); err != nil {
		return nil, err
	}

	products, err = c.scrapePage(ctx, session, url)
	if fatal := c.fatal(ctx, err); fatal != nil {
		return nil, fatal
	}
	if len(products) == 0 {
		c.stats.PagesEmpty.Add(1)
		c.metricsDo(func(m *observability.Metrics) { m.PagesEmpty.Add(1) })
		c.logger.Warn("page still empty after retry", "page", page, "url", url, "error", err)
	}
	return products, nil
}

// scrapePage loads url, waits for products, scrolls and extracts. Errors
// are page-level unless fatal says otherwise.
func (c *Crawler) scrapePage(ctx context.Context, session fetcher.Session, url string) ([]*types.Product, error) {
	c.stats.PagesVisited.Add(1)
	c.metricsDo(func(m *observability.Metrics) { m.PagesVisited.Add(1) })

	if err := session.Navigate(ctx, url); err != nil {
		c.pageError()
		return nil, err
	}

	if sel := c.profile.ProductWait; sel != "" {
		if err := session.WaitVisible(ctx, sel, c.productTimeout()); err != nil {
			c.logger.Debug("product container not visible, reading page anyway", "url", url, "error", err)
		}
	}

	if err := session.Scroll(ctx, c.scrollSteps(), c.cfg.Crawl.ScrollPause); err != nil {
		c.logger.Debug("scroll failed", "url", url, "error", err)
	}

	snap, err := fetcher.Capture(ctx, session)
	if err != nil {
		c.pageError()
		return nil, err
	}

	products, err := c.extractor.Extract(ctx, snap, session)
	if err != nil {
		c.pageError()
		return nil, err
	}

	c.stats.ProductsExtracted.Add(int64(len(products)))
	c.metricsDo(func(m *observability.Metrics) { m.ProductsExtracted.Add(int64(len(products))) })
	c.logger.Info("page scraped", "url", url, "products", len(products))
	return products, nil
}

// lookAheadEmpty reports whether the two pages after page are empty as
// well. Their products are not kept; the loop visits them normally when
// the crawl goes on.
func (c *Crawler) lookAheadEmpty(ctx context.Context, session fetcher.Session, page int) (bool, error) {
	for next := page + 1; next <= page+2; next++ {
		products, err := c.scrapePage(ctx, session, c.profile.Page(c.base, next))
		if fatal := c.fatal(ctx, err); fatal != nil {
			return false, fatal
		}
		if len(products) > 0 {
			return false, nil
		}
	}
	return true, nil
}

// fatal returns the error that must end the run: a cancelled context or
// a dead session. Everything else is page-level.
func (c *Crawler) fatal(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err == nil {
		return nil
	}
	var se *types.SessionError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, types.ErrSessionClosed) {
		return &types.SessionError{Op: "crawl", Err: err}
	}
	return nil
}

func (c *Crawler) pageError() {
	c.stats.PageErrors.Add(1)
	c.metricsDo(func(m *observability.Metrics) { m.PageErrors.Add(1) })
}

func (c *Crawler) metricsDo(fn func(m *observability.Metrics)) {
	if c.metrics != nil {
		fn(c.metrics)
	}
}

// pageDelay picks a uniform delay in [crawl.min_delay, crawl.max_delay].
func (c *Crawler) pageDelay() time.Duration {
	lo, hi := c.cfg.Crawl.MinDelay, c.cfg.Crawl.MaxDelay
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int64N(int64(hi-lo)+1))
}

func (c *Crawler) scrollSteps() int {
	if c.profile.ScrollSteps > 0 {
		return c.profile.ScrollSteps
	}
	return c.cfg.Crawl.ScrollSteps
}

func (c *Crawler) readyTimeout() time.Duration {
	if c.profile.ReadyTimeout > 0 {
		return c.profile.ReadyTimeout
	}
	return c.cfg.Browser.WaitTimeout
}

func (c *Crawler) productTimeout() time.Duration {
	if c.profile.ProductWaitTimeout > 0 {
		return c.profile.ProductWaitTimeout
	}
	return c.cfg.Browser.WaitTimeout
}
