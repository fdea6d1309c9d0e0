package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/Shelfie/internal/config"
	"github.com/IshaanNene/Shelfie/internal/fetcher"
	"github.com/IshaanNene/Shelfie/internal/observability"
	"github.com/IshaanNene/Shelfie/internal/sites"
	"github.com/IshaanNene/Shelfie/internal/types"
)

// BatchResult aggregates the runs of a multi-category crawl.
type BatchResult struct {
	Site string
	Runs []*Result
	// Products is every run's products, in run order.
	Products []*types.Product
}

// TotalPages sums the discovered page counts of all runs.
func (b *BatchResult) TotalPages() int {
	total := 0
	for _, r := range b.Runs {
		total += r.TotalPages
	}
	return total
}

// Batch crawls several category URLs of one site back to back. Each
// category gets its own Crawler and its own session; categories are
// separated by crawl.category_pause.
type Batch struct {
	cfg     *config.Config
	profile *sites.Profile
	urls    []string
	opener  fetcher.Opener

	observer Observer
	sleep    Sleeper
	metrics  *observability.Metrics
	maxPages int

	logger *slog.Logger
}

// NewBatch creates a Batch. An empty urls crawls the profile's default
// category once.
func NewBatch(cfg *config.Config, profile *sites.Profile, urls []string, opener fetcher.Opener, logger *slog.Logger) *Batch {
	if len(urls) == 0 {
		urls = []string{""}
	}
	return &Batch{
		cfg:      cfg,
		profile:  profile,
		urls:     urls,
		opener:   opener,
		observer: nopObserver{},
		sleep:    SleepContext,
		maxPages: cfg.Crawl.MaxPages,
		logger:   logger.With("component", "batch", "site", profile.Slug),
	}
}

// SetObserver sets the observer passed to every run.
func (b *Batch) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	b.observer = o
}

// SetSleeper replaces the sleep used between categories and inside runs.
func (b *Batch) SetSleeper(s Sleeper) {
	if s != nil {
		b.sleep = s
	}
}

// SetMetrics attaches process-wide metrics to every run.
func (b *Batch) SetMetrics(m *observability.Metrics) {
	b.metrics = m
}

// SetMaxPages overrides crawl.max_pages for every run.
func (b *Batch) SetMaxPages(n int) {
	b.maxPages = n
}

// Run crawls every category. A failed category does not stop the batch;
// its error is joined into the returned error alongside the partial
// result. Cancelling ctx stops the batch.
func (b *Batch) Run(ctx context.Context) (*BatchResult, error) {
	out := &BatchResult{Site: b.profile.Slug}
	var errs []error

	for i, url := range b.urls {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if i > 0 {
			if err := b.sleep(ctx, b.cfg.Crawl.CategoryPause); err != nil {
				errs = append(errs, err)
				break
			}
		}

		b.logger.Info("category starting", "index", i+1, "of", len(b.urls), "url", b.profile.Base(url))

		c := New(b.cfg, b.profile, url, b.opener, b.logger)
		c.SetObserver(b.observer)
		c.SetSleeper(b.sleep)
		c.SetMetrics(b.metrics)
		c.SetMaxPages(b.maxPages)

		res, err := c.Run(ctx)
		if res != nil {
			out.Runs = append(out.Runs, res)
			out.Products = append(out.Products, res.Products...)
		}
		if err != nil {
			b.logger.Error("category failed", "url", c.BaseURL(), "error", err)
			errs = append(errs, fmt.Errorf("category %s: %w", c.BaseURL(), err))
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
		}
	}

	b.logger.Info("batch finished", "categories", len(out.Runs), "products", len(out.Products))
	return out, errors.Join(errs...)
}
