// Package pagination bounds the number of listing pages in a category by
// running an ordered cascade of detection strategies against the first
// page.
package pagination

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/Shelfie/internal/fetcher"
	"github.com/IshaanNene/Shelfie/internal/types"
)

// Probe is what a strategy may inspect: the live session positioned on the
// first page and a static snapshot of it.
type Probe struct {
	Session  fetcher.Session
	Snapshot *types.Snapshot
}

// Strategy estimates the total page count. A result of 1 or less means the
// strategy found no bound and the cascade moves on.
type Strategy interface {
	Name() string
	Discover(ctx context.Context, p *Probe) (int, error)
}

// Config is a site's discovery setup.
type Config struct {
	// Strategies run in order; the first to return more than one page wins.
	Strategies []Strategy

	// NextSelectors identify a "next page" control. When no strategy finds
	// a bound but one of them matches, DefaultPages is assumed.
	NextSelectors []string

	// DefaultPages is the page count assumed on fallback. Defaults to 10.
	DefaultPages int

	// MinPages raises weak estimates before the user cap applies.
	MinPages int
}

// Outcome reports how the page count was decided.
type Outcome struct {
	Pages    int
	Strategy string
	// Fallback is set when no strategy produced a bound.
	Fallback bool
}

// Discoverer runs the cascade. It never fails: every strategy error is
// logged and the next strategy is tried.
type Discoverer struct {
	cfg    Config
	logger *slog.Logger
}

// NewDiscoverer creates a Discoverer.
func NewDiscoverer(cfg Config, logger *slog.Logger) *Discoverer {
	if cfg.DefaultPages <= 0 {
		cfg.DefaultPages = 10
	}
	return &Discoverer{
		cfg:    cfg,
		logger: logger.With("component", "pagination"),
	}
}

// Discover returns the total number of pages to crawl, at least 1 and at
// most maxPages when maxPages is positive.
func (d *Discoverer) Discover(ctx context.Context, p *Probe, maxPages int) Outcome {
	out := d.cascade(ctx, p)

	if d.cfg.MinPages > 0 && out.Pages < d.cfg.MinPages {
		d.logger.Debug("raising page count to site minimum", "found", out.Pages, "min", d.cfg.MinPages)
		out.Pages = d.cfg.MinPages
	}
	if maxPages > 0 && out.Pages > maxPages {
		out.Pages = maxPages
	}
	if out.Pages < 1 {
		out.Pages = 1
	}

	d.logger.Info("total pages decided",
		"pages", out.Pages,
		"strategy", out.Strategy,
		"fallback", out.Fallback,
		"max_pages", maxPages,
	)
	return out
}

func (d *Discoverer) cascade(ctx context.Context, p *Probe) Outcome {
	for _, s := range d.cfg.Strategies {
		n, err := d.run(ctx, s, p)
		if err != nil {
			d.logger.Warn("pagination strategy failed", "error", &types.DiscoveryError{Strategy: s.Name(), Err: err})
			continue
		}
		if n > 1 {
			return Outcome{Pages: n, Strategy: s.Name()}
		}
		d.logger.Debug("pagination strategy found no bound", "strategy", s.Name())
	}

	if d.hasNext(p) {
		return Outcome{Pages: d.cfg.DefaultPages, Strategy: "default", Fallback: true}
	}
	return Outcome{Pages: 1, Strategy: "single", Fallback: true}
}

// run shields the cascade from a panicking strategy.
func (d *Discoverer) run(ctx context.Context, s Strategy, p *Probe) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("pagination strategy panicked", "strategy", s.Name(), "panic", r)
			n, err = 0, fmt.Errorf("panic: %v", r)
		}
	}()
	return s.Discover(ctx, p)
}

func (d *Discoverer) hasNext(p *Probe) bool {
	if p == nil || p.Snapshot == nil {
		return false
	}
	doc, err := p.Snapshot.Document()
	if err != nil {
		return false
	}
	for _, sel := range d.cfg.NextSelectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}
