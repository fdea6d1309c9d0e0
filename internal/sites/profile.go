// Package sites holds the retailer profiles. A profile is plain data:
// selectors, URL templates, the pagination cascade and the name
// heuristics that distinguish one storefront from another. The crawl
// driver is the same for every site.
package sites

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/IshaanNene/Shelfie/internal/config"
	"github.com/IshaanNene/Shelfie/internal/extractor"
	"github.com/IshaanNene/Shelfie/internal/pagination"
)

// Profile configures a crawl of one retailer's category listings.
type Profile struct {
	Name string
	Slug string

	// Origin is the absolute base relative links are resolved against.
	Origin string

	// DefaultURL is the category crawled when none is given.
	DefaultURL string

	// CategoryBase is joined with a category path for multi-category
	// runs. Empty joins onto the run's base URL instead.
	CategoryBase string

	// NormalizeBase cleans a user-supplied category URL. Nil keeps it.
	NormalizeBase func(raw string) string

	// PageURL builds the URL of listing page n (1-based) from the
	// normalized base.
	PageURL func(base string, n int) string

	// Extract is the extraction setup. Site and Origin are filled from
	// the profile.
	Extract extractor.Config

	// Pagination is the discovery cascade. Click probes without explicit
	// limits take them from the crawl config.
	Pagination pagination.Config

	// ReadySelector is awaited on the first page before discovery.
	ReadySelector string
	ReadyTimeout  time.Duration

	// ProductWait is awaited on every listing page. A timeout is logged
	// and the page is read anyway.
	ProductWait        string
	ProductWaitTimeout time.Duration

	// ScrollSteps overrides crawl.scroll_steps when positive.
	ScrollSteps int

	// EarlyStop ends the crawl when a page past the third is empty and
	// the next two pages are empty as well.
	EarlyStop bool

	// DedupeOutputByName drops later records whose clean name repeats
	// before export.
	DedupeOutputByName bool
}

// Base returns the normalized category URL for raw, or the profile's
// default when raw is empty.
func (p *Profile) Base(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = p.DefaultURL
	}
	if p.NormalizeBase != nil {
		return p.NormalizeBase(raw)
	}
	return raw
}

// Category returns the URL of category path under the profile's category
// root, or under base when the profile has none.
func (p *Profile) Category(base, category string) string {
	root := p.CategoryBase
	if root == "" {
		root = p.Base(base)
	}
	return strings.TrimRight(root, "/") + "/" + strings.TrimLeft(category, "/")
}

// Page returns the URL of listing page n for base.
func (p *Profile) Page(base string, n int) string {
	if p.PageURL == nil {
		return base
	}
	return p.PageURL(base, n)
}

// Extractor builds the profile's page extractor.
func (p *Profile) Extractor(logger *slog.Logger) *extractor.Extractor {
	cfg := p.Extract
	cfg.Site = p.Slug
	cfg.Origin = p.Origin
	return extractor.New(cfg, logger)
}

// Discoverer builds the profile's pagination cascade with probe limits
// and the default page count taken from crawl where the profile leaves
// them unset.
func (p *Profile) Discoverer(crawl *config.CrawlConfig, logger *slog.Logger) *pagination.Discoverer {
	cfg := p.Pagination
	cfg.Strategies = make([]pagination.Strategy, 0, len(p.Pagination.Strategies))
	for _, s := range p.Pagination.Strategies {
		if probe, ok := s.(*pagination.ClickProbe); ok && crawl != nil {
			c := *probe
			if c.MaxAttempts <= 0 {
				c.MaxAttempts = crawl.ProbeAttempts
			}
			if c.Timeout <= 0 {
				c.Timeout = crawl.ProbeTimeout
			}
			if c.ReadySelector == "" {
				c.ReadySelector = p.ReadySelector
			}
			s = &c
		}
		cfg.Strategies = append(cfg.Strategies, s)
	}
	if cfg.DefaultPages <= 0 && crawl != nil {
		cfg.DefaultPages = crawl.DefaultPages
	}
	return pagination.NewDiscoverer(cfg, logger.With("site", p.Slug))
}

// pageQuery returns a template that reuses the base for page 1 and
// appends sep+n for later pages.
func pageQuery(sep string) func(string, int) string {
	return func(base string, n int) string {
		if n <= 1 {
			return base
		}
		return base + sep + strconv.Itoa(n)
	}
}
