// Package extractor turns a loaded listing page into product records. It
// locates product nodes through selector fallback chains, drops nodes that
// sit inside excluded regions, reads raw fields and normalizes them through
// a per-page pipeline.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/Shelfie/internal/fetcher"
	"github.com/IshaanNene/Shelfie/internal/heuristics"
	"github.com/IshaanNene/Shelfie/internal/parser"
	"github.com/IshaanNene/Shelfie/internal/pipeline"
	"github.com/IshaanNene/Shelfie/internal/types"
)

// Selectors describes one page layout. Every field is a fallback chain:
// the first selector that yields something wins.
type Selectors struct {
	Product []string
	Name    []string
	Price   []string
	Image   []string
	// Link selects the product anchor. When empty the link is taken from
	// the name element or its nearest anchor.
	Link []string
	// ImageAttrs are read in order from the image element. Defaults to
	// src then data-src.
	ImageAttrs []string
}

// Config is the per-site extraction setup.
type Config struct {
	Site   string
	Origin string

	// Layouts are tried in order; the first whose product chain matches any
	// node is used for the whole page.
	Layouts []Selectors

	Exclude       parser.Exclusion
	AncestorDepth int

	Rules        *heuristics.Rules
	RepairPrices bool

	// ScriptLayout drives the in-page fallback query. Defaults to the first
	// layout.
	ScriptLayout *Selectors

	// DeepSearchBelow enables a page-wide scan for weight-bearing product
	// links when fewer records than this were found. Zero disables it.
	DeepSearchBelow int
}

// Extractor reads products from page snapshots. It is safe for concurrent
// use; every call builds its own per-page pipeline.
type Extractor struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Extractor.
func New(cfg Config, logger *slog.Logger) *Extractor {
	if cfg.AncestorDepth <= 0 {
		cfg.AncestorDepth = parser.DefaultAncestorDepth
	}
	return &Extractor{
		cfg:    cfg,
		logger: logger.With("component", "extractor", "site", cfg.Site),
	}
}

// Extract reads the products on the page captured in snap. When the static
// pass finds nothing and s is non-nil, the same selectors are evaluated
// inside the page as a second chance. Node-level failures are logged and
// skipped; only a page that cannot be parsed returns an error.
func (e *Extractor) Extract(ctx context.Context, snap *types.Snapshot, s fetcher.Session) ([]*types.Product, error) {
	doc, err := snap.Document()
	if err != nil {
		return nil, err
	}

	raw := e.readNodes(doc, snap.URL)

	if len(raw) == 0 && s != nil {
		scripted, err := e.extractScripted(ctx, s, snap.URL)
		switch {
		case errors.Is(err, types.ErrUnsupported):
			e.logger.Debug("script fallback unavailable", "session", s.Type())
		case err != nil:
			e.logger.Warn("script fallback failed", "url", snap.URL, "error", err)
		default:
			e.logger.Info("script fallback found products", "url", snap.URL, "count", len(scripted))
			raw = scripted
		}
	}

	if e.cfg.DeepSearchBelow > 0 && distinctNames(raw) < e.cfg.DeepSearchBelow {
		deep := e.deepSearch(snap)
		if len(deep) > 0 {
			e.logger.Info("deep search found candidates", "url", snap.URL, "count", len(deep))
			raw = append(raw, deep...)
		}
	}

	products := e.newPagePipeline().ProcessAll(raw)
	e.logger.Debug("page extracted", "url", snap.URL, "nodes", len(raw), "products", len(products))
	return products, nil
}

// newPagePipeline builds the normalization chain for one page. Dedup is
// scoped to the page; run-wide dedup belongs to the crawl driver.
func (e *Extractor) newPagePipeline() *pipeline.Pipeline {
	return pipeline.New(e.logger).Use(
		&pipeline.TrimMiddleware{},
		&pipeline.RequiredFieldsMiddleware{},
		pipeline.NewDedupMiddleware(pipeline.ByRawName),
		&pipeline.PriceCleanMiddleware{RepairRepeated: e.cfg.RepairPrices},
		&pipeline.URLResolveMiddleware{Base: e.cfg.Origin},
		&pipeline.HeuristicsMiddleware{Rules: e.cfg.Rules},
		&pipeline.SiteMiddleware{Slug: e.cfg.Site},
	)
}

// readNodes collects raw records from the first matching layout.
func (e *Extractor) readNodes(doc *goquery.Document, pageURL string) []*types.Product {
	layout, nodes := e.locate(doc.Selection)
	if nodes.Length() == 0 {
		return nil
	}

	var (
		out      []*types.Product
		excluded int
		failed   int
	)
	nodes.Each(func(_ int, node *goquery.Selection) {
		if parser.HasExcludedAncestor(node, e.cfg.AncestorDepth, e.cfg.Exclude) {
			excluded++
			return
		}
		product, err := readNode(node, layout, pageURL)
		if err != nil {
			failed++
			e.logger.Debug("product node skipped", "error", err)
			return
		}
		out = append(out, product)
	})

	e.logger.Debug("product nodes read",
		"url", pageURL,
		"nodes", nodes.Length(),
		"excluded", excluded,
		"skipped", failed,
	)
	return out
}

// locate returns the first layout with matching product nodes.
func (e *Extractor) locate(root *goquery.Selection) (Selectors, *goquery.Selection) {
	for _, layout := range e.cfg.Layouts {
		nodes, sel := parser.FirstMatch(root, layout.Product)
		if nodes.Length() > 0 {
			e.logger.Debug("product selector matched", "selector", sel, "nodes", nodes.Length())
			return layout, nodes
		}
	}
	return Selectors{}, root.Slice(0, 0)
}

// readNode reads the raw fields of one product node.
func readNode(node *goquery.Selection, layout Selectors, pageURL string) (*types.Product, error) {
	nameSel, name := firstNamed(node, layout.Name)
	if name == "" {
		return nil, &types.ExtractError{
			URL:      pageURL,
			Selector: strings.Join(layout.Name, ", "),
			Err:      fmt.Errorf("name: %w", types.ErrSelectorAbsent),
		}
	}

	product := types.NewProduct(name, pageURL)
	if price := parser.FirstText(node, layout.Price); price != "" {
		product.Price = price
	}
	product.URL = readLink(node, nameSel, layout)

	attrs := layout.ImageAttrs
	if len(attrs) == 0 {
		attrs = []string{"src", "data-src"}
	}
	for _, attr := range attrs {
		if img := firstImageAttr(node, attr, layout.Image); img != "" {
			product.ImageURL = img
			break
		}
	}

	return product, nil
}

// firstNamed returns the first element in the chain with non-blank text.
func firstNamed(node *goquery.Selection, selectors []string) (*goquery.Selection, string) {
	for _, sel := range selectors {
		var (
			found *goquery.Selection
			text  string
		)
		node.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if t := strings.TrimSpace(s.Text()); t != "" {
				found, text = s, t
				return false
			}
			return true
		})
		if found != nil {
			return found, text
		}
	}
	return node.Slice(0, 0), ""
}

// readLink finds the product href: an explicit link chain, then the name
// element, its nearest anchor, the node itself, then any anchor inside it.
func readLink(node, nameSel *goquery.Selection, layout Selectors) string {
	if len(layout.Link) > 0 {
		return parser.FirstAttr(node, "href", layout.Link)
	}
	if href, ok := nameSel.Attr("href"); ok {
		return href
	}
	if href, ok := nameSel.Closest("a").Attr("href"); ok {
		return href
	}
	if href, ok := node.Attr("href"); ok {
		return href
	}
	href, _ := node.Find("a[href]").First().Attr("href")
	return href
}

// firstImageAttr reads attr from the first image matched by the chain.
func firstImageAttr(node *goquery.Selection, attr string, selectors []string) string {
	imgs, _ := parser.FirstMatch(node, selectors)
	val, _ := imgs.First().Attr(attr)
	return strings.TrimSpace(val)
}

// distinctNames counts the distinct non-blank names among raw records.
func distinctNames(products []*types.Product) int {
	seen := make(map[string]struct{}, len(products))
	for _, p := range products {
		name := strings.Join(strings.Fields(p.RawName), " ")
		if name != "" {
			seen[name] = struct{}{}
		}
	}
	return len(seen)
}
