package extractor

import (
	"regexp"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/Shelfie/internal/parser"
	"github.com/IshaanNene/Shelfie/internal/types"
)

const (
	// deepCandidates are elements that may name a product anywhere on the
	// page.
	deepCandidates = `//a[contains(@href,'/p/')] | //*[contains(@class,'product')] | //*[contains(@class,'item')]`

	// deepPrice is the nearest price-like element after a candidate.
	deepPrice = `./following::*[contains(@class,'price') or contains(@data-testid,'price')][1]`

	// Candidate texts outside these bounds are wrappers or fragments.
	deepMinText = 5
	deepMaxText = 160
)

var deepWeightRe = regexp.MustCompile(`(?i)\b\d+\s*(?:g|kg|ml|l|pcs)\b`)

// deepSearch scans the whole page for elements whose text carries a weight
// token, reading a price from the next price-like element and a link from
// the nearest anchor.
func (e *Extractor) deepSearch(snap *types.Snapshot) []*types.Product {
	root, err := snap.Node()
	if err != nil {
		return nil
	}
	doc, err := snap.Document()
	if err != nil {
		return nil
	}

	nodes, err := htmlquery.QueryAll(root, deepCandidates)
	if err != nil {
		e.logger.Warn("deep search query failed", "error", err)
		return nil
	}

	seen := make(map[string]struct{})
	var out []*types.Product
	for _, node := range nodes {
		text := strings.Join(strings.Fields(htmlquery.InnerText(node)), " ")
		if len(text) < deepMinText || len(text) > deepMaxText || !deepWeightRe.MatchString(text) {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		if parser.HasExcludedAncestor(doc.FindNodes(node), e.cfg.AncestorDepth, e.cfg.Exclude) {
			continue
		}
		seen[text] = struct{}{}

		product := types.NewProduct(text, snap.URL)
		if priceNode := htmlquery.FindOne(node, deepPrice); priceNode != nil {
			if price := strings.TrimSpace(htmlquery.InnerText(priceNode)); price != "" {
				product.Price = price
			}
		}
		product.URL = nearestHref(node)
		out = append(out, product)
	}
	return out
}

// nearestHref returns the href of node when it is an anchor, else of its
// closest enclosing anchor, else of its first descendant anchor.
func nearestHref(node *html.Node) string {
	if node.Data == "a" {
		return htmlquery.SelectAttr(node, "href")
	}
	if a := htmlquery.FindOne(node, "./ancestor::a[1]"); a != nil {
		return htmlquery.SelectAttr(a, "href")
	}
	if a := htmlquery.FindOne(node, ".//a[@href]"); a != nil {
		return htmlquery.SelectAttr(a, "href")
	}
	return ""
}
