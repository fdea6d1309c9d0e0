package pipeline

import (
	"regexp"

	"github.com/IshaanNene/Shelfie/internal/heuristics"
	"github.com/IshaanNene/Shelfie/internal/parser"
	"github.com/IshaanNene/Shelfie/internal/types"
)

// PriceCleanMiddleware strips currency symbols and labels from the price,
// keeping digits and decimal/thousands separators.
type PriceCleanMiddleware struct {
	// RepairRepeated halves a price whose two halves are identical. Some
	// storefronts render the amount twice inside one element.
	RepairRepeated bool
}

var priceStripRe = regexp.MustCompile(`[^0-9.,]`)

func (m *PriceCleanMiddleware) Name() string { return "price_clean" }

func (m *PriceCleanMiddleware) Process(p *types.Product) (*types.Product, error) {
	if p.Price == types.NotAvailable {
		return p, nil
	}
	p.Price = CleanPrice(p.Price, m.RepairRepeated)
	return p, nil
}

// CleanPrice reduces a price string to digits and separators. An empty
// result becomes types.NotAvailable.
func CleanPrice(raw string, repairRepeated bool) string {
	cleaned := priceStripRe.ReplaceAllString(raw, "")
	// Separators left dangling by a stripped "AED." prefix or suffix.
	for len(cleaned) > 0 && (cleaned[0] == '.' || cleaned[0] == ',') {
		cleaned = cleaned[1:]
	}
	for len(cleaned) > 0 && (cleaned[len(cleaned)-1] == '.' || cleaned[len(cleaned)-1] == ',') {
		cleaned = cleaned[:len(cleaned)-1]
	}
	if cleaned == "" {
		return types.NotAvailable
	}
	if repairRepeated && len(cleaned)%2 == 0 {
		half := len(cleaned) / 2
		if cleaned[:half] == cleaned[half:] {
			cleaned = cleaned[:half]
		}
	}
	return cleaned
}

// URLResolveMiddleware makes product and image links absolute against the
// site origin.
type URLResolveMiddleware struct {
	Base string
}

func (m *URLResolveMiddleware) Name() string { return "url_resolve" }

func (m *URLResolveMiddleware) Process(p *types.Product) (*types.Product, error) {
	p.URL = parser.ResolveURL(m.Base, p.URL)
	p.ImageURL = parser.ResolveURL(m.Base, p.ImageURL)
	return p, nil
}

// HeuristicsMiddleware derives brand, weight and clean name from the raw
// name.
type HeuristicsMiddleware struct {
	Rules *heuristics.Rules
}

func (m *HeuristicsMiddleware) Name() string { return "heuristics" }

func (m *HeuristicsMiddleware) Process(p *types.Product) (*types.Product, error) {
	rules := m.Rules
	if rules == nil {
		rules = &heuristics.Rules{}
	}
	parts := rules.Decompose(p.RawName)
	p.Brand = parts.Brand
	p.Weight = parts.Weight
	p.Name = parts.Name
	return p, nil
}

// SiteMiddleware stamps the producing site profile onto each product.
type SiteMiddleware struct {
	Slug string
}

func (m *SiteMiddleware) Name() string { return "site" }

func (m *SiteMiddleware) Process(p *types.Product) (*types.Product, error) {
	p.Site = m.Slug
	return p, nil
}
