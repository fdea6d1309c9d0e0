package sites

import (
	"regexp"
	"time"

	"github.com/IshaanNene/Shelfie/internal/extractor"
	"github.com/IshaanNene/Shelfie/internal/heuristics"
	"github.com/IshaanNene/Shelfie/internal/pagination"
)

var unionCoopBrands = []string{
	"Trust", "Al Ain", "Emirates", "Almarai", "Al Rawabi", "Nido",
	"Anchor", "Lurpak", "President", "Nadec", "Farm Fresh", "KDD",
	"Luna", "Rainbow", "Al Manar", "Puck", "Kraft", "Kiri", "Delmonte",
	"Heinz", "Americana", "Al Kabeer", "Sadia", "Dairy Queen", "Nestle",
	"Danone", "Arla", "Philadelphia", "Kingdom", "Milky Mist", "Amul",
}

var unionCoopWeights = []heuristics.WeightPattern{
	{Re: regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:kg|kilo|kilogram)s?`)},
	{Re: regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:g|gram)s?`)},
	{Re: regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:ml|milliliter)s?`)},
	{Re: regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:l|liter)s?`)},
	{Re: regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)(?:\s*x\s*\d+)?(?:\s*|-)(?:kg|g|ml|l)`)},
	{Re: regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:oz|ounce)s?`)},
	{Re: regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:lb|pound)s?`)},
	{Re: regexp.MustCompile(`(?i)-\s*(\d+(?:\.\d+)?(?:\s*x\s*\d+)?(?:\s*|-)(?:kg|g|ml|l|oz|lb))`)},
}

var unionCoopPagers = []string{
	".ais-Pagination-list",
	".ais-Pagination-item",
	".pages",
	".pagination",
}

// UnionCoop is an Algolia storefront. Prices are rendered twice inside one
// element and are repaired before export.
func UnionCoop() *Profile {
	return &Profile{
		Name:         "Union Coop",
		Slug:         "unioncoop",
		Origin:       "https://www.unioncoop.ae",
		DefaultURL:   "https://www.unioncoop.ae/frozen-food-sea-food-butter-ice-cream.html",
		CategoryBase: "https://www.unioncoop.ae/frozen-food-sea-food-butter-ice-cream.html",
		PageURL:      pageQuery("?page="),

		Extract: extractor.Config{
			Layouts: []extractor.Selectors{{
				Product: []string{"a.result", ".result", "div.hit", ".ais-hits--item", ".product-item"},
				Name:    []string{"h3.result-title", ".result-title", "h3", "a.name", ".product-name"},
				Price: []string{
					".tamayaz.after_special.promotion",
					".tamayaz",
					".price",
					".price-currency-symbol",
					".special-price",
					".product-price",
				},
				Image: []string{"img"},
			}},
			RepairPrices: true,
			Rules: &heuristics.Rules{
				Brands: unionCoopBrands,
				Fallback: heuristics.BrandFallback{
					Kind:   heuristics.FallbackLeadingTokens,
					Tokens: 2,
				},
				Weights:  unionCoopWeights,
				Trailing: regexp.MustCompile(`(?i)[-(\s]*\b\d+(?:\.\d+)?\s*(?:x\s*\d+\s*)?(?:kg|kilos?|kilogram|g|gm|grams?|ml|l|liter|litre|oz|ounce|lb|pound|pcs|pieces|pack)s?\b.*$`),
			},
		},

		Pagination: pagination.Config{
			Strategies: []pagination.Strategy{
				&pagination.XPathLinks{
					Expr: `//li[contains(@class,'ais-Pagination-item--nextPage')]/preceding-sibling::li[1]/a` +
						` | //li[contains(@class,'next-page')]/preceding-sibling::li[1]/a`,
				},
				&pagination.NumericLinks{
					Selectors: []string{".ais-Pagination-item--page"},
					LastOnly:  true,
				},
				&pagination.SourcePattern{Pattern: regexp.MustCompile(`page=(\d+)`)},
			},
			NextSelectors: unionCoopPagers,
			DefaultPages:  3,
		},

		ReadySelector:      "body",
		ReadyTimeout:       10 * time.Second,
		ProductWait:        "a.result, div.hit, .product-item",
		ProductWaitTimeout: 10 * time.Second,
	}
}
