package sites

import (
	"regexp"
	"strings"
	"time"

	"github.com/IshaanNene/Shelfie/internal/extractor"
	"github.com/IshaanNene/Shelfie/internal/heuristics"
	"github.com/IshaanNene/Shelfie/internal/pagination"
	"github.com/IshaanNene/Shelfie/internal/parser"
)

var almeeraBrands = []string{
	"WATTIES", "Al Alali", "American Garden", "Ardo", "Betty Crocker", "Birds Eye",
	"Findus", "Frigo", "Haagen-Dazs", "Iceland", "Kellogg's", "Lurpak", "McCain",
	"Pillsbury", "Sara Lee", "Sadia", "Farm Fresh", "Iglo", "Green Isle", "Americana",
	"Green Giant", "Kiri", "La Vache Qui Rit", "Philadelphia", "Galbani", "Doux",
	"Almarai", "Quorn", "Beyond Meat", "Baskin Robbins", "London Dairy",
}

var almeeraNext = []string{
	"li.next-page a",
	"a.next",
	"a[rel='next']",
	"a[title*='next']",
	"a[class*='next']",
}

// Almeera pages through ?pageId=n and renders a sidebar of recently viewed
// products that must not be scraped.
func Almeera() *Profile {
	pageID := regexp.MustCompile(`pageId=(\d+)`)

	return &Profile{
		Name:         "Almeera",
		Slug:         "almeera",
		Origin:       "https://almeera.online",
		DefaultURL:   "https://almeera.online/frozen-food",
		CategoryBase: "https://almeera.online",
		NormalizeBase: func(raw string) string {
			raw = strings.TrimSuffix(raw, "/?pageId=")
			return strings.TrimRight(raw, "/")
		},
		PageURL: pageQuery("/?pageId="),

		Extract: extractor.Config{
			Layouts: []extractor.Selectors{{
				Product: []string{
					"li.product-cell.box-product",
					"div.product",
					"div.product-cell",
					"div[class*='product-item']",
				},
				Name:  []string{"h5.product-name a", "a.product-name", "a.fn", "a[class*='name']"},
				Price: []string{"span.price.product-price", "div.product-price span", "[class*='price']"},
				Image: []string{"img.photo", "img[class*='product']", "img"},
			}},
			ScriptLayout: &extractor.Selectors{
				Product: []string{`.product, .product-cell, [class*="product-item"]`},
				Name:    []string{`h5 a, a.product-name, a.fn, a[class*="name"], .product-name a`},
				Price:   []string{`span.price, [class*="price"]`},
				Image:   []string{"img"},
			},
			Exclude: parser.Exclusion{
				IDs:           []string{"sidebar-first"},
				ClassContains: []string{"sidebar"},
			},
			Rules: &heuristics.Rules{
				Brands: almeeraBrands,
				Fallback: heuristics.BrandFallback{
					Kind:      heuristics.FallbackFirstToken,
					MinTokens: 2,
					Case:      heuristics.CaseUpper,
				},
			},
		},

		Pagination: pagination.Config{
			Strategies: []pagination.Strategy{
				&pagination.Highest{Of: []pagination.Strategy{
					&pagination.NumericLinks{
						Selectors: []string{
							"li.item a[title]",
							"a.item[title]",
							"a[title*='Page']",
							"a[title^='Go to page']",
						},
						HrefPattern: pageID,
					},
					&pagination.LastPageMarker{
						Selectors:   []string{"li.last-page", "li.item.last-page"},
						HrefPattern: pageID,
					},
				}},
				&pagination.NumericLinks{
					Selectors:   []string{"li.item a", "a.item", ".pager a"},
					HrefPattern: pageID,
				},
				&pagination.ClickProbe{NextSelectors: almeeraNext},
			},
			NextSelectors: almeeraNext,
			DefaultPages:  10,
		},

		ReadySelector:      "body",
		ReadyTimeout:       10 * time.Second,
		ProductWait:        "li.product-cell, div.product",
		ProductWaitTimeout: 10 * time.Second,
		ScrollSteps:        10,
		DedupeOutputByName: true,
	}
}
