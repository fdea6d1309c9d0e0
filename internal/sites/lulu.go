package sites

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/IshaanNene/Shelfie/internal/extractor"
	"github.com/IshaanNene/Shelfie/internal/heuristics"
	"github.com/IshaanNene/Shelfie/internal/pagination"
)

var luluBrands = []string{
	"Ashoka", "Al Kabeer", "Sadia", "Americana", "Khazan", "Nabil", "Birds Eye",
	"McCain", "Farm Fresh", "Seara", "Mezban", "Almarai", "Haagen-Dazs", "Lurpak",
	"Al Ain", "Good Seoul", "LuLu", "Cucina", "Samho", "Quorn", "CJ", "Miratorg",
	"Al Areesh", "Haldiram", "Bibigo", "Daim", "Toblerone", "Al Islami", "Amul",
	"Eng Bee Tin", "Doux", "Tamoosh", "Beyond Meat", "Goodfella's", "Faani", "Al Karama",
	"Lean Cuisine", "New York Bakery",
}

var luluNext = []string{
	"[aria-label='Next page']",
	"[class*='pagination'] li:last-child a",
}

// Lulu renders listings client side with 20 products per page. The page
// count is often hidden, so weak estimates are raised to five pages and
// the crawl stops early once pages run dry.
func Lulu() *Profile {
	return &Profile{
		Name:       "Lulu Hypermarket",
		Slug:       "lulu",
		Origin:     "https://gcc.luluhypermarket.com",
		DefaultURL: "https://gcc.luluhypermarket.com/en-ae/grocery-food-cupboard-frozen-food-ready-meals-snacks",
		NormalizeBase: func(raw string) string {
			return strings.TrimRight(raw, "/")
		},
		PageURL: func(base string, n int) string {
			return base + "/?page=" + strconv.Itoa(max(n, 1))
		},

		Extract: extractor.Config{
			Layouts: []extractor.Selectors{
				{
					Product: []string{"div.mb-2.flex.max-w-full.flex-col"},
					Name:    []string{"a[data-testid*='-']"},
					Price:   []string{"span[data-testid='product-price']"},
					Image:   []string{"img"},
				},
				{
					Product: []string{".product-item, [class*='product-card']"},
					Name:    []string{"a[class*='name']", "a[class*='title']", "h3", "h4"},
					Price:   []string{"span[class*='price']", "div[class*='price']"},
					Image:   []string{"img"},
				},
			},
			DeepSearchBelow: 5,
			Rules: &heuristics.Rules{
				Brands: luluBrands,
				Fallback: heuristics.BrandFallback{
					Kind:      heuristics.FallbackFirstToken,
					MinTokens: 2,
					Case:      heuristics.CaseAny,
				},
			},
		},

		Pagination: pagination.Config{
			Strategies: []pagination.Strategy{
				&pagination.XPathLinks{
					Expr:    `//li/a[contains(@href,'page=')]`,
					Attr:    "href",
					Pattern: regexp.MustCompile(`page=(\d+)`),
				},
				&pagination.TotalCount{
					CountElements: []string{
						"[class*='total-results']",
						"[class*='total-product']",
						".heading-title span",
						".product-count",
						"[class*='product-total']",
						"[class*='count']",
					},
					PageSize: 20,
				},
				&pagination.NumericLinks{
					Selectors: []string{
						".pagination a",
						"[class*='paging'] a",
						"[class*='pagination'] span",
						"[class*='pagination'] button",
					},
				},
				&pagination.ClickProbe{
					NextSelectors:  luluNext,
					MaxAttempts:    6,
					Timeout:        2 * time.Second,
					CountAtCeiling: true,
					Slack:          2,
				},
			},
			NextSelectors: luluNext,
			DefaultPages:  5,
			MinPages:      5,
		},

		ReadySelector:      "body",
		ReadyTimeout:       20 * time.Second,
		ProductWait:        "div.mb-2.flex.max-w-full.flex-col, a[data-testid*='-']",
		ProductWaitTimeout: 20 * time.Second,
		ScrollSteps:        10,
		EarlyStop:          true,
	}
}
