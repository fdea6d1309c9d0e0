package sites

import (
	"regexp"
	"time"

	"github.com/IshaanNene/Shelfie/internal/extractor"
	"github.com/IshaanNene/Shelfie/internal/heuristics"
	"github.com/IshaanNene/Shelfie/internal/pagination"
)

// Spinneys has a plain numbered pager; the last numbered link before
// "next" is the last page.
func Spinneys() *Profile {
	return &Profile{
		Name:         "Spinneys",
		Slug:         "spinneys",
		Origin:       "https://www.spinneys.com",
		DefaultURL:   "https://www.spinneys.com/en-ae/catalogue/category/frozen/ready-meals",
		CategoryBase: "https://www.spinneys.com/en-ae/catalogue/category",
		PageURL:      pageQuery("?page="),

		Extract: extractor.Config{
			Layouts: []extractor.Selectors{{
				Product: []string{".product-info"},
				Name:    []string{".product-name a"},
				Price:   []string{".product-price .price"},
				Image:   []string{"img"},
			}},
			Rules: &heuristics.Rules{
				Fallback: heuristics.BrandFallback{
					Kind:      heuristics.FallbackFirstToken,
					MinTokens: 2,
					Case:      heuristics.CaseAny,
				},
				Weights: []heuristics.WeightPattern{
					{Re: regexp.MustCompile(`(?i)(\d+[.\d]*\s*(?:g|kg|ml|l|pcs|pieces|pack|x\d+))\b`), Group: 1},
					{Re: regexp.MustCompile(`(\d+[.\d]*\s*(?:گرم|کیلوگرم|میلی لیتر|لیتر|عدد|بسته))(?:[^\p{L}]|$)`), Group: 1},
				},
			},
		},

		Pagination: pagination.Config{
			Strategies: []pagination.Strategy{
				&pagination.NumericLinks{
					Selectors: []string{".pagination li:not(.next) a"},
					LastOnly:  true,
				},
			},
		},

		ReadySelector:      "body",
		ReadyTimeout:       10 * time.Second,
		ProductWait:        ".product-info",
		ProductWaitTimeout: 10 * time.Second,
	}
}
