package heuristics

import (
	"strings"
	"unicode"

	"github.com/IshaanNene/Shelfie/internal/types"
)

// ExtractBrand returns the brand for name and whether it came from the
// known-brand list. Names without a recognizable brand yield
// types.NotAvailable.
func (r *Rules) ExtractBrand(name string) (string, bool) {
	normalized := collapse(name)
	if normalized == "" {
		return types.NotAvailable, false
	}

	lower := strings.ToLower(normalized)
	for _, brand := range r.Brands {
		if brand == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(brand)) {
			return brand, true
		}
	}

	if brand := r.positionalBrand(normalized); brand != "" {
		return brand, false
	}
	return types.NotAvailable, false
}

// Brand is ExtractBrand without the provenance flag.
func (r *Rules) Brand(name string) string {
	brand, _ := r.ExtractBrand(name)
	return brand
}

func (r *Rules) positionalBrand(name string) string {
	tokens := strings.Fields(name)
	fb := r.Fallback

	switch fb.Kind {
	case FallbackFirstToken:
		minTokens := fb.MinTokens
		if minTokens < 1 {
			minTokens = 1
		}
		if len(tokens) < minTokens {
			return ""
		}
		first := tokens[0]
		if containsDigit(first) || !matchesCase(first, fb.Case) {
			return ""
		}
		return first

	case FallbackLeadingTokens:
		n := fb.Tokens
		if n < 1 {
			n = 1
		}
		if len(tokens) == 0 {
			return ""
		}
		if len(tokens) < n {
			n = len(tokens)
		}
		return strings.Join(tokens[:n], " ")
	}

	return ""
}

func containsDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func matchesCase(token string, c Case) bool {
	switch c {
	case CaseCapitalized:
		for _, r := range token {
			return unicode.IsUpper(r)
		}
		return false
	case CaseUpper:
		hasLetter := false
		for _, r := range token {
			if unicode.IsLetter(r) {
				hasLetter = true
				if !unicode.IsUpper(r) {
					return false
				}
			}
		}
		return hasLetter
	default:
		return true
	}
}
