// Package heuristics decomposes a scraped product name into brand, weight
// and a cleaned display name. Every function here is pure; site-specific
// behaviour is carried entirely by Rules values.
package heuristics

import (
	"regexp"
	"strings"

	"github.com/IshaanNene/Shelfie/internal/parser"
)

// Case constrains the first token accepted by the positional brand fallback.
type Case int

const (
	// CaseAny accepts any first token without digits.
	CaseAny Case = iota
	// CaseCapitalized requires the first rune to be upper case.
	CaseCapitalized
	// CaseUpper requires the whole token to be upper case.
	CaseUpper
)

// FallbackKind selects the positional brand heuristic used when no known
// brand matches.
type FallbackKind int

const (
	FallbackNone FallbackKind = iota
	// FallbackFirstToken treats the first token as the brand.
	FallbackFirstToken
	// FallbackLeadingTokens treats the first N tokens as the brand.
	FallbackLeadingTokens
)

// BrandFallback configures the positional brand heuristic.
type BrandFallback struct {
	Kind FallbackKind

	// MinTokens is the minimum number of tokens the name must have before
	// FallbackFirstToken fires.
	MinTokens int

	// Case constrains the first token for FallbackFirstToken.
	Case Case

	// Tokens is the number of leading tokens FallbackLeadingTokens takes.
	// Shorter names yield all of their tokens.
	Tokens int
}

// WeightPattern is one unit-suffix expression. Group selects the submatch
// returned as the weight; 0 is the whole match.
type WeightPattern struct {
	Re    *regexp.Regexp
	Group int
}

// Rules is the per-site configuration of the name heuristics.
type Rules struct {
	// Brands is scanned in order; the first case-insensitive substring
	// match wins.
	Brands []string

	Fallback BrandFallback

	// Weights is tried in order; the first match wins.
	Weights []WeightPattern

	// Trailing matches the weight/unit run stripped from the end of the
	// clean name. Nil uses DefaultTrailing.
	Trailing *regexp.Regexp
}

var (
	// DefaultWeights matches gram, kilogram, millilitre, litre and piece counts.
	DefaultWeights = []WeightPattern{
		{Re: regexp.MustCompile(`(?i)\b\d+\s*(?:g|kg|ml|l|pcs)\b`)},
	}

	// DefaultTrailing strips everything from the first unit token onward.
	DefaultTrailing = regexp.MustCompile(`(?i)\b\d+\s*(?:g|kg|ml|l|pcs|pieces|pack|x)\b.*$`)

	leadingSeparators = regexp.MustCompile(`^[\s\-:]+`)

	brandPatterns = parser.NewRegexCache()
)

// Parts is the decomposition of one product name.
type Parts struct {
	Brand string
	// KnownBrand reports whether Brand came from the known-brand list.
	KnownBrand bool
	Weight     string
	Name       string
}

// Decompose runs brand extraction, weight extraction and name cleaning.
func (r *Rules) Decompose(name string) Parts {
	brand, known := r.ExtractBrand(name)
	return Parts{
		Brand:      brand,
		KnownBrand: known,
		Weight:     r.ExtractWeight(name),
		Name:       r.clean(name, brand, known),
	}
}

// collapse trims and squeezes runs of whitespace to single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (r *Rules) trailing() *regexp.Regexp {
	if r.Trailing != nil {
		return r.Trailing
	}
	return DefaultTrailing
}

func (r *Rules) weights() []WeightPattern {
	if len(r.Weights) > 0 {
		return r.Weights
	}
	return DefaultWeights
}

// brandPattern returns a case-insensitive matcher for brand standing as
// whole words: the characters on either side must not be letters or digits.
// The bounds are captured so a replacement can keep them.
func brandPattern(brand string) *regexp.Regexp {
	re, err := brandPatterns.Get(`(?i)(^|[^\p{L}\p{N}])` + regexp.QuoteMeta(brand) + `($|[^\p{L}\p{N}])`)
	if err != nil {
		// QuoteMeta output always compiles.
		panic(err)
	}
	return re
}
