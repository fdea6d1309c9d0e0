package sites

import (
	"fmt"
	"sort"
	"strings"

	"github.com/IshaanNene/Shelfie/internal/types"
)

var registry = map[string]func() *Profile{
	"almeera":   Almeera,
	"lulu":      Lulu,
	"spinneys":  Spinneys,
	"unioncoop": UnionCoop,
}

// aliases maps display names and common spellings to slugs.
var aliases = map[string]string{
	"lulu hypermarket": "lulu",
	"union coop":       "unioncoop",
	"union-coop":       "unioncoop",
}

// Lookup returns a fresh copy of the profile named by slug. Display names
// are accepted case-insensitively.
func Lookup(slug string) (*Profile, error) {
	key := strings.ToLower(strings.TrimSpace(slug))
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	build, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", types.ErrUnknownSite, slug, strings.Join(Slugs(), ", "))
	}
	return build(), nil
}

// Slugs returns the registered slugs in sorted order.
func Slugs() []string {
	slugs := make([]string, 0, len(registry))
	for slug := range registry {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

// All returns every profile, ordered by slug.
func All() []*Profile {
	slugs := Slugs()
	out := make([]*Profile, 0, len(slugs))
	for _, slug := range slugs {
		out = append(out, registry[slug]())
	}
	return out
}
