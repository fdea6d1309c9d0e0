package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultAncestorDepth bounds the ancestor walk used for exclusion checks.
const DefaultAncestorDepth = 10

// Exclusion marks container regions whose descendants are never products,
// such as sidebars with "recently viewed" widgets.
type Exclusion struct {
	// IDs are matched exactly against an ancestor's id attribute.
	IDs []string

	// ClassContains are matched as substrings of an ancestor's class
	// attribute or id.
	ClassContains []string
}

// Empty reports whether the exclusion has no markers.
func (e Exclusion) Empty() bool {
	return len(e.IDs) == 0 && len(e.ClassContains) == 0
}

// HasExcludedAncestor walks up to depth ancestors of sel and reports whether
// any of them carries an exclusion marker.
func HasExcludedAncestor(sel *goquery.Selection, depth int, ex Exclusion) bool {
	if ex.Empty() {
		return false
	}
	if depth <= 0 {
		depth = DefaultAncestorDepth
	}

	parent := sel.Parent()
	for i := 0; i < depth && parent.Length() > 0; i++ {
		if matchesExclusion(parent, ex) {
			return true
		}
		parent = parent.Parent()
	}
	return false
}

func matchesExclusion(sel *goquery.Selection, ex Exclusion) bool {
	id, _ := sel.Attr("id")
	class, _ := sel.Attr("class")

	for _, want := range ex.IDs {
		if id == want {
			return true
		}
	}

	id = strings.ToLower(id)
	class = strings.ToLower(class)
	for _, marker := range ex.ClassContains {
		m := strings.ToLower(marker)
		if strings.Contains(class, m) || strings.Contains(id, m) {
			return true
		}
	}
	return false
}
