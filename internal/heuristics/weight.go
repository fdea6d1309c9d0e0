package heuristics

import (
	"strings"

	"github.com/IshaanNene/Shelfie/internal/types"
)

// ExtractWeight returns the first unit token found in name, or
// types.NotAvailable.
func (r *Rules) ExtractWeight(name string) string {
	for _, p := range r.weights() {
		m := p.Re.FindStringSubmatch(name)
		if m == nil || p.Group >= len(m) {
			continue
		}
		if w := strings.TrimSpace(m[p.Group]); w != "" {
			return w
		}
	}
	return types.NotAvailable
}
