package heuristics

import "github.com/IshaanNene/Shelfie/internal/types"

// CleanName strips the brand and the trailing weight/unit run from name and
// normalizes whitespace.
func (r *Rules) CleanName(name string) string {
	brand, known := r.ExtractBrand(name)
	return r.clean(name, brand, known)
}

func (r *Rules) clean(name, brand string, known bool) string {
	cleaned := collapse(name)

	if b := collapse(brand); b != types.NotAvailable && b != "" {
		cleaned = removeFirst(cleaned, b)
		if known {
			cleaned = removeWords(cleaned, b)
		}
	}

	cleaned = leadingSeparators.ReplaceAllString(cleaned, "")
	cleaned = r.trailing().ReplaceAllString(cleaned, "")
	cleaned = collapse(cleaned)

	// A positional brand can swallow the whole name; keep something
	// displayable in that case.
	if cleaned == "" && !known {
		return collapse(name)
	}
	return cleaned
}

// removeFirst deletes the first occurrence of brand that stands as whole
// words. A name starting with the brand loses it as a prefix.
func removeFirst(s, brand string) string {
	m := brandPattern(brand).FindStringSubmatchIndex(s)
	if m == nil {
		return s
	}
	return collapse(s[:m[0]] + s[m[2]:m[3]] + " " + s[m[4]:m[5]] + s[m[1]:])
}

// removeWords deletes the remaining occurrences of brand that stand as
// whole words. Occurrences inside a longer word are left alone.
func removeWords(s, brand string) string {
	re := brandPattern(brand)
	for {
		next := collapse(re.ReplaceAllString(s, "$1 $2"))
		if next == s {
			return s
		}
		s = next
	}
}
