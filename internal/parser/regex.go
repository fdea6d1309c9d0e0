package parser

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var digitsRe = regexp.MustCompile(`\d+`)

// RegexCache compiles patterns once and reuses them.
type RegexCache struct {
	mu    sync.RWMutex
	cache map[string]*regexp.Regexp
}

// NewRegexCache creates an empty cache.
func NewRegexCache() *RegexCache {
	return &RegexCache{cache: make(map[string]*regexp.Regexp)}
}

// Get returns the compiled form of pattern.
func (c *RegexCache) Get(pattern string) (*regexp.Regexp, error) {
	c.mu.RLock()
	re, ok := c.cache[pattern]
	c.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[pattern] = re
	c.mu.Unlock()
	return re, nil
}

// MaxSubmatchInt returns the largest integer captured by the first group of
// re across all matches in text, or 0 when nothing matches.
func MaxSubmatchInt(re *regexp.Regexp, text string) int {
	best := 0
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if len(m) < 2 {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > best {
			best = n
		}
	}
	return best
}

// MaxInt returns the largest run of digits in s, or 0.
func MaxInt(s string) int {
	best := 0
	for _, d := range digitsRe.FindAllString(s, -1) {
		if n, err := strconv.Atoi(d); err == nil && n > best {
			best = n
		}
	}
	return best
}

// ParseInt parses s as a whole integer, tolerating surrounding whitespace.
// It returns 0 when s is not purely numeric.
func ParseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// DigitsIn joins every digit in s and parses the result, so a title such as
// "Go to page 12" yields 12. It returns 0 when s has no digits.
func DigitsIn(s string) int {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0
	}
	return n
}
