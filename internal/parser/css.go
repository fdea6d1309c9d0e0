// Package parser holds the HTML query helpers shared by the extractor and
// the pagination strategies: CSS selector fallback chains over goquery,
// XPath queries over htmlquery, ancestor walks and number mining.
package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FirstMatch returns the matches of the first selector in the chain that
// matches anything under root, along with that selector.
func FirstMatch(root *goquery.Selection, selectors []string) (*goquery.Selection, string) {
	for _, sel := range selectors {
		if sel == "" {
			continue
		}
		found := root.Find(sel)
		if found.Length() > 0 {
			return found, sel
		}
	}
	return root.Slice(0, 0), ""
}

// FirstText returns the first non-empty trimmed text produced by the
// selector chain under root.
func FirstText(root *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if sel == "" {
			continue
		}
		var text string
		root.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text = strings.TrimSpace(s.Text())
			return text == ""
		})
		if text != "" {
			return text
		}
	}
	return ""
}

// FirstAttr returns the first non-empty attribute value produced by the
// selector chain under root. The root itself is checked first so that a
// product node which is itself a link yields its own href.
func FirstAttr(root *goquery.Selection, attr string, selectors []string) string {
	if v, ok := root.Attr(attr); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	for _, sel := range selectors {
		if sel == "" {
			continue
		}
		var val string
		root.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v, ok := s.Attr(attr); ok {
				val = strings.TrimSpace(v)
			}
			return val == ""
		})
		if val != "" {
			return val
		}
	}
	return ""
}

// ResolveURL makes href absolute against base. Protocol-relative links are
// always given the https scheme.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}

	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return ref.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil || baseURL.Host == "" {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
