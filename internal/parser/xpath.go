package parser

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// XPathTexts returns the trimmed, non-empty inner texts of the nodes
// matched by expr.
func XPathTexts(root *html.Node, expr string) ([]string, error) {
	nodes, err := htmlquery.QueryAll(root, expr)
	if err != nil {
		return nil, err
	}

	var values []string
	for _, node := range nodes {
		if val := strings.TrimSpace(htmlquery.InnerText(node)); val != "" {
			values = append(values, val)
		}
	}
	return values, nil
}

// XPathAttrs returns the non-empty values of attr on the nodes matched by
// expr.
func XPathAttrs(root *html.Node, expr, attr string) ([]string, error) {
	nodes, err := htmlquery.QueryAll(root, expr)
	if err != nil {
		return nil, err
	}

	var values []string
	for _, node := range nodes {
		if val := strings.TrimSpace(htmlquery.SelectAttr(node, attr)); val != "" {
			values = append(values, val)
		}
	}
	return values, nil
}
