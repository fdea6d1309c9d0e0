package types

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Snapshot is a static copy of a rendered page's HTML. Parsed forms are
// built lazily and cached, so one snapshot can serve CSS and XPath queries.
type Snapshot struct {
	// URL is the page URL the HTML was read from.
	URL string

	// HTML is the raw page source.
	HTML string

	once sync.Once
	doc  *goquery.Document
	root *html.Node
	err  error
}

// NewSnapshot wraps page source read from url.
func NewSnapshot(url, body string) *Snapshot {
	return &Snapshot{URL: url, HTML: body}
}

func (s *Snapshot) parse() {
	s.once.Do(func() {
		root, err := html.Parse(strings.NewReader(s.HTML))
		if err != nil {
			s.err = &ParseError{URL: s.URL, Err: err}
			return
		}
		s.root = root
		s.doc = goquery.NewDocumentFromNode(root)
	})
}

// Document returns the goquery document for CSS queries.
func (s *Snapshot) Document() (*goquery.Document, error) {
	s.parse()
	return s.doc, s.err
}

// Node returns the parsed html root for XPath queries.
func (s *Snapshot) Node() (*html.Node, error) {
	s.parse()
	return s.root, s.err
}

// Text returns the visible text of the document body.
func (s *Snapshot) Text() string {
	doc, err := s.Document()
	if err != nil {
		return ""
	}
	return doc.Find("body").Text()
}
