package pagination

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/Shelfie/internal/fetcher"
	"github.com/IshaanNene/Shelfie/internal/parser"
	"github.com/IshaanNene/Shelfie/internal/types"
)

// LastPageMarker reads a dedicated "last page" element: its own text, or
// the text, title digits or href page parameter of its nested link.
type LastPageMarker struct {
	Selectors   []string
	HrefPattern *regexp.Regexp
}

func (s *LastPageMarker) Name() string { return "last_page_marker" }

func (s *LastPageMarker) Discover(_ context.Context, p *Probe) (int, error) {
	doc, err := p.Snapshot.Document()
	if err != nil {
		return 0, err
	}

	best := 0
	for _, sel := range s.Selectors {
		doc.Find(sel).Each(func(_ int, marker *goquery.Selection) {
			best = max(best, parser.ParseInt(marker.Text()))
			marker.Find("a").Each(func(_ int, link *goquery.Selection) {
				best = max(best, linkNumber(link, s.HrefPattern))
			})
		})
	}
	return best, nil
}

// NumericLinks scans pagination anchors and takes the largest number found
// in their text, title or href. With LastOnly it reads only the text of the
// final match, for widgets whose last numbered item is the last page.
type NumericLinks struct {
	Selectors   []string
	HrefPattern *regexp.Regexp
	LastOnly    bool
}

func (s *NumericLinks) Name() string { return "numeric_links" }

func (s *NumericLinks) Discover(_ context.Context, p *Probe) (int, error) {
	doc, err := p.Snapshot.Document()
	if err != nil {
		return 0, err
	}

	if s.LastOnly {
		links, _ := parser.FirstMatch(doc.Selection, s.Selectors)
		if links.Length() == 0 {
			return 0, nil
		}
		text := strings.TrimSpace(links.Last().Text())
		n := parser.ParseInt(text)
		if n == 0 {
			return 0, fmt.Errorf("last pagination item %q is not a number", text)
		}
		return n, nil
	}

	best := 0
	for _, sel := range s.Selectors {
		doc.Find(sel).Each(func(_ int, link *goquery.Selection) {
			best = max(best, linkNumber(link, s.HrefPattern))
		})
	}
	return best, nil
}

// linkNumber is the largest page number a pagination link carries.
func linkNumber(link *goquery.Selection, hrefPattern *regexp.Regexp) int {
	n := parser.ParseInt(link.Text())
	if title, ok := link.Attr("title"); ok {
		n = max(n, parser.DigitsIn(title))
	}
	if href, ok := link.Attr("href"); ok && hrefPattern != nil {
		n = max(n, parser.MaxSubmatchInt(hrefPattern, href))
	}
	return n
}

// Highest runs every strategy in Of and keeps the largest bound, so one
// source reporting a low number cannot hide a higher one. It fails only
// when all of them fail.
type Highest struct {
	Of []Strategy
}

func (s *Highest) Name() string {
	names := make([]string, len(s.Of))
	for i, st := range s.Of {
		names[i] = st.Name()
	}
	return "highest(" + strings.Join(names, ",") + ")"
}

func (s *Highest) Discover(ctx context.Context, p *Probe) (int, error) {
	best := 0
	var errs []error
	for _, st := range s.Of {
		n, err := st.Discover(ctx, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", st.Name(), err))
			continue
		}
		best = max(best, n)
	}
	if len(errs) == len(s.Of) && len(errs) > 0 {
		return 0, errors.Join(errs...)
	}
	return best, nil
}

// XPathLinks evaluates an XPath expression and takes the largest number in
// the matched nodes' text, or in an attribute when Attr is set. A Pattern
// with one group narrows what is read from each value.
type XPathLinks struct {
	Expr    string
	Attr    string
	Pattern *regexp.Regexp
}

func (s *XPathLinks) Name() string { return "xpath_links" }

func (s *XPathLinks) Discover(_ context.Context, p *Probe) (int, error) {
	root, err := p.Snapshot.Node()
	if err != nil {
		return 0, err
	}

	var values []string
	if s.Attr != "" {
		values, err = parser.XPathAttrs(root, s.Expr, s.Attr)
	} else {
		values, err = parser.XPathTexts(root, s.Expr)
	}
	if err != nil {
		return 0, fmt.Errorf("xpath %q: %w", s.Expr, err)
	}

	best := 0
	for _, v := range values {
		if s.Pattern != nil {
			best = max(best, parser.MaxSubmatchInt(s.Pattern, v))
		} else {
			best = max(best, parser.ParseInt(v))
		}
	}
	return best, nil
}

// SourcePattern takes the largest number captured by Pattern anywhere in
// the raw page source.
type SourcePattern struct {
	Pattern *regexp.Regexp
}

func (s *SourcePattern) Name() string { return "source_pattern" }

func (s *SourcePattern) Discover(_ context.Context, p *Probe) (int, error) {
	return parser.MaxSubmatchInt(s.Pattern, p.Snapshot.HTML), nil
}

// DefaultCountPatterns are the phrases that announce a listing's size.
var DefaultCountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s*items`),
	regexp.MustCompile(`(?i)(\d+)\s*products`),
	regexp.MustCompile(`(?i)total\s*:\s*(\d+)`),
	regexp.MustCompile(`(?i)showing\s*\d+\s*-\s*\d+\s*of\s*(\d+)`),
	regexp.MustCompile(`(?i)(\d+)\s*results`),
	regexp.MustCompile(`(?i)All Products\s*\(\s*(\d+)\s*\)`),
}

// TotalCount mines the page for an announced product total and divides it
// by the page size, rounding up. Count elements, when given, contribute the
// largest number in their text.
type TotalCount struct {
	Patterns      []*regexp.Regexp
	CountElements []string
	PageSize      int
	// Source scans the raw HTML instead of the visible text.
	Source bool
}

func (s *TotalCount) Name() string { return "total_count" }

func (s *TotalCount) Discover(_ context.Context, p *Probe) (int, error) {
	text := p.Snapshot.HTML
	if !s.Source {
		text = p.Snapshot.Text()
	}

	patterns := s.Patterns
	if len(patterns) == 0 {
		patterns = DefaultCountPatterns
	}
	total := 0
	for _, re := range patterns {
		total = max(total, parser.MaxSubmatchInt(re, text))
	}

	if len(s.CountElements) > 0 {
		doc, err := p.Snapshot.Document()
		if err != nil {
			return 0, err
		}
		for _, sel := range s.CountElements {
			doc.Find(sel).Each(func(_ int, el *goquery.Selection) {
				total = max(total, parser.MaxInt(el.Text()))
			})
		}
	}

	if total == 0 {
		return 0, nil
	}
	size := s.PageSize
	if size <= 0 {
		size = 20
	}
	return int(math.Ceil(float64(total) / float64(size))), nil
}

// ErrProbeExhausted is returned when the next control still exists after
// the attempt ceiling.
var ErrProbeExhausted = errors.New("click probe hit its attempt ceiling")

// ClickProbe counts pages by clicking the next control until it disappears.
// The session is always returned to the page it started on.
type ClickProbe struct {
	NextSelectors []string
	MaxAttempts   int
	Timeout       time.Duration
	ReadySelector string
	ReadyTimeout  time.Duration

	// CountAtCeiling returns the pages counted so far instead of
	// ErrProbeExhausted when the attempt ceiling is reached.
	CountAtCeiling bool
	// Slack is added to any successful count, covering pages the probe
	// could not reach.
	Slack int
}

func (s *ClickProbe) Name() string { return "click_probe" }

func (s *ClickProbe) Discover(ctx context.Context, p *Probe) (n int, err error) {
	if p.Session == nil {
		return 0, types.ErrUnsupported
	}
	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = 30
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	origin, err := p.Session.CurrentURL(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if restoreErr := s.restore(ctx, p.Session, origin); restoreErr != nil && err == nil {
			err = fmt.Errorf("restore %s: %w", origin, restoreErr)
		}
	}()

	page := 1
	current := origin
	for page < attempts {
		next, found, err := s.findNext(ctx, p.Session)
		if err != nil {
			return 0, err
		}
		if !found {
			return page + s.Slack, nil
		}
		if err := p.Session.Click(ctx, next); err != nil {
			return 0, fmt.Errorf("click %q on page %d: %w", next, page, err)
		}
		changed, err := p.Session.WaitURLChange(ctx, current, timeout)
		if err != nil {
			return 0, fmt.Errorf("page %d: %w", page, err)
		}
		current = changed
		page++
	}
	if s.CountAtCeiling {
		return page + s.Slack, nil
	}
	return 0, ErrProbeExhausted
}

func (s *ClickProbe) findNext(ctx context.Context, session fetcher.Session) (string, bool, error) {
	for _, sel := range s.NextSelectors {
		found, err := session.Has(ctx, sel)
		if err != nil {
			return "", false, err
		}
		if found {
			return sel, true, nil
		}
	}
	return "", false, nil
}

func (s *ClickProbe) restore(ctx context.Context, session fetcher.Session, origin string) error {
	current, err := session.CurrentURL(ctx)
	if err == nil && current == origin {
		return nil
	}
	if err := session.Navigate(ctx, origin); err != nil {
		return err
	}
	ready := s.ReadySelector
	if ready == "" {
		ready = "body"
	}
	readyTimeout := s.ReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = 10 * time.Second
	}
	return session.WaitVisible(ctx, ready, readyTimeout)
}
