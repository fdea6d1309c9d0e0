package pagination

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"testing"

	"github.com/IshaanNene/Shelfie/internal/fetcher/fetchertest"
	"github.com/IshaanNene/Shelfie/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const base = "https://site.example/frozen"

var nextSelectors = []string{"li.next-page a", "a.next", "a[rel='next']"}

func probeFor(html string) *Probe {
	session := fetchertest.New(map[string][]string{base: {html}})
	session.Navigate(context.Background(), base)
	return &Probe{Session: session, Snapshot: types.NewSnapshot(base, html)}
}

func fullCascade() []Strategy {
	pageID := regexp.MustCompile(`pageId=(\d+)`)
	return []Strategy{
		&LastPageMarker{Selectors: []string{"li.last-page"}, HrefPattern: pageID},
		&NumericLinks{Selectors: []string{"li.item a[title]", "a[title^='Go to page']"}, HrefPattern: pageID},
		&TotalCount{},
		&ClickProbe{NextSelectors: nextSelectors, MaxAttempts: 30},
	}
}

func TestNextOnlyUsesDefault(t *testing.T) {
	page := `<html><body><ul class="pager"><li class="next-page"><a href="#">Next</a></li></ul></body></html>`

	d := NewDiscoverer(Config{Strategies: fullCascade(), NextSelectors: nextSelectors, DefaultPages: 10}, testLogger)

	if got := d.Discover(context.Background(), probeFor(page), 0); got.Pages != 10 || !got.Fallback {
		t.Errorf("expected fallback to 10 pages, got %+v", got)
	}
	if got := d.Discover(context.Background(), probeFor(page), 4); got.Pages != 4 {
		t.Errorf("expected min(10, 4) = 4, got %d", got.Pages)
	}
	if got := d.Discover(context.Background(), probeFor(page), 25); got.Pages != 10 {
		t.Errorf("expected min(10, 25) = 10, got %d", got.Pages)
	}
}

func TestNoPaginationIsSinglePage(t *testing.T) {
	d := NewDiscoverer(Config{Strategies: fullCascade(), NextSelectors: nextSelectors}, testLogger)

	got := d.Discover(context.Background(), probeFor(`<html><body><p>Frozen</p></body></html>`), 0)
	if got.Pages != 1 {
		t.Errorf("expected 1 page, got %d", got.Pages)
	}
}

func TestLastPageMarker(t *testing.T) {
	tests := []struct {
		name string
		html string
		want int
	}{
		{"own text", `<ul><li class="last-page">9</li></ul>`, 9},
		{"link text", `<ul><li class="last-page"><a href="#">7</a></li></ul>`, 7},
		{"link title", `<ul><li class="last-page"><a title="Go to page 12" href="#">»</a></li></ul>`, 12},
		{"link href", `<ul><li class="last-page"><a href="?pageId=15">Last</a></li></ul>`, 15},
		{"absent", `<ul><li class="item"><a href="?pageId=3">3</a></li></ul>`, 0},
	}

	s := &LastPageMarker{Selectors: []string{"li.last-page"}, HrefPattern: regexp.MustCompile(`pageId=(\d+)`)}
	for _, tt := range tests {
		got, err := s.Discover(context.Background(), probeFor(tt.html))
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.want, got)
		}
	}
}

func TestNumericLinksMaximum(t *testing.T) {
	page := `<ul class="pager">
<li class="item"><a title="Go to page 2" href="?pageId=2">2</a></li>
<li class="item"><a title="Go to page 3" href="?pageId=3">3</a></li>
<li class="item"><a title="Go to page 6" href="?pageId=6">…</a></li>
</ul>`
	s := &NumericLinks{Selectors: []string{"li.item a[title]"}, HrefPattern: regexp.MustCompile(`pageId=(\d+)`)}

	got, _ := s.Discover(context.Background(), probeFor(page))
	if got != 6 {
		t.Errorf("expected 6, got %d", got)
	}
}

func TestNumericLinksLastOnly(t *testing.T) {
	s := &NumericLinks{Selectors: []string{".pagination li:not(.next) a"}, LastOnly: true}

	page := `<ul class="pagination"><li><a>1</a></li><li><a>2</a></li><li><a>8</a></li><li class="next"><a>Next</a></li></ul>`
	if got, _ := s.Discover(context.Background(), probeFor(page)); got != 8 {
		t.Errorf("expected 8, got %d", got)
	}

	bad := `<ul class="pagination"><li><a>1</a></li><li><a>…</a></li></ul>`
	if _, err := s.Discover(context.Background(), probeFor(bad)); err == nil {
		t.Error("expected error for non-numeric last item")
	}
}

func TestXPathLinks(t *testing.T) {
	page := `<ul class="ais-Pagination-list">
<li class="ais-Pagination-item ais-Pagination-item--page"><a href="?page=1">1</a></li>
<li class="ais-Pagination-item ais-Pagination-item--page"><a href="?page=2">2</a></li>
<li class="ais-Pagination-item ais-Pagination-item--page"><a href="?page=14">14</a></li>
<li class="ais-Pagination-item ais-Pagination-item--nextPage"><a href="?page=2">›</a></li>
</ul>`

	sibling := &XPathLinks{Expr: `//li[contains(@class,'ais-Pagination-item--nextPage')]/preceding-sibling::li[1]/a`}
	if got, err := sibling.Discover(context.Background(), probeFor(page)); err != nil || got != 14 {
		t.Errorf("sibling: expected 14, got %d (%v)", got, err)
	}

	hrefs := &XPathLinks{Expr: `//li/a[contains(@href,'page=')]`, Attr: "href", Pattern: regexp.MustCompile(`page=(\d+)`)}
	if got, _ := hrefs.Discover(context.Background(), probeFor(page)); got != 14 {
		t.Errorf("hrefs: expected 14, got %d", got)
	}
}

func TestTotalCount(t *testing.T) {
	tests := []struct {
		html string
		want int
	}{
		{`<p>Showing 1 - 20 of 95</p>`, 5},
		{`<h1>All Products ( 41 )</h1>`, 3},
		{`<span>120 items</span>`, 6},
		{`<span>Frozen</span>`, 0},
	}

	s := &TotalCount{PageSize: 20}
	for _, tt := range tests {
		if got, _ := s.Discover(context.Background(), probeFor(tt.html)); got != tt.want {
			t.Errorf("%q: expected %d, got %d", tt.html, tt.want, got)
		}
	}

	elements := &TotalCount{CountElements: []string{".product-count"}}
	if got, _ := elements.Discover(context.Background(), probeFor(`<div class="product-count">Found 61</div>`)); got != 4 {
		t.Errorf("count element: expected 4, got %d", got)
	}
}

func TestSourcePattern(t *testing.T) {
	s := &SourcePattern{Pattern: regexp.MustCompile(`page=(\d+)`)}
	page := `<script>var links = ["?page=2", "?page=9"];</script>`
	if got, _ := s.Discover(context.Background(), probeFor(page)); got != 9 {
		t.Errorf("expected 9, got %d", got)
	}
}

func pagerPage(next bool) string {
	if next {
		return `<html><body><p>items</p><a class="next" href="#">Next</a></body></html>`
	}
	return `<html><body><p>items</p></body></html>`
}

func TestClickProbeCountsPages(t *testing.T) {
	session := fetchertest.New(map[string][]string{
		base:            {pagerPage(true)},
		base + "#page2": {pagerPage(true)},
		base + "#page3": {pagerPage(false)},
	})
	session.Links[base] = base + "#page2"
	session.Links[base+"#page2"] = base + "#page3"
	session.Navigate(context.Background(), base)

	s := &ClickProbe{NextSelectors: []string{"a.next"}, MaxAttempts: 30}
	probe := &Probe{Session: session, Snapshot: types.NewSnapshot(base, pagerPage(true))}

	got, err := s.Discover(context.Background(), probe)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if got != 3 {
		t.Errorf("expected 3 pages, got %d", got)
	}
	if current := session.CurrentURLUnsafe(); current != base {
		t.Errorf("expected session restored to %s, got %s", base, current)
	}
}

func TestClickProbeFailureFallsBackToDefault(t *testing.T) {
	// Clicking leaves the URL unchanged.
	session := fetchertest.New(map[string][]string{base: {pagerPage(true)}})
	session.Links[base] = base
	session.Navigate(context.Background(), base)

	probe := &Probe{Session: session, Snapshot: types.NewSnapshot(base, pagerPage(true))}
	s := &ClickProbe{NextSelectors: []string{"a.next"}}
	if _, err := s.Discover(context.Background(), probe); err == nil {
		t.Fatal("expected probe error when the URL never changes")
	}

	d := NewDiscoverer(Config{
		Strategies:    []Strategy{s},
		NextSelectors: []string{"a.next"},
		DefaultPages:  10,
	}, testLogger)
	if got := d.Discover(context.Background(), probe, 0); got.Pages != 10 {
		t.Errorf("expected default 10 after probe failure, got %d", got.Pages)
	}
}

func TestClickProbeCountAtCeiling(t *testing.T) {
	pages := map[string][]string{}
	session := fetchertest.New(pages)
	for i := 1; i <= 10; i++ {
		url := fmt.Sprintf("%s#page%d", base, i)
		pages[url] = []string{pagerPage(true)}
		session.Links[url] = fmt.Sprintf("%s#page%d", base, i+1)
	}
	session.Navigate(context.Background(), base+"#page1")

	probe := &Probe{Session: session, Snapshot: types.NewSnapshot(base, pagerPage(true))}

	bounded := &ClickProbe{NextSelectors: []string{"a.next"}, MaxAttempts: 6}
	if _, err := bounded.Discover(context.Background(), probe); !errors.Is(err, ErrProbeExhausted) {
		t.Errorf("expected ErrProbeExhausted, got %v", err)
	}

	counting := &ClickProbe{NextSelectors: []string{"a.next"}, MaxAttempts: 6, CountAtCeiling: true, Slack: 2}
	got, err := counting.Discover(context.Background(), probe)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if got != 8 {
		t.Errorf("expected 6 counted + 2 slack = 8, got %d", got)
	}
}

func TestClickProbeWithoutSession(t *testing.T) {
	s := &ClickProbe{NextSelectors: []string{"a.next"}}
	_, err := s.Discover(context.Background(), &Probe{Snapshot: types.NewSnapshot(base, pagerPage(true))})
	if !errors.Is(err, types.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestMinPagesBeforeCap(t *testing.T) {
	d := NewDiscoverer(Config{Strategies: []Strategy{&TotalCount{}}, MinPages: 5}, testLogger)
	probe := probeFor(`<p>30 products</p>`)

	if got := d.Discover(context.Background(), probe, 0); got.Pages != 5 {
		t.Errorf("expected minimum 5, got %d", got.Pages)
	}
	if got := d.Discover(context.Background(), probe, 3); got.Pages != 3 {
		t.Errorf("expected cap 3 to win over minimum, got %d", got.Pages)
	}
}

type panicStrategy struct{}

func (panicStrategy) Name() string { return "panic" }
func (panicStrategy) Discover(context.Context, *Probe) (int, error) {
	panic("boom")
}

type errStrategy struct{}

func (errStrategy) Name() string { return "err" }
func (errStrategy) Discover(context.Context, *Probe) (int, error) {
	return 0, errors.New("selector exploded")
}

func TestCascadeSurvivesFailures(t *testing.T) {
	d := NewDiscoverer(Config{
		Strategies: []Strategy{panicStrategy{}, errStrategy{}, &TotalCount{}},
	}, testLogger)

	got := d.Discover(context.Background(), probeFor(`<p>45 results</p>`), 0)
	if got.Pages != 3 || got.Strategy != "total_count" {
		t.Errorf("expected total_count to decide 3 pages, got %+v", got)
	}
}

func TestHighestPoolsSources(t *testing.T) {
	pageID := regexp.MustCompile(`pageId=(\d+)`)
	highest := &Highest{Of: []Strategy{
		&NumericLinks{Selectors: []string{"li.item a[title]"}, HrefPattern: pageID},
		&LastPageMarker{Selectors: []string{"li.last-page"}, HrefPattern: pageID},
	}}
	probe := probeFor(`<ul>
<li class="item"><a title="Go to page 12" href="?pageId=12">12</a></li>
<li class="item last-page"><a href="?pageId=5">5</a></li>
</ul>`)

	n, err := highest.Discover(context.Background(), probe)
	if err != nil || n != 12 {
		t.Errorf("expected 12 from the titled link over a lower marker, got %d (%v)", n, err)
	}
	if highest.Name() != "highest(numeric_links,last_page_marker)" {
		t.Errorf("unexpected name %q", highest.Name())
	}

	partial := &Highest{Of: []Strategy{errStrategy{}, &TotalCount{}}}
	if n, err := partial.Discover(context.Background(), probeFor(`<p>45 results</p>`)); err != nil || n != 3 {
		t.Errorf("expected one failing source to be ignored, got %d (%v)", n, err)
	}

	failed := &Highest{Of: []Strategy{errStrategy{}, errStrategy{}}}
	if _, err := failed.Discover(context.Background(), probeFor(`<p></p>`)); err == nil {
		t.Error("expected an error when every source fails")
	}
}
