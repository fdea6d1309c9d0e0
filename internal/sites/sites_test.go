package sites

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/IshaanNene/Shelfie/internal/config"
	"github.com/IshaanNene/Shelfie/internal/fetcher/fetchertest"
	"github.com/IshaanNene/Shelfie/internal/pagination"
	"github.com/IshaanNene/Shelfie/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestPageURLTemplates(t *testing.T) {
	tests := []struct {
		slug     string
		raw      string
		page     int
		expected string
	}{
		{"almeera", "https://almeera.online/frozen-food/?pageId=", 1, "https://almeera.online/frozen-food"},
		{"almeera", "https://almeera.online/frozen-food/", 3, "https://almeera.online/frozen-food/?pageId=3"},
		{"lulu", "https://gcc.luluhypermarket.com/en-ae/frozen/", 1, "https://gcc.luluhypermarket.com/en-ae/frozen/?page=1"},
		{"lulu", "https://gcc.luluhypermarket.com/en-ae/frozen", 4, "https://gcc.luluhypermarket.com/en-ae/frozen/?page=4"},
		{"spinneys", "https://www.spinneys.com/en-ae/catalogue/category/frozen", 1, "https://www.spinneys.com/en-ae/catalogue/category/frozen"},
		{"spinneys", "https://www.spinneys.com/en-ae/catalogue/category/frozen", 2, "https://www.spinneys.com/en-ae/catalogue/category/frozen?page=2"},
		{"unioncoop", "https://www.unioncoop.ae/frozen.html", 1, "https://www.unioncoop.ae/frozen.html"},
		{"unioncoop", "https://www.unioncoop.ae/frozen.html", 5, "https://www.unioncoop.ae/frozen.html?page=5"},
	}

	for _, tt := range tests {
		p, err := Lookup(tt.slug)
		if err != nil {
			t.Fatalf("lookup %s: %v", tt.slug, err)
		}
		if got := p.Page(p.Base(tt.raw), tt.page); got != tt.expected {
			t.Errorf("%s page %d: expected %q, got %q", tt.slug, tt.page, tt.expected, got)
		}
	}
}

func TestBaseDefaultsToProfileURL(t *testing.T) {
	for _, p := range All() {
		if got := p.Base("  "); got != p.Base(p.DefaultURL) {
			t.Errorf("%s: expected default URL, got %q", p.Slug, got)
		}
	}
}

func TestCategoryURL(t *testing.T) {
	spinneys, _ := Lookup("spinneys")
	if got := spinneys.Category("", "frozen/ice-cream"); got != "https://www.spinneys.com/en-ae/catalogue/category/frozen/ice-cream" {
		t.Errorf("unexpected spinneys category URL %q", got)
	}

	lulu, _ := Lookup("lulu")
	if got := lulu.Category("https://gcc.luluhypermarket.com/en-ae/frozen/", "/ice-cream"); got != "https://gcc.luluhypermarket.com/en-ae/frozen/ice-cream" {
		t.Errorf("unexpected lulu category URL %q", got)
	}
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"lulu", "Lulu Hypermarket", "UNIONCOOP", "union coop", " almeera "} {
		if _, err := Lookup(name); err != nil {
			t.Errorf("lookup %q: %v", name, err)
		}
	}

	_, err := Lookup("carrefour")
	if !errors.Is(err, types.ErrUnknownSite) {
		t.Errorf("expected ErrUnknownSite, got %v", err)
	}
}

func TestLookupReturnsFreshProfiles(t *testing.T) {
	a, _ := Lookup("lulu")
	a.DefaultURL = "https://changed.example"

	b, _ := Lookup("lulu")
	if b.DefaultURL == a.DefaultURL {
		t.Error("profile mutation leaked into the registry")
	}
}

func TestAllOrderedBySlug(t *testing.T) {
	all := All()
	want := []string{"almeera", "lulu", "spinneys", "unioncoop"}
	if len(all) != len(want) {
		t.Fatalf("expected %d profiles, got %d", len(want), len(all))
	}
	for i, p := range all {
		if p.Slug != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], p.Slug)
		}
	}
}

func extract(t *testing.T, p *Profile, html string) []*types.Product {
	t.Helper()
	url := p.Page(p.Base(""), 1)
	products, err := p.Extractor(testLogger).Extract(context.Background(), types.NewSnapshot(url, html), nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	return products
}

func TestAlmeeraExtraction(t *testing.T) {
	p, _ := Lookup("almeera")
	html := `<html><body>
<ul class="products">
  <li class="product-cell box-product">
    <h5 class="product-name"><a href="/mccain-fries">McCain Crinkle Fries 750g</a></h5>
    <span class="price product-price">QAR 14.00</span>
    <img class="photo" src="/img/fries.jpg">
  </li>
</ul>
<div id="sidebar-first">
  <ul><li class="product-cell box-product">
    <h5 class="product-name"><a href="/recent">Recently Viewed Ice Cream 1L</a></h5>
  </li></ul>
</div>
</body></html>`

	products := extract(t, p, html)
	if len(products) != 1 {
		t.Fatalf("expected sidebar product excluded, got %d products", len(products))
	}
	got := products[0]
	if got.Brand != "McCain" || got.Name != "Crinkle Fries" || got.Weight != "750g" || got.Price != "14.00" {
		t.Errorf("unexpected record %+v", got)
	}
	if got.URL != "https://almeera.online/mccain-fries" || got.ImageURL != "https://almeera.online/img/fries.jpg" {
		t.Errorf("unexpected links %q %q", got.URL, got.ImageURL)
	}
	if got.Site != "almeera" {
		t.Errorf("expected site almeera, got %q", got.Site)
	}
}

func TestUnionCoopRepairsRepeatedPrice(t *testing.T) {
	p, _ := Lookup("unioncoop")
	html := `<html><body><div class="ais-Hits">
<a class="result" href="/al-ain-peas">
  <h3 class="result-title">Al Ain Frozen Peas 400g</h3>
  <span class="tamayaz">AED 5.255.25</span>
</a>
<a class="result" href="/green-beans">
  <h3 class="result-title">Fresh Farm Green Beans</h3>
  <span class="price">AED 7.00</span>
</a>
</div></body></html>`

	products := extract(t, p, html)
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	if products[0].Price != "5.25" {
		t.Errorf("expected repaired price 5.25, got %q", products[0].Price)
	}
	if products[0].Brand != "Al Ain" || products[0].Weight != "400g" || products[0].Name != "Frozen Peas" {
		t.Errorf("unexpected decomposition %+v", products[0])
	}
	if products[1].Brand != "Fresh Farm" || products[1].Name != "Green Beans" {
		t.Errorf("expected two-token brand fallback, got brand=%q name=%q", products[1].Brand, products[1].Name)
	}
	if products[0].URL != "https://www.unioncoop.ae/al-ain-peas" {
		t.Errorf("unexpected URL %q", products[0].URL)
	}
}

func TestSpinneysWeightAndBrand(t *testing.T) {
	p, _ := Lookup("spinneys")
	html := `<html><body>
<div class="product-info">
  <div class="product-name"><a href="/en-ae/p/peas">Birds Eye Garden Peas 800g</a></div>
  <div class="product-price"><span class="price">AED 18.50</span></div>
</div>
</body></html>`

	products := extract(t, p, html)
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}
	if products[0].Brand != "Birds" || products[0].Weight != "800g" || products[0].Price != "18.50" {
		t.Errorf("unexpected record %+v", products[0])
	}
}

func discover(t *testing.T, p *Profile, html string, maxPages int) pagination.Outcome {
	t.Helper()
	url := p.Page(p.Base(""), 1)
	session := fetchertest.New(map[string][]string{url: {html}})
	if err := session.Navigate(context.Background(), url); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	crawl := config.DefaultConfig().Crawl
	d := p.Discoverer(&crawl, testLogger)
	return d.Discover(context.Background(), &pagination.Probe{Session: session, Snapshot: types.NewSnapshot(url, html)}, maxPages)
}

func TestPaginationCascades(t *testing.T) {
	tests := []struct {
		slug     string
		html     string
		maxPages int
		expected int
	}{
		{
			"almeera",
			`<ul class="pager"><li class="item"><a title="Go to page 2" href="?pageId=2">2</a></li>` +
				`<li class="item last-page"><a title="Go to page 9" href="?pageId=9">9</a></li></ul>`,
			0, 9,
		},
		{
			"almeera",
			`<ul class="pager"><li class="item"><a title="Go to page 12" href="?pageId=12">12</a></li>` +
				`<li class="item last-page"><a href="?pageId=5">5</a></li></ul>`,
			0, 12,
		},
		{
			"almeera",
			`<ul class="pager"><li class="next-page"><a href="#">Next</a></li></ul>`,
			4, 4,
		},
		{
			"lulu",
			`<ul><li><a href="/frozen/?page=2">2</a></li><li><a href="/frozen/?page=7">7</a></li></ul>`,
			0, 7,
		},
		{
			"lulu",
			`<p>Frozen</p>`,
			0, 5,
		},
		{
			"lulu",
			`<p>Frozen</p>`,
			3, 3,
		},
		{
			"spinneys",
			`<ul class="pagination"><li><a>1</a></li><li><a>2</a></li><li><a>6</a></li><li class="next"><a>Next</a></li></ul>`,
			0, 6,
		},
		{
			"spinneys",
			`<p>one page</p>`,
			0, 1,
		},
		{
			"unioncoop",
			`<ul class="ais-Pagination-list"><li class="ais-Pagination-item ais-Pagination-item--page"><a>1</a></li>` +
				`<li class="ais-Pagination-item ais-Pagination-item--page"><a>12</a></li>` +
				`<li class="ais-Pagination-item ais-Pagination-item--nextPage"><a>›</a></li></ul>`,
			0, 12,
		},
		{
			"unioncoop",
			`<div class="pagination"></div>`,
			0, 3,
		},
	}

	for _, tt := range tests {
		p, _ := Lookup(tt.slug)
		html := "<html><body>" + tt.html + "</body></html>"
		if got := discover(t, p, html, tt.maxPages); got.Pages != tt.expected {
			t.Errorf("%s %q (max %d): expected %d pages, got %+v", tt.slug, tt.html, tt.maxPages, tt.expected, got)
		}
	}
}

func TestDiscovererAppliesProbeLimits(t *testing.T) {
	p := &Profile{
		Slug:          "probe",
		ReadySelector: "main",
		Pagination: pagination.Config{
			Strategies: []pagination.Strategy{&pagination.ClickProbe{NextSelectors: []string{"a.next"}}},
		},
	}
	crawl := config.DefaultConfig().Crawl
	crawl.ProbeAttempts = 3

	// Discoverer must not mutate the profile's own strategies.
	p.Discoverer(&crawl, testLogger)
	probe := p.Pagination.Strategies[0].(*pagination.ClickProbe)
	if probe.MaxAttempts != 0 || probe.ReadySelector != "" {
		t.Errorf("profile strategy was mutated: %+v", probe)
	}
}

func TestSiteNameCleaning(t *testing.T) {
	tests := []struct {
		site  string
		name  string
		brand string
		clean string
	}{
		{"lulu", "Corn Popcorn Kernels 500g", "Corn", "Popcorn Kernels"},
		{"unioncoop", "Luna Lunar Cheese Cake 400g", "Luna", "Lunar Cheese Cake"},
		{"unioncoop", "Kraft Handcrafted Kraft Singles 200g", "Kraft", "Handcrafted Singles"},
	}

	for _, tt := range tests {
		p, err := Lookup(tt.site)
		if err != nil {
			t.Fatalf("lookup %s: %v", tt.site, err)
		}
		parts := p.Extract.Rules.Decompose(tt.name)
		if parts.Brand != tt.brand || parts.Name != tt.clean {
			t.Errorf("%s %q: expected brand=%q name=%q, got brand=%q name=%q",
				tt.site, tt.name, tt.brand, tt.clean, parts.Brand, parts.Name)
		}
	}
}
