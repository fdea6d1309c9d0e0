package extractor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IshaanNene/Shelfie/internal/fetcher"
	"github.com/IshaanNene/Shelfie/internal/types"
)

// scriptItem is one product as reported by the in-page query.
type scriptItem struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Price string `json:"price"`
	Image string `json:"image"`
}

// extractScripted runs the selector logic inside the page's own scripting
// context and returns raw records.
func (e *Extractor) extractScripted(ctx context.Context, s fetcher.Session, pageURL string) ([]*types.Product, error) {
	layout := e.cfg.ScriptLayout
	if layout == nil {
		if len(e.cfg.Layouts) == 0 {
			return nil, nil
		}
		layout = &e.cfg.Layouts[0]
	}

	js, err := buildScript(*layout, e.cfg)
	if err != nil {
		return nil, err
	}

	var items []scriptItem
	if err := s.Eval(ctx, js, &items); err != nil {
		return nil, err
	}

	out := make([]*types.Product, 0, len(items))
	for _, item := range items {
		product := types.NewProduct(item.Name, pageURL)
		if item.Price != "" {
			product.Price = item.Price
		}
		product.URL = item.URL
		product.ImageURL = item.Image
		out = append(out, product)
	}
	return out, nil
}

// buildScript renders the product query for evaluation in the page. The
// selector chains and exclusion markers are embedded as JSON literals.
func buildScript(layout Selectors, cfg Config) (string, error) {
	imageAttrs := layout.ImageAttrs
	if len(imageAttrs) == 0 {
		imageAttrs = []string{"src", "data-src"}
	}

	params := map[string]any{
		"product":        nonNil(layout.Product),
		"name":           nonNil(layout.Name),
		"price":          nonNil(layout.Price),
		"image":          nonNil(layout.Image),
		"link":           nonNil(layout.Link),
		"imageAttrs":     imageAttrs,
		"excludeIds":     nonNil(cfg.Exclude.IDs),
		"excludeClasses": nonNil(cfg.Exclude.ClassContains),
		"depth":          cfg.AncestorDepth,
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode script params: %w", err)
	}

	return fmt.Sprintf(productQueryJS, encoded), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

const productQueryJS = `() => {
	const p = %s;
	const first = (root, sels) => {
		for (const s of sels) {
			for (const el of root.querySelectorAll(s)) {
				if (el.textContent.trim() !== '' || el.tagName === 'IMG' || el.tagName === 'A') return el;
			}
		}
		return null;
	};
	const excluded = (el) => {
		let parent = el.parentElement;
		for (let i = 0; parent && i < p.depth; i++, parent = parent.parentElement) {
			if (p.excludeIds.includes(parent.id)) return true;
			const cls = typeof parent.className === 'string' ? parent.className : '';
			const marker = (cls + ' ' + (parent.id || '')).toLowerCase();
			if (p.excludeClasses.some(c => marker.includes(c.toLowerCase()))) return true;
		}
		return false;
	};
	let nodes = [];
	for (const s of p.product) {
		nodes = Array.from(document.querySelectorAll(s));
		if (nodes.length > 0) break;
	}
	return nodes.filter(el => !excluded(el)).map(el => {
		const nameEl = first(el, p.name);
		let linkEl = p.link.length > 0 ? first(el, p.link) : null;
		if (!linkEl && nameEl) linkEl = nameEl.closest('a');
		if (!linkEl) linkEl = el.tagName === 'A' ? el : el.querySelector('a[href]');
		const priceEl = first(el, p.price);
		const imgEl = first(el, p.image);
		let image = '';
		if (imgEl) {
			for (const a of p.imageAttrs) {
				if (imgEl.getAttribute(a)) { image = imgEl.getAttribute(a); break; }
			}
		}
		return {
			name: nameEl ? nameEl.textContent.trim() : '',
			url: linkEl ? (linkEl.getAttribute('href') || '') : '',
			price: priceEl ? priceEl.textContent.trim() : '',
			image: image,
		};
	}).filter(item => item.name.length > 0);
}`
