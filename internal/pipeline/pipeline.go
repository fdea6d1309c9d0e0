// Package pipeline normalizes scraped products through a chain of
// middleware. Middleware may rewrite a product in place or drop it.
package pipeline

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/IshaanNene/Shelfie/internal/types"
)

// Middleware processes a product and returns the (possibly modified) product.
// Return nil to drop the product from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a product. Return nil to drop it.
	Process(p *types.Product) (*types.Product, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Use adds middleware to the pipeline chain.
func (p *Pipeline) Use(mws ...Middleware) *Pipeline {
	for _, mw := range mws {
		p.middlewares = append(p.middlewares, mw)
		p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
	}
	return p
}

// Process runs the product through all middleware in order. A nil product
// with a nil error means it was dropped.
func (p *Pipeline) Process(product *types.Product) (*types.Product, error) {
	current := product

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage:   mw.Name(),
				Product: current,
				Err:     err,
			}
		}
		if result == nil {
			p.logger.Debug("product dropped", "stage", mw.Name(), "name", product.RawName, "page", product.SourcePage)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// ProcessAll runs every product through the chain, keeping order and
// skipping dropped or failed products. Failures are logged, not returned.
func (p *Pipeline) ProcessAll(products []*types.Product) []*types.Product {
	out := make([]*types.Product, 0, len(products))
	for _, product := range products {
		result, err := p.Process(product)
		if err != nil {
			p.logger.Warn("product rejected", "name", product.RawName, "error", err)
			continue
		}
		if result != nil {
			out = append(out, result)
		}
	}
	return out
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// --- Built-in Middleware ---

// TrimMiddleware trims whitespace from all string fields.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(p *types.Product) (*types.Product, error) {
	p.RawName = strings.Join(strings.Fields(p.RawName), " ")
	p.Name = strings.TrimSpace(p.Name)
	p.Brand = strings.TrimSpace(p.Brand)
	p.Price = strings.TrimSpace(p.Price)
	p.Weight = strings.TrimSpace(p.Weight)
	p.URL = strings.TrimSpace(p.URL)
	p.ImageURL = strings.TrimSpace(p.ImageURL)
	return p, nil
}

// RequiredFieldsMiddleware drops products without a name. A product cannot
// be deduplicated or keyed without one.
type RequiredFieldsMiddleware struct{}

func (m *RequiredFieldsMiddleware) Name() string { return "required_fields" }

func (m *RequiredFieldsMiddleware) Process(p *types.Product) (*types.Product, error) {
	if p.RawName == "" {
		return nil, nil
	}
	return p, nil
}

// KeyFunc selects the deduplication key of a product.
type KeyFunc func(p *types.Product) string

// ByRawName keys products on the name as scraped.
func ByRawName(p *types.Product) string { return p.RawName }

// ByCleanName keys products on the cleaned display name.
func ByCleanName(p *types.Product) string { return p.Name }

// DedupMiddleware drops products whose key has been seen before. The first
// occurrence wins.
type DedupMiddleware struct {
	mu   sync.Mutex
	seen map[string]struct{}
	key  KeyFunc
}

func NewDedupMiddleware(key KeyFunc) *DedupMiddleware {
	if key == nil {
		key = ByRawName
	}
	return &DedupMiddleware{
		seen: make(map[string]struct{}),
		key:  key,
	}
}

func (m *DedupMiddleware) Name() string { return "dedup" }

func (m *DedupMiddleware) Process(p *types.Product) (*types.Product, error) {
	val := m.key(p)
	if val == "" {
		val = p.URL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.seen[val]; exists {
		return nil, nil
	}
	m.seen[val] = struct{}{}
	return p, nil
}

// Seen reports whether key has already passed through.
func (m *DedupMiddleware) Seen(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[key]
	return ok
}

// Count returns the number of distinct keys seen.
func (m *DedupMiddleware) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}
