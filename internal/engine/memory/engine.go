package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/peakline/catalog-search/internal/domain"
)

// ErrUnavailable is returned by all operations when the engine is switched
// into its failing state.
var ErrUnavailable = errors.New("memory engine: unavailable")

// Engine is an in-memory implementation of the search backend and indexer
// interfaces. It provides simple substring matching on name and description
// and is used in tests and as the development fallback when no external
// engine is configured. Thread-safe via sync.RWMutex.
type Engine struct {
	mu       sync.RWMutex
	products map[string]domain.SearchableProduct
	name     string
	failing  bool
}

// New creates a new in-memory engine reporting the elasticsearch identifier.
func New() *Engine {
	return NewNamed(domain.EngineElasticsearch)
}

// NewNamed creates a new in-memory engine reporting the given identifier.
func NewNamed(name string) *Engine {
	return &Engine{
		products: make(map[string]domain.SearchableProduct),
		name:     name,
	}
}

// Name returns the engine identifier reported in results.
func (e *Engine) Name() string {
	return e.name
}

// SetFailing switches the engine into or out of a state where every
// operation returns ErrUnavailable.
func (e *Engine) SetFailing(failing bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failing = failing
}

func (e *Engine) checkAvailable() error {
	if e.failing {
		return ErrUnavailable
	}
	return nil
}

// Health reports the engine's simulated liveness.
func (e *Engine) Health(_ context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.checkAvailable()
}

// Index adds or updates a single product.
func (e *Engine) Index(_ context.Context, product *domain.SearchableProduct) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkAvailable(); err != nil {
		return err
	}
	e.products[product.ID] = *product
	return nil
}

// Delete removes a product by its ID.
func (e *Engine) Delete(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkAvailable(); err != nil {
		return err
	}
	delete(e.products, id)
	return nil
}

// BulkIndex adds or updates multiple products.
func (e *Engine) BulkIndex(_ context.Context, products []domain.SearchableProduct) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkAvailable(); err != nil {
		return err
	}
	for i := range products {
		e.products[products[i].ID] = products[i]
	}
	return nil
}

// Has reports whether a product with the given ID is present in the index.
func (e *Engine) Has(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.products[id]
	return ok
}

// Len returns the number of indexed products.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.products)
}

// Search executes a search query against the in-memory index.
func (e *Engine) Search(_ context.Context, req *domain.SearchRequest) (*domain.SearchResult, error) {
	start := time.Now()

	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.checkAvailable(); err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(req.Query)

	matched := make([]domain.SearchableProduct, 0)
	for _, p := range e.products {
		if !matches(p, req, queryLower) {
			continue
		}
		matched = append(matched, p)
	}

	sortProducts(matched, req.SortBy)

	total := len(matched)

	page := req.Page
	if page < 1 {
		page = 1
	}
	perPage := req.PerPage
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	offset := (page - 1) * perPage
	if offset > total {
		offset = total
	}
	end := offset + perPage
	if end > total {
		end = total
	}

	return &domain.SearchResult{
		Products: matched[offset:end],
		Total:    total,
		Page:     page,
		PerPage:  perPage,
		Locale:   req.Locale,
		Engine:   e.name,
		TookMs:   time.Since(start).Milliseconds(),
	}, nil
}

// Suggest returns distinct product names with the query as a prefix.
func (e *Engine) Suggest(_ context.Context, req *domain.SearchRequest) (*domain.Suggestions, error) {
	start := time.Now()

	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.checkAvailable(); err != nil {
		return nil, err
	}

	limit := req.PerPage
	if limit <= 0 {
		limit = 10
	}

	prefix := strings.ToLower(req.Query)
	seen := make(map[string]struct{})
	var terms []string
	for _, p := range e.products {
		if !strings.HasPrefix(strings.ToLower(p.Name), prefix) {
			continue
		}
		if _, ok := seen[p.Name]; ok {
			continue
		}
		seen[p.Name] = struct{}{}
		terms = append(terms, p.Name)
	}
	sort.Strings(terms)
	if len(terms) > limit {
		terms = terms[:limit]
	}
	if terms == nil {
		terms = []string{}
	}

	return &domain.Suggestions{
		Terms:  terms,
		Engine: e.name,
		TookMs: time.Since(start).Milliseconds(),
	}, nil
}

// Facets computes filter counts over the products matching the request.
func (e *Engine) Facets(_ context.Context, req *domain.SearchRequest) (*domain.Facets, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.checkAvailable(); err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(req.Query)

	facets := domain.EmptyFacets()
	categories := make(map[string]int)
	brands := make(map[string]int)
	colors := make(map[string]int)
	sizes := make(map[string]int)
	first := true

	for _, p := range e.products {
		if !matches(p, req, queryLower) {
			continue
		}
		if first || p.Price < facets.PriceRange.Min {
			facets.PriceRange.Min = p.Price
		}
		if first || p.Price > facets.PriceRange.Max {
			facets.PriceRange.Max = p.Price
		}
		first = false

		if p.CategoryID != "" {
			categories[p.CategoryID]++
		}
		if p.BrandID != "" {
			brands[p.BrandID]++
		}
		for _, c := range p.Colors {
			colors[c]++
		}
		for _, s := range p.Sizes {
			sizes[s]++
		}
	}

	facets.Categories = toCounts(categories)
	facets.Brands = toCounts(brands)
	facets.Colors = toCounts(colors)
	facets.Sizes = toCounts(sizes)
	domain.SortSizes(facets.Sizes)

	return facets, nil
}

func toCounts(m map[string]int) []domain.FacetCount {
	counts := make([]domain.FacetCount, 0, len(m))
	for value, n := range m {
		counts = append(counts, domain.FacetCount{Value: value, Label: value, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Value < counts[j].Value })
	return counts
}

// matches checks whether a product matches the search request's predicates.
func matches(p domain.SearchableProduct, req *domain.SearchRequest, queryLower string) bool {
	if queryLower != "" {
		nameLower := strings.ToLower(p.Name)
		descLower := strings.ToLower(p.Description)
		if !strings.Contains(nameLower, queryLower) && !strings.Contains(descLower, queryLower) {
			return false
		}
	}

	if len(req.CategoryIDs) > 0 && !contains(req.CategoryIDs, p.CategoryID) {
		return false
	}
	if len(req.BrandIDs) > 0 && !contains(req.BrandIDs, p.BrandID) {
		return false
	}
	if len(req.Colors) > 0 && !intersects(req.Colors, p.Colors) {
		return false
	}
	if len(req.Sizes) > 0 && !intersects(req.Sizes, p.Sizes) {
		return false
	}

	if req.MinPrice != nil && p.Price < *req.MinPrice {
		return false
	}
	if req.MaxPrice != nil && p.Price > *req.MaxPrice {
		return false
	}

	if req.OnSale != nil && p.OnSale != *req.OnSale {
		return false
	}
	if req.Featured != nil && p.Featured != *req.Featured {
		return false
	}
	if req.InStock != nil && p.InStock != *req.InStock {
		return false
	}
	if req.MinRating != nil && p.Rating < *req.MinRating {
		return false
	}

	return true
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func intersects(want, have []string) bool {
	for _, w := range want {
		if contains(have, w) {
			return true
		}
	}
	return false
}

// sortProducts orders results in place by the given sort option.
func sortProducts(products []domain.SearchableProduct, sortBy string) {
	switch sortBy {
	case domain.SortPriceAsc:
		sort.Slice(products, func(i, j int) bool { return products[i].Price < products[j].Price })
	case domain.SortPriceDesc:
		sort.Slice(products, func(i, j int) bool { return products[i].Price > products[j].Price })
	case domain.SortNewest:
		sort.Slice(products, func(i, j int) bool { return products[i].CreatedAt.After(products[j].CreatedAt) })
	case domain.SortRating:
		sort.Slice(products, func(i, j int) bool { return products[i].Rating > products[j].Rating })
	default:
		// Stable order for relevance: name ascending.
		sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	}
}
