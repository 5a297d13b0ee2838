package engine

import (
	"context"

	"github.com/peakline/catalog-search/internal/domain"
)

// SearchBackend answers read queries. The relational catalog store and the
// external search engine both implement it, and the orchestrator treats the
// two as interchangeable per request.
type SearchBackend interface {
	// Name returns the engine identifier reported in results.
	Name() string

	// Search executes a search query and returns matching products.
	Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResult, error)

	// Suggest returns autocomplete terms for the request's query prefix.
	Suggest(ctx context.Context, req *domain.SearchRequest) (*domain.Suggestions, error)

	// Facets computes filter counts for the request's query context.
	Facets(ctx context.Context, req *domain.SearchRequest) (*domain.Facets, error)
}

// Indexer maintains documents in the external search index. Upserts and
// deletes are idempotent, so at-least-once job delivery is safe.
type Indexer interface {
	// Index adds or updates a single product document.
	Index(ctx context.Context, product *domain.SearchableProduct) error

	// Delete removes a product document by ID. Missing documents are not an error.
	Delete(ctx context.Context, id string) error

	// BulkIndex adds or updates multiple product documents.
	BulkIndex(ctx context.Context, products []domain.SearchableProduct) error
}

// HealthChecker reports backend liveness. The orchestrator's availability
// flag is recomputed through this probe.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// StatsProvider exposes index-level statistics for administrative tooling.
type StatsProvider interface {
	Stats(ctx context.Context) (*IndexStats, error)
}

// IndexStats holds document-count statistics for the external index.
type IndexStats struct {
	DocumentCount int64  `json:"document_count"`
	IndexName     string `json:"index_name"`
}
