package domain

import (
	"time"
)

// Engine identifiers reported in search results.
const (
	EnginePostgres      = "postgres"
	EngineElasticsearch = "elasticsearch"
)

// Sort options for search results.
const (
	SortRelevance = "relevance"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNewest    = "newest"
	SortRating    = "rating"
)

// ValidSortOptions returns the list of valid sort options.
func ValidSortOptions() []string {
	return []string{SortRelevance, SortPriceAsc, SortPriceDesc, SortNewest, SortRating}
}

// IsValidSort checks whether the given sort string is a valid sort option.
func IsValidSort(sort string) bool {
	for _, s := range ValidSortOptions() {
		if s == sort {
			return true
		}
	}
	return false
}

// SearchRequest holds all parameters for a search, suggest, or facets call.
// It is constructed once per request and never mutated afterwards.
type SearchRequest struct {
	Query       string   `json:"query"`
	Page        int      `json:"page"`
	PerPage     int      `json:"per_page"`
	CategoryIDs []string `json:"category_ids,omitempty"`
	BrandIDs    []string `json:"brand_ids,omitempty"`
	Colors      []string `json:"colors,omitempty"`
	Sizes       []string `json:"sizes,omitempty"`
	MinPrice    *int64   `json:"min_price,omitempty"`
	MaxPrice    *int64   `json:"max_price,omitempty"`
	OnSale      *bool    `json:"on_sale,omitempty"`
	Featured    *bool    `json:"featured,omitempty"`
	InStock     *bool    `json:"in_stock,omitempty"`
	MinRating   *float64 `json:"min_rating,omitempty"`
	SortBy      string   `json:"sort_by"`
	Locale      string   `json:"locale,omitempty"`
	UserID      string   `json:"user_id,omitempty"`
	SessionID   string   `json:"session_id,omitempty"`
}

// HasFilters reports whether any filter beyond the query string is active.
func (r *SearchRequest) HasFilters() bool {
	return len(r.CategoryIDs) > 0 ||
		len(r.BrandIDs) > 0 ||
		len(r.Colors) > 0 ||
		len(r.Sizes) > 0 ||
		r.MinPrice != nil ||
		r.MaxPrice != nil ||
		r.OnSale != nil ||
		r.Featured != nil ||
		r.InStock != nil ||
		r.MinRating != nil
}

// SearchableProduct represents a product document in the search index.
type SearchableProduct struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Slug         string            `json:"slug"`
	Description  string            `json:"description"`
	CategoryID   string            `json:"category_id"`
	CategoryName string            `json:"category_name"`
	BrandID      string            `json:"brand_id"`
	BrandName    string            `json:"brand_name"`
	Price        int64             `json:"price"`
	SalePrice    *int64            `json:"sale_price,omitempty"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	Rating       float64           `json:"rating"`
	OnSale       bool              `json:"on_sale"`
	Featured     bool              `json:"featured"`
	InStock      bool              `json:"in_stock"`
	Colors       []string          `json:"colors"`
	Sizes        []string          `json:"sizes"`
	ImageURL     string            `json:"image_url"`
	Tags         []string          `json:"tags"`
	Attributes   map[string]string `json:"attributes"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// SearchResult holds the paginated search response. Produced fresh per call.
type SearchResult struct {
	Products       []SearchableProduct `json:"products"`
	Total          int                 `json:"total"`
	Page           int                 `json:"page"`
	PerPage        int                 `json:"per_page"`
	CorrectedQuery string              `json:"corrected_query,omitempty"`
	Locale         string              `json:"locale,omitempty"`
	Engine         string              `json:"engine"`
	TookMs         int64               `json:"took_ms"`
	Variant        string              `json:"variant,omitempty"`
}

// EmptySearchResult returns a valid zero-hit result attributed to the given engine.
// It is the terminal value when every backend has failed for a request.
func EmptySearchResult(req *SearchRequest, engine string) *SearchResult {
	page := req.Page
	if page < 1 {
		page = 1
	}
	perPage := req.PerPage
	if perPage < 1 {
		perPage = 20
	}
	return &SearchResult{
		Products: []SearchableProduct{},
		Total:    0,
		Page:     page,
		PerPage:  perPage,
		Locale:   req.Locale,
		Engine:   engine,
	}
}

// Suggestions holds autocomplete terms for a prefix query.
type Suggestions struct {
	Terms  []string `json:"terms"`
	Engine string   `json:"engine"`
	TookMs int64    `json:"took_ms"`
}

// EmptySuggestions returns a valid zero-term suggestion set.
func EmptySuggestions(engine string) *Suggestions {
	return &Suggestions{Terms: []string{}, Engine: engine}
}
