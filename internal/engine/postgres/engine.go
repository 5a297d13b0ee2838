package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/peakline/catalog-search/internal/domain"
	"github.com/peakline/catalog-search/pkg/database"
)

// Engine is the relational-store search backend. It is always authoritative
// for product data and serves as the fallback target when the external
// search engine is unavailable or degraded.
type Engine struct {
	pool   database.DBTX
	logger *slog.Logger
}

// New creates a new PostgreSQL-backed search engine.
func New(pool database.DBTX, logger *slog.Logger) *Engine {
	return &Engine{pool: pool, logger: logger}
}

// Name returns the engine identifier reported in results.
func (e *Engine) Name() string {
	return domain.EnginePostgres
}

// Health checks whether the database is reachable.
func (e *Engine) Health(ctx context.Context) error {
	var one int
	if err := e.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

// productColumns is the select list shared by Search and the reindex source.
const productColumns = `p.id, p.name, p.slug, p.description,
	COALESCE(p.category_id::text, ''), COALESCE(c.name, ''),
	COALESCE(p.brand_id::text, ''), COALESCE(b.name, ''),
	p.price, p.sale_price, p.currency, p.status, p.rating,
	p.on_sale, p.featured, p.in_stock, COALESCE(p.image_url, ''),
	p.created_at, p.updated_at`

// Search executes a search query against the catalog database.
func (e *Engine) Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResult, error) {
	start := time.Now()

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

	where, args := buildWhere(req)
	argIndex := len(args) + 1

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		LEFT JOIN brands b ON b.id = p.brand_id
		%s
		%s
		LIMIT $%d OFFSET $%d`,
		productColumns, where, buildOrderBy(req.SortBy), argIndex, argIndex+1,
	)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := e.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres search: %w", err)
	}
	defer rows.Close()

	products := make([]domain.SearchableProduct, 0, perPage)
	total := 0

	for rows.Next() {
		var p domain.SearchableProduct
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Slug, &p.Description,
			&p.CategoryID, &p.CategoryName,
			&p.BrandID, &p.BrandName,
			&p.Price, &p.SalePrice, &p.Currency, &p.Status, &p.Rating,
			&p.OnSale, &p.Featured, &p.InStock, &p.ImageURL,
			&p.CreatedAt, &p.UpdatedAt,
			&total,
		); err != nil {
			return nil, fmt.Errorf("postgres search: scan row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres search: iterate rows: %w", err)
	}

	return &domain.SearchResult{
		Products: products,
		Total:    total,
		Page:     page,
		PerPage:  perPage,
		Locale:   req.Locale,
		Engine:   domain.EnginePostgres,
		TookMs:   time.Since(start).Milliseconds(),
	}, nil
}

// Suggest returns autocomplete terms via a prefix match on product names.
func (e *Engine) Suggest(ctx context.Context, req *domain.SearchRequest) (*domain.Suggestions, error) {
	start := time.Now()

	limit := req.PerPage
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT DISTINCT name
		FROM products
		WHERE status = 'active' AND approval_status = 'approved'
		  AND name ILIKE $1
		ORDER BY name
		LIMIT $2`

	rows, err := e.pool.Query(ctx, query, req.Query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("postgres suggest: %w", err)
	}
	defer rows.Close()

	terms := make([]string, 0, limit)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("postgres suggest: scan row: %w", err)
		}
		terms = append(terms, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres suggest: iterate rows: %w", err)
	}

	return &domain.Suggestions{
		Terms:  terms,
		Engine: domain.EnginePostgres,
		TookMs: time.Since(start).Milliseconds(),
	}, nil
}

// buildWhere constructs the WHERE clause and argument list for the active
// predicates of a search request. Only active, approved products are visible.
func buildWhere(req *domain.SearchRequest) (string, []any) {
	conditions := []string{
		"p.status = 'active'",
		"p.approval_status = 'approved'",
	}
	var args []any
	argIndex := 1

	if req.Query != "" {
		conditions = append(conditions,
			fmt.Sprintf("(p.name ILIKE $%d OR p.description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+req.Query+"%")
		argIndex++
	}

	membership := func(column string, values []string) {
		if len(values) > 0 {
			conditions = append(conditions, fmt.Sprintf("%s = ANY($%d)", column, argIndex))
			args = append(args, values)
			argIndex++
		}
	}
	membership("p.category_id::text", req.CategoryIDs)
	membership("p.brand_id::text", req.BrandIDs)

	if len(req.Colors) > 0 {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM product_variants v WHERE v.product_id = p.id AND v.color = ANY($%d))", argIndex))
		args = append(args, req.Colors)
		argIndex++
	}
	if len(req.Sizes) > 0 {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM product_variants v WHERE v.product_id = p.id AND v.size = ANY($%d))", argIndex))
		args = append(args, req.Sizes)
		argIndex++
	}

	if req.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("p.price >= $%d", argIndex))
		args = append(args, *req.MinPrice)
		argIndex++
	}
	if req.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("p.price <= $%d", argIndex))
		args = append(args, *req.MaxPrice)
		argIndex++
	}

	boolCond := func(column string, value *bool) {
		if value != nil {
			conditions = append(conditions, fmt.Sprintf("%s = $%d", column, argIndex))
			args = append(args, *value)
			argIndex++
		}
	}
	boolCond("p.on_sale", req.OnSale)
	boolCond("p.featured", req.Featured)
	boolCond("p.in_stock", req.InStock)

	if req.MinRating != nil {
		conditions = append(conditions, fmt.Sprintf("p.rating >= $%d", argIndex))
		args = append(args, *req.MinRating)
		argIndex++
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// buildOrderBy maps a sort option to an ORDER BY clause.
func buildOrderBy(sortBy string) string {
	switch sortBy {
	case domain.SortPriceAsc:
		return "ORDER BY p.price ASC"
	case domain.SortPriceDesc:
		return "ORDER BY p.price DESC"
	case domain.SortNewest:
		return "ORDER BY p.created_at DESC"
	case domain.SortRating:
		return "ORDER BY p.rating DESC"
	default:
		// Relevance has no meaning for ILIKE matching; newest first is the
		// stable default.
		return "ORDER BY p.created_at DESC"
	}
}
