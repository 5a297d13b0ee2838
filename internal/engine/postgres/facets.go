package postgres

import (
	"context"
	"fmt"

	"github.com/peakline/catalog-search/internal/domain"
)

// Facets computes price range and category/brand/color/size counts for the
// request's query context in a single multi-CTE statement. Every summary is
// derived from the same filtered working set, so the counts are mutually
// consistent. Color and size counts come from product variants but count
// distinct parent products, not variant rows.
func (e *Engine) Facets(ctx context.Context, req *domain.SearchRequest) (*domain.Facets, error) {
	where, args := buildWhere(req)

	query := fmt.Sprintf(`
		WITH base AS (
			SELECT p.id, p.price, p.category_id, p.brand_id
			FROM products p
			%s
		),
		price_range AS (
			SELECT COALESCE(MIN(price), 0) AS min_price, COALESCE(MAX(price), 0) AS max_price
			FROM base
		),
		category_counts AS (
			SELECT c.id::text AS value, c.name AS label, count(*) AS cnt
			FROM base
			JOIN categories c ON c.id = base.category_id AND c.status = 'active'
			GROUP BY c.id, c.name
			HAVING count(*) > 0
		),
		brand_counts AS (
			SELECT b.id::text AS value, b.name AS label, count(*) AS cnt
			FROM base
			JOIN brands b ON b.id = base.brand_id AND b.status = 'active'
			GROUP BY b.id, b.name
			HAVING count(*) > 0
		),
		color_counts AS (
			SELECT v.color AS value, v.color AS label, count(DISTINCT v.product_id) AS cnt
			FROM product_variants v
			JOIN base ON base.id = v.product_id
			WHERE v.color IS NOT NULL AND v.color <> ''
			GROUP BY v.color
		),
		size_counts AS (
			SELECT v.size AS value, v.size AS label, count(DISTINCT v.product_id) AS cnt
			FROM product_variants v
			JOIN base ON base.id = v.product_id
			WHERE v.size IS NOT NULL AND v.size <> ''
			GROUP BY v.size
		)
		SELECT 'price' AS facet, '' AS value, '' AS label, min_price AS a, max_price AS b FROM price_range
		UNION ALL
		SELECT 'category', value, label, cnt, 0 FROM category_counts
		UNION ALL
		SELECT 'brand', value, label, cnt, 0 FROM brand_counts
		UNION ALL
		SELECT 'color', value, label, cnt, 0 FROM color_counts
		UNION ALL
		SELECT 'size', value, label, cnt, 0 FROM size_counts`,
		where,
	)

	rows, err := e.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres facets: %w", err)
	}
	defer rows.Close()

	facets := domain.EmptyFacets()

	for rows.Next() {
		var (
			facet, value, label string
			a, b                int64
		)
		if err := rows.Scan(&facet, &value, &label, &a, &b); err != nil {
			return nil, fmt.Errorf("postgres facets: scan row: %w", err)
		}

		switch facet {
		case "price":
			facets.PriceRange.Min = a
			facets.PriceRange.Max = b
		case "category":
			facets.Categories = append(facets.Categories, domain.FacetCount{Value: value, Label: label, Count: int(a)})
		case "brand":
			facets.Brands = append(facets.Brands, domain.FacetCount{Value: value, Label: label, Count: int(a)})
		case "color":
			facets.Colors = append(facets.Colors, domain.FacetCount{Value: value, Label: label, Count: int(a)})
		case "size":
			facets.Sizes = append(facets.Sizes, domain.FacetCount{Value: value, Label: label, Count: int(a)})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres facets: iterate rows: %w", err)
	}

	domain.SortSizes(facets.Sizes)

	return facets, nil
}
