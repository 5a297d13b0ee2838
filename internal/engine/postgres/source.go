package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/peakline/catalog-search/internal/domain"
)

// Documents loads searchable documents for the given product IDs from the
// system of record. IDs without a matching product are silently skipped, so
// a stale job for a since-deleted product is not an error.
func (e *Engine) Documents(ctx context.Context, ids []string) ([]domain.SearchableProduct, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT %s,
			COALESCE(array_remove(array_agg(DISTINCT v.color), NULL), '{}'),
			COALESCE(array_remove(array_agg(DISTINCT v.size), NULL), '{}')
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		LEFT JOIN brands b ON b.id = p.brand_id
		LEFT JOIN product_variants v ON v.product_id = p.id
		WHERE p.id::text = ANY($1)
		GROUP BY p.id, c.name, b.name`,
		groupedProductColumns,
	)

	rows, err := e.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	defer rows.Close()

	docs := make([]domain.SearchableProduct, 0, len(ids))
	for rows.Next() {
		var p domain.SearchableProduct
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Slug, &p.Description,
			&p.CategoryID, &p.CategoryName,
			&p.BrandID, &p.BrandName,
			&p.Price, &p.SalePrice, &p.Currency, &p.Status, &p.Rating,
			&p.OnSale, &p.Featured, &p.InStock, &p.ImageURL,
			&p.CreatedAt, &p.UpdatedAt,
			&p.Colors, &p.Sizes,
		); err != nil {
			return nil, fmt.Errorf("load documents: scan row: %w", err)
		}
		docs = append(docs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load documents: iterate rows: %w", err)
	}

	return docs, nil
}

// groupedProductColumns is the select list for document loading, where the
// variant join forces aggregation over product rows.
const groupedProductColumns = `p.id, p.name, p.slug, p.description,
	COALESCE(p.category_id::text, ''), COALESCE(c.name, ''),
	COALESCE(p.brand_id::text, ''), COALESCE(b.name, ''),
	p.price, p.sale_price, p.currency, p.status, p.rating,
	p.on_sale, p.featured, p.in_stock, COALESCE(p.image_url, ''),
	p.created_at, p.updated_at`

// StreamAll walks the entire catalog (optionally narrowed by filter) in
// batches of batchSize, invoking fn for each batch. It is the data source
// for reindex-all jobs; keyset pagination on the product ID keeps memory
// bounded regardless of catalog size.
func (e *Engine) StreamAll(ctx context.Context, filter *domain.ReindexFilter, batchSize int, fn func(batch []domain.SearchableProduct) error) error {
	if batchSize <= 0 {
		batchSize = 100
	}

	conditions := []string{"p.id::text > $1"}
	args := []any{""}
	argIndex := 2

	if filter != nil {
		if filter.CategoryID != "" {
			conditions = append(conditions, fmt.Sprintf("p.category_id::text = $%d", argIndex))
			args = append(args, filter.CategoryID)
			argIndex++
		}
		if filter.BrandID != "" {
			conditions = append(conditions, fmt.Sprintf("p.brand_id::text = $%d", argIndex))
			args = append(args, filter.BrandID)
			argIndex++
		}
		if filter.Status != "" {
			conditions = append(conditions, fmt.Sprintf("p.status = $%d", argIndex))
			args = append(args, filter.Status)
			argIndex++
		}
	}

	query := fmt.Sprintf(`
		SELECT %s,
			COALESCE(array_remove(array_agg(DISTINCT v.color), NULL), '{}'),
			COALESCE(array_remove(array_agg(DISTINCT v.size), NULL), '{}')
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		LEFT JOIN brands b ON b.id = p.brand_id
		LEFT JOIN product_variants v ON v.product_id = p.id
		WHERE %s
		GROUP BY p.id, c.name, b.name
		ORDER BY p.id::text
		LIMIT $%d`,
		groupedProductColumns, strings.Join(conditions, " AND "), argIndex,
	)
	args = append(args, batchSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rows, err := e.pool.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("stream catalog: %w", err)
		}

		batch := make([]domain.SearchableProduct, 0, batchSize)
		for rows.Next() {
			var p domain.SearchableProduct
			if err := rows.Scan(
				&p.ID, &p.Name, &p.Slug, &p.Description,
				&p.CategoryID, &p.CategoryName,
				&p.BrandID, &p.BrandName,
				&p.Price, &p.SalePrice, &p.Currency, &p.Status, &p.Rating,
				&p.OnSale, &p.Featured, &p.InStock, &p.ImageURL,
				&p.CreatedAt, &p.UpdatedAt,
				&p.Colors, &p.Sizes,
			); err != nil {
				rows.Close()
				return fmt.Errorf("stream catalog: scan row: %w", err)
			}
			batch = append(batch, p)
		}
		rowsErr := rows.Err()
		rows.Close()
		if rowsErr != nil {
			return fmt.Errorf("stream catalog: iterate rows: %w", rowsErr)
		}

		if len(batch) == 0 {
			return nil
		}

		if err := fn(batch); err != nil {
			return err
		}

		// Advance the keyset cursor.
		args[0] = batch[len(batch)-1].ID

		if len(batch) < batchSize {
			return nil
		}
	}
}
