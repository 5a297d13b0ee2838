package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakline/catalog-search/internal/domain"
	"github.com/peakline/catalog-search/pkg/database"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupEngine(t *testing.T) (*Engine, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return New(mock, newTestLogger()), mock
}

var searchColumns = []string{
	"id", "name", "slug", "description",
	"category_id", "category_name", "brand_id", "brand_name",
	"price", "sale_price", "currency", "status", "rating",
	"on_sale", "featured", "in_stock", "image_url",
	"created_at", "updated_at", "total_count",
}

var documentColumns = []string{
	"id", "name", "slug", "description",
	"category_id", "category_name", "brand_id", "brand_name",
	"price", "sale_price", "currency", "status", "rating",
	"on_sale", "featured", "in_stock", "image_url",
	"created_at", "updated_at", "colors", "sizes",
}

var sampleTime = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

func addSearchRow(rows *pgxmock.Rows, id, name string, total int) *pgxmock.Rows {
	return rows.AddRow(
		id, name, name+"-slug", "description",
		"cat-1", "Footwear", "brand-1", "Northpeak",
		int64(12900), nil, "EUR", "active", 4.5,
		false, false, true, "",
		sampleTime, sampleTime, total,
	)
}

func addDocumentRow(rows *pgxmock.Rows, id, name string) *pgxmock.Rows {
	return rows.AddRow(
		id, name, name+"-slug", "description",
		"cat-1", "Footwear", "brand-1", "Northpeak",
		int64(12900), nil, "EUR", "active", 4.5,
		false, false, true, "",
		sampleTime, sampleTime, []string{"brown"}, []string{"42"},
	)
}

func TestEngine_Name(t *testing.T) {
	e, mock := setupEngine(t)
	defer mock.Close()

	assert.Equal(t, domain.EnginePostgres, e.Name())
}

func TestEngine_Health(t *testing.T) {
	e, mock := setupEngine(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT 1").
		WillReturnRows(pgxmock.NewRows([]string{"one"}).AddRow(1))

	assert.NoError(t, e.Health(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_Health_Unreachable(t *testing.T) {
	e, mock := setupEngine(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT 1").
		WillReturnError(errors.New("connection refused"))

	assert.Error(t, e.Health(context.Background()))
}

func TestEngine_Search_Success(t *testing.T) {
	e, mock := setupEngine(t)
	defer mock.Close()

	rows := pgxmock.NewRows(searchColumns)
	addSearchRow(rows, "p1", "Trail Boots", 2)
	addSearchRow(rows, "p2", "Winter Boots", 2)

	mock.ExpectQuery("SELECT .+ FROM products p").
		WithArgs("%boots%", 20, 0).
		WillReturnRows(rows)

	result, err := e.Search(context.Background(), &domain.SearchRequest{Query: "boots"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	require.Len(t, result.Products, 2)
	assert.Equal(t, "p1", result.Products[0].ID)
	assert.Equal(t, "Trail Boots", result.Products[0].Name)
	assert.Equal(t, int64(12900), result.Products[0].Price)
	assert.Equal(t, domain.EnginePostgres, result.Engine)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 20, result.PerPage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_Search_PaginationOffset(t *testing.T) {
	e, mock := setupEngine(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM products p").
		WithArgs("%boots%", 10, 20).
		WillReturnRows(pgxmock.NewRows(searchColumns))

	result, err := e.Search(context.Background(), &domain.SearchRequest{Query: "boots", Page: 3, PerPage: 10})
	require.NoError(t, err)
	assert.Zero(t, result.Total)
	assert.Equal(t, 3, result.Page)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_Search_QueryError(t *testing.T) {
	e, mock := setupEngine(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM products p").
		WillReturnError(errors.New("connection reset"))

	result, err := e.Search(context.Background(), &domain.SearchRequest{Query: "boots"})
	assert.Nil(t, result)
	assert.Error(t, err)
}

func TestEngine_Suggest_Success(t *testing.T) {
	e, mock := setupEngine(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT DISTINCT name").
		WithArgs("trail%", 10).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).
			AddRow("Trail Boots").
			AddRow("Trail Runners"))

	result, err := e.Suggest(context.Background(), &domain.SearchRequest{Query: "trail"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Trail Boots", "Trail Runners"}, result.Terms)
	assert.Equal(t, domain.EnginePostgres, result.Engine)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_Documents_SkipsMissingIDs(t *testing.T) {
	e, mock := setupEngine(t)
	defer mock.Close()

	rows := pgxmock.NewRows(documentColumns)
	addDocumentRow(rows, "p1", "Trail Boots")

	mock.ExpectQuery("SELECT .+ FROM products p").
		WithArgs([]string{"p1", "p-gone"}).
		WillReturnRows(rows)

	docs, err := e.Documents(context.Background(), []string{"p1", "p-gone"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "p1", docs[0].ID)
	assert.Equal(t, []string{"brown"}, docs[0].Colors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_Documents_NoIDs(t *testing.T) {
	e, mock := setupEngine(t)
	defer mock.Close()

	docs, err := e.Documents(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestEngine_StreamAll_KeysetPagination(t *testing.T) {
	e, mock := setupEngine(t)
	defer mock.Close()

	first := pgxmock.NewRows(documentColumns)
	addDocumentRow(first, "p1", "Trail Boots")
	addDocumentRow(first, "p2", "Road Runners")
	mock.ExpectQuery("SELECT .+ FROM products p").
		WithArgs("", 2).
		WillReturnRows(first)

	second := pgxmock.NewRows(documentColumns)
	addDocumentRow(second, "p3", "Rain Jacket")
	mock.ExpectQuery("SELECT .+ FROM products p").
		WithArgs("p2", 2).
		WillReturnRows(second)

	var batches [][]string
	err := e.StreamAll(context.Background(), nil, 2, func(batch []domain.SearchableProduct) error {
		ids := make([]string, 0, len(batch))
		for _, p := range batch {
			ids = append(ids, p.ID)
		}
		batches = append(batches, ids)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"p1", "p2"}, {"p3"}}, batches)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_StreamAll_FilterNarrowsQuery(t *testing.T) {
	e, mock := setupEngine(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM products p").
		WithArgs("", "active", 100).
		WillReturnRows(pgxmock.NewRows(documentColumns))

	err := e.StreamAll(context.Background(), &domain.ReindexFilter{Status: "active"}, 100, func([]domain.SearchableProduct) error {
		t.Fatal("no batches expected")
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildWhere_ActivePredicatesOnly(t *testing.T) {
	minPrice := int64(1000)
	onSale := true
	req := &domain.SearchRequest{
		Query:       "boots",
		CategoryIDs: []string{"cat-1"},
		MinPrice:    &minPrice,
		OnSale:      &onSale,
	}

	where, args := buildWhere(req)

	assert.Contains(t, where, "p.status = 'active'")
	assert.Contains(t, where, "p.approval_status = 'approved'")
	assert.Contains(t, where, "p.name ILIKE $1")
	assert.Contains(t, where, "p.category_id::text = ANY($2)")
	assert.Contains(t, where, "p.price >= $3")
	assert.Contains(t, where, "p.on_sale = $4")
	assert.Equal(t, []any{"%boots%", []string{"cat-1"}, int64(1000), true}, args)
}

func TestBuildWhere_NoFilters(t *testing.T) {
	where, args := buildWhere(&domain.SearchRequest{})

	assert.Equal(t, "WHERE p.status = 'active' AND p.approval_status = 'approved'", where)
	assert.Empty(t, args)
}

func TestBuildOrderBy(t *testing.T) {
	assert.Equal(t, "ORDER BY p.price ASC", buildOrderBy(domain.SortPriceAsc))
	assert.Equal(t, "ORDER BY p.price DESC", buildOrderBy(domain.SortPriceDesc))
	assert.Equal(t, "ORDER BY p.created_at DESC", buildOrderBy(domain.SortNewest))
	assert.Equal(t, "ORDER BY p.rating DESC", buildOrderBy(domain.SortRating))
	assert.Equal(t, "ORDER BY p.created_at DESC", buildOrderBy(domain.SortRelevance))
}
