package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidSort(t *testing.T) {
	for _, s := range ValidSortOptions() {
		assert.True(t, IsValidSort(s), s)
	}
	assert.False(t, IsValidSort("price"))
	assert.False(t, IsValidSort(""))
}

func TestSearchRequest_HasFilters(t *testing.T) {
	assert.False(t, (&SearchRequest{Query: "shoes", SortBy: SortNewest, Page: 3}).HasFilters())

	minPrice := int64(1000)
	onSale := true
	rating := 4.0

	cases := []struct {
		name string
		req  SearchRequest
	}{
		{"categories", SearchRequest{CategoryIDs: []string{"cat-1"}}},
		{"brands", SearchRequest{BrandIDs: []string{"brand-1"}}},
		{"colors", SearchRequest{Colors: []string{"red"}}},
		{"sizes", SearchRequest{Sizes: []string{"M"}}},
		{"min price", SearchRequest{MinPrice: &minPrice}},
		{"max price", SearchRequest{MaxPrice: &minPrice}},
		{"on sale", SearchRequest{OnSale: &onSale}},
		{"featured", SearchRequest{Featured: &onSale}},
		{"in stock", SearchRequest{InStock: &onSale}},
		{"min rating", SearchRequest{MinRating: &rating}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.req.HasFilters())
		})
	}
}

func TestEmptySearchResult_PreservesRequestContext(t *testing.T) {
	req := &SearchRequest{Query: "boots", Page: 3, PerPage: 50, Locale: "de"}

	result := EmptySearchResult(req, EnginePostgres)

	assert.NotNil(t, result.Products)
	assert.Empty(t, result.Products)
	assert.Equal(t, 0, result.Total)
	assert.Equal(t, 3, result.Page)
	assert.Equal(t, 50, result.PerPage)
	assert.Equal(t, "de", result.Locale)
	assert.Equal(t, EnginePostgres, result.Engine)
}

func TestEmptySearchResult_DefaultsPagination(t *testing.T) {
	result := EmptySearchResult(&SearchRequest{}, EngineElasticsearch)

	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 20, result.PerPage)
}
