package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/peakline/catalog-search/internal/domain"
)

// esFacetsResponse decodes the aggregations section of a facets query.
type esFacetsResponse struct {
	Aggregations struct {
		PriceRange struct {
			Min *float64 `json:"min"`
			Max *float64 `json:"max"`
		} `json:"price_range"`
		Categories esTermsAgg `json:"categories"`
		Brands     esTermsAgg `json:"brands"`
		Colors     esTermsAgg `json:"colors"`
		Sizes      esTermsAgg `json:"sizes"`
	} `json:"aggregations"`
}

type esTermsAgg struct {
	Buckets []struct {
		Key      string `json:"key"`
		DocCount int    `json:"doc_count"`
	} `json:"buckets"`
}

// Facets computes filter counts for the request's query context with a
// single aggregations request over the filtered working set.
func (e *Engine) Facets(ctx context.Context, req *domain.SearchRequest) (*domain.Facets, error) {
	var mustClause interface{}
	if req.Query != "" {
		mustClause = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     req.Query,
				"fields":    []string{"name^3", "description", "category_name", "brand_name", "tags"},
				"fuzziness": "AUTO",
			},
		}
	} else {
		mustClause = map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	}

	boolQuery := map[string]interface{}{
		"must":   []interface{}{mustClause},
		"filter": e.buildFilters(req),
	}

	esQuery := map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"size":  0,
		"aggs": map[string]interface{}{
			"price_range": map[string]interface{}{
				"stats": map[string]interface{}{"field": "price"},
			},
			"categories": map[string]interface{}{
				"terms": map[string]interface{}{"field": "category_id", "size": 50},
			},
			"brands": map[string]interface{}{
				"terms": map[string]interface{}{"field": "brand_id", "size": 50},
			},
			"colors": map[string]interface{}{
				"terms": map[string]interface{}{"field": "colors", "size": 50},
			},
			"sizes": map[string]interface{}{
				"terms": map[string]interface{}{"field": "sizes", "size": 50},
			},
		},
	}

	data, err := json.Marshal(esQuery)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch facets: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch facets: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		var errResp esErrorResponse
		if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil {
			return nil, fmt.Errorf("elasticsearch facets: %s: %s", errResp.Error.Type, errResp.Error.Reason)
		}
		return nil, fmt.Errorf("elasticsearch facets: unexpected status %s", res.Status())
	}

	var esResp esFacetsResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch facets: decode response: %w", err)
	}

	facets := domain.EmptyFacets()
	aggs := esResp.Aggregations

	if aggs.PriceRange.Min != nil {
		facets.PriceRange.Min = int64(*aggs.PriceRange.Min)
	}
	if aggs.PriceRange.Max != nil {
		facets.PriceRange.Max = int64(*aggs.PriceRange.Max)
	}

	toCounts := func(agg esTermsAgg) []domain.FacetCount {
		counts := make([]domain.FacetCount, 0, len(agg.Buckets))
		for _, b := range agg.Buckets {
			counts = append(counts, domain.FacetCount{Value: b.Key, Label: b.Key, Count: b.DocCount})
		}
		return counts
	}

	facets.Categories = toCounts(aggs.Categories)
	facets.Brands = toCounts(aggs.Brands)
	facets.Colors = toCounts(aggs.Colors)
	facets.Sizes = toCounts(aggs.Sizes)

	domain.SortSizes(facets.Sizes)

	return facets, nil
}
