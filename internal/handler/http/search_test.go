package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakline/catalog-search/internal/cache"
	"github.com/peakline/catalog-search/internal/domain"
	"github.com/peakline/catalog-search/internal/engine/memory"
	"github.com/peakline/catalog-search/internal/orchestrator"
	"github.com/peakline/catalog-search/internal/queue"
	"github.com/peakline/catalog-search/pkg/health"
	"github.com/peakline/catalog-search/pkg/middleware"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	router http.Handler
	pg     *memory.Engine
	es     *memory.Engine
	queue  *queue.Queue
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := newTestLogger()

	pg := memory.NewNamed(domain.EnginePostgres)
	es := memory.New()
	store := cache.NewMemStore()
	metrics := cache.NewMetrics(store, time.Hour, logger)
	c := cache.New(store, metrics, logger)
	tracker := orchestrator.NewHealthTracker(es, 30*time.Second, 2*time.Second, logger)
	perf := orchestrator.NewPerfTracker(store, time.Hour, logger)
	orch := orchestrator.New(orchestrator.Config{PreferEngine: true}, pg, es, tracker, c, perf, logger)
	// Retries fire synchronously so queue state is observable right after Fail.
	q := queue.New(store, logger, queue.WithScheduler(func(_ time.Duration, fn func()) { fn() }))

	router := NewRouter(
		NewSearchHandler(orch, logger),
		NewAdminHandler(q, c, metrics, logger),
		health.NewHandler(),
		middleware.DefaultCORSConfig(),
		logger,
	)

	return &testServer{router: router, pg: pg, es: es, queue: q}
}

func (s *testServer) seed(t *testing.T, products ...domain.SearchableProduct) {
	t.Helper()
	require.NoError(t, s.pg.BulkIndex(context.Background(), products))
	require.NoError(t, s.es.BulkIndex(context.Background(), products))
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (code, message string) {
	t.Helper()
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Error.Code, envelope.Error.Message
}

func TestSearchEndpoint_ReturnsResults(t *testing.T) {
	s := newTestServer(t)
	s.seed(t,
		domain.SearchableProduct{ID: "p1", Name: "Trail Boots", Price: 12900, InStock: true},
		domain.SearchableProduct{ID: "p2", Name: "Road Runners", Price: 9900, InStock: true},
	)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=boots", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeData[domain.SearchResult](t, rec)
	assert.Equal(t, 1, result.Total)
	require.Len(t, result.Products, 1)
	assert.Equal(t, "p1", result.Products[0].ID)
	assert.Equal(t, domain.EngineElasticsearch, result.Engine)
}

func TestSearchEndpoint_DefaultsPagination(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/search", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeData[domain.SearchResult](t, rec)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 20, result.PerPage)
}

func TestSearchEndpoint_OversizedPerPageIgnored(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/search?per_page=500", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeData[domain.SearchResult](t, rec)
	assert.Equal(t, 20, result.PerPage)
}

func TestSearchEndpoint_FiltersApplied(t *testing.T) {
	s := newTestServer(t)
	s.seed(t,
		domain.SearchableProduct{ID: "p1", Name: "Trail Boots", CategoryID: "footwear", Price: 12900},
		domain.SearchableProduct{ID: "p2", Name: "Rain Jacket", CategoryID: "outerwear", Price: 15900},
	)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/search?category_id=outerwear", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeData[domain.SearchResult](t, rec)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, "p2", result.Products[0].ID)
}

func TestSearchEndpoint_InvalidSortRejected(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/search?sort=alphabetical", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	code, message := decodeError(t, rec)
	assert.Equal(t, "INVALID_PARAMETER", code)
	assert.Contains(t, message, "sort")
}

func TestSearchEndpoint_PriceBoundsValidated(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name  string
		query string
	}{
		{"negative_min", "min_price=-5"},
		{"non_numeric_max", "max_price=abc"},
		{"inverted_range", "min_price=500&max_price=100"},
		{"rating_out_of_range", "min_rating=6"},
		{"bad_bool", "on_sale=maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/search?"+tt.query, nil))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			code, _ := decodeError(t, rec)
			assert.Equal(t, "INVALID_PARAMETER", code)
		})
	}
}

func TestSuggestEndpoint_EmptyQueryShortCircuits(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, domain.SearchableProduct{ID: "p1", Name: "Trail Boots"})

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/search/suggest", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	suggestions := decodeData[domain.Suggestions](t, rec)
	assert.Empty(t, suggestions.Terms)
}

func TestSuggestEndpoint_ReturnsTerms(t *testing.T) {
	s := newTestServer(t)
	s.seed(t,
		domain.SearchableProduct{ID: "p1", Name: "Trail Boots"},
		domain.SearchableProduct{ID: "p2", Name: "Trail Runners"},
	)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/search/suggest?q=trail", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	suggestions := decodeData[domain.Suggestions](t, rec)
	assert.Equal(t, []string{"Trail Boots", "Trail Runners"}, suggestions.Terms)
}

func TestFacetsEndpoint_ReturnsCounts(t *testing.T) {
	s := newTestServer(t)
	s.seed(t,
		domain.SearchableProduct{ID: "p1", Name: "Trail Boots", CategoryID: "footwear", Price: 12900},
		domain.SearchableProduct{ID: "p2", Name: "Road Runners", CategoryID: "footwear", Price: 9900},
	)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/search/facets", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	facets := decodeData[domain.Facets](t, rec)
	require.Len(t, facets.Categories, 1)
	assert.Equal(t, "footwear", facets.Categories[0].Value)
	assert.Equal(t, 2, facets.Categories[0].Count)
	assert.Equal(t, int64(9900), facets.PriceRange.Min)
	assert.Equal(t, int64(12900), facets.PriceRange.Max)
}

func TestHealthLiveEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
