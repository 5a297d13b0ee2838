package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/peakline/catalog-search/internal/domain"
	"github.com/peakline/catalog-search/internal/orchestrator"
	"github.com/peakline/catalog-search/pkg/httputil"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// SearchHandler handles HTTP requests for search, suggest, and facets endpoints.
type SearchHandler struct {
	orch   *orchestrator.Orchestrator
	logger *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(orch *orchestrator.Orchestrator, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		orch:   orch,
		logger: logger,
	}
}

// Search handles GET /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	result := h.orch.Search(r.Context(), req)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Suggest handles GET /api/v1/search/suggest
func (h *SearchHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	if req.Query == "" {
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: domain.EmptySuggestions("")})
		return
	}

	suggestions := h.orch.Suggest(r.Context(), req)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: suggestions})
}

// Facets handles GET /api/v1/search/facets
func (h *SearchHandler) Facets(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	facets := h.orch.Facets(r.Context(), req)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: facets})
}

// parseRequest builds a SearchRequest from query parameters. On invalid input
// it writes a 400 response and returns ok=false.
func (h *SearchHandler) parseRequest(w http.ResponseWriter, r *http.Request) (*domain.SearchRequest, bool) {
	q := r.URL.Query()

	sortBy := q.Get("sort")
	if sortBy == "" {
		sortBy = domain.SortRelevance
	}
	if !domain.IsValidSort(sortBy) {
		writeParamError(w, "sort must be one of: "+strings.Join(domain.ValidSortOptions(), ", "))
		return nil, false
	}

	req := &domain.SearchRequest{
		Query:     strings.TrimSpace(q.Get("q")),
		Page:      1,
		PerPage:   defaultPerPage,
		SortBy:    sortBy,
		Locale:    q.Get("locale"),
		UserID:    r.Header.Get("X-User-ID"),
		SessionID: r.Header.Get("X-Session-ID"),
	}

	req.CategoryIDs = splitParam(q.Get("category_id"))
	req.BrandIDs = splitParam(q.Get("brand_id"))
	req.Colors = splitParam(q.Get("colors"))
	req.Sizes = splitParam(q.Get("sizes"))

	if v := q.Get("min_price"); v != "" {
		price, err := strconv.ParseInt(v, 10, 64)
		if err != nil || price < 0 {
			writeParamError(w, "min_price must be a non-negative integer")
			return nil, false
		}
		req.MinPrice = &price
	}
	if v := q.Get("max_price"); v != "" {
		price, err := strconv.ParseInt(v, 10, 64)
		if err != nil || price < 0 {
			writeParamError(w, "max_price must be a non-negative integer")
			return nil, false
		}
		req.MaxPrice = &price
	}
	if req.MinPrice != nil && req.MaxPrice != nil && *req.MinPrice > *req.MaxPrice {
		writeParamError(w, "min_price must not exceed max_price")
		return nil, false
	}

	if v := q.Get("min_rating"); v != "" {
		rating, err := strconv.ParseFloat(v, 64)
		if err != nil || rating < 0 || rating > 5 {
			writeParamError(w, "min_rating must be a number between 0 and 5")
			return nil, false
		}
		req.MinRating = &rating
	}

	for param, dst := range map[string]**bool{
		"on_sale":  &req.OnSale,
		"featured": &req.Featured,
		"in_stock": &req.InStock,
	} {
		if v := q.Get(param); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				writeParamError(w, param+" must be a boolean")
				return nil, false
			}
			*dst = &b
		}
	}

	if v := q.Get("page"); v != "" {
		if page, err := strconv.Atoi(v); err == nil && page > 0 {
			req.Page = page
		}
	}
	if v := q.Get("per_page"); v != "" {
		if perPage, err := strconv.Atoi(v); err == nil && perPage > 0 && perPage <= maxPerPage {
			req.PerPage = perPage
		}
	}

	return req, true
}

// splitParam splits a comma-separated query parameter into trimmed values.
func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil
	}
	return values
}

func writeParamError(w http.ResponseWriter, message string) {
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: message},
	})
}
