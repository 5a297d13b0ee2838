package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/peakline/catalog-search/internal/cache"
	"github.com/peakline/catalog-search/internal/domain"
	"github.com/peakline/catalog-search/internal/queue"
	apperrors "github.com/peakline/catalog-search/pkg/errors"
	"github.com/peakline/catalog-search/pkg/httputil"
	"github.com/peakline/catalog-search/pkg/validator"
)

// AdminHandler exposes queue and cache management endpoints.
type AdminHandler struct {
	queue   *queue.Queue
	cache   *cache.Cache
	metrics *cache.Metrics
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(q *queue.Queue, c *cache.Cache, m *cache.Metrics, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		queue:   q,
		cache:   c,
		metrics: m,
		logger:  logger,
	}
}

// QueueStats handles GET /api/v1/admin/queue/stats
func (h *AdminHandler) QueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queue.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, r, apperrors.Unavailable("queue backend unreachable", err), h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: stats})
}

// RetryFailed handles POST /api/v1/admin/queue/retry-failed
func (h *AdminHandler) RetryFailed(w http.ResponseWriter, r *http.Request) {
	n, err := h.queue.RetryAllFailed(r.Context())
	if err != nil {
		httputil.WriteError(w, r, apperrors.Unavailable("queue backend unreachable", err), h.logger)
		return
	}

	h.logger.InfoContext(r.Context(), "failed jobs requeued", slog.Int("count", n))
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]int{"requeued": n}})
}

// ClearQueue handles DELETE /api/v1/admin/queue/{name}
func (h *AdminHandler) ClearQueue(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := h.queue.Clear(r.Context(), name); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput(err.Error()), h.logger)
		return
	}

	h.logger.InfoContext(r.Context(), "queue cleared", slog.String("queue", name))
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"queue": name, "status": "cleared"}})
}

// ReindexRequest is the JSON request body for triggering a full reindex.
type ReindexRequest struct {
	CategoryID string `json:"category_id"`
	BrandID    string `json:"brand_id"`
	Status     string `json:"status" validate:"omitempty,oneof=active draft archived"`
}

// Reindex handles POST /api/v1/admin/reindex. It enqueues a reindex-all job;
// the indexing worker picks it up and streams the catalog in batches.
func (h *AdminHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ReindexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	var filter *domain.ReindexFilter
	if req.CategoryID != "" || req.BrandID != "" || req.Status != "" {
		filter = &domain.ReindexFilter{
			CategoryID: req.CategoryID,
			BrandID:    req.BrandID,
			Status:     req.Status,
		}
	}

	job := domain.NewReindexAllJob(filter)
	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		httputil.WriteError(w, r, apperrors.Unavailable("queue backend unreachable", err), h.logger)
		return
	}

	h.logger.InfoContext(r.Context(), "reindex job enqueued", slog.String("job_id", job.ID))
	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: map[string]string{
		"job_id": job.ID,
		"status": "queued",
	}})
}

// CacheStats handles GET /api/v1/admin/cache/stats
func (h *AdminHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	namespaces := []string{cache.NamespaceSearch, cache.NamespaceSuggestions, cache.NamespaceFacets}

	snapshots := make([]*cache.MetricsSnapshot, 0, len(namespaces))
	for _, ns := range namespaces {
		snap, err := h.metrics.Snapshot(r.Context(), ns)
		if err != nil {
			httputil.WriteError(w, r, apperrors.Unavailable("cache backend unreachable", err), h.logger)
			return
		}
		snapshots = append(snapshots, snap)
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: snapshots})
}

// InvalidateCache handles POST /api/v1/admin/cache/invalidate
func (h *AdminHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.InvalidateAll(r.Context()); err != nil {
		httputil.WriteError(w, r, apperrors.Unavailable("cache backend unreachable", err), h.logger)
		return
	}

	h.logger.InfoContext(r.Context(), "cache invalidated")
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "invalidated"}})
}
