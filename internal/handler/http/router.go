package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/peakline/catalog-search/pkg/health"
	"github.com/peakline/catalog-search/pkg/middleware"
)

// NewRouter creates a chi router with all catalog search routes registered.
func NewRouter(
	searchHandler *SearchHandler,
	adminHandler *AdminHandler,
	healthHandler *health.Handler,
	corsCfg middleware.CORSConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("catalog-search"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Search API endpoints
	r.Route("/api/v1/search", func(r chi.Router) {
		r.Get("/", searchHandler.Search)
		r.Get("/suggest", searchHandler.Suggest)
		r.Get("/facets", searchHandler.Facets)
	})

	// Admin endpoints for queue and cache management
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Get("/queue/stats", adminHandler.QueueStats)
		r.Get("/cache/stats", adminHandler.CacheStats)

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Post("/queue/retry-failed", adminHandler.RetryFailed)
			r.Delete("/queue/{name}", adminHandler.ClearQueue)
			r.Post("/reindex", adminHandler.Reindex)
			r.Post("/cache/invalidate", adminHandler.InvalidateCache)
		})
	})

	return r
}
