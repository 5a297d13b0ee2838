package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/peakline/catalog-search/internal/cache"
	"github.com/peakline/catalog-search/internal/domain"
	"github.com/peakline/catalog-search/internal/engine"
)

// Config holds the orchestrator's feature flags and cache TTLs.
type Config struct {
	// PreferEngine routes eligible requests to the external search engine
	// when it is available.
	PreferEngine bool

	// ABTestEnabled splits sessions deterministically between backends and
	// records performance samples.
	ABTestEnabled bool

	SearchTTL      time.Duration
	SuggestionsTTL time.Duration
	FacetsTTL      time.Duration
}

// Orchestrator is the façade consumed by request handlers. It chooses a
// backend per request, executes the call, detects unsatisfactory results,
// falls back transparently, and records A/B performance samples. Every
// public operation is a total function: backend and cache failures surface
// as fewer or worse results, never as errors.
//
// The orchestrator is request-scoped and stateless aside from the shared
// availability flag, so any number of requests may run concurrently.
type Orchestrator struct {
	cfg     Config
	primary engine.SearchBackend // system of record, always authoritative
	search  engine.SearchBackend // external engine, eventually consistent
	health  *HealthTracker
	cache   *cache.Cache
	perf    *PerfTracker
	logger  *slog.Logger
}

// New creates an orchestrator over the two backends.
func New(cfg Config, primary, search engine.SearchBackend, health *HealthTracker, c *cache.Cache, perf *PerfTracker, logger *slog.Logger) *Orchestrator {
	if cfg.SearchTTL <= 0 {
		cfg.SearchTTL = 5 * time.Minute
	}
	if cfg.SuggestionsTTL <= 0 {
		cfg.SuggestionsTTL = 10 * time.Minute
	}
	if cfg.FacetsTTL <= 0 {
		cfg.FacetsTTL = 5 * time.Minute
	}
	return &Orchestrator{
		cfg:     cfg,
		primary: primary,
		search:  search,
		health:  health,
		cache:   c,
		perf:    perf,
		logger:  logger,
	}
}

// selectBackend evaluates the routing rules once per call and returns the
// chosen backend plus the A/B variant tag, if any.
func (o *Orchestrator) selectBackend(ctx context.Context, req *domain.SearchRequest) (engine.SearchBackend, string) {
	// An assigned variant wins outright so the experiment's split stays
	// deterministic per session.
	if o.cfg.ABTestEnabled && req.SessionID != "" {
		variant := AssignVariant(req.SessionID)
		if variant == VariantA {
			return o.primary, variant
		}
		return o.search, variant
	}

	if !o.cfg.PreferEngine {
		return o.primary, ""
	}

	if !o.health.Available(ctx) {
		return o.primary, ""
	}

	return o.search, ""
}

// abActive reports whether this request participates in the experiment.
// Experiment traffic bypasses the cache so samples measure backend latency,
// not cache hits.
func (o *Orchestrator) abActive(req *domain.SearchRequest) bool {
	return o.cfg.ABTestEnabled && req.SessionID != ""
}

// Search answers a full-text catalog query.
func (o *Orchestrator) Search(ctx context.Context, req *domain.SearchRequest) *domain.SearchResult {
	if o.abActive(req) {
		return o.doSearch(ctx, req)
	}

	key := cache.Key(cache.NamespaceSearch, req)
	result, err := cache.GetCached(ctx, o.cache, key, o.cfg.SearchTTL, cache.NamespaceSearch,
		func(ctx context.Context) (*domain.SearchResult, error) {
			return o.doSearch(ctx, req), nil
		})
	if err != nil || result == nil {
		return domain.EmptySearchResult(req, o.primary.Name())
	}
	return result
}

func (o *Orchestrator) doSearch(ctx context.Context, req *domain.SearchRequest) *domain.SearchResult {
	backend, variant := o.selectBackend(ctx, req)

	start := time.Now()
	result, err := backend.Search(ctx, req)
	elapsed := time.Since(start)

	if backend == o.search && o.searchDegraded(result, err, req) {
		if err != nil {
			o.logger.WarnContext(ctx, "search engine call failed, falling back",
				slog.String("query", req.Query),
				slog.String("error", err.Error()),
			)
		} else {
			o.logger.InfoContext(ctx, "search engine returned no hits for non-trivial query, falling back",
				slog.String("query", req.Query),
			)
		}

		start = time.Now()
		result, err = o.primary.Search(ctx, req)
		elapsed = time.Since(start)
		backend = o.primary
	}

	if err != nil {
		// Both backends failed; the caller still gets a valid empty result.
		o.logger.ErrorContext(ctx, "all search backends failed",
			slog.String("query", req.Query),
			slog.String("error", err.Error()),
		)
		result = domain.EmptySearchResult(req, o.primary.Name())
	}

	result.Variant = variant
	if result.TookMs == 0 {
		result.TookMs = elapsed.Milliseconds()
	}

	o.logger.DebugContext(ctx, "search executed",
		slog.String("engine", result.Engine),
		slog.String("query", req.Query),
		slog.Int("total", result.Total),
		slog.Int64("took_ms", elapsed.Milliseconds()),
	)

	if variant != "" {
		o.perf.Record(ctx, PerfSample{
			SessionID:   req.SessionID,
			Variant:     variant,
			Engine:      result.Engine,
			Query:       req.Query,
			LatencyMs:   elapsed.Milliseconds(),
			ResultCount: result.Total,
			Timestamp:   time.Now().UTC(),
		})
	}

	return result
}

// searchDegraded applies the fallback heuristic for the external engine: a
// hard error always falls back, and so does a zero-hit result for a
// non-empty query while the health flag still reports the engine available.
// A legitimately empty result can therefore trigger a redundant primary
// query; that cost is accepted to avoid masking partial index states.
func (o *Orchestrator) searchDegraded(result *domain.SearchResult, err error, req *domain.SearchRequest) bool {
	if err != nil {
		return true
	}
	return result.Total == 0 && req.Query != "" && o.health.LastKnown()
}

// Suggest answers an autocomplete query.
func (o *Orchestrator) Suggest(ctx context.Context, req *domain.SearchRequest) *domain.Suggestions {
	key := cache.Key(cache.NamespaceSuggestions, req)
	result, err := cache.GetCached(ctx, o.cache, key, o.cfg.SuggestionsTTL, cache.NamespaceSuggestions,
		func(ctx context.Context) (*domain.Suggestions, error) {
			return o.doSuggest(ctx, req), nil
		})
	if err != nil || result == nil {
		return domain.EmptySuggestions(o.primary.Name())
	}
	return result
}

func (o *Orchestrator) doSuggest(ctx context.Context, req *domain.SearchRequest) *domain.Suggestions {
	backend, _ := o.selectBackend(ctx, req)

	result, err := backend.Suggest(ctx, req)
	if err != nil && backend == o.search {
		o.logger.WarnContext(ctx, "suggest call failed, falling back",
			slog.String("query", req.Query),
			slog.String("error", err.Error()),
		)
		result, err = o.primary.Suggest(ctx, req)
	}
	if err != nil {
		o.logger.ErrorContext(ctx, "all suggest backends failed",
			slog.String("query", req.Query),
			slog.String("error", err.Error()),
		)
		return domain.EmptySuggestions(o.primary.Name())
	}
	return result
}

// Facets computes filter counts for the request's query context.
func (o *Orchestrator) Facets(ctx context.Context, req *domain.SearchRequest) *domain.Facets {
	key := cache.Key(cache.NamespaceFacets, req)
	result, err := cache.GetCached(ctx, o.cache, key, o.cfg.FacetsTTL, cache.NamespaceFacets,
		func(ctx context.Context) (*domain.Facets, error) {
			return o.doFacets(ctx, req), nil
		})
	if err != nil || result == nil {
		return domain.EmptyFacets()
	}
	return result
}

func (o *Orchestrator) doFacets(ctx context.Context, req *domain.SearchRequest) *domain.Facets {
	backend, _ := o.selectBackend(ctx, req)

	result, err := backend.Facets(ctx, req)

	// The empty sentinel from the external engine under non-trivial
	// filtering is fallback-worthy even though no error occurred: partial or
	// absent facet data misleads filter UIs.
	if backend == o.search && (err != nil || (result.IsEmpty() && (req.Query != "" || req.HasFilters()))) {
		if err != nil {
			o.logger.WarnContext(ctx, "facets call failed, falling back",
				slog.String("query", req.Query),
				slog.String("error", err.Error()),
			)
		}
		result, err = o.primary.Facets(ctx, req)
	}

	if err != nil {
		o.logger.ErrorContext(ctx, "all facets backends failed",
			slog.String("query", req.Query),
			slog.String("error", err.Error()),
		)
		return domain.EmptyFacets()
	}
	return result
}
