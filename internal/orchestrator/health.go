package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/peakline/catalog-search/internal/engine"
)

// HealthTracker caches the external engine's liveness for a short TTL so the
// engine is not probed on every request. The cached flag is the only piece
// of process-local mutable state guarding backend-health decisions.
// Concurrent requests may refresh the flag redundantly within the same TTL
// window; the worst case is one extra probe, with no correctness impact.
type HealthTracker struct {
	checker engine.HealthChecker
	ttl     time.Duration
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu        sync.RWMutex
	available bool
	checkedAt time.Time
}

// NewHealthTracker creates a tracker with the given flag TTL and per-probe
// timeout. A zero TTL defaults to 30s, a zero timeout to 2s.
func NewHealthTracker(checker engine.HealthChecker, ttl, timeout time.Duration, logger *slog.Logger) *HealthTracker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthTracker{
		checker: checker,
		ttl:     ttl,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock overrides the tracker's clock for tests.
func (t *HealthTracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// Available returns the cached availability flag, recomputing it via a live
// probe only when the TTL has elapsed.
func (t *HealthTracker) Available(ctx context.Context) bool {
	t.mu.RLock()
	fresh := !t.checkedAt.IsZero() && t.now().Sub(t.checkedAt) < t.ttl
	available := t.available
	t.mu.RUnlock()

	if fresh {
		return available
	}

	probeCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	err := t.checker.Health(probeCtx)

	t.mu.Lock()
	t.available = err == nil
	t.checkedAt = t.now()
	available = t.available
	t.mu.Unlock()

	if err != nil {
		t.logger.WarnContext(ctx, "search engine health probe failed",
			slog.String("error", err.Error()),
		)
	}

	return available
}

// LastKnown returns the cached flag without probing, defaulting to false
// when no probe has run yet.
func (t *HealthTracker) LastKnown() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.available
}
