package orchestrator

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"log/slog"
	"time"
)

// A/B variants.
const (
	VariantA = "A"
	VariantB = "B"
)

// perfSampleListKey is the capped list holding A/B performance samples.
const perfSampleListKey = "abtest:samples"

// perfSampleListCap bounds the rolling sample list.
const perfSampleListCap = 1000

// AssignVariant deterministically maps a session ID to a variant. The same
// session always lands on the same backend for the experiment's duration.
func AssignVariant(sessionID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	if h.Sum32()%2 == 0 {
		return VariantA
	}
	return VariantB
}

// PerfSample is one observed A/B request, recorded for offline analysis.
// Samples never influence request-time decisions.
type PerfSample struct {
	SessionID   string    `json:"session_id"`
	Variant     string    `json:"variant"`
	Engine      string    `json:"engine"`
	Query       string    `json:"query"`
	LatencyMs   int64     `json:"latency_ms"`
	ResultCount int       `json:"result_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// perfStore is the subset of cache.Store the sink needs.
type perfStore interface {
	PushCapped(ctx context.Context, key, value string, capacity int64, ttl time.Duration) error
}

// PerfTracker persists A/B samples into a capped rolling list in the shared
// store. Recording failures are logged and dropped; the sink never fails a
// request.
type PerfTracker struct {
	store     perfStore
	retention time.Duration
	logger    *slog.Logger
}

// NewPerfTracker creates a sink with the given sample retention window.
func NewPerfTracker(store perfStore, retention time.Duration, logger *slog.Logger) *PerfTracker {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &PerfTracker{store: store, retention: retention, logger: logger}
}

// Record persists one sample.
func (t *PerfTracker) Record(ctx context.Context, sample PerfSample) {
	data, err := json.Marshal(sample)
	if err != nil {
		return
	}
	if err := t.store.PushCapped(ctx, perfSampleListKey, string(data), perfSampleListCap, t.retention); err != nil {
		t.logger.DebugContext(ctx, "ab sample record failed", slog.String("error", err.Error()))
	}
}
