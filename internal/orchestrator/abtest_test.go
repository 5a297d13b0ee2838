package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakline/catalog-search/internal/cache"
)

func TestAssignVariant_Deterministic(t *testing.T) {
	for _, sessionID := range []string{"", "sess-1", "sess-2", "a-long-session-identifier"} {
		first := AssignVariant(sessionID)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, AssignVariant(sessionID), "session %q", sessionID)
		}
	}
}

func TestAssignVariant_ProducesBothVariants(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		seen[AssignVariant(fmt.Sprintf("sess-%d", i))] = true
	}
	assert.True(t, seen[VariantA])
	assert.True(t, seen[VariantB])
}

func TestAssignVariant_OnlyKnownVariants(t *testing.T) {
	for i := 0; i < 20; i++ {
		v := AssignVariant(fmt.Sprintf("sess-%d", i))
		assert.Contains(t, []string{VariantA, VariantB}, v)
	}
}

func TestPerfTracker_RecordAppendsSample(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemStore()
	tracker := NewPerfTracker(store, time.Hour, newTestLogger())

	sample := PerfSample{
		SessionID:   "sess-1",
		Variant:     VariantB,
		Engine:      "elasticsearch",
		Query:       "boots",
		LatencyMs:   12,
		ResultCount: 4,
		Timestamp:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	tracker.Record(ctx, sample)

	raw, err := store.ListRange(ctx, "abtest:samples", 0, -1)
	require.NoError(t, err)
	require.Len(t, raw, 1)

	var got PerfSample
	require.NoError(t, json.Unmarshal([]byte(raw[0]), &got))
	assert.Equal(t, sample, got)
}

func TestPerfTracker_StoreFailureIsSwallowed(t *testing.T) {
	store := cache.NewMemStore()
	store.SetFailing(true)
	tracker := NewPerfTracker(store, time.Hour, newTestLogger())

	assert.NotPanics(t, func() {
		tracker.Record(context.Background(), PerfSample{SessionID: "sess-1"})
	})
}
