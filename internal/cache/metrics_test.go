package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_SnapshotDerivesHitRate(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	m := NewMetrics(store, time.Hour, newTestLogger())

	m.RecordHit(ctx, NamespaceSearch, 2*time.Millisecond)
	m.RecordHit(ctx, NamespaceSearch, 4*time.Millisecond)
	m.RecordHit(ctx, NamespaceSearch, 6*time.Millisecond)
	m.RecordMiss(ctx, NamespaceSearch, 40*time.Millisecond)

	snap, err := m.Snapshot(ctx, NamespaceSearch)
	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.Hits)
	assert.Equal(t, int64(1), snap.Misses)
	assert.InDelta(t, 0.75, snap.HitRate, 0.0001)
	assert.Equal(t, 4, snap.Samples)
	assert.InDelta(t, 13.0, snap.AvgLatencyMs, 0.0001)
}

func TestMetrics_SnapshotEmptyNamespace(t *testing.T) {
	ctx := context.Background()
	m := NewMetrics(NewMemStore(), time.Hour, newTestLogger())

	snap, err := m.Snapshot(ctx, NamespaceFacets)
	require.NoError(t, err)
	assert.Zero(t, snap.Hits)
	assert.Zero(t, snap.Misses)
	assert.Zero(t, snap.HitRate)
	assert.Zero(t, snap.Samples)
}

func TestMetrics_NamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	m := NewMetrics(NewMemStore(), time.Hour, newTestLogger())

	m.RecordHit(ctx, NamespaceSearch, time.Millisecond)
	m.RecordMiss(ctx, NamespaceSuggestions, time.Millisecond)

	search, err := m.Snapshot(ctx, NamespaceSearch)
	require.NoError(t, err)
	assert.Equal(t, int64(1), search.Hits)
	assert.Zero(t, search.Misses)

	suggestions, err := m.Snapshot(ctx, NamespaceSuggestions)
	require.NoError(t, err)
	assert.Zero(t, suggestions.Hits)
	assert.Equal(t, int64(1), suggestions.Misses)
}

func TestMetrics_RecordingFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	store.SetFailing(true)
	m := NewMetrics(store, time.Hour, newTestLogger())

	assert.NotPanics(t, func() {
		m.RecordHit(ctx, NamespaceSearch, time.Millisecond)
		m.RecordMiss(ctx, NamespaceSearch, time.Millisecond)
	})
}
