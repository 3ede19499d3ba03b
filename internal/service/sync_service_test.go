package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"pricesync/internal/models"
	"pricesync/internal/repository"
	"pricesync/pkg/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSyncService(backend *fakeBackend, cache *memCache) (*SyncService, *repository.BatchRegistry) {
	logger := testLogger()
	pollerCfg := config.PollerConfig{
		Interval:              time.Millisecond,
		MaxAttempts:           20,
		QuickInterval:         time.Millisecond,
		QuickMaxAttempts:      20,
		TransportFailureLimit: 3,
	}
	reconcilerCfg := config.ReconcilerConfig{ReevaluationHorizon: 30 * 24 * time.Hour}

	jobs := NewJobService(backend, isFakeTransport, pollerCfg, logger)
	reconciler := NewReconcilerService(backend, cache, reconcilerCfg, 24*time.Hour, logger)
	actions := NewActionService(backend, logger)
	registry := repository.NewBatchRegistry(logger)

	return NewSyncService(jobs, reconciler, actions, backend, cache, registry, 24*time.Hour, logger), registry
}

const analysisResult = `{"recommendations": [
	{"item_id": "sku-1", "item_name": "Latte", "current_price": "$4.00", "recommended_price": "4.50", "change_percent": 12.5, "rationale": "demand up"},
	{"item_id": "sku-2", "item_name": "Mocha", "current_price": 5.00, "recommended_price": "5.25", "change_percent": 0.05},
	{"item_id": "sku-3", "item_name": "Flat White", "current_price": "4.25", "recommended_price": "4.10"}
]}`

func TestRunAnalysisEndToEnd(t *testing.T) {
	backend := &fakeBackend{statusScript: []statusStep{
		running(),
		running(),
		succeeded(analysisResult),
	}}
	cache := newMemCache()
	svc, _ := newSyncService(backend, cache)
	user := "user-1"

	persisted, err := svc.RunAnalysis(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, persisted.Recommendations, 3)
	assert.Equal(t, 3, persisted.Batch.ItemCount)
	assert.Equal(t, models.EngineCompleted, svc.Status())

	// The live list now serves what was persisted.
	backend.mu.Lock()
	backend.fetchRecs = persisted.Recommendations
	backend.mu.Unlock()

	pending, fromCache, err := svc.GetPending(context.Background(), user)
	require.NoError(t, err)
	assert.False(t, fromCache)
	require.Len(t, pending, 3)

	// User accepts the second recommendation.
	target := pending[1]
	backend.mu.Lock()
	backend.recordResult = target
	backend.mu.Unlock()

	result, err := svc.ApplyAction(context.Background(), user, target.ID, models.ActionAccepted, "fair")
	require.NoError(t, err)
	assert.True(t, result.PriceUpdated)
	assert.True(t, result.POSPushed)

	// Subsequent fetches reflect the recorded action.
	accepted := models.ActionAccepted
	backend.mu.Lock()
	for _, rec := range backend.fetchRecs {
		if rec.ID == target.ID {
			rec.UserAction = &accepted
		}
	}
	backend.mu.Unlock()

	pending, _, err = svc.GetPending(context.Background(), user)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	completed, _, err := svc.GetCompleted(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, target.ID, completed[0].ID)
	require.NotNil(t, completed[0].UserAction)
	assert.Equal(t, models.ActionAccepted, *completed[0].UserAction)
}

func TestRunAnalysisJobFailureSetsErrorStatus(t *testing.T) {
	backend := &fakeBackend{statusScript: []statusStep{
		{job: &models.Job{Status: models.JobStatusFailed, StatusMessage: "no data"}},
	}}
	svc, _ := newSyncService(backend, newMemCache())

	_, err := svc.RunAnalysis(context.Background(), "user-1")
	var failed *models.JobFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, models.EngineError, svc.Status())
}

func TestRunAnalysisPersistenceFailureRetainsRaw(t *testing.T) {
	backend := &fakeBackend{
		statusScript: []statusStep{succeeded(analysisResult)},
		persistErr:   errors.New("503"),
	}
	cache := newMemCache()
	svc, _ := newSyncService(backend, cache)

	_, err := svc.RunAnalysis(context.Background(), "user-1")
	var persistErr *models.PersistenceError
	require.ErrorAs(t, err, &persistErr)

	// The raw payload survived locally for a retry.
	cache.mu.Lock()
	var rawKeys int
	for k := range cache.data {
		if len(k) > 9 && k[:9] == "raw-batch" {
			rawKeys++
		}
	}
	cache.mu.Unlock()
	assert.Equal(t, 1, rawKeys)
}

func TestGetPendingFallsBackToCacheOnTransportFailure(t *testing.T) {
	cache := newMemCache()
	user := "user-1"

	// A two-hour-old snapshot of five recommendations.
	snapshot := make([]*models.Recommendation, 5)
	for i := range snapshot {
		snapshot[i] = rec(uuid.New(), fmt.Sprintf("cached-%d", i))
	}
	require.NoError(t, cache.Put(context.Background(), repository.SnapshotKey(user, "latest"), snapshot, 24*time.Hour))

	backend := &fakeBackend{fetchErr: errConnRefused}
	svc, _ := newSyncService(backend, cache)

	pending, fromCache, err := svc.GetPending(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Len(t, pending, 5)
}

func TestGetPendingPrefersLiveFetchOverCache(t *testing.T) {
	cache := newMemCache()
	user := "user-1"
	stale := []*models.Recommendation{rec(uuid.New(), "stale")}
	require.NoError(t, cache.Put(context.Background(), repository.SnapshotKey(user, "latest"), stale, 24*time.Hour))

	backend := &fakeBackend{fetchRecs: []*models.Recommendation{rec(uuid.New(), "fresh")}}
	svc, _ := newSyncService(backend, cache)

	pending, fromCache, err := svc.GetPending(context.Background(), user)
	require.NoError(t, err)
	assert.False(t, fromCache)
	require.Len(t, pending, 1)
	assert.Equal(t, "fresh", pending[0].ItemName)
}

func TestGetPendingEmptyColdStart(t *testing.T) {
	backend := &fakeBackend{fetchErr: errConnRefused}
	svc, _ := newSyncService(backend, newMemCache())

	pending, fromCache, err := svc.GetPending(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Empty(t, pending)
}

func TestBatchSelectionSwitchesVisibleSet(t *testing.T) {
	now := time.Now()
	b1 := &models.Batch{ID: uuid.New(), CreatedAt: now.Add(-time.Hour), ItemCount: 4}
	b2 := &models.Batch{ID: uuid.New(), CreatedAt: now, ItemCount: 6}

	b1Recs := make([]*models.Recommendation, 4)
	for i := range b1Recs {
		b1Recs[i] = rec(uuid.New(), fmt.Sprintf("b1-%d", i))
		b1Recs[i].BatchID = b1.ID
	}

	backend := &fakeBackend{batches: []*models.Batch{b2, b1}, fetchRecs: b1Recs}
	svc, registry := newSyncService(backend, newMemCache())
	user := "user-1"

	batches, err := svc.GetBatches(context.Background())
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, b2.ID, batches[0].ID, "newest first")

	// Default selection is the newest batch.
	selected, ok := svc.SelectedBatch()
	require.True(t, ok)
	assert.Equal(t, b2.ID, selected.ID)

	// Switching to B1 re-fetches scoped to it.
	view, _, err := svc.SelectBatch(context.Background(), user, b1.ID)
	require.NoError(t, err)
	assert.Len(t, view, 4)

	backend.mu.Lock()
	lastScope := backend.fetchCalls[len(backend.fetchCalls)-1]
	backend.mu.Unlock()
	assert.Equal(t, b1.ID.String(), lastScope)

	// B2 is still registered.
	assert.Len(t, registry.List(), 2)

	// Unknown batch falls back to no explicit selection (newest again).
	_, _, err = svc.SelectBatch(context.Background(), user, uuid.New())
	require.NoError(t, err)
	selected, ok = svc.SelectedBatch()
	require.True(t, ok)
	assert.Equal(t, b2.ID, selected.ID)
}

func TestRunQuickCheck(t *testing.T) {
	backend := &fakeBackend{statusScript: []statusStep{
		running(),
		succeeded(`{"answer": "hold the price until the next cycle"}`),
	}}
	svc, _ := newSyncService(backend, newMemCache())

	answer, err := svc.RunQuickCheck(context.Background(), "should sku-9 change?")
	require.NoError(t, err)
	assert.Equal(t, "hold the price until the next cycle", answer)

	backend.mu.Lock()
	kind := backend.submits[0].Kind
	backend.mu.Unlock()
	assert.Equal(t, "quick-check", kind)
}

func TestStatusSubscription(t *testing.T) {
	backend := &fakeBackend{statusScript: []statusStep{succeeded(analysisResult)}}
	svc, _ := newSyncService(backend, newMemCache())

	updates, cancel := svc.Subscribe()
	defer cancel()

	_, err := svc.RunAnalysis(context.Background(), "user-1")
	require.NoError(t, err)

	var seen []models.EngineStatus
	for len(seen) < 2 {
		select {
		case s := <-updates:
			seen = append(seen, s)
		case <-time.After(time.Second):
			t.Fatalf("status transitions not observed, got %v", seen)
		}
	}
	assert.Equal(t, []models.EngineStatus{models.EngineRunning, models.EngineCompleted}, seen)
}
