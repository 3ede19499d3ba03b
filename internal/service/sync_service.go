package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"pricesync/internal/dto"
	"pricesync/internal/models"
	"pricesync/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SyncBackend is the slice of the backend client the facade needs for
// authoritative reads.
type SyncBackend interface {
	FetchRecommendations(ctx context.Context, batchID string) ([]*models.Recommendation, error)
	ListBatches(ctx context.Context) ([]*models.Batch, error)
}

// SyncService is the surface exposed to the rendering layer: it runs
// analysis jobs, keeps the partitioned recommendation view current, and
// applies user decisions. The durable cache and the batch registry are
// the only state shared with the poll-completion path.
type SyncService struct {
	jobs       *JobService
	reconciler *ReconcilerService
	actions    *ActionService
	backend    SyncBackend
	cache      SnapshotCache
	registry   *repository.BatchRegistry
	cacheTTL   time.Duration
	logger     *zap.Logger

	viewMu sync.RWMutex
	views  map[string][]*models.Recommendation // per user, fetch order

	statusMu    sync.Mutex
	status      models.EngineStatus
	subscribers map[int]chan models.EngineStatus
	nextSubID   int
}

func NewSyncService(
	jobs *JobService,
	reconciler *ReconcilerService,
	actions *ActionService,
	backend SyncBackend,
	cache SnapshotCache,
	registry *repository.BatchRegistry,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		jobs:        jobs,
		reconciler:  reconciler,
		actions:     actions,
		backend:     backend,
		cache:       cache,
		registry:    registry,
		cacheTTL:    cacheTTL,
		logger:      logger,
		views:       make(map[string][]*models.Recommendation),
		status:      models.EngineIdle,
		subscribers: make(map[int]chan models.EngineStatus),
	}
}

// Status returns the current engine status.
func (s *SyncService) Status() models.EngineStatus {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.status
}

// Subscribe returns a channel of status transitions and a cancel func.
// The channel is buffered; slow subscribers drop intermediate updates
// rather than stalling the engine.
func (s *SyncService) Subscribe() (<-chan models.EngineStatus, func()) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan models.EngineStatus, 4)
	s.subscribers[id] = ch

	cancel := func() {
		s.statusMu.Lock()
		defer s.statusMu.Unlock()
		if c, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(c)
		}
	}
	return ch, cancel
}

func (s *SyncService) setStatus(status models.EngineStatus) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	if s.status == status {
		return
	}
	s.status = status
	for _, ch := range s.subscribers {
		select {
		case ch <- status:
		default:
		}
	}
}

// RunAnalysis submits a full analysis job, waits for it to finish, and
// reconciles the result into a new batch. Blocks until the job reaches a
// terminal state or ctx is cancelled.
func (s *SyncService) RunAnalysis(ctx context.Context, userID string) (*PersistedBatch, error) {
	s.setStatus(models.EngineRunning)

	jobID, err := s.jobs.Submit(ctx, &dto.JobSpec{Kind: "full-analysis"})
	if err != nil {
		s.setStatus(models.EngineError)
		return nil, err
	}

	terminal, ok := Await(s.jobs.Watch(ctx, jobID, s.jobs.CoarseProfile()))
	if !ok {
		// Cancelled before any terminal state; the server-side job keeps
		// running and the same job ID can be watched again.
		s.setStatus(models.EngineIdle)
		return nil, ctx.Err()
	}
	if terminal.Err != nil {
		s.setStatus(models.EngineError)
		return nil, terminal.Err
	}

	raw, err := decodeAnalysisResult(terminal.Job.Result)
	if err != nil {
		s.setStatus(models.EngineError)
		return nil, err
	}

	persisted, err := s.reconciler.Ingest(ctx, raw, uuid.New(), userID)
	if err != nil {
		s.setStatus(models.EngineError)
		return nil, err
	}

	s.registry.Record(persisted.Batch)

	s.viewMu.Lock()
	merged := s.reconciler.Merge(s.views[userID], persisted.Recommendations)
	s.views[userID] = merged
	s.viewMu.Unlock()

	s.writeSnapshot(ctx, userID, persisted.Batch.ID.String(), persisted.Recommendations)
	s.writeSnapshot(ctx, userID, "", merged)

	s.setStatus(models.EngineCompleted)
	return persisted, nil
}

// RunQuickCheck runs a fine-grained chat-style micro job and returns its
// answer. Independent of any concurrent full analysis watch.
func (s *SyncService) RunQuickCheck(ctx context.Context, query string) (string, error) {
	jobID, err := s.jobs.Submit(ctx, &dto.JobSpec{Kind: "quick-check", Query: query})
	if err != nil {
		return "", err
	}

	terminal, ok := Await(s.jobs.Watch(ctx, jobID, s.jobs.FineProfile()))
	if !ok {
		return "", ctx.Err()
	}
	if terminal.Err != nil {
		return "", terminal.Err
	}

	var result struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal(terminal.Job.Result, &result); err != nil {
		return "", fmt.Errorf("failed to decode quick check result: %w", err)
	}
	return result.Answer, nil
}

// GetPending returns the pending partition of the current view.
func (s *SyncService) GetPending(ctx context.Context, userID string) ([]*models.Recommendation, bool, error) {
	view, fromCache, err := s.refreshView(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	pending, _ := s.reconciler.Partition(view)
	return pending, fromCache, nil
}

// GetCompleted returns the completed partition of the current view.
func (s *SyncService) GetCompleted(ctx context.Context, userID string) ([]*models.Recommendation, bool, error) {
	view, fromCache, err := s.refreshView(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	_, completed := s.reconciler.Partition(view)
	return completed, fromCache, nil
}

// refreshView fetches the authoritative list scoped to the selected
// batch and merges it into the session view. The cache is a fallback
// for transport failures and cold starts, never a substitute for a
// successful live fetch.
func (s *SyncService) refreshView(ctx context.Context, userID string) ([]*models.Recommendation, bool, error) {
	batchID := ""
	if batch, ok := s.registry.Selected(); ok {
		batchID = batch.ID.String()
	}

	incoming, err := s.backend.FetchRecommendations(ctx, batchID)
	if err != nil {
		s.logger.Warn("Live fetch failed, falling back to cache",
			zap.String("user_id", userID), zap.Error(err))
		return s.cachedView(ctx, userID, batchID)
	}

	s.viewMu.Lock()
	merged := s.reconciler.Merge(s.views[userID], incoming)
	s.views[userID] = merged
	s.viewMu.Unlock()

	s.writeSnapshot(ctx, userID, batchID, merged)
	return merged, false, nil
}

func (s *SyncService) cachedView(ctx context.Context, userID, batchID string) ([]*models.Recommendation, bool, error) {
	s.viewMu.RLock()
	view := s.views[userID]
	s.viewMu.RUnlock()
	if len(view) > 0 {
		return view, true, nil
	}

	var cached []*models.Recommendation
	ok, err := s.cache.Get(ctx, repository.SnapshotKey(userID, batchID), &cached)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		// Neither live nor cached data: the empty state.
		return nil, true, nil
	}

	s.viewMu.Lock()
	s.views[userID] = cached
	s.viewMu.Unlock()
	return cached, true, nil
}

// GetBatches lists known batches, newest first, folding in anything the
// backend knows that this session does not.
func (s *SyncService) GetBatches(ctx context.Context) ([]*models.Batch, error) {
	remote, err := s.backend.ListBatches(ctx)
	if err != nil {
		s.logger.Warn("Batch listing failed, using registry", zap.Error(err))
		return s.registry.List(), nil
	}
	for _, b := range remote {
		s.registry.Record(b)
	}
	return s.registry.List(), nil
}

// SelectBatch switches the visible set to the given batch and re-fetches
// its recommendations. Unknown IDs silently clear the selection; nothing
// is discarded from the registry.
func (s *SyncService) SelectBatch(ctx context.Context, userID string, batchID uuid.UUID) ([]*models.Recommendation, bool, error) {
	s.registry.Select(batchID)

	// Selection changes the fetch scope, so the session view no longer
	// matches and must be rebuilt from the new scope.
	s.viewMu.Lock()
	delete(s.views, userID)
	s.viewMu.Unlock()

	return s.refreshView(ctx, userID)
}

// SelectedBatch exposes the registry's current selection.
func (s *SyncService) SelectedBatch() (*models.Batch, bool) {
	return s.registry.Selected()
}

// ApplyAction records a decision on one recommendation and reclassifies
// it locally as soon as the recording succeeds, regardless of how the
// downstream pushes fare. A failed recording leaves the recommendation
// pending.
func (s *SyncService) ApplyAction(ctx context.Context, userID string, recommendationID uuid.UUID, action models.UserAction, feedback string) (*ActionResult, error) {
	result, err := s.actions.Apply(ctx, recommendationID.String(), action, feedback)
	if err != nil {
		return nil, err
	}

	s.viewMu.Lock()
	view := s.views[userID]
	for i, rec := range view {
		if rec.ID == recommendationID {
			view[i] = result.Recommendation
			break
		}
	}
	s.viewMu.Unlock()

	batchID := ""
	if batch, ok := s.registry.Selected(); ok {
		batchID = batch.ID.String()
	}
	s.viewMu.RLock()
	snapshot := s.views[userID]
	s.viewMu.RUnlock()
	s.writeSnapshot(ctx, userID, batchID, snapshot)

	return result, nil
}

// writeSnapshot persists the view under both the batch-scoped key and
// the caller's latest view when batchID is empty.
func (s *SyncService) writeSnapshot(ctx context.Context, userID, batchID string, view []*models.Recommendation) {
	if err := s.cache.Put(ctx, repository.SnapshotKey(userID, batchID), view, s.cacheTTL); err != nil {
		s.logger.Warn("Failed to write recommendation snapshot",
			zap.String("user_id", userID), zap.Error(err))
	}
}

// decodeAnalysisResult accepts either a bare array of raw records or a
// {"recommendations": [...]} wrapper.
func decodeAnalysisResult(result json.RawMessage) ([]dto.RawRecommendation, error) {
	if len(result) == 0 {
		return nil, fmt.Errorf("job succeeded without a result payload")
	}

	var raw []dto.RawRecommendation
	if err := json.Unmarshal(result, &raw); err == nil {
		return raw, nil
	}

	var wrapped struct {
		Recommendations []dto.RawRecommendation `json:"recommendations"`
	}
	if err := json.Unmarshal(result, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode analysis result: %w", err)
	}
	return wrapped.Recommendations, nil
}
