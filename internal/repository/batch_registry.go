package repository

import (
	"sort"
	"sync"

	"pricesync/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BatchRegistry tracks the recommendation batches known to this session
// and which one is currently selected. Safe for a render path reading
// while a poll-completion path writes.
type BatchRegistry struct {
	mu       sync.RWMutex
	batches  map[uuid.UUID]*models.Batch
	selected uuid.UUID // uuid.Nil means no selection
	logger   *zap.Logger
}

func NewBatchRegistry(logger *zap.Logger) *BatchRegistry {
	return &BatchRegistry{
		batches: make(map[uuid.UUID]*models.Batch),
		logger:  logger,
	}
}

// Record adds a batch to the registry. Batches are immutable once
// created; recording an already-known ID is a no-op.
func (r *BatchRegistry) Record(batch *models.Batch) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.batches[batch.ID]; ok {
		return
	}
	b := *batch
	r.batches[batch.ID] = &b
}

// List returns known batches ordered newest first.
func (r *BatchRegistry) List() []*models.Batch {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Batch, 0, len(r.batches))
	for _, b := range r.batches {
		copied := *b
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Select marks a batch as the current one. Unknown IDs fall back to no
// selection rather than failing.
func (r *BatchRegistry) Select(batchID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.batches[batchID]; !ok {
		r.logger.Warn("Unknown batch selected, clearing selection",
			zap.String("batch_id", batchID.String()))
		r.selected = uuid.Nil
		return false
	}
	r.selected = batchID
	return true
}

// Selected returns the currently selected batch. With no explicit
// selection it defaults to the newest batch, if any.
func (r *BatchRegistry) Selected() (*models.Batch, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.selected != uuid.Nil {
		if b, ok := r.batches[r.selected]; ok {
			copied := *b
			return &copied, true
		}
	}

	var newest *models.Batch
	for _, b := range r.batches {
		if newest == nil || b.CreatedAt.After(newest.CreatedAt) {
			newest = b
		}
	}
	if newest == nil {
		return nil, false
	}
	copied := *newest
	return &copied, true
}
