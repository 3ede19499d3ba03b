package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"pricesync/internal/dto"
	"pricesync/internal/models"
	"pricesync/pkg/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecommendationPersister is the slice of the backend client the
// reconciler needs to save a normalized batch.
type RecommendationPersister interface {
	PersistRecommendations(ctx context.Context, batch *models.Batch, recs []*models.Recommendation) ([]*models.Recommendation, error)
}

// SnapshotCache is the durable cache surface used by the services.
type SnapshotCache interface {
	Put(ctx context.Context, key string, payload any, ttl time.Duration) error
	Get(ctx context.Context, key string, out any) (bool, error)
}

// PersistedBatch is the outcome of ingesting one job result.
type PersistedBatch struct {
	Batch           *models.Batch
	Recommendations []*models.Recommendation
}

// SortKey orders a partitioned list for display. Sorting is a display
// concern applied after partitioning, never a storage concern.
type SortKey string

const (
	SortByName       SortKey = "name"
	SortByPercent    SortKey = "percent"
	SortByReevalDate SortKey = "reevaluation_date"
)

// ReconcilerService normalizes raw recommendation payloads, persists
// them, and merges fetched or cached records into a partitioned view.
type ReconcilerService struct {
	persister RecommendationPersister
	cache     SnapshotCache
	cfg       config.ReconcilerConfig
	cacheTTL  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewReconcilerService(persister RecommendationPersister, cache SnapshotCache, cfg config.ReconcilerConfig, cacheTTL time.Duration, logger *zap.Logger) *ReconcilerService {
	return &ReconcilerService{
		persister: persister,
		cache:     cache,
		cfg:       cfg,
		cacheTTL:  cacheTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// Ingest normalizes a raw recommendation set, assigns it to batchID, and
// persists it to the backend. On a backend rejection the raw payload is
// still written to the cache so the job result is not lost, and the
// caller gets a PersistenceError it can retry.
func (s *ReconcilerService) Ingest(ctx context.Context, raw []dto.RawRecommendation, batchID uuid.UUID, userID string) (*PersistedBatch, error) {
	now := s.now()
	recs := make([]*models.Recommendation, 0, len(raw))
	for i := range raw {
		recs = append(recs, s.normalize(&raw[i], batchID, now))
	}

	batch := &models.Batch{
		ID:        batchID,
		CreatedAt: now,
		ItemCount: len(recs),
	}

	persisted, err := s.persister.PersistRecommendations(ctx, batch, recs)
	if err != nil {
		if cacheErr := s.cache.Put(ctx, rawBatchKey(userID, batchID), raw, s.cacheTTL); cacheErr != nil {
			s.logger.Error("Failed to retain raw batch in cache",
				zap.String("batch_id", batchID.String()), zap.Error(cacheErr))
		} else {
			s.logger.Warn("Batch persistence failed, raw payload retained in cache",
				zap.String("batch_id", batchID.String()))
		}
		return nil, &models.PersistenceError{BatchID: batchID.String(), Err: err}
	}
	if len(persisted) == 0 {
		persisted = recs
	}

	s.logger.Info("Recommendation batch ingested",
		zap.String("batch_id", batchID.String()),
		zap.Int("count", len(persisted)),
	)

	return &PersistedBatch{Batch: batch, Recommendations: persisted}, nil
}

// normalize converts one raw record into the canonical model shape.
func (s *ReconcilerService) normalize(raw *dto.RawRecommendation, batchID uuid.UUID, now time.Time) *models.Recommendation {
	rec := &models.Recommendation{
		ItemID:   raw.ItemID,
		ItemName: sanitizeUTF8(raw.ItemName),
		// Rationale is free text straight from the analysis; scrub it the
		// same way feedback is scrubbed before it reaches storage.
		Rationale: sanitizeUTF8(raw.Rationale),
		BatchID:   batchID,
	}

	if id, err := uuid.Parse(raw.ID); err == nil {
		rec.ID = id
	} else {
		rec.ID = uuid.New()
	}

	rec.CurrentPrice = parseMoney(raw.CurrentPrice.String())
	rec.RecommendedPrice = parseMoney(raw.RecommendedPrice.String())
	// ChangeAmount is derived, never taken from the wire.
	rec.ChangeAmount = rec.RecommendedPrice - rec.CurrentPrice

	if pct, err := strconv.ParseFloat(raw.ChangePercent.String(), 64); err == nil && raw.ChangePercent != "" {
		rec.ChangePercent = normalizePercent(pct)
	} else if rec.CurrentPrice != 0 {
		rec.ChangePercent = rec.ChangeAmount / rec.CurrentPrice
	}

	if t, err := time.Parse(time.RFC3339, raw.RecommendationDate); err == nil {
		rec.RecommendationDate = t
	} else {
		rec.RecommendationDate = now
	}

	if t, err := time.Parse(time.RFC3339, raw.ReevaluationDate); err == nil {
		rec.ReevaluationDate = &t
	} else {
		reeval := now.Add(s.cfg.ReevaluationHorizon)
		rec.ReevaluationDate = &reeval
	}

	if models.IsValidAction(raw.UserAction) {
		action := models.UserAction(raw.UserAction)
		rec.UserAction = &action
		rec.UserFeedback = sanitizeUTF8(raw.UserFeedback)
		rec.ActionSynced = true
	}

	return rec
}

// Merge combines an existing view with freshly fetched records, keyed by
// recommendation ID. Incoming records win, except that a locally-applied
// action not yet round-tripped to the backend survives unless the
// incoming record already carries one (the server is authoritative once
// it reports an action). Existing records absent from incoming are kept.
// Merge is idempotent.
func (s *ReconcilerService) Merge(existing, incoming []*models.Recommendation) []*models.Recommendation {
	byID := make(map[uuid.UUID]*models.Recommendation, len(existing))
	for _, rec := range existing {
		byID[rec.ID] = rec
	}

	merged := make([]*models.Recommendation, 0, len(incoming))
	seen := make(map[uuid.UUID]bool, len(incoming))
	for _, in := range incoming {
		out := *in
		if prev, ok := byID[in.ID]; ok && in.UserAction == nil && prev.UserAction != nil && !prev.ActionSynced {
			out.UserAction = prev.UserAction
			out.UserFeedback = prev.UserFeedback
			out.ActionSynced = false
		}
		merged = append(merged, &out)
		seen[in.ID] = true
	}

	for _, rec := range existing {
		if !seen[rec.ID] {
			copied := *rec
			merged = append(merged, &copied)
		}
	}
	return merged
}

// Partition splits a view into pending and completed sublists, keeping
// the original order. Exhaustive and disjoint for every input.
func (s *ReconcilerService) Partition(view []*models.Recommendation) (pending, completed []*models.Recommendation) {
	pending = make([]*models.Recommendation, 0, len(view))
	completed = make([]*models.Recommendation, 0)
	for _, rec := range view {
		if rec.Pending() {
			pending = append(pending, rec)
		} else {
			completed = append(completed, rec)
		}
	}
	return pending, completed
}

// Sort orders a list for display. Stable, so equal keys preserve the
// fetch order established by Partition.
func (s *ReconcilerService) Sort(recs []*models.Recommendation, key SortKey, ascending bool) {
	less := func(i, j int) bool { return false }
	switch key {
	case SortByName:
		less = func(i, j int) bool { return recs[i].ItemName < recs[j].ItemName }
	case SortByPercent:
		less = func(i, j int) bool {
			return abs(recs[i].ChangePercent) < abs(recs[j].ChangePercent)
		}
	case SortByReevalDate:
		less = func(i, j int) bool {
			ti, tj := recs[i].ReevaluationDate, recs[j].ReevaluationDate
			if ti == nil || tj == nil {
				return tj == nil && ti != nil
			}
			return ti.Before(*tj)
		}
	default:
		return
	}
	if !ascending {
		inner := less
		less = func(i, j int) bool { return inner(j, i) }
	}
	sort.SliceStable(recs, less)
}

// RetainedRaw loads a raw batch previously kept after a persistence
// failure, so ingestion can be retried.
func (s *ReconcilerService) RetainedRaw(ctx context.Context, userID string, batchID uuid.UUID) ([]dto.RawRecommendation, bool, error) {
	var raw []dto.RawRecommendation
	ok, err := s.cache.Get(ctx, rawBatchKey(userID, batchID), &raw)
	return raw, ok, err
}

func rawBatchKey(userID string, batchID uuid.UUID) string {
	return fmt.Sprintf("raw-batch:%s:%s", userID, batchID)
}

var moneyCleaner = regexp.MustCompile(`[^0-9.\-]`)

// parseMoney extracts a price from a wire value that may be a bare
// number or a currency-formatted string like "$1,299.00".
func parseMoney(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	cleaned := moneyCleaner.ReplaceAllString(s, "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

// normalizePercent maps a wire percent value onto a fraction. Magnitude
// above 1 is read as an already-expressed percent, at most 1 as a
// fraction. This is a compatibility shim for an ambiguity in the
// upstream data contract, not a correctness guarantee: a genuine 150%
// change and a 1.5-percent-as-fraction value cannot be told apart here.
func normalizePercent(p float64) float64 {
	if abs(p) > 1 {
		return p / 100
	}
	return p
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
