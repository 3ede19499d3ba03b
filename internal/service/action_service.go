package service

import (
	"context"

	"pricesync/internal/models"

	"go.uber.org/zap"
)

// ActionBackend is the slice of the backend client the coordinator
// needs: recording the decision plus the two downstream push endpoints.
type ActionBackend interface {
	RecordAction(ctx context.Context, recommendationID string, action models.UserAction, feedback string) (*models.Recommendation, error)
	UpdatePrice(ctx context.Context, itemID string, price float64) error
	PushPriceToPOS(ctx context.Context, itemID string, price float64) error
}

// ActionResult reports the independent outcomes of one applied decision.
// Recorded is the durable part; the push errors are advisory and never
// revert it. The caller must surface PriceErr and POSErr separately from
// the recorded outcome, not fold them into one message.
type ActionResult struct {
	Recommendation *models.Recommendation
	PriceUpdated   bool
	PriceErr       error
	POSPushed      bool
	POSErr         error
}

// ActionService applies a user decision to one recommendation.
//
// Step order is deliberate: (1) record the action on the backend; only
// its failure is fatal. (2) on accept, update the authoritative price
// record, then push the price to the POS system. The pushes are
// best-effort with no compensating transaction: the user's decision
// stands even when a push fails, and each push can be retried on its own.
type ActionService struct {
	backend ActionBackend
	logger  *zap.Logger
}

func NewActionService(backend ActionBackend, logger *zap.Logger) *ActionService {
	return &ActionService{
		backend: backend,
		logger:  logger,
	}
}

// Apply records the decision and runs the dependent side effects.
// A nil error means the decision is durable; inspect the result for
// push outcomes.
func (s *ActionService) Apply(ctx context.Context, recommendationID string, action models.UserAction, feedback string) (*ActionResult, error) {
	// 1. Record the decision. Fatal on failure; the user retries explicitly.
	rec, err := s.backend.RecordAction(ctx, recommendationID, action, sanitizeUTF8(feedback))
	if err != nil {
		return nil, &models.ActionError{RecommendationID: recommendationID, Err: err}
	}
	if rec.UserAction == nil {
		// The backend accepted the action but echoed a stale record;
		// the recorded decision still wins locally.
		rec.ApplyAction(action, feedback)
	}
	rec.ConfirmAction()

	result := &ActionResult{Recommendation: rec}

	s.logger.Info("Recommendation action recorded",
		zap.String("recommendation_id", recommendationID),
		zap.String("action", string(action)),
	)

	if action != models.ActionAccepted {
		return result, nil
	}

	// 2. Best-effort downstream pushes, each surfaced on its own.
	if err := s.backend.UpdatePrice(ctx, rec.ItemID, rec.RecommendedPrice); err != nil {
		result.PriceErr = &models.DownstreamPushError{ItemID: rec.ItemID, Target: "price", Err: err}
		s.logger.Error("Price record update failed after accept",
			zap.String("item_id", rec.ItemID), zap.Error(err))
	} else {
		result.PriceUpdated = true
	}

	if err := s.backend.PushPriceToPOS(ctx, rec.ItemID, rec.RecommendedPrice); err != nil {
		result.POSErr = &models.DownstreamPushError{ItemID: rec.ItemID, Target: "pos", Err: err}
		s.logger.Error("POS price push failed after accept",
			zap.String("item_id", rec.ItemID), zap.Error(err))
	} else {
		result.POSPushed = true
	}

	return result, nil
}
