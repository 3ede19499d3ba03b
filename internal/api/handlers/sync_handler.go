package handlers

import (
	"errors"
	"time"

	"pricesync/internal/dto"
	"pricesync/internal/models"
	"pricesync/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SyncHandler struct {
	syncService *service.SyncService
	logger      *zap.Logger
}

func NewSyncHandler(syncService *service.SyncService, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		logger:      logger,
	}
}

// GetPending godoc
// @Summary List pending recommendations
// @Description Recommendations still awaiting a user decision, scoped to the selected batch
// @Tags recommendations
// @Produce json
// @Security Bearer
// @Success 200 {object} dto.RecommendationListResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/recommendations/pending [get]
func (h *SyncHandler) GetPending(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	pending, fromCache, err := h.syncService.GetPending(c.Context(), userID.String())
	if err != nil {
		h.logger.Error("Failed to load pending recommendations", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load recommendations",
		})
	}

	return c.JSON(listResponse(pending, fromCache))
}

// GetCompleted godoc
// @Summary List completed recommendations
// @Description Recommendations that already received a decision
// @Tags recommendations
// @Produce json
// @Security Bearer
// @Success 200 {object} dto.RecommendationListResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/recommendations/completed [get]
func (h *SyncHandler) GetCompleted(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	completed, fromCache, err := h.syncService.GetCompleted(c.Context(), userID.String())
	if err != nil {
		h.logger.Error("Failed to load completed recommendations", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load recommendations",
		})
	}

	return c.JSON(listResponse(completed, fromCache))
}

// ApplyAction godoc
// @Summary Accept or reject a recommendation
// @Description Records the decision, then best-effort updates the price record and POS system; push outcomes are reported separately
// @Tags recommendations
// @Accept json
// @Produce json
// @Param id path string true "Recommendation ID"
// @Param request body dto.ActionRequest true "Decision"
// @Security Bearer
// @Success 200 {object} dto.ActionResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /api/v1/recommendations/{id}/action [post]
func (h *SyncHandler) ApplyAction(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	recID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid recommendation ID",
		})
	}

	var req dto.ActionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if !models.IsValidAction(req.Action) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Action must be accepted or rejected",
		})
	}

	result, err := h.syncService.ApplyAction(c.Context(), userID.String(), recID, models.UserAction(req.Action), req.Feedback)
	if err != nil {
		var actionErr *models.ActionError
		if errors.As(err, &actionErr) {
			h.logger.Error("Action could not be recorded", zap.Error(err))
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Failed to record action, please retry",
			})
		}
		h.logger.Error("Failed to apply action", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to apply action",
		})
	}

	resp := dto.ActionResponse{
		Recommendation: toResponse(result.Recommendation),
		Recorded:       true,
		PriceUpdated:   result.PriceUpdated,
		POSPushed:      result.POSPushed,
	}
	if result.PriceErr != nil {
		resp.PriceError = result.PriceErr.Error()
	}
	if result.POSErr != nil {
		resp.POSError = result.POSErr.Error()
	}
	return c.JSON(resp)
}

// GetBatches godoc
// @Summary List recommendation batches
// @Description Known batches for the caller's account, newest first
// @Tags batches
// @Produce json
// @Security Bearer
// @Success 200 {array} dto.BatchResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/batches [get]
func (h *SyncHandler) GetBatches(c *fiber.Ctx) error {
	if _, err := getUserID(c); err != nil {
		return unauthorized(c)
	}

	batches, err := h.syncService.GetBatches(c.Context())
	if err != nil {
		h.logger.Error("Failed to list batches", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list batches",
		})
	}

	selectedID := uuid.Nil
	if selected, ok := h.syncService.SelectedBatch(); ok {
		selectedID = selected.ID
	}

	resp := make([]dto.BatchResponse, len(batches))
	for i, b := range batches {
		resp[i] = dto.BatchResponse{
			ID:        b.ID.String(),
			CreatedAt: b.CreatedAt.Format(time.RFC3339),
			ItemCount: b.ItemCount,
			Selected:  b.ID == selectedID,
		}
	}
	return c.JSON(resp)
}

// SelectBatch godoc
// @Summary Select the visible batch
// @Description Switches the visible recommendation set to the given batch and re-fetches it
// @Tags batches
// @Produce json
// @Param id path string true "Batch ID"
// @Security Bearer
// @Success 200 {object} dto.RecommendationListResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/batches/{id}/select [post]
func (h *SyncHandler) SelectBatch(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	batchID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid batch ID",
		})
	}

	view, fromCache, err := h.syncService.SelectBatch(c.Context(), userID.String(), batchID)
	if err != nil {
		h.logger.Error("Failed to switch batch", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to switch batch",
		})
	}

	return c.JSON(listResponse(view, fromCache))
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Unauthorized",
	})
}

func getUserID(c *fiber.Ctx) (uuid.UUID, error) {
	if id, ok := c.Locals("userID").(uuid.UUID); ok {
		return id, nil
	}
	if idStr, ok := c.Locals("userID").(string); ok {
		return uuid.Parse(idStr)
	}
	return uuid.Nil, fiber.ErrUnauthorized
}

func listResponse(recs []*models.Recommendation, fromCache bool) dto.RecommendationListResponse {
	resp := dto.RecommendationListResponse{
		Recommendations: make([]dto.RecommendationResponse, len(recs)),
		FromCache:       fromCache,
	}
	for i, rec := range recs {
		resp.Recommendations[i] = toResponse(rec)
	}
	return resp
}

func toResponse(rec *models.Recommendation) dto.RecommendationResponse {
	resp := dto.RecommendationResponse{
		ID:                   rec.ID.String(),
		ItemID:               rec.ItemID,
		ItemName:             rec.ItemName,
		CurrentPrice:         rec.CurrentPrice,
		RecommendedPrice:     rec.RecommendedPrice,
		ChangeAmount:         rec.ChangeAmount,
		ChangePercent:        rec.ChangePercent,
		ChangePercentDisplay: rec.ChangePercent * 100,
		Rationale:            rec.Rationale,
		BatchID:              rec.BatchID.String(),
		RecommendationDate:   rec.RecommendationDate.Format(time.RFC3339),
		UserFeedback:         rec.UserFeedback,
	}
	if rec.ReevaluationDate != nil {
		resp.ReevaluationDate = rec.ReevaluationDate.Format(time.RFC3339)
	}
	if rec.UserAction != nil {
		resp.UserAction = string(*rec.UserAction)
	}
	return resp
}
