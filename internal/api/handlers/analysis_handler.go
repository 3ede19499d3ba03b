package handlers

import (
	"errors"

	"pricesync/internal/dto"
	"pricesync/internal/models"
	"pricesync/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AnalysisHandler struct {
	syncService *service.SyncService
	logger      *zap.Logger
}

func NewAnalysisHandler(syncService *service.SyncService, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		syncService: syncService,
		logger:      logger,
	}
}

// RunAnalysis godoc
// @Summary Run a full pricing analysis
// @Description Submits the analysis job, waits for completion, and reconciles the result into a new batch
// @Tags analysis
// @Produce json
// @Security Bearer
// @Success 200 {object} dto.RunAnalysisResponse
// @Failure 401 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Failure 504 {object} map[string]string
// @Router /api/v1/analysis/run [post]
func (h *AnalysisHandler) RunAnalysis(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	persisted, err := h.syncService.RunAnalysis(c.Context(), userID.String())
	if err != nil {
		return h.analysisError(c, err)
	}

	return c.JSON(dto.RunAnalysisResponse{
		BatchID: persisted.Batch.ID.String(),
		Status:  string(models.JobStatusSucceeded),
		Count:   len(persisted.Recommendations),
	})
}

// RunQuickCheck godoc
// @Summary Run a quick pricing question
// @Description Chat-style micro job on the fine-grained polling path
// @Tags analysis
// @Accept json
// @Produce json
// @Param request body dto.JobSpec true "Query"
// @Security Bearer
// @Success 200 {object} dto.QuickCheckResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /api/v1/analysis/quick [post]
func (h *AnalysisHandler) RunQuickCheck(c *fiber.Ctx) error {
	if _, err := getUserID(c); err != nil {
		return unauthorized(c)
	}

	var req dto.JobSpec
	if err := c.BodyParser(&req); err != nil || req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query is required",
		})
	}

	answer, err := h.syncService.RunQuickCheck(c.Context(), req.Query)
	if err != nil {
		return h.analysisError(c, err)
	}

	return c.JSON(dto.QuickCheckResponse{
		Status: string(models.JobStatusSucceeded),
		Answer: answer,
	})
}

// GetStatus godoc
// @Summary Engine status
// @Description Coarse analysis state for progress display
// @Tags analysis
// @Produce json
// @Security Bearer
// @Success 200 {object} dto.EngineStatusResponse
// @Router /api/v1/analysis/status [get]
func (h *AnalysisHandler) GetStatus(c *fiber.Ctx) error {
	if _, err := getUserID(c); err != nil {
		return unauthorized(c)
	}
	return c.JSON(dto.EngineStatusResponse{
		Status: string(h.syncService.Status()),
	})
}

// analysisError maps the error taxonomy onto distinct user-visible
// responses: one specific notification per fatal error kind.
func (h *AnalysisHandler) analysisError(c *fiber.Ctx, err error) error {
	var (
		submission *models.SubmissionError
		jobFailed  *models.JobFailedError
		timedOut   *models.TimedOutError
		transport  *models.PollTransportError
		persist    *models.PersistenceError
	)
	switch {
	case errors.As(err, &submission):
		h.logger.Error("Analysis submission rejected", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Analysis could not be started, please retry",
		})
	case errors.As(err, &jobFailed):
		h.logger.Error("Analysis job failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Analysis failed: " + jobFailed.Message,
		})
	case errors.As(err, &timedOut):
		h.logger.Warn("Analysis watch timed out", zap.Error(err))
		return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{
			"error": "Analysis is taking longer than expected; it may still finish",
		})
	case errors.As(err, &transport):
		h.logger.Error("Analysis polling lost the backend", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Lost connection to the analysis backend",
		})
	case errors.As(err, &persist):
		h.logger.Error("Analysis results could not be saved", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Results could not be saved; they are retained locally for retry",
		})
	default:
		h.logger.Error("Analysis failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Analysis failed",
		})
	}
}
