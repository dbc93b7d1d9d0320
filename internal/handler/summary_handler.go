package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/scholaris-io/results-api/internal/service"
	"github.com/scholaris-io/results-api/internal/utils"
)

// SummaryHandler serves per-exam summary recomputation.
type SummaryHandler struct {
	service service.SummaryService
	logger  zerolog.Logger
}

func NewSummaryHandler(service service.SummaryService, logger zerolog.Logger) *SummaryHandler {
	return &SummaryHandler{
		service: service,
		logger:  logger.With().Str("component", "summary_handler").Logger(),
	}
}

// Register attaches summary routes to the exams group.
func (h *SummaryHandler) Register(router fiber.Router) {
	router.Get("/:examId/summaries", h.summaries)
}

func (h *SummaryHandler) summaries(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "examId")
	if err != nil {
		return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodeValidation, err.Error(), nil)
	}

	responses, err := h.service.RecomputeSummaries(c.Context(), examID)
	if err != nil {
		if errors.Is(err, service.ErrExamNotFound) {
			return utils.SendErrorWithCode(c, fiber.StatusNotFound, utils.CodeNotFound, err.Error(), nil)
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("summary recompute failed")
		return utils.SendErrorWithCode(c, fiber.StatusInternalServerError, utils.CodeInternal, "internal server error", nil)
	}

	return utils.SendSuccess(c, "exam summaries computed", responses)
}
