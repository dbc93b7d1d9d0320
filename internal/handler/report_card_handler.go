package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/scholaris-io/results-api/internal/dto"
	"github.com/scholaris-io/results-api/internal/service"
	"github.com/scholaris-io/results-api/internal/utils"
)

// ReportCardHandler wires report card generation and read routes.
type ReportCardHandler struct {
	service service.ReportCardService
	logger  zerolog.Logger
}

// NewReportCardHandler constructs the handler.
func NewReportCardHandler(service service.ReportCardService, logger zerolog.Logger) *ReportCardHandler {
	return &ReportCardHandler{
		service: service,
		logger:  logger.With().Str("component", "report_card_handler").Logger(),
	}
}

// RegisterGenerate attaches the generation endpoint to the exams group.
// Extra middlewares (rate limiting) slot in before the handler.
func (h *ReportCardHandler) RegisterGenerate(router fiber.Router, middlewares ...fiber.Handler) {
	handlers := append(middlewares, h.generate)
	router.Post("/:examId/classes/:classId/report-cards/generate", handlers...)
}

// RegisterReads attaches the role-filtered read endpoint.
func (h *ReportCardHandler) RegisterReads(router fiber.Router) {
	router.Get("", h.list)
}

func (h *ReportCardHandler) generate(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "examId")
	if err != nil {
		return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodeValidation, err.Error(), nil)
	}
	classID, err := parseUintParam(c, "classId")
	if err != nil {
		return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodeValidation, err.Error(), nil)
	}

	// Body is optional: remarks only.
	var payload dto.GenerateReportCardsRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodeValidation, "invalid request body", nil)
		}
	}

	actor := actorFromContext(c)
	response, err := h.service.Generate(c.Context(), examID, classID, actor, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "report cards generated", response)
}

func (h *ReportCardHandler) list(c *fiber.Ctx) error {
	var query dto.ReportCardQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodeValidation, "invalid query parameters", nil)
	}

	actor := actorFromContext(c)
	responses, err := h.service.List(c.Context(), query, actor)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "report cards retrieved", responses)
}

func (h *ReportCardHandler) handleError(c *fiber.Ctx, err error) error {
	var incomplete *service.IncompleteSubjectsError
	switch {
	case errors.Is(err, service.ErrExamNotFound), errors.Is(err, service.ErrClassNotFound):
		return utils.SendErrorWithCode(c, fiber.StatusNotFound, utils.CodeNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrNotClassSupervisor), errors.Is(err, service.ErrReportAccessDenied):
		return utils.SendErrorWithCode(c, fiber.StatusForbidden, utils.CodeForbidden, err.Error(), nil)
	case errors.As(err, &incomplete):
		return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodePrecondition, err.Error(), fiber.Map{
			"incomplete_subjects": incomplete.Subjects,
		})
	case errors.Is(err, service.ErrNoSubjectsConfigured):
		return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodePrecondition, err.Error(), nil)
	case isValidationError(err):
		return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodeValidation, err.Error(), nil)
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("report card operation failed")
		return utils.SendErrorWithCode(c, fiber.StatusInternalServerError, utils.CodeInternal, "internal server error", nil)
	}
}
