package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/scholaris-io/results-api/internal/dto"
	"github.com/scholaris-io/results-api/internal/service"
	"github.com/scholaris-io/results-api/internal/utils"
)

// MarksHandler wires marks entry HTTP routes.
type MarksHandler struct {
	service service.MarksService
	logger  zerolog.Logger
}

// NewMarksHandler constructs the handler.
func NewMarksHandler(service service.MarksService, logger zerolog.Logger) *MarksHandler {
	return &MarksHandler{
		service: service,
		logger:  logger.With().Str("component", "marks_handler").Logger(),
	}
}

// Register attaches marks endpoints to the exams router group.
func (h *MarksHandler) Register(router fiber.Router) {
	router.Post("/:examId/classes/:classId/subjects/:subjectId/marks", h.submit)
	router.Get("/:examId/subjects/:subjectId/lock", h.lockStatus)
}

func (h *MarksHandler) submit(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "examId")
	if err != nil {
		return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodeValidation, err.Error(), nil)
	}
	classID, err := parseUintParam(c, "classId")
	if err != nil {
		return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodeValidation, err.Error(), nil)
	}
	subjectID, err := parseUintParam(c, "subjectId")
	if err != nil {
		return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodeValidation, err.Error(), nil)
	}

	var payload dto.MarksSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodeValidation, "invalid request body", nil)
	}

	actor := actorFromContext(c)
	response, err := h.service.SubmitMarks(c.Context(), examID, classID, subjectID, actor, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "marks submitted and subject locked", response)
}

func (h *MarksHandler) lockStatus(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "examId")
	if err != nil {
		return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodeValidation, err.Error(), nil)
	}
	subjectID, err := parseUintParam(c, "subjectId")
	if err != nil {
		return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodeValidation, err.Error(), nil)
	}

	response, err := h.service.LockStatus(c.Context(), examID, subjectID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "lock status retrieved", response)
}

func (h *MarksHandler) handleError(c *fiber.Ctx, err error) error {
	var marksValidation *service.MarksValidationError
	switch {
	case errors.Is(err, service.ErrExamNotFound),
		errors.Is(err, service.ErrClassNotFound),
		errors.Is(err, service.ErrExamSubjectNotFound):
		return utils.SendErrorWithCode(c, fiber.StatusNotFound, utils.CodeNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrNotAssignedTeacher):
		return utils.SendErrorWithCode(c, fiber.StatusForbidden, utils.CodeForbidden, err.Error(), nil)
	case errors.Is(err, service.ErrSubjectLocked):
		return utils.SendErrorWithCode(c, fiber.StatusConflict, utils.CodeConflict, err.Error(), nil)
	case errors.As(err, &marksValidation):
		return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodeValidation, "invalid marks submission", fiber.Map{
			"issues": marksValidation.Issues,
		})
	case isValidationError(err):
		return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodeValidation, err.Error(), nil)
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("marks submission failed")
		return utils.SendErrorWithCode(c, fiber.StatusInternalServerError, utils.CodeInternal, "internal server error", nil)
	}
}
