package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/scholaris-io/results-api/internal/dto"
	"github.com/scholaris-io/results-api/internal/service"
	"github.com/scholaris-io/results-api/internal/utils"
)

// WorkflowHandler exposes the per-class report workflow state and the
// publish transition.
type WorkflowHandler struct {
	service service.WorkflowService
	logger  zerolog.Logger
}

func NewWorkflowHandler(service service.WorkflowService, logger zerolog.Logger) *WorkflowHandler {
	return &WorkflowHandler{
		service: service,
		logger:  logger.With().Str("component", "workflow_handler").Logger(),
	}
}

// Register attaches workflow routes to the exams group.
func (h *WorkflowHandler) Register(router fiber.Router) {
	router.Get("/:examId/classes/:classId/workflow", h.get)
	router.Post("/:examId/classes/:classId/workflow/publish", h.publish)
}

func (h *WorkflowHandler) get(c *fiber.Ctx) error {
	examID, classID, err := scopeParams(c)
	if err != nil {
		return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodeValidation, err.Error(), nil)
	}

	response, err := h.service.Get(c.Context(), examID, classID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "workflow retrieved", response)
}

func (h *WorkflowHandler) publish(c *fiber.Ctx) error {
	examID, classID, err := scopeParams(c)
	if err != nil {
		return utils.SendErrorWithCode(c, fiber.StatusBadRequest, utils.CodeValidation, err.Error(), nil)
	}

	actor := actorFromContext(c)
	if !actor.IsAdmin() {
		return utils.SendErrorWithCode(c, fiber.StatusForbidden, utils.CodeForbidden, "only administrators may publish report cards", nil)
	}

	workflow, err := h.service.Publish(c.Context(), examID, classID, actor.ID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "report cards published", dto.NewWorkflowResponse(workflow))
}

func (h *WorkflowHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrWorkflowNotFound):
		return utils.SendErrorWithCode(c, fiber.StatusNotFound, utils.CodeNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrInvalidStageTransition):
		return utils.SendErrorWithCode(c, fiber.StatusConflict, utils.CodeConflict, err.Error(), nil)
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("workflow operation failed")
		return utils.SendErrorWithCode(c, fiber.StatusInternalServerError, utils.CodeInternal, "internal server error", nil)
	}
}

func scopeParams(c *fiber.Ctx) (uint, uint, error) {
	examID, err := parseUintParam(c, "examId")
	if err != nil {
		return 0, 0, err
	}
	classID, err := parseUintParam(c, "classId")
	if err != nil {
		return 0, 0, err
	}
	return examID, classID, nil
}
