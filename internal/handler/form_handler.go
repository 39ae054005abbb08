package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/opetse/peereval-api/internal/dto"
	"github.com/opetse/peereval-api/internal/scoring"
	"github.com/opetse/peereval-api/internal/service"
	"github.com/opetse/peereval-api/internal/utils"
)

// FormHandler manages the form administration endpoints.
type FormHandler struct {
	service service.FormService
	logger  zerolog.Logger
}

// NewFormHandler builds a form handler instance.
func NewFormHandler(service service.FormService, logger zerolog.Logger) *FormHandler {
	return &FormHandler{
		service: service,
		logger:  logger.With().Str("component", "form_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *FormHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Put("/:id/criteria", h.updateCriteria)
	router.Patch("/:id/deadline", h.extendDeadline)
	router.Post("/:id/late-permissions", h.grantLatePermission)
	router.Delete("/:id/late-permissions/:userId", h.revokeLatePermission)
}

func (h *FormHandler) create(c *fiber.Ctx) error {
	var payload dto.FormCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	form, err := h.service.Create(c.UserContext(), viewerFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "form created", form)
}

func (h *FormHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid form id")
	}

	form, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "form retrieved", form)
}

func (h *FormHandler) updateCriteria(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid form id")
	}

	var payload dto.FormCriteriaUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	form, err := h.service.UpdateCriteria(c.UserContext(), viewerFromContext(c), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "form criteria updated", form)
}

func (h *FormHandler) extendDeadline(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid form id")
	}

	var payload dto.FormDeadlineRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	form, err := h.service.ExtendDeadline(c.UserContext(), viewerFromContext(c), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "form deadline extended", form)
}

func (h *FormHandler) grantLatePermission(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid form id")
	}

	var payload dto.LatePermissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	permission, err := h.service.GrantLatePermission(c.UserContext(), viewerFromContext(c), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "late submission permission granted", permission)
}

func (h *FormHandler) revokeLatePermission(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid form id")
	}

	userID, err := parseUintParam(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	if err := h.service.RevokeLatePermission(c.UserContext(), viewerFromContext(c), id, userID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "late submission permission revoked", nil)
}

func (h *FormHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrFormNotFound),
		errors.Is(err, service.ErrProjectNotFound),
		errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, scoring.ErrInvalidWeightConfiguration),
		errors.Is(err, service.ErrCriteriaPointsMismatch),
		errors.Is(err, service.ErrDeadlineNotExtended):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrFormLocked):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrStoreUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "datastore temporarily unavailable, retry later")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
