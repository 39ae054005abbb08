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

// EvaluationHandler manages the evaluation submission and read endpoints.
type EvaluationHandler struct {
	service service.EvaluationService
	logger  zerolog.Logger
}

// NewEvaluationHandler builds an evaluation handler instance.
func NewEvaluationHandler(service service.EvaluationService, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service: service,
		logger:  logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. submitLimiter
// guards the write endpoint only; pass nil to disable rate limiting.
func (h *EvaluationHandler) Register(router fiber.Router, submitLimiter fiber.Handler) {
	if submitLimiter != nil {
		router.Post("", submitLimiter, h.submit)
	} else {
		router.Post("", h.submit)
	}
	router.Get("", h.list)
	router.Get("/:id", h.get)
}

func (h *EvaluationHandler) submit(c *fiber.Ctx) error {
	var payload dto.EvaluationSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	evaluator := viewerFromContext(c)
	if evaluator.ID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	evaluation, err := h.service.Submit(c.UserContext(), evaluator, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "evaluation submitted", evaluation)
}

func (h *EvaluationHandler) list(c *fiber.Ctx) error {
	filter := dto.EvaluationFilter{}
	for key, target := range map[string]**uint{
		"form_id":      &filter.FormID,
		"team_id":      &filter.TeamID,
		"evaluator_id": &filter.EvaluatorID,
		"evaluatee_id": &filter.EvaluateeID,
	} {
		parsed, err := parseQueryUint(c, key)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid "+key)
		}
		*target = parsed
	}

	evaluations, err := h.service.List(c.UserContext(), filter, viewerFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "evaluations retrieved", evaluations)
}

func (h *EvaluationHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid evaluation id")
	}

	evaluation, err := h.service.Get(c.UserContext(), id, viewerFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "evaluation retrieved", evaluation)
}

func (h *EvaluationHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	var deadlineErr *service.DeadlinePassedError
	switch {
	case errors.Is(err, service.ErrSelfEvaluation):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &deadlineErr):
		return utils.SendError(c, fiber.StatusForbidden, deadlineErr.Error())
	case errors.Is(err, service.ErrFormNotFound),
		errors.Is(err, service.ErrTeamNotFound),
		errors.Is(err, service.ErrEvaluatorNotFound),
		errors.Is(err, service.ErrEvaluateeNotFound),
		errors.Is(err, service.ErrEvaluationNotFound),
		errors.Is(err, service.ErrCriterionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotATeamMember),
		errors.Is(err, service.ErrRepeatedCriterionScore):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrDuplicateEvaluation):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, scoring.ErrScoreOutOfRange),
		errors.Is(err, scoring.ErrScoreMissing),
		errors.Is(err, scoring.ErrInvalidWeightConfiguration):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrStoreUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "datastore temporarily unavailable, retry later")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
