package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/opetse/peereval-api/internal/service"
	"github.com/opetse/peereval-api/internal/utils"
)

// ReportHandler exposes the aggregated report endpoints.
type ReportHandler struct {
	service service.ReportService
	logger  zerolog.Logger
}

// NewReportHandler builds a report handler instance.
func NewReportHandler(service service.ReportService, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		logger:  logger.With().Str("component", "report_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ReportHandler) Register(router fiber.Router) {
	router.Get("/project/:id", h.project)
	router.Get("/team/:id", h.team)
	router.Get("/user/:id", h.user)
	router.Get("/form/:id", h.form)
}

func (h *ReportHandler) project(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid project id")
	}

	report, err := h.service.ProjectReport(c.UserContext(), id, viewerFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "project report generated", report)
}

func (h *ReportHandler) team(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid team id")
	}

	report, err := h.service.TeamReport(c.UserContext(), id, viewerFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "team report generated", report)
}

func (h *ReportHandler) user(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	report, err := h.service.UserReport(c.UserContext(), id, viewerFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "user report generated", report)
}

func (h *ReportHandler) form(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid form id")
	}

	report, err := h.service.FormReport(c.UserContext(), id, viewerFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "form report generated", report)
}

func (h *ReportHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrProjectNotFound),
		errors.Is(err, service.ErrTeamNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrFormNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrStoreUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "datastore temporarily unavailable, retry later")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
