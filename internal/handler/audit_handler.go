package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/opetse/peereval-api/internal/dto"
	"github.com/opetse/peereval-api/internal/service"
	"github.com/opetse/peereval-api/internal/utils"
)

// AuditHandler exposes the read-only audit trail endpoint.
type AuditHandler struct {
	service service.AuditService
	logger  zerolog.Logger
}

// NewAuditHandler builds an audit handler instance.
func NewAuditHandler(service service.AuditService, logger zerolog.Logger) *AuditHandler {
	return &AuditHandler{
		service: service,
		logger:  logger.With().Str("component", "audit_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AuditHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *AuditHandler) list(c *fiber.Ctx) error {
	var req dto.AuditLogListRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}
	if req.PageSize <= 0 || req.PageSize > 500 {
		req.PageSize = 50
	}

	logs, err := h.service.List(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, service.ErrStoreUnavailable) {
			return utils.SendError(c, fiber.StatusServiceUnavailable, "datastore temporarily unavailable, retry later")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "audit logs retrieved", logs)
}
