package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/opetse/peereval-api/internal/config"
	"github.com/opetse/peereval-api/internal/handler"
	"github.com/opetse/peereval-api/internal/middleware"
	"github.com/opetse/peereval-api/internal/models"
	"github.com/opetse/peereval-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	EvaluationHandler *handler.EvaluationHandler
	ReportHandler     *handler.ReportHandler
	FormHandler       *handler.FormHandler
	AuditHandler      *handler.AuditHandler
	JWTMiddleware     fiber.Handler
	SubmitLimiter     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.EvaluationHandler != nil {
		evaluations := api.Group("/evaluations", jwtMiddleware)
		deps.EvaluationHandler.Register(evaluations, deps.SubmitLimiter)
	}

	if deps.ReportHandler != nil {
		reports := api.Group("/reports", jwtMiddleware)
		deps.ReportHandler.Register(reports)
	}

	if deps.FormHandler != nil {
		forms := api.Group("/forms", jwtMiddleware, middleware.RequireRole(models.RoleInstructor, models.RoleAdmin))
		deps.FormHandler.Register(forms)
	}

	if deps.AuditHandler != nil {
		audit := api.Group("/audit-logs", jwtMiddleware, middleware.RequireRole(models.RoleAdmin))
		deps.AuditHandler.Register(audit)
	}
}
