package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/opetse/peereval-api/internal/config"
	"github.com/opetse/peereval-api/internal/database"
	"github.com/opetse/peereval-api/internal/handler"
	"github.com/opetse/peereval-api/internal/middleware"
	"github.com/opetse/peereval-api/internal/models"
	"github.com/opetse/peereval-api/internal/repository"
	"github.com/opetse/peereval-api/internal/router"
	"github.com/opetse/peereval-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Team{},
		&models.EvaluationForm{},
		&models.FormCriterion{},
		&models.Evaluation{},
		&models.EvaluationScore{},
		&models.LateSubmissionPermission{},
		&models.AuditLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	// NATS wiring is optional; the publisher drops events when the conn is nil.
	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	evaluationRepo := repository.NewEvaluationRepository(db)
	formRepo := repository.NewFormRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	latePermRepo := repository.NewLatePermissionRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	auditService := service.NewAuditService(auditRepo, logger)
	eventPublisher := service.NewNATSEventPublisher(natsConn, cfg.EventSubject, logger)
	evaluationService := service.NewEvaluationService(
		evaluationRepo, formRepo, teamRepo, userRepo, latePermRepo,
		auditService, eventPublisher, validate, cfg.StoreTimeout, logger,
	)
	reportService := service.NewReportService(
		evaluationRepo, teamRepo, userRepo, projectRepo, formRepo,
		auditService, redisClient, cfg.ReportCacheTTL, logger,
	)
	formService := service.NewFormService(
		formRepo, projectRepo, userRepo, evaluationRepo, latePermRepo,
		auditService, validate, logger,
	)

	evaluationHandler := handler.NewEvaluationHandler(evaluationService, logger)
	reportHandler := handler.NewReportHandler(reportService, logger)
	formHandler := handler.NewFormHandler(formService, logger)
	auditHandler := handler.NewAuditHandler(auditService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		EvaluationHandler: evaluationHandler,
		ReportHandler:     reportHandler,
		FormHandler:       formHandler,
		AuditHandler:      auditHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
		SubmitLimiter:     middleware.RateLimit("evaluation-submit", cfg.SubmitRateMax, cfg.SubmitRateWin),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
