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
	"github.com/rs/zerolog"

	"github.com/scholaris-io/results-api/internal/config"
	"github.com/scholaris-io/results-api/internal/database"
	"github.com/scholaris-io/results-api/internal/grading"
	"github.com/scholaris-io/results-api/internal/handler"
	"github.com/scholaris-io/results-api/internal/middleware"
	"github.com/scholaris-io/results-api/internal/models"
	"github.com/scholaris-io/results-api/internal/repository"
	"github.com/scholaris-io/results-api/internal/router"
	"github.com/scholaris-io/results-api/internal/service"
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
		&models.Student{},
		&models.Teacher{},
		&models.Class{},
		&models.Subject{},
		&models.Exam{},
		&models.ExamSubject{},
		&models.ExamResult{},
		&models.ExamSummary{},
		&models.ReportCard{},
		&models.ReportCardSubject{},
		&models.ReportWorkflow{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	scales := grading.NewRegistry()
	if cfg.GradeScaleFile != "" {
		scale, err := grading.LoadScale(cfg.GradeScaleFile)
		if err != nil {
			log.Fatalf("failed to load grade scale file: %v", err)
		}
		scales = grading.NewRegistry(scale)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	examRepo := repository.NewExamRepository(db)
	resultRepo := repository.NewResultRepository(db)
	rosterRepo := repository.NewRosterRepository(db)
	summaryRepo := repository.NewSummaryRepository(db)
	reportCardRepo := repository.NewReportCardRepository(db)
	workflowRepo := repository.NewWorkflowRepository(db)

	workflowService := service.NewWorkflowService(workflowRepo, examRepo, logger)
	marksService := service.NewMarksService(examRepo, resultRepo, rosterRepo, workflowService, scales, validate, logger)
	summaryService := service.NewSummaryService(examRepo, resultRepo, summaryRepo, scales, logger)
	reportCardService := service.NewReportCardService(examRepo, resultRepo, rosterRepo, reportCardRepo, workflowService, scales, validate, redisClient, cfg.ReportCacheTTL, logger)

	marksHandler := handler.NewMarksHandler(marksService, logger)
	summaryHandler := handler.NewSummaryHandler(summaryService, logger)
	reportCardHandler := handler.NewReportCardHandler(reportCardService, logger)
	workflowHandler := handler.NewWorkflowHandler(workflowService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		MarksHandler:      marksHandler,
		SummaryHandler:    summaryHandler,
		ReportCardHandler: reportCardHandler,
		WorkflowHandler:   workflowHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
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
