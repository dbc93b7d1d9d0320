package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/scholaris-io/results-api/internal/config"
	"github.com/scholaris-io/results-api/internal/handler"
	"github.com/scholaris-io/results-api/internal/middleware"
	"github.com/scholaris-io/results-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	MarksHandler      *handler.MarksHandler
	SummaryHandler    *handler.SummaryHandler
	ReportCardHandler *handler.ReportCardHandler
	WorkflowHandler   *handler.WorkflowHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	exams := api.Group("/exams", jwtMiddleware, middleware.RequireRole("admin", "teacher"))

	if deps.MarksHandler != nil {
		deps.MarksHandler.Register(exams)
	}

	if deps.SummaryHandler != nil {
		deps.SummaryHandler.Register(exams)
	}

	if deps.ReportCardHandler != nil {
		generateLimit := middleware.RateLimit("report-card-generate", cfg.GenerateRateMax, cfg.GenerateRatePer)
		deps.ReportCardHandler.RegisterGenerate(exams, generateLimit)

		reports := api.Group("/report-cards", jwtMiddleware, middleware.RequireRole("admin", "teacher", "student"))
		deps.ReportCardHandler.RegisterReads(reports)
	}

	if deps.WorkflowHandler != nil {
		deps.WorkflowHandler.Register(exams)
	}
}
