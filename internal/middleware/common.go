package middleware

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// Config carries the dependencies of the shared middleware stack.
type Config struct {
	Logger *zerolog.Logger
}

// Register installs the base stack: panic recovery first, then correlation
// so every later log line can carry the request ID, then the metrics and
// request-logging wrapper, with CORS last.
func Register(app *fiber.App, cfg Config) {
	log := zerolog.New(io.Discard)
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	app.Use(recover.New())
	app.Use(CorrelationID())
	app.Use(Observability(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Correlation-ID",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))
}
