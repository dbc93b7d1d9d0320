package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/scholaris-io/results-api/internal/config"
	"github.com/scholaris-io/results-api/internal/utils"
)

// HealthCheck reports liveness and the service identity for load balancers
// and uptime probes.
func HealthCheck(cfg config.Config) fiber.Handler {
	started := time.Now()

	return func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, "service healthy", fiber.Map{
			"status":         "ok",
			"service":        cfg.AppName,
			"environment":    cfg.AppEnv,
			"uptime_seconds": int64(time.Since(started).Seconds()),
			"timestamp":      time.Now().UTC(),
		})
	}
}
