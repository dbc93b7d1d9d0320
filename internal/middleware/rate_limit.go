package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/scholaris-io/results-api/internal/utils"
)

// RateLimit bounds how often one caller may hit an expensive endpoint,
// keyed on the authenticated user when present and the client IP otherwise.
func RateLimit(name string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			if id, ok := c.Locals("user_id").(uint); ok && id != 0 {
				return name + ":" + strconv.FormatUint(uint64(id), 10)
			}
			return name + ":" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.SendErrorWithCode(c, fiber.StatusTooManyRequests, utils.CodeRateLimited, "too many requests", nil)
		},
	})
}
