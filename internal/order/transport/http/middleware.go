package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// NewIdentityMiddleware reads the caller identity from the X-User-ID header
// set by the edge proxy. The value is trusted as already authenticated.
func NewIdentityMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get("X-User-ID")
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID header",
			})
		}

		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid X-User-ID header",
			})
		}

		c.Locals("userId", userID)

		return c.Next()
	}
}
