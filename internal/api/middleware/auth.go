package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// Auth requires the configured API key in the Authorization header.
// The comparison is constant-time.
func Auth(apiKey string) fiber.Handler {
	key := []byte(apiKey)

	return func(c *fiber.Ctx) error {
		provided := c.Get("Authorization")
		if provided == "" {
			return domain.ErrUnauthorized
		}

		if subtle.ConstantTimeCompare(key, []byte(provided)) != 1 {
			return domain.ErrUnauthorized
		}

		return c.Next()
	}
}
