// middleware/gateway.go
package middleware

import (
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// BuilderAuthMiddleware validates the Bearer token the builder dashboard's
// gateway attaches to admin requests. Widget-facing routes use the public
// widget key instead (see WidgetKeyMiddleware).
func BuilderAuthMiddleware() fiber.Handler {
	expectedToken := os.Getenv("WIDGET_SERVICE_TOKEN")
	if expectedToken == "" {
		log.Fatal("❌ WIDGET_SERVICE_TOKEN is not set — service cannot authenticate builder requests")
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			log.Printf("🚫 [BUILDER_AUTH] Missing Authorization header for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "builder authentication token missing",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			// no "Bearer " prefix — try raw value
			token = authHeader
		}

		if token != expectedToken {
			log.Printf("❌ [BUILDER_AUTH] Invalid token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid builder authentication token",
			})
		}

		return c.Next()
	}
}
