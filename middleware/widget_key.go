// middleware/widget_key.go
package middleware

import (
	"errors"
	"log"

	"quest-widget-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// WidgetKeyMiddleware resolves the project behind the X-Widget-Key header and
// attaches it to the request context. The widget key is a public embed
// credential: it scopes requests to one project, it does not authenticate a
// user — wallet signatures do that where it matters (verification).
func WidgetKeyMiddleware(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("X-Widget-Key")
		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-Widget-Key header",
			})
		}

		var project models.Project
		if err := db.Where("widget_key = ?", key).First(&project).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "unknown widget key",
				})
			}
			log.Printf("❌ [WIDGET_KEY] DB error resolving key: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to resolve project",
			})
		}

		c.Locals("project", &project)
		return c.Next()
	}
}

// ProjectFromCtx returns the project resolved by WidgetKeyMiddleware.
func ProjectFromCtx(c *fiber.Ctx) *models.Project {
	project, _ := c.Locals("project").(*models.Project)
	return project
}
