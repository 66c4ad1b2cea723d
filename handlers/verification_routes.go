// handlers/verification_routes.go
package handlers

import (
	"quest-widget-system/middleware"
	"quest-widget-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupVerificationRoutes wires the on-chain hold verification endpoints. The
// widget submits the signed challenge here; the server is the sole authority
// on the balance check and the grant.
func SetupVerificationRoutes(app *fiber.App, db *gorm.DB, verificationService *services.VerificationService) {
	w := app.Group("/w", middleware.WidgetKeyMiddleware(db))

	verify := func(c *fiber.Ctx) error {
		project := middleware.ProjectFromCtx(c)
		if !project.IsPublished() {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "verification requires a published project",
			})
		}

		var req services.VerifyRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		// The key's project is authoritative, whatever the body claims.
		req.ProjectID = project.ID

		result, err := verificationService.VerifyHold(c.Context(), &req)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "verification failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	}

	w.Post("/verify/nft", verify)
	w.Post("/verify/token", verify)
}
