// handlers/project_routes.go
package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"quest-widget-system/middleware"
	"quest-widget-system/models"
	"quest-widget-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// SetupProjectRoutes wires the builder-facing admin surface: project and task
// authoring plus publishing. The builder UI itself lives elsewhere — these are
// its persistence endpoints.
func SetupProjectRoutes(app *fiber.App, db *gorm.DB) {
	admin := app.Group("/s/admin", middleware.BuilderAuthMiddleware())

	admin.Post("/projects", func(c *fiber.Ctx) error {
		var req struct {
			Name        string `json:"name"`
			AccentColor string `json:"accent_color"`
			Position    string `json:"position"`
			Theme       string `json:"theme"`
			Size        string `json:"size"`
		}
		if err := c.BodyParser(&req); err != nil || req.Name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
		}

		project := models.Project{
			ID:          uuid.NewString(),
			Name:        req.Name,
			Slug:        slug.Make(req.Name),
			WidgetKey:   "wk_" + uuid.NewString(),
			Status:      models.ProjectStatusDraft,
			AccentColor: defaultStr(req.AccentColor, "#6366f1"),
			Position:    defaultStr(req.Position, "bottom-right"),
			Theme:       defaultStr(req.Theme, "dark"),
			Size:        defaultStr(req.Size, "medium"),
		}
		if err := db.Create(&project).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create project",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(project)
	})

	admin.Post("/projects/:id/publish", func(c *fiber.Ctx) error {
		var project models.Project
		if err := db.First(&project, "id = ?", c.Params("id")).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "project not found"})
		}
		now := time.Now().UTC()
		project.Status = models.ProjectStatusPublished
		project.PublishedAt = &now
		if err := db.Save(&project).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to publish project",
				"cause": err.Error(),
			})
		}
		return c.JSON(project)
	})

	admin.Post("/projects/:id/tasks", func(c *fiber.Ctx) error {
		var project models.Project
		if err := db.First(&project, "id = ?", c.Params("id")).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "project not found"})
		}

		var task models.Task
		if err := c.BodyParser(&task); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid task payload"})
		}
		if task.Title == "" || task.Kind == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title and kind are required"})
		}
		if task.XP < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "xp must be non-negative"})
		}

		task.ID = uuid.NewString()
		task.ProjectID = project.ID
		if err := db.Create(&task).Error; err != nil {
			// Titles are unique per project — duplicate titles would make the
			// legacy title-match fallback ambiguous, so they are rejected
			// outright rather than silently resolving to the first match.
			if isUniqueViolation(err) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error": fmt.Sprintf("a task titled %q already exists in this project", task.Title),
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create task",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(task)
	})

	admin.Put("/tasks/:id", func(c *fiber.Ctx) error {
		var task models.Task
		if err := db.First(&task, "id = ?", c.Params("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "task not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}

		var updated models.Task
		if err := c.BodyParser(&updated); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid task payload"})
		}
		// ID, project and ledger history are immutable from here.
		updated.ID = task.ID
		updated.ProjectID = task.ProjectID
		updated.Timestamps = task.Timestamps
		if err := db.Save(&updated).Error; err != nil {
			if isUniqueViolation(err) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error": fmt.Sprintf("a task titled %q already exists in this project", updated.Title),
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to update task",
				"cause": err.Error(),
			})
		}
		return c.JSON(updated)
	})

	admin.Delete("/tasks/:id", func(c *fiber.Ctx) error {
		res := db.Delete(&models.Task{}, "id = ?", c.Params("id"))
		if res.Error != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to delete task",
				"cause": res.Error.Error(),
			})
		}
		if res.RowsAffected == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "task not found"})
		}
		return c.JSON(fiber.Map{"message": "task deleted"})
	})

	// Task icon upload — stored on R2, URL attached to the task. Icon
	// failures are cosmetic: the widget treats a missing icon as a default.
	admin.Post("/tasks/:id/icon", func(c *fiber.Ctx) error {
		var task models.Task
		if err := db.First(&task, "id = ?", c.Params("id")).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "task not found"})
		}

		fileHeader, err := c.FormFile("icon")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "icon file is required"})
		}

		key := fmt.Sprintf("icons/%s/%s", task.ProjectID, task.ID)
		url, err := utils.UploadIcon(fileHeader, key)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to upload icon",
				"cause": err.Error(),
			})
		}

		task.IconURL = url
		if err := db.Save(&task).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to attach icon",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"icon_url": url})
	})
}

func defaultStr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func isUniqueViolation(err error) bool {
	// 23505 = postgres unique_violation
	return err != nil && (errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "23505"))
}
