// handlers/widget_routes.go
package handlers

import (
	"strconv"
	"strings"
	"time"

	"quest-widget-system/middleware"
	"quest-widget-system/models"
	"quest-widget-system/progression"
	"quest-widget-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupWidgetRoutes wires the public widget surface: everything the embedded
// runtime calls, authenticated by the project's widget key.
func SetupWidgetRoutes(
	app *fiber.App,
	db *gorm.DB,
	userService *services.UserService,
	progressionService *services.ProgressionService,
	claimService *services.ClaimService,
	leaderboardService *services.LeaderboardService,
) {
	w := app.Group("/w", middleware.WidgetKeyMiddleware(db))

	// Widget bootstrap: project config + task list (the flat task contract).
	w.Get("/config", func(c *fiber.Ctx) error {
		project := middleware.ProjectFromCtx(c)

		var tasks []models.Task
		if err := db.Where("project_id = ?", project.ID).
			Order("section ASC, sort_order ASC, created_at ASC").
			Find(&tasks).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load tasks",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"project_id":   project.ID,
			"name":         project.Name,
			"status":       project.Status,
			"accent_color": project.AccentColor,
			"position":     project.Position,
			"theme":        project.Theme,
			"size":         project.Size,
			"tasks":        tasks,
		})
	})

	// Idempotent user upsert for a connecting wallet.
	w.Post("/users", func(c *fiber.Ctx) error {
		project := middleware.ProjectFromCtx(c)

		var req struct {
			WalletAddress string `json:"wallet_address"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}

		user, err := userService.UpsertWidgetUser(project.ID, req.WalletAddress)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to upsert user",
				"cause": err.Error(),
			})
		}
		if _, err := progressionService.EnsureProgressRecord(user.ID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to initialize progress",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{"user_id": user.ID, "wallet_address": user.WalletAddress})
	})

	// Authoritative progress read, with daily-claim eligibility precomputed
	// against today's UTC calendar day.
	w.Get("/users/:userID/progress", func(c *fiber.Ctx) error {
		user, err := requireUser(c, userService)
		if err != nil {
			return err
		}
		prog, err := progressionService.EnsureProgressRecord(user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load progress",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"xp":              prog.XP,
			"streak":          prog.Streak,
			"last_claim_date": prog.LastClaimDate,
			"daily_claimed":   progression.ClaimedToday(prog.LastClaimDate, time.Now()),
			"level":           progression.LevelForXP(prog.XP),
		})
	})

	// Last-write-wins XP write-back from the widget's persistence tail.
	w.Put("/users/:userID/progress", func(c *fiber.Ctx) error {
		user, err := requireUser(c, userService)
		if err != nil {
			return err
		}
		var req struct {
			XP int64 `json:"xp"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		prog, err := progressionService.SetXP(user.ID, req.XP)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to write progress",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"xp": prog.XP})
	})

	w.Get("/users/:userID/completions", func(c *fiber.Ctx) error {
		user, err := requireUser(c, userService)
		if err != nil {
			return err
		}
		completions, err := progressionService.ListCompletions(user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load completions",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"completions": completions})
	})

	// Completion record insert — dedup only, no XP award (the widget owns the
	// optimistic XP write-back; server-authoritative flows use /verify).
	w.Post("/users/:userID/completions", func(c *fiber.Ctx) error {
		user, err := requireUser(c, userService)
		if err != nil {
			return err
		}
		var req struct {
			TaskID      string `json:"task_id"`
			CompletedOn string `json:"completed_on"`
			XPAwarded   int64  `json:"xp_awarded"`
		}
		if err := c.BodyParser(&req); err != nil || req.TaskID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "task_id is required"})
		}

		project := middleware.ProjectFromCtx(c)
		var task models.Task
		if err := db.Where("id = ? AND project_id = ?", req.TaskID, project.ID).First(&task).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "task not found"})
		}

		granted, err := progressionService.InsertCompletion(user.ID, task.ID, req.CompletedOn, req.XPAwarded, "widget")
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to record completion",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"granted": granted})
	})

	// Global XP across all projects for tier display.
	w.Get("/global-xp/:wallet", func(c *fiber.Ctx) error {
		wallet := strings.ToLower(c.Params("wallet"))
		total, err := progressionService.GlobalXP(wallet)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to aggregate global xp",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"wallet_address": wallet,
			"total_xp":       total,
			"level":          progression.LevelForXP(total),
			"tier":           progression.TierForXP(total),
		})
	})

	// Atomic daily-bonus claim RPC.
	w.Post("/users/:userID/claims/daily", func(c *fiber.Ctx) error {
		user, err := requireUser(c, userService)
		if err != nil {
			return err
		}
		result, err := claimService.ClaimDaily(user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "daily claim failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})

	// Atomic leaderboard-reward claim RPC.
	w.Post("/users/:userID/claims/leaderboard", func(c *fiber.Ctx) error {
		user, err := requireUser(c, userService)
		if err != nil {
			return err
		}
		var req struct {
			Period string `json:"period"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		result, err := claimService.ClaimLeaderboardReward(c.Context(), user, progression.ClaimPeriod(req.Period))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "leaderboard claim failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})

	w.Get("/leaderboard", func(c *fiber.Ctx) error {
		project := middleware.ProjectFromCtx(c)
		limit, _ := strconv.Atoi(c.Query("limit", "10"))
		entries, err := leaderboardService.Top(c.Context(), project.ID, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load leaderboard",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"leaderboard": entries, "total": len(entries)})
	})

	w.Get("/users/:userID/rank", func(c *fiber.Ctx) error {
		user, err := requireUser(c, userService)
		if err != nil {
			return err
		}
		rank, err := leaderboardService.Rank(c.Context(), user.ProjectID, user.WalletAddress)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to resolve rank",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"rank": rank})
	})

	// Social-share viral boost, once per platform per UTC day.
	w.Post("/users/:userID/boosts", func(c *fiber.Ctx) error {
		user, err := requireUser(c, userService)
		if err != nil {
			return err
		}
		var req struct {
			Platform string `json:"platform"`
			XP       int64  `json:"xp"`
		}
		if err := c.BodyParser(&req); err != nil || req.Platform == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "platform is required"})
		}
		if req.XP <= 0 {
			req.XP = progression.DefaultBoostXP
		}

		day := progression.UTCDayStamp(time.Now())
		granted, err := progressionService.RecordBoost(user.ProjectID, user.ID, user.WalletAddress, req.Platform, day, req.XP)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to record boost",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"granted": granted, "platform": req.Platform, "shared_on": day})
	})

	w.Get("/boosts/:wallet/today", func(c *fiber.Ctx) error {
		project := middleware.ProjectFromCtx(c)
		wallet := strings.ToLower(c.Params("wallet"))
		day := progression.UTCDayStamp(time.Now())
		platforms, err := progressionService.TodayBoosts(project.ID, wallet, day)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load boosts",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"platforms": platforms, "shared_on": day})
	})
}

// requireUser loads the :userID route param scoped to the key's project,
// replying 404 itself when the user does not belong here.
func requireUser(c *fiber.Ctx, userService *services.UserService) (*models.WidgetUser, error) {
	project := middleware.ProjectFromCtx(c)
	user, err := userService.GetWidgetUser(project.ID, c.Params("userID"))
	if err != nil {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	}
	return user, nil
}
