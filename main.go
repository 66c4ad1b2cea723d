package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"quest-widget-system/handlers"
	"quest-widget-system/models"
	"quest-widget-system/services"
	"quest-widget-system/utils"
	"quest-widget-system/workers"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB, icons are the only upload
	})

	// The widget is embedded on arbitrary third-party sites, so the public
	// /w surface must answer any origin. The widget key does the gating.
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		allowedOriginsEnv = "*"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:  allowedOriginsString,
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Widget-Key",
		ExposeHeaders: "Content-Length, Content-Type",
		MaxAge:        86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitIconStore(); err != nil {
		log.Fatal("failed to initialize icon store:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Project{},
		&models.Task{},
		&models.WidgetUser{},
		&models.Progress{},
		&models.Completion{},
		&models.ViralBoost{},
		&models.WalletTotal{},
		&models.LeaderboardClaim{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatal("bad REDIS_URL:", err)
	}
	rdb := redis.NewClient(redisOpts)

	chains, err := services.NewChainRegistryFromEnv()
	if err != nil {
		log.Fatal("failed to configure chain RPCs:", err)
	}

	userService := services.NewUserService(db)
	progressionService := services.NewProgressionService(db)
	leaderboardService := services.NewLeaderboardService(db, rdb)
	claimService := services.NewClaimService(db, leaderboardService)
	verificationService := services.NewVerificationService(db, chains, userService, progressionService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go workers.PollGlobalXP(ctx, db, 60*time.Second)

	scheduler, err := services.StartMaintenanceScheduler(leaderboardService)
	if err != nil {
		log.Fatal("failed to start maintenance scheduler:", err)
	}

	handlers.SetupProjectRoutes(app, db)
	handlers.SetupWidgetRoutes(app, db, userService, progressionService, claimService, leaderboardService)
	handlers.SetupVerificationRoutes(app, db, verificationService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Global XP worker running (every 60s)")
	log.Println("✅ Leaderboard cache rebuild scheduled")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = scheduler.Shutdown()
	_ = app.Shutdown()
}
