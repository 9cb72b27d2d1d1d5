package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/wellnessai/engagement-backend/internal/achievements"
	"github.com/wellnessai/engagement-backend/internal/cache"
	"github.com/wellnessai/engagement-backend/internal/checkin"
	"github.com/wellnessai/engagement-backend/internal/clock"
	"github.com/wellnessai/engagement-backend/internal/config"
	"github.com/wellnessai/engagement-backend/internal/database"
	"github.com/wellnessai/engagement-backend/internal/events"
	"github.com/wellnessai/engagement-backend/internal/handlers"
	"github.com/wellnessai/engagement-backend/internal/ledger"
	"github.com/wellnessai/engagement-backend/internal/logging"
	"github.com/wellnessai/engagement-backend/internal/middleware"
	"github.com/wellnessai/engagement-backend/internal/notify"
	"github.com/wellnessai/engagement-backend/internal/recognition"
	"github.com/wellnessai/engagement-backend/internal/rewards"
	"github.com/wellnessai/engagement-backend/internal/routes"
	"github.com/wellnessai/engagement-backend/internal/scheduler"
	"github.com/wellnessai/engagement-backend/internal/services"
	"github.com/wellnessai/engagement-backend/internal/surveys"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(database.DB); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		pgLogHandler,
	)))

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cleanupDone)

	// Optional redis for the coin replay guard
	redisClient := cache.New(cfg)
	var guard ledger.ReplayGuard
	if redisClient != nil {
		guard = ledger.NewRedisGuard(redisClient)
	} else {
		slog.Info("redis unavailable, using in-process replay guard")
		guard = ledger.NewMemoryGuard()
	}

	// Engine wiring
	clk := clock.Real{}
	bus := events.NewBus()

	channels, slackChannel := notify.ChannelsFromConfig(cfg)
	sink := notify.NewSink(database.DB, clk, cfg.ChannelTimeout, channels...)

	ldg := ledger.New(database.DB, clk, sink, guard, cfg.StreakBonuses)

	evaluator := achievements.NewEvaluator(database.DB, clk, ldg, sink)
	if err := achievements.Seed(database.DB); err != nil {
		slog.Error("achievement seed failed", "error", err)
		os.Exit(1)
	}
	if err := evaluator.ValidateDefinitions(); err != nil {
		slog.Error("achievement definitions invalid", "error", err)
		os.Exit(1)
	}
	evaluator.Subscribe(bus)

	checkinSvc := checkin.NewService(database.DB, clk, ldg, sink, bus, cfg)
	surveySvc := surveys.NewService(database.DB, clk, sink, bus, cfg, slackChannel)
	responsesSvc := surveys.NewResponses(surveySvc, ldg)
	recognitionSvc := recognition.NewService(database.DB, clk, ldg, sink, bus, cfg)
	rewardSvc := rewards.NewService(database.DB, clk, ldg, sink, bus)
	if err := rewards.Seed(database.DB); err != nil {
		slog.Error("reward seed failed", "error", err)
		os.Exit(1)
	}
	authService := services.NewAuthService(database.DB, cfg)

	sched := scheduler.New(database.DB, surveySvc, sink)
	if err := sched.Start(); err != nil {
		slog.Error("scheduler start failed", "error", err)
		os.Exit(1)
	}

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	routes.Setup(app, cfg, database.DB, routes.Handlers{
		Auth:          handlers.NewAuthHandler(authService),
		Health:        handlers.NewHealthHandler(cfg),
		CheckIns:      handlers.NewCheckInHandler(checkinSvc),
		Achievements:  handlers.NewAchievementHandler(evaluator),
		Notifications: handlers.NewNotificationHandler(sink),
		Surveys:       handlers.NewSurveyHandler(surveySvc, responsesSvc, sched),
		Recognitions:  handlers.NewRecognitionHandler(recognitionSvc),
		Rewards:       handlers.NewRewardHandler(rewardSvc),
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	sched.Stop()
	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}

	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}
	if code >= 500 {
		slog.Error("unhandled request error", "path", c.Path(), "error", err)
		message = "Internal server error"
	}
	return c.Status(code).JSON(fiber.Map{"success": false, "message": message})
}
