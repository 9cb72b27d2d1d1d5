package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"

	"github.com/wellnessai/engagement-backend/internal/config"
	"github.com/wellnessai/engagement-backend/internal/handlers"
	"github.com/wellnessai/engagement-backend/internal/middleware"
)

// Handlers bundles the HTTP handlers for route wiring.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Health        *handlers.HealthHandler
	CheckIns      *handlers.CheckInHandler
	Achievements  *handlers.AchievementHandler
	Notifications *handlers.NotificationHandler
	Surveys       *handlers.SurveyHandler
	Recognitions  *handlers.RecognitionHandler
	Rewards       *handlers.RewardHandler
}

func Setup(app *fiber.App, cfg *config.Config, db *gorm.DB, h Handlers) {
	api := app.Group("/api")

	// General limiter, window and budget from config.
	api.Use(limiter.New(limiter.Config{
		Max:               cfg.RateLimitMax,
		Expiration:        cfg.RateLimitWindow,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", h.Health.Check)

	// Auth — public with a stricter limiter.
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)

	jwt := middleware.JWTProtected(cfg.JWTSecret)

	api.Post("/auth/logout", jwt, h.Auth.Logout)
	api.Get("/auth/me", jwt, h.Auth.Me)

	api.Post("/checkins", jwt, h.CheckIns.Submit)
	api.Get("/checkins/me", jwt, h.CheckIns.History)

	api.Get("/achievements/progress", jwt, h.Achievements.Progress)

	api.Get("/surveys", jwt, h.Surveys.List)
	api.Post("/surveys/:id/responses", jwt, h.Surveys.Respond)

	api.Get("/notifications", jwt, h.Notifications.List)
	api.Post("/notifications/mark-read", jwt, h.Notifications.MarkRead)
	api.Get("/notifications/unread-count", jwt, h.Notifications.UnreadCount)

	api.Post("/recognitions", jwt, h.Recognitions.Send)
	api.Get("/recognitions/received", jwt, h.Recognitions.Received)

	api.Get("/rewards", jwt, h.Rewards.List)
	api.Post("/rewards/:id/redeem", jwt, h.Rewards.Redeem)

	// HR/admin surface.
	admin := api.Group("/admin", jwt, middleware.StaffRequired(db))
	admin.Post("/surveys", h.Surveys.Create)
	admin.Post("/surveys/:id/close", h.Surveys.Close)
}
