package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/wellnessai/engagement-backend/internal/config"
	"github.com/wellnessai/engagement-backend/internal/database"
	"github.com/wellnessai/engagement-backend/internal/dto"
)

type HealthHandler struct {
	cfg *config.Config
}

func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{cfg: cfg}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "up"
	if err := database.Ping(); err != nil {
		dbStatus = "down"
	}
	return c.JSON(dto.HealthResponse{
		Success:     true,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Environment: h.cfg.Environment,
		Version:     h.cfg.Version,
		DB:          dbStatus,
	})
}
