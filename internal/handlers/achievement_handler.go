package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wellnessai/engagement-backend/internal/achievements"
	"github.com/wellnessai/engagement-backend/internal/dto"
	"github.com/wellnessai/engagement-backend/internal/middleware"
)

type AchievementHandler struct {
	eval *achievements.Evaluator
}

func NewAchievementHandler(eval *achievements.Evaluator) *AchievementHandler {
	return &AchievementHandler{eval: eval}
}

func (h *AchievementHandler) Progress(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("unauthorized"))
	}

	progress, err := h.eval.ProgressFor(userID)
	if err != nil {
		return internalError(c, err, "failed to load achievement progress")
	}
	return c.JSON(dto.OK(progress))
}
