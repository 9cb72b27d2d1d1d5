package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/wellnessai/engagement-backend/internal/dto"
	"github.com/wellnessai/engagement-backend/internal/ledger"
	"github.com/wellnessai/engagement-backend/internal/middleware"
	"github.com/wellnessai/engagement-backend/internal/rewards"
)

type RewardHandler struct {
	svc *rewards.Service
}

func NewRewardHandler(svc *rewards.Service) *RewardHandler {
	return &RewardHandler{svc: svc}
}

func (h *RewardHandler) List(c *fiber.Ctx) error {
	list, err := h.svc.List()
	if err != nil {
		return internalError(c, err, "failed to load rewards")
	}
	return c.JSON(dto.OK(list))
}

func (h *RewardHandler) Redeem(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("unauthorized"))
	}

	rewardID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("invalid reward id"))
	}

	redemption, err := h.svc.Redeem(userID, rewardID)
	if err != nil {
		switch {
		case errors.Is(err, rewards.ErrRewardNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.Fail(err.Error()))
		case errors.Is(err, rewards.ErrOutOfStock), errors.Is(err, ledger.ErrInsufficientCoins):
			return c.Status(fiber.StatusConflict).JSON(dto.Fail(err.Error()))
		}
		return internalError(c, err, "failed to redeem reward")
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK(redemption))
}
