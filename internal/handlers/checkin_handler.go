package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/wellnessai/engagement-backend/internal/checkin"
	"github.com/wellnessai/engagement-backend/internal/dto"
	"github.com/wellnessai/engagement-backend/internal/middleware"
)

type CheckInHandler struct {
	svc *checkin.Service
}

func NewCheckInHandler(svc *checkin.Service) *CheckInHandler {
	return &CheckInHandler{svc: svc}
}

func (h *CheckInHandler) Submit(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("unauthorized"))
	}

	var req checkin.SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("invalid request body"))
	}

	receipt, err := h.svc.Submit(userID, req)
	if err != nil {
		switch {
		case errors.Is(err, checkin.ErrInvalidMood), errors.Is(err, checkin.ErrInvalidSource):
			return c.Status(fiber.StatusBadRequest).JSON(dto.Fail(err.Error()))
		case errors.Is(err, checkin.ErrAlreadyCheckedIn):
			return c.Status(fiber.StatusConflict).JSON(dto.Fail(err.Error()))
		case errors.Is(err, checkin.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.Fail(err.Error()))
		}
		return internalError(c, err, "check-in failed")
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK(receipt))
}

func (h *CheckInHandler) History(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("unauthorized"))
	}

	page, limit, offset := paging(c)
	list, total, err := h.svc.History(userID, limit, offset)
	if err != nil {
		return internalError(c, err, "failed to load check-in history")
	}
	return c.JSON(dto.OK(dto.Paginated{Items: list, Total: total, Page: page, Limit: limit}))
}
