package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/wellnessai/engagement-backend/internal/dto"
	"github.com/wellnessai/engagement-backend/internal/middleware"
	"github.com/wellnessai/engagement-backend/internal/recognition"
)

type RecognitionHandler struct {
	svc *recognition.Service
}

func NewRecognitionHandler(svc *recognition.Service) *RecognitionHandler {
	return &RecognitionHandler{svc: svc}
}

func (h *RecognitionHandler) Send(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("unauthorized"))
	}

	var req recognition.SendRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("invalid request body"))
	}

	rec, err := h.svc.Send(userID, req)
	if err != nil {
		switch {
		case errors.Is(err, recognition.ErrSelfRecognition), errors.Is(err, recognition.ErrMessageTooLong):
			return c.Status(fiber.StatusBadRequest).JSON(dto.Fail(err.Error()))
		case errors.Is(err, recognition.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.Fail(err.Error()))
		}
		return internalError(c, err, "failed to send recognition")
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK(rec))
}

func (h *RecognitionHandler) Received(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("unauthorized"))
	}

	page, limit, offset := paging(c)
	list, total, err := h.svc.ReceivedBy(userID, limit, offset)
	if err != nil {
		return internalError(c, err, "failed to load recognitions")
	}
	return c.JSON(dto.OK(dto.Paginated{Items: list, Total: total, Page: page, Limit: limit}))
}
