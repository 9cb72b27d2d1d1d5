package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/wellnessai/engagement-backend/internal/dto"
	"github.com/wellnessai/engagement-backend/internal/middleware"
	"github.com/wellnessai/engagement-backend/internal/notify"
)

type NotificationHandler struct {
	sink *notify.Sink
}

func NewNotificationHandler(sink *notify.Sink) *NotificationHandler {
	return &NotificationHandler{sink: sink}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("unauthorized"))
	}

	page, limit, _ := paging(c)
	opts := notify.ListOptions{
		Page:       page,
		Limit:      limit,
		UnreadOnly: c.QueryBool("unread_only"),
		Type:       c.Query("type"),
		Priority:   c.Query("priority"),
	}

	list, total, err := h.sink.ListForUser(userID, opts)
	if err != nil {
		return internalError(c, err, "failed to load notifications")
	}
	return c.JSON(dto.OK(dto.Paginated{Items: list, Total: total, Page: page, Limit: limit}))
}

type markReadRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("unauthorized"))
	}

	// Omitted or empty ids means mark everything unread.
	var req markReadRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("invalid request body"))
		}
	}

	updated, err := h.sink.MarkRead(userID, req.IDs)
	if err != nil {
		return internalError(c, err, "failed to mark notifications read")
	}
	return c.JSON(dto.OK(fiber.Map{"updated": updated}))
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("unauthorized"))
	}

	count, err := h.sink.UnreadCount(userID)
	if err != nil {
		return internalError(c, err, "failed to count unread notifications")
	}
	return c.JSON(dto.OK(fiber.Map{"unread": count}))
}
