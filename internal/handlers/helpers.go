package handlers

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/wellnessai/engagement-backend/internal/dto"
)

func internalError(c *fiber.Ctx, err error, msg string) error {
	slog.Error(msg, "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(dto.Fail(msg))
}

// paging reads page/limit query params with sane bounds.
func paging(c *fiber.Ctx) (page, limit, offset int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.Query("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit, (page - 1) * limit
}
