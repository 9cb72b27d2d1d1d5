package middleware

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/wellnessai/engagement-backend/internal/dto"
	"github.com/wellnessai/engagement-backend/internal/models"
)

// StaffRequired gates HR/admin routes. The role is re-checked against the
// database so revoking a role takes effect before the token expires.
func StaffRequired(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := UserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("unauthorized"))
		}

		var user models.User
		if err := db.Select("role", "is_active").First(&user, "id = ?", userID).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("unauthorized"))
		}
		if !user.IsActive || (user.Role != models.RoleAdmin && user.Role != models.RoleHR) {
			return c.Status(fiber.StatusForbidden).JSON(dto.Fail("insufficient permissions"))
		}
		return c.Next()
	}
}
