package rewards

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wellnessai/engagement-backend/internal/models"
)

// DefaultCatalog is the starter reward catalog.
func DefaultCatalog() []models.Reward {
	return []models.Reward{
		{Name: "Coffee Voucher", Description: "A coffee on the company.", Cost: 200, Category: "food"},
		{Name: "Lunch Voucher", Description: "Lunch at a partner restaurant.", Cost: 500, Category: "food"},
		{Name: "Half Day Off", Description: "An afternoon to yourself.", Cost: 2000, Category: "time_off"},
		{Name: "Wellness Kit", Description: "Curated self-care box.", Cost: 1500, Category: "merch"},
		{Name: "Charity Donation", Description: "We donate 10 EUR to a charity of your choice.", Cost: 800, Category: "giving"},
	}
}

// Seed inserts catalog entries that don't exist yet, matched by name.
func Seed(db *gorm.DB) error {
	for _, reward := range DefaultCatalog() {
		var count int64
		if err := db.Model(&models.Reward{}).Where("name = ?", reward.Name).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check reward %q: %w", reward.Name, err)
		}
		if count > 0 {
			continue
		}
		reward.ID = uuid.New()
		reward.IsActive = true
		if err := db.Create(&reward).Error; err != nil {
			return fmt.Errorf("failed to seed reward %q: %w", reward.Name, err)
		}
	}
	return nil
}
