package achievements

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/wellnessai/engagement-backend/internal/models"
	"gorm.io/gorm"
)

// DefaultDefinitions is the stock badge catalog. Criteria values here
// are badge thresholds; the ledger's streak coin bonuses are
// configured separately even where the numbers coincide.
var DefaultDefinitions = []models.Achievement{
	{Name: "First Steps", Description: "Complete your first check-in", Category: models.CategoryCheckIn, Icon: "👣", Rarity: models.RarityCommon, HappyCoinsReward: 50, CriteriaType: models.CriteriaTotalCheckIns, CriteriaValue: 1, SortOrder: 1},
	{Name: "Regular", Description: "Complete 25 check-ins", Category: models.CategoryCheckIn, Icon: "📅", Rarity: models.RarityCommon, HappyCoinsReward: 100, CriteriaType: models.CriteriaTotalCheckIns, CriteriaValue: 25, SortOrder: 2},
	{Name: "Century Club", Description: "Complete 100 check-ins", Category: models.CategoryMilestone, Icon: "💯", Rarity: models.RarityEpic, HappyCoinsReward: 500, CriteriaType: models.CriteriaTotalCheckIns, CriteriaValue: 100, SortOrder: 3},
	{Name: "Week Warrior", Description: "Keep a 7-day check-in streak", Category: models.CategoryStreak, Icon: "🔥", Rarity: models.RarityCommon, HappyCoinsReward: 100, CriteriaType: models.CriteriaStreakDays, CriteriaValue: 7, SortOrder: 4},
	{Name: "Monthly Master", Description: "Keep a 30-day check-in streak", Category: models.CategoryStreak, Icon: "🏆", Rarity: models.RarityRare, HappyCoinsReward: 300, CriteriaType: models.CriteriaStreakDays, CriteriaValue: 30, SortOrder: 5},
	{Name: "Quarter Champion", Description: "Keep a 90-day check-in streak", Category: models.CategoryStreak, Icon: "👑", Rarity: models.RarityLegendary, HappyCoinsReward: 1000, CriteriaType: models.CriteriaStreakDays, CriteriaValue: 90, SortOrder: 6},
	{Name: "Good Vibes", Description: "Report a good mood 5 days in a row", Category: models.CategoryMood, Icon: "😊", Rarity: models.RarityRare, HappyCoinsReward: 150, CriteriaType: models.CriteriaConsecutiveGoodMood, CriteriaValue: 5, SortOrder: 7},
	{Name: "Survey Star", Description: "Complete 5 surveys", Category: models.CategoryEngagement, Icon: "⭐", Rarity: models.RarityCommon, HappyCoinsReward: 100, CriteriaType: models.CriteriaSurveyCompletion, CriteriaValue: 5, SortOrder: 8},
	{Name: "Team Player", Description: "Receive 10 peer recognitions", Category: models.CategoryEngagement, Icon: "🤝", Rarity: models.RarityRare, HappyCoinsReward: 200, CriteriaType: models.CriteriaPeerRecognition, CriteriaValue: 10, SortOrder: 9},
	{Name: "Wellness Ambassador", Description: "Send 20 peer recognitions", Category: models.CategorySpecial, Icon: "🎖️", Rarity: models.RarityEpic, HappyCoinsReward: 400, CriteriaType: models.CriteriaCustom, CriteriaValue: 20, SortOrder: 10},
}

// Seed inserts any missing default definitions. Existing rows are
// never overwritten, so admin edits survive restarts.
func Seed(db *gorm.DB) error {
	for _, def := range DefaultDefinitions {
		var count int64
		if err := db.Model(&models.Achievement{}).Where("name = ?", def.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		def.ID = uuid.New()
		def.IsActive = true
		if err := db.Create(&def).Error; err != nil {
			return err
		}
		slog.Info("achievement seeded", "name", def.Name)
	}
	return nil
}
