package models

import (
	"time"

	"github.com/google/uuid"
)

// CriteriaType selects the evaluator handler for an achievement. The
// evaluator refuses to start when a seeded achievement carries a type
// it has no handler for.
type CriteriaType string

const (
	CriteriaTotalCheckIns       CriteriaType = "total_checkins"
	CriteriaStreakDays          CriteriaType = "streak_days"
	CriteriaConsecutiveGoodMood CriteriaType = "consecutive_good_mood"
	CriteriaSurveyCompletion    CriteriaType = "survey_completion"
	CriteriaPeerRecognition     CriteriaType = "peer_recognition"
	CriteriaCustom              CriteriaType = "custom"
)

// Achievement categories and rarities.
const (
	CategoryStreak     = "streak"
	CategoryCheckIn    = "checkin"
	CategoryMood       = "mood"
	CategoryEngagement = "engagement"
	CategoryMilestone  = "milestone"
	CategorySpecial    = "special"

	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

// Achievement is a badge definition. Badge thresholds live here; the
// ledger's streak coin bonuses are configured independently even when
// the numbers line up.
type Achievement struct {
	ID               uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Name             string       `gorm:"not null;size:100;uniqueIndex" json:"name"`
	Description      string       `gorm:"type:text" json:"description"`
	Category         string       `gorm:"size:20;not null;index" json:"category"`
	Icon             string       `gorm:"size:20" json:"icon"`
	Rarity           string       `gorm:"size:20;default:'common'" json:"rarity"`
	HappyCoinsReward int          `gorm:"default:0" json:"happy_coins_reward"`
	CriteriaType     CriteriaType `gorm:"size:40;not null" json:"criteria_type"`
	CriteriaValue    int          `gorm:"not null" json:"criteria_value"`
	IsActive         bool         `gorm:"default:true;index" json:"is_active"`
	SortOrder        int          `gorm:"default:0" json:"sort_order"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// UserAchievement records an award. The (user_id, achievement_id)
// unique index enforces at-most-once; display fields are snapshotted
// so later edits to the definition don't rewrite history.
type UserAchievement struct {
	ID               uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_user_achievements_pair" json:"user_id"`
	AchievementID    uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_user_achievements_pair" json:"achievement_id"`
	Name             string      `gorm:"size:100" json:"name"`
	Description      string      `gorm:"type:text" json:"description"`
	Icon             string      `gorm:"size:20" json:"icon"`
	Rarity           string      `gorm:"size:20" json:"rarity"`
	HappyCoinsEarned int         `gorm:"default:0" json:"happy_coins_earned"`
	EarnedAt         time.Time   `gorm:"not null" json:"earned_at"`
	User             User        `gorm:"foreignKey:UserID" json:"-"`
	Achievement      Achievement `gorm:"foreignKey:AchievementID" json:"-"`
}
