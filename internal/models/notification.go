package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Notification types.
const (
	NotifHappyCoinsEarned    = "HAPPY_COINS_EARNED"
	NotifCheckInCompleted    = "CHECK_IN_COMPLETED"
	NotifStreakWarning       = "STREAK_WARNING"
	NotifStreakMilestone     = "STREAK_MILESTONE"
	NotifMilestoneAchieved   = "MILESTONE_ACHIEVED"
	NotifSurveyAvailable     = "SURVEY_AVAILABLE"
	NotifSurveyReminder      = "SURVEY_REMINDER"
	NotifRewardRedeemed      = "REWARD_REDEEMED"
	NotifRecognitionReceived = "RECOGNITION_RECEIVED"
	NotifRiskAlert           = "RISK_ALERT"
	NotifSystemUpdate        = "SYSTEM_UPDATE"
)

// Delivery states recorded per channel under Data["delivery"].
const (
	DeliveryAttempted = "attempted"
	DeliverySucceeded = "succeeded"
	DeliveryFailed    = "failed"
)

// Notification is an in-app message, optionally fanned out to external
// channels. External delivery outcomes are recorded in Data under the
// "delivery" key and never fail the emit.
type Notification struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	Type       string            `gorm:"size:40;not null;index" json:"type"`
	Title      string            `gorm:"size:100;not null" json:"title"`
	Message    string            `gorm:"size:500" json:"message"`
	Data       datatypes.JSONMap `gorm:"type:jsonb" json:"data"`
	Priority   string            `gorm:"size:20;default:'medium';index" json:"priority"`
	IsRead     bool              `gorm:"default:false;index" json:"is_read"`
	ReadAt     *time.Time        `json:"read_at"`
	Icon       string            `gorm:"size:20" json:"icon"`
	ActionType string            `gorm:"size:40" json:"action_type"`
	ActionData datatypes.JSONMap `gorm:"type:jsonb" json:"action_data"`
	ExpiresAt  *time.Time        `gorm:"index" json:"expires_at"`
	Source     string            `gorm:"size:40" json:"source"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
	User       User              `gorm:"foreignKey:UserID" json:"-"`
}
