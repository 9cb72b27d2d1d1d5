package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles a user can hold. HR and admins see aggregate signals; only
// active employees take part in check-ins, surveys, and recognition.
const (
	RoleEmployee = "employee"
	RoleHR       = "hr"
	RoleAdmin    = "admin"
)

// Notification channel preferences.
const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
	ChannelSlack    = "slack"
	ChannelBoth     = "both"
	ChannelInApp    = "inApp"
)

// User is the shared account record. The wellness counters are mutated
// only by the ledger; everything else is owned by the auth service.
type User struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email      string    `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password   string    `gorm:"not null" json:"-"`
	Name       string    `gorm:"size:120" json:"name"`
	Role       string    `gorm:"size:20;default:'employee';index" json:"role"`
	Department string    `gorm:"size:100;index" json:"department"`
	Timezone   string    `gorm:"size:64;default:'UTC'" json:"timezone"`
	IsActive   bool      `gorm:"default:true;index" json:"is_active"`

	// Wellness counters (ledger-owned).
	HappyCoins     int        `gorm:"default:0" json:"happy_coins"`
	CurrentStreak  int        `gorm:"default:0" json:"current_streak"`
	LongestStreak  int        `gorm:"default:0" json:"longest_streak"`
	LastCheckInDay *time.Time `json:"last_check_in_day"`
	TotalCheckIns  int        `gorm:"default:0" json:"total_check_ins"`

	// Notification preferences and channel integrations.
	PreferredChannel string  `gorm:"size:20;default:'inApp'" json:"preferred_channel"`
	SlackConnected   bool    `gorm:"default:false" json:"slack_connected"`
	SlackUserID      *string `gorm:"size:64" json:"-"`
	WhatsAppPhone    *string `gorm:"size:32" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// LocalTZ returns the user's time zone, falling back to UTC when the
// stored name is empty or unknown.
func (u *User) LocalTZ() *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
