package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reward is a catalog item redeemable with Happy Coins.
type Reward struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string         `gorm:"not null;size:120" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Cost        int            `gorm:"not null" json:"cost"`
	Category    string         `gorm:"size:40" json:"category"`
	IsActive    bool           `gorm:"default:true;index" json:"is_active"`
	Stock       *int           `json:"stock,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Redemption records a reward purchase, written after the coin debit
// succeeds.
type Redemption struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	RewardID  uuid.UUID `gorm:"type:uuid;not null;index" json:"reward_id"`
	Cost      int       `gorm:"not null" json:"cost"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Reward    Reward    `gorm:"foreignKey:RewardID" json:"-"`
}
