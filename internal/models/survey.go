package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Survey types, priorities, and statuses. Status moves monotonically
// draft -> active -> closed -> archived; transitions are owned by the
// survey lifecycle manager.
const (
	SurveyTypePulse          = "pulse"
	SurveyTypeOnboarding     = "onboarding"
	SurveyTypeWeeklyPulse    = "weekly_pulse"
	SurveyTypeMonthlyDetails = "monthly_detailed"
	SurveyTypeCustom         = "custom"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"

	SurveyDraft    = "draft"
	SurveyActive   = "active"
	SurveyClosed   = "closed"
	SurveyArchived = "archived"
)

// Question kinds.
const (
	QuestionScale   = "scale"
	QuestionBoolean = "boolean"
	QuestionText    = "text"
	QuestionChoice  = "choice"
)

// SurveyQuestion is one entry of a survey's ordered question list,
// serialized into the Questions JSON column.
type SurveyQuestion struct {
	ID         string   `json:"id"`
	Prompt     string   `json:"prompt"`
	Kind       string   `json:"kind"`
	ScaleMin   int      `json:"scale_min,omitempty"`
	ScaleMax   int      `json:"scale_max,omitempty"`
	MinLabel   string   `json:"min_label,omitempty"`
	MaxLabel   string   `json:"max_label,omitempty"`
	Choices    []string `json:"choices,omitempty"`
	Category   string   `json:"category,omitempty"`
	IsRequired bool     `json:"is_required"`
}

// TargetAudience selects the users a survey goes to. When All is set
// the filters are ignored.
type TargetAudience struct {
	All           bool        `json:"all"`
	Departments   []string    `json:"departments,omitempty"`
	Roles         []string    `json:"roles,omitempty"`
	SpecificUsers []uuid.UUID `json:"specific_users,omitempty"`
}

// SurveySchedule drives dynamic scheduler jobs for custom surveys.
// Time is "HH:MM" in server time.
type SurveySchedule struct {
	Frequency string     `json:"frequency"`
	DayOfWeek int        `json:"day_of_week"`
	Time      string     `json:"time"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

type Survey struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string         `gorm:"not null;size:200" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Type        string         `gorm:"size:30;default:'pulse';index" json:"type"`
	Priority    string         `gorm:"size:20;default:'medium'" json:"priority"`
	Status      string         `gorm:"size:20;default:'draft';index" json:"status"`
	Questions   datatypes.JSON `gorm:"type:jsonb" json:"questions"`
	Audience    datatypes.JSON `gorm:"type:jsonb" json:"target_audience"`
	Schedule    datatypes.JSON `gorm:"type:jsonb" json:"schedule,omitempty"`
	RewardCoins int            `gorm:"default:0" json:"reward_coins"`
	DueDate     *time.Time     `gorm:"index" json:"due_date"`
	CreatedBy   uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ParseQuestions decodes the Questions column.
func (s *Survey) ParseQuestions() ([]SurveyQuestion, error) {
	var qs []SurveyQuestion
	if len(s.Questions) == 0 {
		return qs, nil
	}
	err := json.Unmarshal(s.Questions, &qs)
	return qs, err
}

// ParseAudience decodes the Audience column.
func (s *Survey) ParseAudience() (TargetAudience, error) {
	var a TargetAudience
	if len(s.Audience) == 0 {
		return a, nil
	}
	err := json.Unmarshal(s.Audience, &a)
	return a, err
}

// ParseSchedule decodes the Schedule column; nil when unscheduled.
func (s *Survey) ParseSchedule() (*SurveySchedule, error) {
	if len(s.Schedule) == 0 {
		return nil, nil
	}
	var sc SurveySchedule
	if err := json.Unmarshal(s.Schedule, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// SurveyResponse is a user's single submission for a survey. The
// (survey_id, user_id) unique index enforces one response per user.
type SurveyResponse struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	SurveyID    uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_survey_responses_pair" json:"survey_id"`
	UserID      uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_survey_responses_pair" json:"user_id"`
	Answers     datatypes.JSONMap `gorm:"type:jsonb" json:"answers"`
	Score       float64           `json:"score"`
	SubmittedAt time.Time         `gorm:"not null" json:"submitted_at"`
	Survey      Survey            `gorm:"foreignKey:SurveyID" json:"-"`
	User        User              `gorm:"foreignKey:UserID" json:"-"`
}
