package achievements

import (
	"errors"

	"github.com/google/uuid"
	"github.com/wellnessai/engagement-backend/internal/models"
	"gorm.io/gorm"
)

func (e *Evaluator) totalCheckIns(userID uuid.UUID, _ int) (int, error) {
	var count int64
	err := e.db.Model(&models.CheckIn{}).Where("user_id = ?", userID).Count(&count).Error
	return int(count), err
}

func (e *Evaluator) streakDays(userID uuid.UUID, _ int) (int, error) {
	var user models.User
	if err := e.db.Select("current_streak").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return user.CurrentStreak, nil
}

// consecutiveGoodMood reports target when the user's most recent
// target check-ins (by day desc) all have mood >= 4, and 0 otherwise.
// The all-or-nothing shape is deliberate: a single gap or low-mood day
// resets progress entirely.
func (e *Evaluator) consecutiveGoodMood(userID uuid.UUID, target int) (int, error) {
	if target <= 0 {
		return 0, nil
	}
	var recent []models.CheckIn
	err := e.db.Select("mood").
		Where("user_id = ?", userID).
		Order("day DESC").
		Limit(target).
		Find(&recent).Error
	if err != nil {
		return 0, err
	}
	if len(recent) < target {
		return 0, nil
	}
	for _, c := range recent {
		if c.Mood < goodMood {
			return 0, nil
		}
	}
	return target, nil
}

const goodMood = 4

func (e *Evaluator) surveyCompletion(userID uuid.UUID, _ int) (int, error) {
	var count int64
	err := e.db.Model(&models.SurveyResponse{}).Where("user_id = ?", userID).Count(&count).Error
	return int(count), err
}

func (e *Evaluator) peerRecognition(userID uuid.UUID, _ int) (int, error) {
	var count int64
	err := e.db.Model(&models.Recognition{}).Where("to_user_id = ?", userID).Count(&count).Error
	return int(count), err
}

// recognitionsSent backs the "Wellness Ambassador" custom criteria.
func (e *Evaluator) recognitionsSent(userID uuid.UUID, _ int) (int, error) {
	var count int64
	err := e.db.Model(&models.Recognition{}).Where("from_user_id = ?", userID).Count(&count).Error
	return int(count), err
}
