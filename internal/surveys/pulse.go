package surveys

import (
	"github.com/wellnessai/engagement-backend/internal/models"
)

// pulseRewardCoins is the fixed weekly pulse reward.
const pulseRewardCoins = 100

// pulseQuestions is the canonical weekly pulse questionnaire. Order
// and ids are part of the contract with the clients.
func pulseQuestions() []models.SurveyQuestion {
	return []models.SurveyQuestion{
		{
			ID:         "enps_weekly",
			Prompt:     "How likely are you to recommend this company as a place to work?",
			Kind:       models.QuestionScale,
			ScaleMin:   0,
			ScaleMax:   10,
			MinLabel:   "Not at all likely",
			MaxLabel:   "Extremely likely",
			Category:   "enps",
			IsRequired: true,
		},
		{
			ID:         "engagement_weekly",
			Prompt:     "How engaged did you feel at work this week?",
			Kind:       models.QuestionScale,
			ScaleMin:   1,
			ScaleMax:   5,
			MinLabel:   "Not engaged",
			MaxLabel:   "Fully engaged",
			Category:   "engagement",
			IsRequired: true,
		},
		{
			ID:         "workload_weekly",
			Prompt:     "How manageable was your workload this week?",
			Kind:       models.QuestionScale,
			ScaleMin:   1,
			ScaleMax:   5,
			MinLabel:   "Overwhelming",
			MaxLabel:   "Very manageable",
			Category:   "workload",
			IsRequired: true,
		},
		{
			ID:         "support_weekly",
			Prompt:     "Did you feel supported by your manager this week?",
			Kind:       models.QuestionBoolean,
			Category:   "support",
			IsRequired: true,
		},
		{
			ID:         "feedback_weekly",
			Prompt:     "Anything else you'd like to share about this week?",
			Kind:       models.QuestionText,
			Category:   "feedback",
			IsRequired: false,
		},
	}
}
