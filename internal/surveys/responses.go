package surveys

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/wellnessai/engagement-backend/internal/events"
	"github.com/wellnessai/engagement-backend/internal/ledger"
	"github.com/wellnessai/engagement-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrAlreadyResponded = errors.New("already responded to this survey")
	ErrMissingAnswer    = errors.New("missing required answer")
)

// Responses handles survey response intake. Separate from Service so
// the lifecycle manager carries no ledger dependency.
type Responses struct {
	svc *Service
	ldg *ledger.Ledger
}

func NewResponses(svc *Service, ldg *ledger.Ledger) *Responses {
	return &Responses{svc: svc, ldg: ldg}
}

// Submit records a user's answers. Closed surveys reject submissions;
// the (survey, user) unique index enforces one response per user.
func (r *Responses) Submit(surveyID, userID uuid.UUID, answers map[string]interface{}) (*models.SurveyResponse, int, error) {
	s := r.svc

	var survey models.Survey
	if err := s.db.First(&survey, "id = ?", surveyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrSurveyNotFound
		}
		return nil, 0, err
	}
	if survey.Status != models.SurveyActive {
		return nil, 0, ErrSurveyClosed
	}

	questions, err := survey.ParseQuestions()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse questions: %w", err)
	}
	for _, q := range questions {
		if !q.IsRequired {
			continue
		}
		if _, ok := answers[q.ID]; !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrMissingAnswer, q.ID)
		}
	}

	response := &models.SurveyResponse{
		ID:          uuid.New(),
		SurveyID:    surveyID,
		UserID:      userID,
		Answers:     datatypes.JSONMap(answers),
		Score:       scoreAnswers(questions, answers),
		SubmittedAt: s.clk.Now(),
	}
	if err := s.db.Create(response).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, 0, ErrAlreadyResponded
		}
		return nil, 0, fmt.Errorf("failed to record response: %w", err)
	}

	coins := survey.RewardCoins
	if coins <= 0 {
		coins = s.cfg.SurveyCompletionCoins
	}
	reason := ledger.Reason{
		Key:         fmt.Sprintf("survey:%s:%s", surveyID, userID),
		Description: "Survey completed: " + survey.Title,
		Notify:      true,
	}
	if err := r.ldg.CreditCoins(userID, coins, reason); err != nil {
		slog.Error("survey reward credit failed", "survey_id", surveyID, "user_id", userID, "error", err)
		coins = 0
	}

	s.bus.Publish(events.SurveyCompleted{SurveyID: surveyID, UserID: userID, Score: response.Score})

	return response, coins, nil
}

// scoreAnswers derives a 0..100 score from the scale and boolean
// answers; text and choice answers don't contribute.
func scoreAnswers(questions []models.SurveyQuestion, answers map[string]interface{}) float64 {
	total := 0.0
	counted := 0

	for _, q := range questions {
		raw, ok := answers[q.ID]
		if !ok {
			continue
		}
		switch q.Kind {
		case models.QuestionScale:
			v, ok := toFloat(raw)
			if !ok || q.ScaleMax <= q.ScaleMin {
				continue
			}
			normalized := (v - float64(q.ScaleMin)) / float64(q.ScaleMax-q.ScaleMin)
			if normalized < 0 {
				normalized = 0
			}
			if normalized > 1 {
				normalized = 1
			}
			total += normalized * 100
			counted++
		case models.QuestionBoolean:
			if b, ok := raw.(bool); ok {
				if b {
					total += 100
				}
				counted++
			}
		}
	}

	if counted == 0 {
		return 0
	}
	return total / float64(counted)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
