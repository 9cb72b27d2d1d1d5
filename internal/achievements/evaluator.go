// Package achievements awards badges in reaction to engagement events.
// Awards are idempotent: the (user, achievement) unique index is the
// at-most-once gate, so re-running the evaluator on unchanged state is
// always safe.
package achievements

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/wellnessai/engagement-backend/internal/clock"
	"github.com/wellnessai/engagement-backend/internal/events"
	"github.com/wellnessai/engagement-backend/internal/ledger"
	"github.com/wellnessai/engagement-backend/internal/models"
	"github.com/wellnessai/engagement-backend/internal/notify"
	"gorm.io/gorm"
)

var ErrUnknownCriteria = errors.New("unknown criteria type")

// progressFunc returns how far a user is toward a target. An
// achievement is awarded once current >= target.
type progressFunc func(userID uuid.UUID, target int) (current int, err error)

// Evaluator dispatches on criteria type through a fixed handler table;
// custom criteria resolve through a per-achievement-name registry.
type Evaluator struct {
	db       *gorm.DB
	clk      clock.Clock
	ldg      *ledger.Ledger
	sink     *notify.Sink
	handlers map[models.CriteriaType]progressFunc
	customs  map[string]progressFunc
}

func NewEvaluator(db *gorm.DB, clk clock.Clock, ldg *ledger.Ledger, sink *notify.Sink) *Evaluator {
	e := &Evaluator{db: db, clk: clk, ldg: ldg, sink: sink}
	e.handlers = map[models.CriteriaType]progressFunc{
		models.CriteriaTotalCheckIns:       e.totalCheckIns,
		models.CriteriaStreakDays:          e.streakDays,
		models.CriteriaConsecutiveGoodMood: e.consecutiveGoodMood,
		models.CriteriaSurveyCompletion:    e.surveyCompletion,
		models.CriteriaPeerRecognition:     e.peerRecognition,
	}
	e.customs = map[string]progressFunc{
		"Wellness Ambassador": e.recognitionsSent,
	}
	return e
}

// Subscribe wires the evaluator onto the event bus.
func (e *Evaluator) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.TopicCheckInRecorded, func(evt events.Event) error {
		return e.EvaluateUser(evt.(events.CheckInRecorded).UserID)
	})
	bus.Subscribe(events.TopicSurveyCompleted, func(evt events.Event) error {
		return e.EvaluateUser(evt.(events.SurveyCompleted).UserID)
	})
	bus.Subscribe(events.TopicRecognitionSent, func(evt events.Event) error {
		// Recognition moves counters for both sides: received kudos for
		// the recipient, ambassador progress for the sender.
		rec := evt.(events.RecognitionSent)
		if err := e.EvaluateUser(rec.ToUserID); err != nil {
			return err
		}
		return e.EvaluateUser(rec.FromUserID)
	})
}

// ValidateDefinitions fails startup when an active achievement carries
// a criteria type with no handler, or a custom criteria with no
// registered hook.
func (e *Evaluator) ValidateDefinitions() error {
	var defs []models.Achievement
	if err := e.db.Where("is_active = ?", true).Find(&defs).Error; err != nil {
		return fmt.Errorf("failed to load achievement definitions: %w", err)
	}
	for _, def := range defs {
		if _, err := e.resolve(def); err != nil {
			return fmt.Errorf("achievement %q: %w", def.Name, err)
		}
	}
	return nil
}

func (e *Evaluator) resolve(def models.Achievement) (progressFunc, error) {
	if def.CriteriaType == models.CriteriaCustom {
		fn, ok := e.customs[def.Name]
		if !ok {
			return nil, fmt.Errorf("%w: no custom hook for %q", ErrUnknownCriteria, def.Name)
		}
		return fn, nil
	}
	fn, ok := e.handlers[def.CriteriaType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCriteria, def.CriteriaType)
	}
	return fn, nil
}

// EvaluateUser checks every active, not-yet-earned achievement for the
// user and awards the satisfied ones. A failure on one achievement
// never blocks the rest.
func (e *Evaluator) EvaluateUser(userID uuid.UUID) error {
	var defs []models.Achievement
	if err := e.db.Where("is_active = ?", true).Order("sort_order ASC").Find(&defs).Error; err != nil {
		return fmt.Errorf("failed to load achievements: %w", err)
	}

	earned, err := e.earnedSet(userID)
	if err != nil {
		return err
	}

	for _, def := range defs {
		if earned[def.ID] {
			continue
		}
		fn, err := e.resolve(def)
		if err != nil {
			slog.Error("achievement evaluation skipped", "achievement", def.Name, "error", err)
			continue
		}
		current, err := fn(userID, def.CriteriaValue)
		if err != nil {
			slog.Error("achievement criteria check failed", "achievement", def.Name, "user_id", userID, "error", err)
			continue
		}
		if current < def.CriteriaValue {
			continue
		}
		if err := e.award(userID, def); err != nil {
			slog.Error("achievement award failed", "achievement", def.Name, "user_id", userID, "error", err)
		}
	}
	return nil
}

func (e *Evaluator) earnedSet(userID uuid.UUID) (map[uuid.UUID]bool, error) {
	var rows []models.UserAchievement
	if err := e.db.Select("achievement_id").Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load earned achievements: %w", err)
	}
	set := make(map[uuid.UUID]bool, len(rows))
	for _, r := range rows {
		set[r.AchievementID] = true
	}
	return set, nil
}

func (e *Evaluator) award(userID uuid.UUID, def models.Achievement) error {
	row := models.UserAchievement{
		ID:               uuid.New(),
		UserID:           userID,
		AchievementID:    def.ID,
		Name:             def.Name,
		Description:      def.Description,
		Icon:             def.Icon,
		Rarity:           def.Rarity,
		HappyCoinsEarned: def.HappyCoinsReward,
		EarnedAt:         e.clk.Now(),
	}
	if err := e.db.Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a race with a concurrent evaluation; already earned.
			return nil
		}
		return fmt.Errorf("failed to record award: %w", err)
	}

	if def.HappyCoinsReward > 0 {
		reason := ledger.Reason{
			Key:         fmt.Sprintf("achievement:%s:%s", userID, def.ID),
			Description: fmt.Sprintf("Achievement unlocked: %s", def.Name),
		}
		if err := e.ldg.CreditCoins(userID, def.HappyCoinsReward, reason); err != nil {
			slog.Error("achievement reward credit failed", "achievement", def.Name, "user_id", userID, "error", err)
		}
	}

	if _, err := e.sink.Emit(userID, notify.Template{
		Type:     models.NotifMilestoneAchieved,
		Title:    fmt.Sprintf("Achievement unlocked: %s", def.Name),
		Message:  fmt.Sprintf("%s (+%d Happy Coins)", def.Description, def.HappyCoinsReward),
		Priority: models.PriorityMedium,
		Icon:     def.Icon,
		Data: map[string]interface{}{
			"achievement": def.Name,
			"rarity":      def.Rarity,
			"coins":       def.HappyCoinsReward,
		},
		Source: "achievements",
	}); err != nil {
		slog.Error("achievement notification failed", "achievement", def.Name, "user_id", userID, "error", err)
	}

	slog.Info("achievement awarded", "achievement", def.Name, "user_id", userID, "coins", def.HappyCoinsReward)
	return nil
}
