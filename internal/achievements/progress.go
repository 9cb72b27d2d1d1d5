package achievements

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/wellnessai/engagement-backend/internal/models"
)

// Progress is one achievement's status for a user.
type Progress struct {
	Achievement models.Achievement `json:"achievement"`
	IsEarned    bool               `json:"is_earned"`
	EarnedAt    *time.Time         `json:"earned_at,omitempty"`
	Current     int                `json:"current"`
	Target      int                `json:"target"`
	Percentage  int                `json:"percentage"`
}

// ProgressFor returns progress for every active achievement, earned
// ones first by earn date, then by sort order.
func (e *Evaluator) ProgressFor(userID uuid.UUID) ([]Progress, error) {
	var defs []models.Achievement
	if err := e.db.Where("is_active = ?", true).Order("sort_order ASC").Find(&defs).Error; err != nil {
		return nil, fmt.Errorf("failed to load achievements: %w", err)
	}

	var awards []models.UserAchievement
	if err := e.db.Where("user_id = ?", userID).Find(&awards).Error; err != nil {
		return nil, fmt.Errorf("failed to load awards: %w", err)
	}
	earnedAt := make(map[uuid.UUID]time.Time, len(awards))
	for _, a := range awards {
		earnedAt[a.AchievementID] = a.EarnedAt
	}

	out := make([]Progress, 0, len(defs))
	for _, def := range defs {
		p := Progress{Achievement: def, Target: def.CriteriaValue}

		if at, ok := earnedAt[def.ID]; ok {
			t := at
			p.IsEarned = true
			p.EarnedAt = &t
			p.Current = def.CriteriaValue
			p.Percentage = 100
			out = append(out, p)
			continue
		}

		fn, err := e.resolve(def)
		if err != nil {
			// Unvalidated definition slipped in; show zero progress.
			out = append(out, p)
			continue
		}
		current, err := fn(userID, def.CriteriaValue)
		if err != nil {
			return nil, fmt.Errorf("progress check for %q failed: %w", def.Name, err)
		}
		p.Current = current
		if def.CriteriaValue > 0 {
			ratio := math.Min(float64(current)/float64(def.CriteriaValue), 1)
			p.Percentage = int(math.Round(ratio * 100))
		}
		out = append(out, p)
	}
	return out, nil
}
