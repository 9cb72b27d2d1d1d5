// Package ledger is the sole mutator of the per-user wellness
// counters: happy coins, streaks, and check-in totals. All coin
// movement goes through atomic column updates, never read-modify-write.
package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/wellnessai/engagement-backend/internal/clock"
	"github.com/wellnessai/engagement-backend/internal/models"
	"github.com/wellnessai/engagement-backend/internal/notify"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientCoins = errors.New("insufficient happy coins")
)

// Reason documents a coin movement. Key, when set, deduplicates
// retried credits inside the replay window; Notify raises a
// HAPPY_COINS_EARNED notification on credit.
type Reason struct {
	Key         string
	Description string
	Notify      bool
}

// StreakBonus is one threshold bonus credited during a streak update.
type StreakBonus struct {
	Days  int `json:"days"`
	Coins int `json:"coins"`
}

// StreakResult summarizes one ApplyCheckInToStreak call.
type StreakResult struct {
	PreviousStreak  int           `json:"previous_streak"`
	NewStreak       int           `json:"new_streak"`
	LongestStreak   int           `json:"longest_streak"`
	BrokeStreak     bool          `json:"broke_streak"`
	BonusesCredited []StreakBonus `json:"bonuses_credited"`
}

// Ledger owns the wellness counters. Streak coin bonuses are
// configured here, independently of the evaluator's badge thresholds.
type Ledger struct {
	db            *gorm.DB
	clk           clock.Clock
	sink          *notify.Sink
	guard         ReplayGuard
	streakBonuses map[int]int
}

func New(db *gorm.DB, clk clock.Clock, sink *notify.Sink, guard ReplayGuard, streakBonuses map[int]int) *Ledger {
	if guard == nil {
		guard = NewMemoryGuard()
	}
	if len(streakBonuses) == 0 {
		streakBonuses = map[int]int{7: 100, 30: 500, 90: 1500}
	}
	return &Ledger{db: db, clk: clk, sink: sink, guard: guard, streakBonuses: streakBonuses}
}

// CreditCoins atomically increments a user's balance. A replayed
// reason key inside the window is a silent no-op.
func (l *Ledger) CreditCoins(userID uuid.UUID, amount int, reason Reason) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if reason.Key != "" && !l.guard.FirstUse(reason.Key) {
		slog.Info("duplicate credit rejected", "user_id", userID, "key", reason.Key)
		return nil
	}

	result := l.db.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("happy_coins", gorm.Expr("happy_coins + ?", amount))
	if result.Error != nil {
		return fmt.Errorf("failed to credit coins: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	if reason.Notify && l.sink != nil {
		if _, err := l.sink.Emit(userID, notify.Template{
			Type:     models.NotifHappyCoinsEarned,
			Title:    fmt.Sprintf("+%d Happy Coins", amount),
			Message:  reason.Description,
			Priority: models.PriorityLow,
			Icon:     "🪙",
			Data:     map[string]interface{}{"amount": amount, "reason": reason.Description},
			Source:   "ledger",
		}); err != nil {
			slog.Error("coin credit notification failed", "user_id", userID, "error", err)
		}
	}
	return nil
}

// DebitCoins atomically decrements a user's balance, failing when the
// balance would go negative.
func (l *Ledger) DebitCoins(userID uuid.UUID, amount int, reason Reason) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	result := l.db.Model(&models.User{}).
		Where("id = ? AND happy_coins >= ?", userID, amount).
		UpdateColumn("happy_coins", gorm.Expr("happy_coins - ?", amount))
	if result.Error != nil {
		return fmt.Errorf("failed to debit coins: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := l.db.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err == nil && count == 0 {
			return ErrUserNotFound
		}
		return ErrInsufficientCoins
	}
	return nil
}

// ApplyCheckInToStreak advances the streak counters for a check-in on
// the given day bucket. Only one caller per (user, day) reaches this,
// gated by the check-in uniqueness index; the conditional write on the
// observed last_check_in_day hardens it against best-effort retries.
func (l *Ledger) ApplyCheckInToStreak(userID uuid.UUID, day time.Time) (*StreakResult, error) {
	var user models.User
	if err := l.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	res := &StreakResult{PreviousStreak: user.CurrentStreak}

	if user.LastCheckInDay != nil && user.LastCheckInDay.Equal(day) {
		// Same-day repeat; the processor rejects these upstream.
		res.NewStreak = user.CurrentStreak
		res.LongestStreak = user.LongestStreak
		return res, nil
	}

	switch {
	case user.LastCheckInDay != nil && clock.NextDay(*user.LastCheckInDay).Equal(day):
		res.NewStreak = user.CurrentStreak + 1
	default:
		res.BrokeStreak = user.CurrentStreak > 0
		res.NewStreak = 1
	}

	res.LongestStreak = user.LongestStreak
	if res.NewStreak > res.LongestStreak {
		res.LongestStreak = res.NewStreak
	}

	update := l.db.Model(&models.User{}).Where("id = ?", userID)
	if user.LastCheckInDay == nil {
		update = update.Where("last_check_in_day IS NULL")
	} else {
		update = update.Where("last_check_in_day = ?", *user.LastCheckInDay)
	}
	result := update.Updates(map[string]interface{}{
		"current_streak":    res.NewStreak,
		"longest_streak":    res.LongestStreak,
		"last_check_in_day": day,
		"total_check_ins":   gorm.Expr("total_check_ins + 1"),
	})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update streak: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Lost a retry race; the winning write already advanced the streak.
		res.NewStreak = res.PreviousStreak
		res.BrokeStreak = false
		return res, nil
	}

	// Bonuses fire only at exact threshold equality, so a streak that
	// jumps past a threshold via reset can never double-award.
	for _, days := range l.bonusDays() {
		if res.NewStreak != days {
			continue
		}
		coins := l.streakBonuses[days]
		reason := Reason{
			Key:         fmt.Sprintf("streak:%s:%d:%s", userID, days, day.Format("2006-01-02")),
			Description: fmt.Sprintf("%d-day streak bonus", days),
			Notify:      false,
		}
		if err := l.CreditCoins(userID, coins, reason); err != nil {
			slog.Error("streak bonus credit failed", "user_id", userID, "days", days, "error", err)
			continue
		}
		res.BonusesCredited = append(res.BonusesCredited, StreakBonus{Days: days, Coins: coins})
	}

	return res, nil
}

// Balance returns the user's current happy coin balance.
func (l *Ledger) Balance(userID uuid.UUID) (int, error) {
	var user models.User
	if err := l.db.Select("happy_coins").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return user.HappyCoins, nil
}

func (l *Ledger) bonusDays() []int {
	days := make([]int, 0, len(l.streakBonuses))
	for d := range l.streakBonuses {
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}
