// Package checkin validates and records daily mood check-ins, driving
// the ledger and publishing CheckInRecorded for downstream evaluators.
package checkin

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wellnessai/engagement-backend/internal/clock"
	"github.com/wellnessai/engagement-backend/internal/config"
	"github.com/wellnessai/engagement-backend/internal/events"
	"github.com/wellnessai/engagement-backend/internal/ledger"
	"github.com/wellnessai/engagement-backend/internal/models"
	"github.com/wellnessai/engagement-backend/internal/notify"
	"gorm.io/gorm"
)

var (
	ErrInvalidMood      = errors.New("mood must be between 1 and 5")
	ErrAlreadyCheckedIn = errors.New("already checked in today")
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidSource    = errors.New("invalid check-in source")
)

// goodMoodThreshold is the lowest mood that earns the positive bonus.
const goodMoodThreshold = 4

var validSources = map[string]bool{
	models.SourceWeb:      true,
	models.SourceWhatsApp: true,
	models.SourceSlack:    true,
}

// SubmitRequest is one check-in payload.
type SubmitRequest struct {
	Mood   int    `json:"mood"`
	Note   string `json:"note"`
	Source string `json:"source"`
}

// Receipt summarizes what a check-in earned.
type Receipt struct {
	CheckInID     uuid.UUID            `json:"check_in_id"`
	Day           string               `json:"day"`
	Mood          int                  `json:"mood"`
	CoinsEarned   int                  `json:"coins_earned"`
	CurrentStreak int                  `json:"current_streak"`
	LongestStreak int                  `json:"longest_streak"`
	BrokeStreak   bool                 `json:"broke_streak"`
	StreakBonuses []ledger.StreakBonus `json:"streak_bonuses,omitempty"`
}

// Service is the check-in processor.
type Service struct {
	db   *gorm.DB
	clk  clock.Clock
	ldg  *ledger.Ledger
	sink *notify.Sink
	bus  *events.Bus
	cfg  *config.Config
}

func NewService(db *gorm.DB, clk clock.Clock, ldg *ledger.Ledger, sink *notify.Sink, bus *events.Bus, cfg *config.Config) *Service {
	return &Service{db: db, clk: clk, ldg: ldg, sink: sink, bus: bus, cfg: cfg}
}

// Submit records today's check-in for the user. The (user, day) unique
// index makes the insert the single serialization point; everything
// after it is retried best-effort with idempotent coin credits.
func (s *Service) Submit(userID uuid.UUID, req SubmitRequest) (*Receipt, error) {
	if req.Mood < 1 || req.Mood > 5 {
		return nil, ErrInvalidMood
	}
	source := req.Source
	if source == "" {
		source = models.SourceWeb
	}
	if !validSources[source] {
		return nil, ErrInvalidSource
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	day := clock.DayOf(s.clk.Now(), user.LocalTZ())

	record := models.CheckIn{
		ID:        uuid.New(),
		UserID:    userID,
		Day:       day,
		Mood:      req.Mood,
		Note:      req.Note,
		Source:    source,
		CreatedAt: s.clk.Now(),
	}
	if err := s.db.Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyCheckedIn
		}
		return nil, fmt.Errorf("failed to record check-in: %w", err)
	}

	streak, err := s.applyStreak(userID, day)
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{
		CheckInID:     record.ID,
		Day:           day.Format("2006-01-02"),
		Mood:          req.Mood,
		CurrentStreak: streak.NewStreak,
		LongestStreak: streak.LongestStreak,
		BrokeStreak:   streak.BrokeStreak,
		StreakBonuses: streak.BonusesCredited,
	}

	receipt.CoinsEarned += s.credit(userID, s.cfg.DailyCheckInCoins,
		ledger.Reason{Key: "checkin:" + record.ID.String() + ":base", Description: "Daily check-in"})

	if req.Mood >= goodMoodThreshold {
		receipt.CoinsEarned += s.credit(userID, s.cfg.PositiveMoodBonus,
			ledger.Reason{Key: "checkin:" + record.ID.String() + ":mood", Description: "Positive mood bonus"})
	}

	if strings.TrimSpace(req.Note) != "" {
		receipt.CoinsEarned += s.credit(userID, s.cfg.JournalEntryCoins,
			ledger.Reason{Key: "checkin:" + record.ID.String() + ":journal", Description: "Journal entry"})
	}

	for _, b := range streak.BonusesCredited {
		receipt.CoinsEarned += b.Coins
	}

	s.notifyCompleted(userID, receipt)

	s.bus.Publish(events.CheckInRecorded{
		UserID:         userID,
		CheckInID:      record.ID,
		Mood:           req.Mood,
		Day:            day,
		PreviousStreak: streak.PreviousStreak,
		NewStreak:      streak.NewStreak,
	})

	return receipt, nil
}

// applyStreak runs the ledger streak update with one retry; the
// check-in row is already authoritative by the time we get here.
func (s *Service) applyStreak(userID uuid.UUID, day time.Time) (*ledger.StreakResult, error) {
	streak, err := s.ldg.ApplyCheckInToStreak(userID, day)
	if err == nil {
		return streak, nil
	}
	slog.Error("streak update failed, retrying", "user_id", userID, "error", err)
	streak, err = s.ldg.ApplyCheckInToStreak(userID, day)
	if err != nil {
		return nil, fmt.Errorf("streak update failed after retry: %w", err)
	}
	return streak, nil
}

func (s *Service) credit(userID uuid.UUID, amount int, reason ledger.Reason) int {
	if amount <= 0 {
		return 0
	}
	if err := s.ldg.CreditCoins(userID, amount, reason); err != nil {
		slog.Error("check-in coin credit failed", "user_id", userID, "reason", reason.Description, "error", err)
		return 0
	}
	return amount
}

func (s *Service) notifyCompleted(userID uuid.UUID, receipt *Receipt) {
	msg := fmt.Sprintf("You earned %d Happy Coins. Current streak: %d days.",
		receipt.CoinsEarned, receipt.CurrentStreak)
	data := map[string]interface{}{
		"coins_earned":   receipt.CoinsEarned,
		"current_streak": receipt.CurrentStreak,
	}
	if len(receipt.StreakBonuses) > 0 {
		msg = fmt.Sprintf("You earned %d Happy Coins and hit a %d-day streak milestone!",
			receipt.CoinsEarned, receipt.CurrentStreak)
		data["streak_milestone"] = receipt.CurrentStreak
	}

	if _, err := s.sink.Emit(userID, notify.Template{
		Type:     models.NotifCheckInCompleted,
		Title:    "Check-in complete",
		Message:  msg,
		Priority: models.PriorityLow,
		Icon:     "✅",
		Data:     data,
		Source:   "checkin",
	}); err != nil {
		slog.Error("check-in notification failed", "user_id", userID, "error", err)
	}
}

// History returns the user's check-ins, newest day first.
func (s *Service) History(userID uuid.UUID, limit, offset int) ([]models.CheckIn, int64, error) {
	var total int64
	if err := s.db.Model(&models.CheckIn{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []models.CheckIn
	err := s.db.Where("user_id = ?", userID).
		Order("day DESC").
		Limit(limit).
		Offset(offset).
		Find(&list).Error
	return list, total, err
}
