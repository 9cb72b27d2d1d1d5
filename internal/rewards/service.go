// Package rewards is the redemption side of the coin economy: the
// only path that debits Happy Coins.
package rewards

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

var (
	ErrRewardNotFound = errors.New("reward not found")
	ErrOutOfStock     = errors.New("reward is out of stock")
)

type Service struct {
	db   *gorm.DB
	clk  clock.Clock
	ldg  *ledger.Ledger
	sink *notify.Sink
	bus  *events.Bus
}

func NewService(db *gorm.DB, clk clock.Clock, ldg *ledger.Ledger, sink *notify.Sink, bus *events.Bus) *Service {
	return &Service{db: db, clk: clk, ldg: ldg, sink: sink, bus: bus}
}

// List returns the active catalog ordered by cost.
func (s *Service) List() ([]models.Reward, error) {
	var list []models.Reward
	err := s.db.Where("is_active = ?", true).Order("cost ASC").Find(&list).Error
	return list, err
}

// Redeem debits the cost and records the redemption. Insufficient
// balance surfaces as ledger.ErrInsufficientCoins.
func (s *Service) Redeem(userID, rewardID uuid.UUID) (*models.Redemption, error) {
	var reward models.Reward
	if err := s.db.First(&reward, "id = ? AND is_active = ?", rewardID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRewardNotFound
		}
		return nil, err
	}

	if reward.Stock != nil {
		// Conditional decrement keeps stock non-negative under races.
		result := s.db.Model(&models.Reward{}).
			Where("id = ? AND stock > 0", rewardID).
			UpdateColumn("stock", gorm.Expr("stock - 1"))
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, ErrOutOfStock
		}
	}

	reason := ledger.Reason{
		Key:         fmt.Sprintf("redeem:%s:%s:%d", userID, rewardID, s.clk.Now().UnixNano()),
		Description: "Redeemed: " + reward.Name,
	}
	if err := s.ldg.DebitCoins(userID, reward.Cost, reason); err != nil {
		// Return the reserved stock before surfacing the failure.
		if reward.Stock != nil {
			s.db.Model(&models.Reward{}).Where("id = ?", rewardID).
				UpdateColumn("stock", gorm.Expr("stock + 1"))
		}
		return nil, err
	}

	redemption := &models.Redemption{
		ID:        uuid.New(),
		UserID:    userID,
		RewardID:  rewardID,
		Cost:      reward.Cost,
		CreatedAt: s.clk.Now(),
	}
	if err := s.db.Create(redemption).Error; err != nil {
		return nil, fmt.Errorf("failed to record redemption: %w", err)
	}

	if _, err := s.sink.Emit(userID, notify.Template{
		Type:     models.NotifRewardRedeemed,
		Title:    "Reward redeemed: " + reward.Name,
		Message:  fmt.Sprintf("You spent %d Happy Coins.", reward.Cost),
		Priority: models.PriorityMedium,
		Icon:     "🎁",
		Data:     map[string]interface{}{"reward_id": rewardID.String(), "cost": reward.Cost},
		Source:   "rewards",
	}); err != nil {
		slog.Error("redemption notification failed", "user_id", userID, "error", err)
	}

	s.bus.Publish(events.RewardRedeemed{UserID: userID, RewardID: rewardID, Cost: reward.Cost})
	return redemption, nil
}
