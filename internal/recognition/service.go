// Package recognition records peer-to-peer kudos and credits the
// recipient's Happy Coins.
package recognition

import (
	"errors"
	"fmt"
	"log/slog"

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
	ErrSelfRecognition = errors.New("cannot recognize yourself")
	ErrMessageTooLong  = errors.New("message exceeds 500 characters")
	ErrUserNotFound    = errors.New("user not found")
)

var validVisibilities = map[string]bool{
	models.VisibilityPublic:  true,
	models.VisibilityTeam:    true,
	models.VisibilityPrivate: true,
}

// SendRequest is one kudos payload.
type SendRequest struct {
	ToUserID   uuid.UUID `json:"to_user_id"`
	Type       string    `json:"type"`
	Message    string    `json:"message"`
	Visibility string    `json:"visibility"`
}

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

// Send records kudos from one user to another. Self-recognition is a
// domain error, not an exception path.
func (s *Service) Send(fromUserID uuid.UUID, req SendRequest) (*models.Recognition, error) {
	if fromUserID == req.ToUserID {
		return nil, ErrSelfRecognition
	}
	if len(req.Message) > 500 {
		return nil, ErrMessageTooLong
	}
	visibility := req.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	if !validVisibilities[visibility] {
		visibility = models.VisibilityPublic
	}
	kind := req.Type
	if kind == "" {
		kind = "kudos"
	}

	var from, to models.User
	if err := s.db.First(&from, "id = ?", fromUserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if err := s.db.First(&to, "id = ?", req.ToUserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	rec := &models.Recognition{
		ID:         uuid.New(),
		FromUserID: fromUserID,
		ToUserID:   req.ToUserID,
		Type:       kind,
		Message:    req.Message,
		Visibility: visibility,
		HappyCoins: s.cfg.RecognitionCoins,
		CreatedAt:  s.clk.Now(),
	}
	if err := s.db.Create(rec).Error; err != nil {
		return nil, fmt.Errorf("failed to record recognition: %w", err)
	}

	reason := ledger.Reason{
		Key:         "recognition:" + rec.ID.String(),
		Description: fmt.Sprintf("Recognition from %s", from.Name),
	}
	if err := s.ldg.CreditCoins(req.ToUserID, rec.HappyCoins, reason); err != nil {
		slog.Error("recognition coin credit failed", "recognition_id", rec.ID, "error", err)
	}

	if _, err := s.sink.Emit(req.ToUserID, notify.Template{
		Type:     models.NotifRecognitionReceived,
		Title:    fmt.Sprintf("%s recognized you!", from.Name),
		Message:  fmt.Sprintf("%s (+%d Happy Coins)", req.Message, rec.HappyCoins),
		Priority: models.PriorityMedium,
		Icon:     "💜",
		Data: map[string]interface{}{
			"recognition_id": rec.ID.String(),
			"from_user_id":   fromUserID.String(),
			"coins":          rec.HappyCoins,
		},
		Source: "recognition",
	}); err != nil {
		slog.Error("recognition notification failed", "recognition_id", rec.ID, "error", err)
	}

	s.bus.Publish(events.RecognitionSent{
		RecognitionID: rec.ID,
		FromUserID:    fromUserID,
		ToUserID:      req.ToUserID,
		HappyCoins:    rec.HappyCoins,
	})

	return rec, nil
}

// ReceivedBy lists recognitions for a user, newest first.
func (s *Service) ReceivedBy(userID uuid.UUID, limit, offset int) ([]models.Recognition, int64, error) {
	var total int64
	if err := s.db.Model(&models.Recognition{}).Where("to_user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Recognition
	err := s.db.Where("to_user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&list).Error
	return list, total, err
}
