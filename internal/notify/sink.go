// Package notify persists notifications and fans them out to the
// user's preferred external channels. External failures are recorded
// per channel in the notification's data and never surfaced to callers.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/wellnessai/engagement-backend/internal/clock"
	"github.com/wellnessai/engagement-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

// Template describes a notification before it is persisted.
type Template struct {
	Type       string
	Title      string
	Message    string
	Priority   string
	Icon       string
	Data       map[string]interface{}
	ActionType string
	ActionData map[string]interface{}
	ExpiresAt  *time.Time
	Source     string
}

// ListOptions filter and paginate ListForUser.
type ListOptions struct {
	Page       int
	Limit      int
	UnreadOnly bool
	Type       string
	Priority   string
}

// Sink is the single writer of notifications.
type Sink struct {
	db             *gorm.DB
	clk            clock.Clock
	channels       []Channel
	channelTimeout time.Duration
}

func NewSink(db *gorm.DB, clk clock.Clock, channelTimeout time.Duration, channels ...Channel) *Sink {
	if channelTimeout <= 0 {
		channelTimeout = 10 * time.Second
	}
	return &Sink{db: db, clk: clk, channels: channels, channelTimeout: channelTimeout}
}

// Emit persists a notification for one user and dispatches it to the
// user's external channels. Persistence errors are returned; channel
// errors are only recorded in the delivery map.
func (s *Sink) Emit(userID uuid.UUID, tpl Template) (*models.Notification, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return s.emitTo(&user, tpl)
}

// EmitBulk persists and dispatches for many users. Per-user failures
// are logged; the batch never fails part-way because one channel or
// user record is broken.
func (s *Sink) EmitBulk(userIDs []uuid.UUID, tpl Template) int {
	if len(userIDs) == 0 {
		return 0
	}
	var users []models.User
	if err := s.db.Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		slog.Error("bulk notification user load failed", "error", err, "count", len(userIDs))
		return 0
	}

	sent := 0
	for i := range users {
		if _, err := s.emitTo(&users[i], tpl); err != nil {
			slog.Error("bulk notification emit failed", "user_id", users[i].ID, "error", err)
			continue
		}
		sent++
	}
	return sent
}

func (s *Sink) emitTo(user *models.User, tpl Template) (*models.Notification, error) {
	if tpl.Priority == "" {
		tpl.Priority = models.PriorityMedium
	}

	n := &models.Notification{
		ID:         uuid.New(),
		UserID:     user.ID,
		Type:       tpl.Type,
		Title:      truncate(tpl.Title, 100),
		Message:    truncate(tpl.Message, 500),
		Data:       datatypes.JSONMap(tpl.Data),
		Priority:   tpl.Priority,
		Icon:       tpl.Icon,
		ActionType: tpl.ActionType,
		ActionData: datatypes.JSONMap(tpl.ActionData),
		ExpiresAt:  tpl.ExpiresAt,
		Source:     tpl.Source,
		CreatedAt:  s.clk.Now(),
	}
	if n.Data == nil {
		n.Data = datatypes.JSONMap{}
	}

	if err := s.db.Create(n).Error; err != nil {
		return nil, fmt.Errorf("failed to persist notification: %w", err)
	}

	s.dispatch(user, n)
	return n, nil
}

// dispatch attempts external delivery and records per-channel outcomes
// under data.delivery. Timeouts and errors stay local.
func (s *Sink) dispatch(user *models.User, n *models.Notification) {
	channels := s.channelsFor(user)
	if len(channels) == 0 {
		return
	}

	delivery := map[string]interface{}{}
	for _, ch := range channels {
		delivery[ch.Name()] = map[string]interface{}{"status": models.DeliveryAttempted}

		ctx, cancel := context.WithTimeout(context.Background(), s.channelTimeout)
		err := ch.Send(ctx, user, n)
		cancel()

		if err != nil {
			slog.Error("notification channel delivery failed",
				"channel", ch.Name(), "user_id", user.ID, "type", n.Type, "error", err)
			delivery[ch.Name()] = map[string]interface{}{
				"status": models.DeliveryFailed,
				"error":  err.Error(),
			}
			continue
		}
		delivery[ch.Name()] = map[string]interface{}{"status": models.DeliverySucceeded}
	}

	n.Data["delivery"] = delivery
	if err := s.db.Model(n).Update("data", n.Data).Error; err != nil {
		slog.Error("failed to record notification delivery", "notification_id", n.ID, "error", err)
	}
}

// MarkRead marks the given notifications read. With no ids it marks
// every unread notification for the user. Already-read rows keep their
// original read_at. Returns the number of rows updated.
func (s *Sink) MarkRead(userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	q := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	result := q.Updates(map[string]interface{}{
		"is_read": true,
		"read_at": s.clk.Now(),
	})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ListForUser returns a page of notifications ordered by priority then
// recency.
func (s *Sink) ListForUser(userID uuid.UUID, opts ListOptions) ([]models.Notification, int64, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 || opts.Limit > 100 {
		opts.Limit = 20
	}

	q := s.db.Model(&models.Notification{}).Where("user_id = ?", userID)
	if opts.UnreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if opts.Type != "" {
		q = q.Where("type = ?", opts.Type)
	}
	if opts.Priority != "" {
		q = q.Where("priority = ?", opts.Priority)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []models.Notification
	err := q.Order(priorityOrder).
		Order("created_at DESC").
		Limit(opts.Limit).
		Offset((opts.Page - 1) * opts.Limit).
		Find(&list).Error
	return list, total, err
}

// priorityOrder ranks urgent > high > medium > low.
const priorityOrder = "CASE priority" +
	" WHEN 'urgent' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END DESC"

// UnreadCount returns the user's unread notification count.
func (s *Sink) UnreadCount(userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// GC deletes read notifications older than the threshold and any
// notification past its expiry. Returns the number of rows removed.
func (s *Sink) GC(olderThanDays int) (int64, error) {
	if olderThanDays <= 0 {
		olderThanDays = 30
	}
	now := s.clk.Now()
	cutoff := now.AddDate(0, 0, -olderThanDays)

	result := s.db.Where("(is_read = ? AND created_at < ?) OR (expires_at IS NOT NULL AND expires_at < ?)",
		true, cutoff, now).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("notification gc failed: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// truncate caps s at max runes. Cutting on a byte offset could split a
// multi-byte rune (titles carry emoji) and persist invalid UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
