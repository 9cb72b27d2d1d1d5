// Package surveys owns the pulse survey lifecycle: weekly creation,
// reminder sweeps, closure sweeps, cohort targeting, and response
// intake. Status only ever moves draft -> active -> closed -> archived.
package surveys

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/wellnessai/engagement-backend/internal/clock"
	"github.com/wellnessai/engagement-backend/internal/config"
	"github.com/wellnessai/engagement-backend/internal/events"
	"github.com/wellnessai/engagement-backend/internal/models"
	"github.com/wellnessai/engagement-backend/internal/notify"
	"gorm.io/gorm"
)

var (
	ErrSurveyNotFound   = errors.New("survey not found")
	ErrSurveyClosed     = errors.New("survey is closed")
	ErrInvalidTransition = errors.New("invalid survey status transition")
)

// SystemUserID marks records created by scheduled jobs rather than a
// human admin.
var SystemUserID = uuid.Nil

// reminderHorizon is how close to the due date a survey must be before
// the reminder sweep picks it up.
const reminderHorizon = 48 * time.Hour

// Service manages survey state; slack is optional and only used for
// interactive reminder delivery.
type Service struct {
	db    *gorm.DB
	clk   clock.Clock
	sink  *notify.Sink
	bus   *events.Bus
	cfg   *config.Config
	slack *notify.SlackChannel
}

func NewService(db *gorm.DB, clk clock.Clock, sink *notify.Sink, bus *events.Bus, cfg *config.Config, slack *notify.SlackChannel) *Service {
	return &Service{db: db, clk: clk, sink: sink, bus: bus, cfg: cfg, slack: slack}
}

// CreateRequest is an admin-authored survey.
type CreateRequest struct {
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Type        string                  `json:"type"`
	Priority    string                  `json:"priority"`
	Questions   []models.SurveyQuestion `json:"questions"`
	Audience    models.TargetAudience   `json:"target_audience"`
	Schedule    *models.SurveySchedule  `json:"schedule,omitempty"`
	RewardCoins int                     `json:"reward_coins"`
	DueDate     *time.Time              `json:"due_date"`
	Activate    bool                    `json:"activate"`
}

var ErrInvalidSurvey = errors.New("survey needs a title and at least one question")

// Create stores an admin-authored survey as a draft, or activates it
// immediately when requested.
func (s *Service) Create(createdBy uuid.UUID, req CreateRequest) (*models.Survey, error) {
	if req.Title == "" || len(req.Questions) == 0 {
		return nil, ErrInvalidSurvey
	}
	if req.Type == "" {
		req.Type = models.SurveyTypeCustom
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if req.RewardCoins <= 0 {
		req.RewardCoins = s.cfg.SurveyCompletionCoins
	}

	questions, _ := json.Marshal(req.Questions)
	audience, _ := json.Marshal(req.Audience)

	survey := &models.Survey{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Priority:    req.Priority,
		Status:      models.SurveyDraft,
		Questions:   questions,
		Audience:    audience,
		RewardCoins: req.RewardCoins,
		DueDate:     req.DueDate,
		CreatedBy:   createdBy,
		CreatedAt:   s.clk.Now(),
	}
	if req.Schedule != nil {
		schedule, _ := json.Marshal(req.Schedule)
		survey.Schedule = schedule
	}
	if err := s.db.Create(survey).Error; err != nil {
		return nil, fmt.Errorf("failed to create survey: %w", err)
	}

	if req.Activate {
		return s.Activate(survey.ID)
	}
	return survey, nil
}

// CreateWeeklyPulse creates the current ISO week's pulse survey.
// Idempotent per week: an existing active or draft pulse created
// inside the week window makes it a no-op.
func (s *Service) CreateWeeklyPulse() (*models.Survey, error) {
	now := s.clk.Now()
	weekStart, weekEnd := clock.WeekWindow(now)

	var count int64
	err := s.db.Model(&models.Survey{}).
		Where("type = ? AND status IN ? AND created_at BETWEEN ? AND ?",
			models.SurveyTypePulse, []string{models.SurveyActive, models.SurveyDraft}, weekStart, weekEnd).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check existing pulse: %w", err)
	}
	if count > 0 {
		slog.Info("weekly pulse already exists", "week_start", weekStart.Format("2006-01-02"))
		return nil, nil
	}

	var activeEmployees int64
	err = s.db.Model(&models.User{}).
		Where("is_active = ? AND role = ?", true, models.RoleEmployee).
		Count(&activeEmployees).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count employees: %w", err)
	}
	if activeEmployees == 0 {
		slog.Info("no active employees, skipping weekly pulse")
		return nil, nil
	}

	year, week := clock.ISOWeek(now)
	questions, _ := json.Marshal(pulseQuestions())
	audience, _ := json.Marshal(models.TargetAudience{All: true})
	due := weekEnd

	survey := &models.Survey{
		ID:          uuid.New(),
		Title:       fmt.Sprintf("Weekly Engagement Pulse - Week %d, %d", week, year),
		Description: "A quick pulse on how your week went. Takes under two minutes.",
		Type:        models.SurveyTypePulse,
		Priority:    models.PriorityHigh,
		Status:      models.SurveyActive,
		Questions:   questions,
		Audience:    audience,
		RewardCoins: pulseRewardCoins,
		DueDate:     &due,
		CreatedBy:   SystemUserID,
		CreatedAt:   now,
	}
	if err := s.db.Create(survey).Error; err != nil {
		return nil, fmt.Errorf("failed to create weekly pulse: %w", err)
	}

	targets, err := s.ResolveTargets(survey)
	if err != nil {
		slog.Error("pulse target resolution failed", "survey_id", survey.ID, "error", err)
		targets = nil
	}

	s.announce(survey, targets)
	s.bus.Publish(events.SurveyCreated{SurveyID: survey.ID, Title: survey.Title, Targets: targets})

	slog.Info("weekly pulse created", "survey_id", survey.ID, "week", week, "targets", len(targets))
	return survey, nil
}

// announce notifies every target that a survey is available.
func (s *Service) announce(survey *models.Survey, targets []uuid.UUID) {
	if len(targets) == 0 {
		return
	}
	s.sink.EmitBulk(targets, notify.Template{
		Type:     models.NotifSurveyAvailable,
		Title:    "New survey: " + survey.Title,
		Message:  fmt.Sprintf("Share your feedback and earn %d Happy Coins.", survey.RewardCoins),
		Priority: models.PriorityMedium,
		Icon:     "📋",
		Data:     map[string]interface{}{"survey_id": survey.ID.String()},
		ActionType: "open_survey",
		ActionData: map[string]interface{}{"survey_id": survey.ID.String()},
		ExpiresAt:  survey.DueDate,
		Source:     "surveys",
	})
}

// SendReminders nudges everyone who hasn't responded to a high or
// urgent survey due within the next two days. At most one reminder per
// user per sweep; sweeps may repeat on following days.
func (s *Service) SendReminders() error {
	now := s.clk.Now()
	horizon := now.Add(reminderHorizon)

	var due []models.Survey
	err := s.db.Where("status = ? AND due_date IS NOT NULL AND due_date <= ? AND due_date > ? AND priority IN ?",
		models.SurveyActive, horizon, now, []string{models.PriorityHigh, models.PriorityUrgent}).
		Find(&due).Error
	if err != nil {
		return fmt.Errorf("failed to load due surveys: %w", err)
	}

	for i := range due {
		if err := s.remindFor(&due[i], now); err != nil {
			slog.Error("reminder sweep failed for survey", "survey_id", due[i].ID, "error", err)
		}
	}
	return nil
}

func (s *Service) remindFor(survey *models.Survey, now time.Time) error {
	targets, err := s.ResolveTargets(survey)
	if err != nil {
		return err
	}

	var responded []uuid.UUID
	err = s.db.Model(&models.SurveyResponse{}).
		Where("survey_id = ?", survey.ID).
		Pluck("user_id", &responded).Error
	if err != nil {
		return fmt.Errorf("failed to load responders: %w", err)
	}
	respondedSet := make(map[uuid.UUID]bool, len(responded))
	for _, id := range responded {
		respondedSet[id] = true
	}

	var pending []uuid.UUID
	for _, id := range targets {
		if !respondedSet[id] {
			pending = append(pending, id)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	// Ceiling in whole days: due in exactly 24h reads "1 day(s)".
	remaining := survey.DueDate.Sub(now)
	daysLeft := int((remaining + 24*time.Hour - time.Nanosecond) / (24 * time.Hour))
	s.sink.EmitBulk(pending, notify.Template{
		Type:     models.NotifSurveyReminder,
		Title:    "Reminder: " + survey.Title,
		Message:  fmt.Sprintf("Due in %d day(s). Respond now to earn %d Happy Coins.", daysLeft, survey.RewardCoins),
		Priority: models.PriorityHigh,
		Icon:     "⏰",
		Data:     map[string]interface{}{"survey_id": survey.ID.String(), "days_left": daysLeft},
		ActionType: "open_survey",
		ActionData: map[string]interface{}{"survey_id": survey.ID.String()},
		ExpiresAt:  survey.DueDate,
		Source:     "surveys",
	})

	s.slackDeliver(survey, pending)
	slog.Info("survey reminders sent", "survey_id", survey.ID, "count", len(pending))
	return nil
}

// slackDeliver pushes an interactive survey card to pending users who
// have Slack connected and don't prefer email.
func (s *Service) slackDeliver(survey *models.Survey, pending []uuid.UUID) {
	if s.slack == nil {
		return
	}

	var users []models.User
	err := s.db.Where("id IN ? AND slack_connected = ? AND preferred_channel <> ?",
		pending, true, models.ChannelEmail).
		Find(&users).Error
	if err != nil {
		slog.Error("slack reminder user load failed", "survey_id", survey.ID, "error", err)
		return
	}

	blocks := []map[string]interface{}{
		{
			"type": "section",
			"text": map[string]interface{}{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*%s*\nRespond to earn %d Happy Coins.", survey.Title, survey.RewardCoins),
			},
		},
		{
			"type": "actions",
			"elements": []map[string]interface{}{
				{
					"type":      "button",
					"text":      map[string]interface{}{"type": "plain_text", "text": "Take survey"},
					"action_id": "open_survey",
					"value":     survey.ID.String(),
				},
			},
		},
	}

	for i := range users {
		if users[i].SlackUserID == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ChannelTimeout)
		err := s.slack.SendBlocks(ctx, *users[i].SlackUserID, "Survey reminder: "+survey.Title, blocks)
		cancel()
		if err != nil {
			slog.Error("interactive slack delivery failed", "survey_id", survey.ID, "user_id", users[i].ID, "error", err)
		}
	}
}

// CloseExpiredSurveys closes every active survey past its due date and
// emits SurveyClosed for each.
func (s *Service) CloseExpiredSurveys() (int, error) {
	now := s.clk.Now()

	var expired []models.Survey
	err := s.db.Where("status = ? AND due_date IS NOT NULL AND due_date < ?", models.SurveyActive, now).
		Find(&expired).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load expired surveys: %w", err)
	}

	closed := 0
	for i := range expired {
		if err := s.transition(&expired[i], models.SurveyClosed); err != nil {
			slog.Error("survey close failed", "survey_id", expired[i].ID, "error", err)
			continue
		}
		s.bus.Publish(events.SurveyClosed{SurveyID: expired[i].ID, Title: expired[i].Title})
		closed++
	}

	if closed > 0 {
		slog.Info("closure sweep completed", "closed", closed)
	}
	return closed, nil
}

// validTransitions encodes the monotonic status order.
var validTransitions = map[string]string{
	models.SurveyDraft:  models.SurveyActive,
	models.SurveyActive: models.SurveyClosed,
	models.SurveyClosed: models.SurveyArchived,
}

func (s *Service) transition(survey *models.Survey, next string) error {
	if validTransitions[survey.Status] != next {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, survey.Status, next)
	}
	result := s.db.Model(&models.Survey{}).
		Where("id = ? AND status = ?", survey.ID, survey.Status).
		Update("status", next)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: survey %s changed concurrently", ErrInvalidTransition, survey.ID)
	}
	survey.Status = next
	return nil
}

// Activate promotes a draft survey and notifies its targets. Used by
// admin action and by dynamic schedule jobs.
func (s *Service) Activate(surveyID uuid.UUID) (*models.Survey, error) {
	var survey models.Survey
	if err := s.db.First(&survey, "id = ?", surveyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSurveyNotFound
		}
		return nil, err
	}
	if survey.Status == models.SurveyActive {
		return &survey, nil
	}
	if err := s.transition(&survey, models.SurveyActive); err != nil {
		return nil, err
	}

	targets, err := s.ResolveTargets(&survey)
	if err != nil {
		slog.Error("activation target resolution failed", "survey_id", survey.ID, "error", err)
		targets = nil
	}
	s.announce(&survey, targets)
	s.bus.Publish(events.SurveyCreated{SurveyID: survey.ID, Title: survey.Title, Targets: targets})
	return &survey, nil
}

// Close closes an active survey on admin action.
func (s *Service) Close(surveyID uuid.UUID) error {
	var survey models.Survey
	if err := s.db.First(&survey, "id = ?", surveyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSurveyNotFound
		}
		return err
	}
	if err := s.transition(&survey, models.SurveyClosed); err != nil {
		return err
	}
	s.bus.Publish(events.SurveyClosed{SurveyID: survey.ID, Title: survey.Title})
	return nil
}

// ResolveTargets returns the user ids a survey goes to: every active
// employee when audience.all, otherwise the union of the department,
// role, and specific-user filters. All filters require is_active; the
// department and specific-user filters are further scoped to the
// employee role, while the role filter matches the named roles as-is
// (targeting roles: ["hr"] has to reach hr users).
func (s *Service) ResolveTargets(survey *models.Survey) ([]uuid.UUID, error) {
	audience, err := survey.ParseAudience()
	if err != nil {
		return nil, fmt.Errorf("failed to parse audience: %w", err)
	}

	base := s.db.Model(&models.User{}).Where("is_active = ? AND role = ?", true, models.RoleEmployee)

	var ids []uuid.UUID
	if audience.All {
		err = base.Pluck("id", &ids).Error
		return ids, err
	}

	set := make(map[uuid.UUID]bool)
	if len(audience.Departments) > 0 {
		var deptIDs []uuid.UUID
		if err := base.Session(&gorm.Session{}).Where("department IN ?", audience.Departments).Pluck("id", &deptIDs).Error; err != nil {
			return nil, err
		}
		for _, id := range deptIDs {
			set[id] = true
		}
	}
	if len(audience.Roles) > 0 {
		var roleIDs []uuid.UUID
		if err := s.db.Model(&models.User{}).
			Where("is_active = ? AND role IN ?", true, audience.Roles).
			Pluck("id", &roleIDs).Error; err != nil {
			return nil, err
		}
		for _, id := range roleIDs {
			set[id] = true
		}
	}
	if len(audience.SpecificUsers) > 0 {
		var userIDs []uuid.UUID
		if err := base.Session(&gorm.Session{}).Where("id IN ?", audience.SpecificUsers).Pluck("id", &userIDs).Error; err != nil {
			return nil, err
		}
		for _, id := range userIDs {
			set[id] = true
		}
	}

	for id := range set {
		ids = append(ids, id)
	}
	return ids, nil
}

// HasUserResponded checks for an existing response.
func (s *Service) HasUserResponded(surveyID, userID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.Model(&models.SurveyResponse{}).
		Where("survey_id = ? AND user_id = ?", surveyID, userID).
		Count(&count).Error
	return count > 0, err
}

// ListActive returns active surveys targeted at the user.
func (s *Service) ListActive(userID uuid.UUID) ([]models.Survey, error) {
	var surveysList []models.Survey
	if err := s.db.Where("status = ?", models.SurveyActive).Order("created_at DESC").Find(&surveysList).Error; err != nil {
		return nil, err
	}

	out := make([]models.Survey, 0, len(surveysList))
	for i := range surveysList {
		targets, err := s.ResolveTargets(&surveysList[i])
		if err != nil {
			continue
		}
		for _, id := range targets {
			if id == userID {
				out = append(out, surveysList[i])
				break
			}
		}
	}
	return out, nil
}
