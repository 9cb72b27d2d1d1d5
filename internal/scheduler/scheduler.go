// Package scheduler drives the time-based sweeps: weekly pulse
// creation, daily reminders, daily closure, notification GC, and
// dynamic per-survey schedules. Missed fires during downtime are not
// backfilled; each sweep handles whatever has accumulated.
package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/wellnessai/engagement-backend/internal/models"
	"github.com/wellnessai/engagement-backend/internal/notify"
	"github.com/wellnessai/engagement-backend/internal/surveys"
	"gorm.io/gorm"
)

// Fixed job patterns (minute resolution, server time).
const (
	patternWeeklyPulse = "0 9 * * 1"
	patternReminders   = "0 10 * * *"
	patternClosure     = "59 23 * * *"
	patternNotifGC     = "30 3 * * *"
)

var ErrInvalidSchedule = errors.New("invalid survey schedule")

// Scheduler owns the cron runner. Start is idempotent; Stop cancels
// every dynamic entry and halts the runner.
type Scheduler struct {
	cron    *cron.Cron
	db      *gorm.DB
	surveys *surveys.Service
	sink    *notify.Sink

	mu          sync.Mutex
	initialized bool
	dynamic     map[uuid.UUID]cron.EntryID
}

func New(db *gorm.DB, surveysSvc *surveys.Service, sink *notify.Sink) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		db:      db,
		surveys: surveysSvc,
		sink:    sink,
		dynamic: make(map[uuid.UUID]cron.EntryID),
	}
}

// Start registers the fixed jobs, re-registers dynamic jobs for
// scheduled draft surveys, and starts the runner.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}

	jobs := []struct {
		pattern string
		name    string
		run     func()
	}{
		{patternWeeklyPulse, "weekly_pulse", s.runWeeklyPulse},
		{patternReminders, "survey_reminders", s.runReminders},
		{patternClosure, "survey_closure", s.runClosure},
		{patternNotifGC, "notification_gc", s.runNotificationGC},
	}
	for _, j := range jobs {
		job := j
		if _, err := s.cron.AddFunc(job.pattern, func() {
			slog.Info("scheduled job firing", "job", job.name)
			job.run()
		}); err != nil {
			return fmt.Errorf("failed to register %s job: %w", job.name, err)
		}
	}

	if err := s.registerDynamicJobsLocked(); err != nil {
		return err
	}

	s.cron.Start()
	s.initialized = true
	slog.Info("scheduler started", "fixed_jobs", len(jobs), "dynamic_jobs", len(s.dynamic))
	return nil
}

// Stop cancels every dynamic job and stops the runner, waiting for any
// in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for id, entry := range s.dynamic {
		s.cron.Remove(entry)
		delete(s.dynamic, id)
	}
	s.initialized = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("scheduler stopped")
}

func (s *Scheduler) runWeeklyPulse() {
	if _, err := s.surveys.CreateWeeklyPulse(); err != nil {
		slog.Error("weekly pulse job failed", "error", err)
	}
}

func (s *Scheduler) runReminders() {
	if err := s.surveys.SendReminders(); err != nil {
		slog.Error("reminder sweep failed", "error", err)
	}
}

func (s *Scheduler) runClosure() {
	if _, err := s.surveys.CloseExpiredSurveys(); err != nil {
		slog.Error("closure sweep failed", "error", err)
	}
}

func (s *Scheduler) runNotificationGC() {
	removed, err := s.sink.GC(30)
	if err != nil {
		slog.Error("notification gc failed", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("notification gc completed", "removed", removed)
	}
}

// PatternFor maps a weekly survey schedule onto a cron pattern.
func PatternFor(sc *models.SurveySchedule) (string, error) {
	if sc == nil || sc.Frequency != "weekly" {
		return "", fmt.Errorf("%w: only weekly schedules are supported", ErrInvalidSchedule)
	}
	if sc.DayOfWeek < 0 || sc.DayOfWeek > 6 {
		return "", fmt.Errorf("%w: day_of_week %d", ErrInvalidSchedule, sc.DayOfWeek)
	}
	parts := strings.SplitN(sc.Time, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: time %q", ErrInvalidSchedule, sc.Time)
	}
	var hh, mm int
	if _, err := fmt.Sscanf(sc.Time, "%d:%d", &hh, &mm); err != nil {
		return "", fmt.Errorf("%w: time %q", ErrInvalidSchedule, sc.Time)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return "", fmt.Errorf("%w: time %q", ErrInvalidSchedule, sc.Time)
	}
	return fmt.Sprintf("%d %d * * %d", mm, hh, sc.DayOfWeek), nil
}

// RegisterSurveySchedule adds a dynamic job that promotes the draft
// survey to active when it fires.
func (s *Scheduler) RegisterSurveySchedule(survey *models.Survey) error {
	schedule, err := survey.ParseSchedule()
	if err != nil {
		return fmt.Errorf("failed to parse schedule: %w", err)
	}
	pattern, err := PatternFor(schedule)
	if err != nil {
		return err
	}

	surveyID := survey.ID
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.dynamic[surveyID]; ok {
		s.cron.Remove(old)
	}
	entry, err := s.cron.AddFunc(pattern, func() {
		if _, err := s.surveys.Activate(surveyID); err != nil {
			slog.Error("scheduled survey activation failed", "survey_id", surveyID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register survey schedule: %w", err)
	}
	s.dynamic[surveyID] = entry
	slog.Info("survey schedule registered", "survey_id", surveyID, "pattern", pattern)
	return nil
}

// CancelSurveySchedule removes a dynamic job, if present.
func (s *Scheduler) CancelSurveySchedule(surveyID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.dynamic[surveyID]; ok {
		s.cron.Remove(entry)
		delete(s.dynamic, surveyID)
	}
}

// registerDynamicJobsLocked re-registers jobs for scheduled draft
// surveys after a restart. Caller holds the lock.
func (s *Scheduler) registerDynamicJobsLocked() error {
	var scheduled []models.Survey
	err := s.db.Where("status = ? AND schedule IS NOT NULL", models.SurveyDraft).Find(&scheduled).Error
	if err != nil {
		return fmt.Errorf("failed to load scheduled surveys: %w", err)
	}

	for i := range scheduled {
		schedule, err := scheduled[i].ParseSchedule()
		if err != nil || schedule == nil {
			continue
		}
		pattern, err := PatternFor(schedule)
		if err != nil {
			slog.Warn("skipping survey with invalid schedule", "survey_id", scheduled[i].ID, "error", err)
			continue
		}
		surveyID := scheduled[i].ID
		entry, err := s.cron.AddFunc(pattern, func() {
			if _, err := s.surveys.Activate(surveyID); err != nil {
				slog.Error("scheduled survey activation failed", "survey_id", surveyID, "error", err)
			}
		})
		if err != nil {
			slog.Warn("failed to register survey schedule", "survey_id", surveyID, "error", err)
			continue
		}
		s.dynamic[surveyID] = entry
	}
	return nil
}
