// Package events is the in-process bus coupling the check-in
// processor, ledger, achievement evaluator, and survey manager.
// Producers publish; they never import their consumers.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Topic identifies an event kind on the bus.
type Topic string

const (
	TopicCheckInRecorded Topic = "checkin.recorded"
	TopicSurveyCreated   Topic = "survey.created"
	TopicSurveyClosed    Topic = "survey.closed"
	TopicSurveyCompleted Topic = "survey.completed"
	TopicRecognitionSent Topic = "recognition.sent"
	TopicRewardRedeemed  Topic = "reward.redeemed"
)

// CheckInRecorded fires after a check-in and its ledger updates have
// been committed.
type CheckInRecorded struct {
	UserID         uuid.UUID
	CheckInID      uuid.UUID
	Mood           int
	Day            time.Time
	PreviousStreak int
	NewStreak      int
}

func (CheckInRecorded) Topic() Topic { return TopicCheckInRecorded }

// SurveyCreated fires when a survey becomes active, carrying its
// resolved target user ids.
type SurveyCreated struct {
	SurveyID uuid.UUID
	Title    string
	Targets  []uuid.UUID
}

func (SurveyCreated) Topic() Topic { return TopicSurveyCreated }

// SurveyClosed fires when the closure sweep or an admin closes a survey.
type SurveyClosed struct {
	SurveyID uuid.UUID
	Title    string
}

func (SurveyClosed) Topic() Topic { return TopicSurveyClosed }

// SurveyCompleted fires when a user submits a response.
type SurveyCompleted struct {
	SurveyID uuid.UUID
	UserID   uuid.UUID
	Score    float64
}

func (SurveyCompleted) Topic() Topic { return TopicSurveyCompleted }

// RecognitionSent fires after peer kudos are recorded and credited.
type RecognitionSent struct {
	RecognitionID uuid.UUID
	FromUserID    uuid.UUID
	ToUserID      uuid.UUID
	HappyCoins    int
}

func (RecognitionSent) Topic() Topic { return TopicRecognitionSent }

// RewardRedeemed fires after a successful redemption.
type RewardRedeemed struct {
	UserID   uuid.UUID
	RewardID uuid.UUID
	Cost     int
}

func (RewardRedeemed) Topic() Topic { return TopicRewardRedeemed }

// Event is anything routable by topic.
type Event interface {
	Topic() Topic
}
