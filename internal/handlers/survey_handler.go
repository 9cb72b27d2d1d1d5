package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wellnessai/engagement-backend/internal/dto"
	"github.com/wellnessai/engagement-backend/internal/middleware"
	"github.com/wellnessai/engagement-backend/internal/scheduler"
	"github.com/wellnessai/engagement-backend/internal/surveys"
)

type SurveyHandler struct {
	svc       *surveys.Service
	responses *surveys.Responses
	sched     *scheduler.Scheduler
}

func NewSurveyHandler(svc *surveys.Service, responses *surveys.Responses, sched *scheduler.Scheduler) *SurveyHandler {
	return &SurveyHandler{svc: svc, responses: responses, sched: sched}
}

// List returns the active surveys targeted at the caller, flagging the
// ones already answered.
func (h *SurveyHandler) List(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("unauthorized"))
	}

	list, err := h.svc.ListActive(userID)
	if err != nil {
		return internalError(c, err, "failed to load surveys")
	}

	type entry struct {
		Survey    interface{} `json:"survey"`
		Responded bool        `json:"responded"`
	}
	out := make([]entry, 0, len(list))
	for i := range list {
		responded, err := h.svc.HasUserResponded(list[i].ID, userID)
		if err != nil {
			return internalError(c, err, "failed to load surveys")
		}
		out = append(out, entry{Survey: list[i], Responded: responded})
	}
	return c.JSON(dto.OK(out))
}

type respondRequest struct {
	Answers map[string]interface{} `json:"answers"`
}

func (h *SurveyHandler) Respond(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("unauthorized"))
	}

	surveyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("invalid survey id"))
	}

	var req respondRequest
	if err := c.BodyParser(&req); err != nil || len(req.Answers) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("answers is required"))
	}

	response, coins, err := h.responses.Submit(surveyID, userID, req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, surveys.ErrSurveyNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.Fail(err.Error()))
		case errors.Is(err, surveys.ErrSurveyClosed), errors.Is(err, surveys.ErrAlreadyResponded):
			return c.Status(fiber.StatusConflict).JSON(dto.Fail(err.Error()))
		case errors.Is(err, surveys.ErrMissingAnswer):
			return c.Status(fiber.StatusBadRequest).JSON(dto.Fail(err.Error()))
		}
		return internalError(c, err, "failed to submit response")
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK(fiber.Map{
		"response":     response,
		"coins_earned": coins,
	}))
}

// Create stores an admin-authored survey. A schedule registers a
// dynamic activation job; the activate flag publishes immediately.
func (h *SurveyHandler) Create(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("unauthorized"))
	}

	var req surveys.CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("invalid request body"))
	}

	survey, err := h.svc.Create(userID, req)
	if err != nil {
		if errors.Is(err, surveys.ErrInvalidSurvey) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.Fail(err.Error()))
		}
		return internalError(c, err, "failed to create survey")
	}

	if req.Schedule != nil && h.sched != nil {
		if err := h.sched.RegisterSurveySchedule(survey); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("invalid schedule: " + err.Error()))
		}
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK(survey))
}

func (h *SurveyHandler) Close(c *fiber.Ctx) error {
	surveyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("invalid survey id"))
	}

	if err := h.svc.Close(surveyID); err != nil {
		switch {
		case errors.Is(err, surveys.ErrSurveyNotFound), errors.Is(err, gorm.ErrRecordNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.Fail("survey not found"))
		case errors.Is(err, surveys.ErrInvalidTransition):
			return c.Status(fiber.StatusConflict).JSON(dto.Fail(err.Error()))
		}
		return internalError(c, err, "failed to close survey")
	}

	if h.sched != nil {
		h.sched.CancelSurveySchedule(surveyID)
	}
	return c.JSON(dto.OKMessage("survey closed", nil))
}
