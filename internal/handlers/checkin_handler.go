package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stillpoint-app/stillpoint-backend/internal/dto"
	"github.com/stillpoint-app/stillpoint-backend/internal/middleware"
	"github.com/stillpoint-app/stillpoint-backend/internal/services"
)

type CheckInHandler struct {
	checkins *services.CheckInService
	plans    *services.PlanService
}

func NewCheckInHandler(checkins *services.CheckInService, plans *services.PlanService) *CheckInHandler {
	return &CheckInHandler{checkins: checkins, plans: plans}
}

// Submit stores a check-in and answers with the regenerated contract, so the
// client refresh is a single round trip.
func (h *CheckInHandler) Submit(c *fiber.Ctx) error {
	var req dto.CheckInRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	userID := middleware.UserID(c)
	dateKey := req.DateKey
	if dateKey == "" {
		dateKey = h.plans.TodayKey(userID, time.Now())
	}

	if _, err := h.checkins.Submit(userID, dateKey, req.CheckIn); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCheckIn):
			return invalid(c, dto.CodeInvalidCheckin, "check-in values out of range")
		case errors.Is(err, services.ErrInvalidDateKey):
			return invalid(c, dto.CodeInvalidRequest, err.Error())
		default:
			return internalError(c)
		}
	}

	contract, err := h.plans.ContractFor(userID, dateKey)
	if err != nil {
		return contractError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(contract)
}

func (h *CheckInHandler) Quick(c *fiber.Ctx) error {
	var req dto.QuickRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	userID := middleware.UserID(c)
	dateKey := req.DateKey
	if dateKey == "" {
		dateKey = h.plans.TodayKey(userID, time.Now())
	}

	if _, err := h.checkins.QuickAdjust(userID, dateKey, req.Signal); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidQuick):
			return invalid(c, dto.CodeInvalidQuick, "unknown quick signal")
		case errors.Is(err, services.ErrInvalidDateKey):
			return invalid(c, dto.CodeInvalidRequest, err.Error())
		default:
			return internalError(c)
		}
	}

	contract, err := h.plans.ContractFor(userID, dateKey)
	if err != nil {
		return contractError(c, err)
	}
	return c.JSON(contract)
}

// CompleteReset marks today's reset done and answers with the regenerated
// contract, which now reports the completion. Completing twice is success
// both times; only the first call creates the event.
func (h *CheckInHandler) CompleteReset(c *fiber.Ctx) error {
	var req dto.ResetCompleteRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	userID := middleware.UserID(c)
	dateKey := req.DateKey
	if dateKey == "" {
		dateKey = h.plans.TodayKey(userID, time.Now())
	}

	if _, err := h.checkins.CompleteReset(userID, dateKey, req.ResetID); err != nil {
		if errors.Is(err, services.ErrInvalidDateKey) {
			return invalid(c, dto.CodeInvalidRequest, err.Error())
		}
		return internalError(c)
	}

	contract, err := h.plans.ContractFor(userID, dateKey)
	if err != nil {
		return contractError(c, err)
	}
	return c.JSON(contract)
}

func (h *CheckInHandler) Feedback(c *fiber.Ctx) error {
	var req dto.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	userID := middleware.UserID(c)
	dateKey := req.DateKey
	if dateKey == "" {
		dateKey = h.plans.TodayKey(userID, time.Now())
	}

	if err := h.checkins.Feedback(userID, dateKey, req.Helped, req.Reason); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidFeedback):
			return invalid(c, dto.CodeInvalidFeedback, "feedback reason not recognized")
		case errors.Is(err, services.ErrInvalidDateKey):
			return invalid(c, dto.CodeInvalidRequest, err.Error())
		default:
			return internalError(c)
		}
	}
	return c.JSON(fiber.Map{"ok": true})
}
