package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stillpoint-app/stillpoint-backend/internal/engine"
	"github.com/stillpoint-app/stillpoint-backend/internal/middleware"
	"github.com/stillpoint-app/stillpoint-backend/internal/models"
	"github.com/stillpoint-app/stillpoint-backend/internal/services"
)

type PlanHandler struct {
	plans    *services.PlanService
	checkins *services.CheckInService
}

func NewPlanHandler(plans *services.PlanService, checkins *services.CheckInService) *PlanHandler {
	return &PlanHandler{plans: plans, checkins: checkins}
}

// RailToday serves the home rail contract. The first open of a day is logged
// once; the response carries an ETag derived from the input hash so an
// unchanged plan answers conditional refetches with 304.
func (h *PlanHandler) RailToday(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	dateKey := c.Query("date")
	if dateKey == "" {
		dateKey = h.plans.TodayKey(userID, time.Now())
	}

	contract, err := h.plans.ContractFor(userID, dateKey)
	if err != nil {
		return contractError(c, err)
	}

	if _, err := h.checkins.RecordDailyEvent(userID, dateKey, models.EventRailOpened, nil); err != nil {
		return internalError(c)
	}

	return conditionalContract(c, contract)
}

// PlanDay serves the contract for an explicit date without logging a rail
// open.
func (h *PlanHandler) PlanDay(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	dateKey := c.Query("date")
	if dateKey == "" {
		dateKey = h.plans.TodayKey(userID, time.Now())
	}

	contract, err := h.plans.ContractFor(userID, dateKey)
	if err != nil {
		return contractError(c, err)
	}
	return conditionalContract(c, contract)
}

// conditionalContract serves a contract with an ETag derived from the input
// hash, answering a matching If-None-Match with 304.
func conditionalContract(c *fiber.Ctx, contract *engine.Contract) error {
	etag := `"h:` + contract.Meta.InputHash + `"`
	c.Set(fiber.HeaderETag, etag)
	if c.Get(fiber.HeaderIfNoneMatch) == etag {
		return c.SendStatus(fiber.StatusNotModified)
	}
	return c.JSON(contract)
}

func (h *PlanHandler) PlanWeek(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	today := c.Query("date")
	if today == "" {
		today = h.plans.TodayKey(userID, time.Now())
	}

	week, err := h.plans.WeekFor(userID, today)
	if err != nil {
		return contractError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "days": week})
}
