package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stillpoint-app/stillpoint-backend/internal/dto"
	"github.com/stillpoint-app/stillpoint-backend/internal/middleware"
	"github.com/stillpoint-app/stillpoint-backend/internal/services"
)

type OutcomesHandler struct {
	outcomes *services.OutcomeService
	plans    *services.PlanService
}

func NewOutcomesHandler(outcomes *services.OutcomeService, plans *services.PlanService) *OutcomesHandler {
	return &OutcomesHandler{outcomes: outcomes, plans: plans}
}

func (h *OutcomesHandler) Get(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	days, _ := strconv.Atoi(c.Query("days", "14"))
	today := h.plans.TodayKey(userID, time.Now())

	summary, err := h.outcomes.Summary(userID, days, today)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(dto.OutcomesResponse{
		OK:                   true,
		Days:                 summary.Days,
		RailOpenedDays:       summary.RailOpenedDays,
		ResetCompletedDays:   summary.ResetCompletedDays,
		CheckinSubmittedDays: summary.CheckinSubmittedDays,
	})
}
