package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/stillpoint-app/stillpoint-backend/internal/dto"
	"github.com/stillpoint-app/stillpoint-backend/internal/engine"
	"github.com/stillpoint-app/stillpoint-backend/internal/middleware"
	"github.com/stillpoint-app/stillpoint-backend/internal/services"
)

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(
		dto.NewError(dto.CodeInvalidRequest, message, middleware.RequestID(c)))
}

func invalid(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(
		dto.NewError(code, message, middleware.RequestID(c)))
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(
		dto.NewError(dto.CodeInternal, "internal server error", middleware.RequestID(c)))
}

// contractError maps plan-resolution failures to their distinct codes. Every
// handler that regenerates a contract goes through here, so a consistency
// error never collapses into a bare 500.
func contractError(c *fiber.Ctx, err error) error {
	var cerr *engine.ContractError
	switch {
	case errors.Is(err, services.ErrInvalidDateKey):
		return invalid(c, dto.CodeInvalidRequest, err.Error())
	case errors.Is(err, engine.ErrNoResetCandidate):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(
			dto.NewError(dto.CodeNoResetCandidate, "no reset fits the current constraints", middleware.RequestID(c)))
	case errors.As(err, &cerr):
		return c.Status(fiber.StatusInternalServerError).JSON(
			dto.NewError(dto.CodeTodayContractInvalid, cerr.Error(), middleware.RequestID(c)))
	default:
		return internalError(c)
	}
}
