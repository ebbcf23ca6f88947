package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stillpoint-app/stillpoint-backend/internal/dto"
	"github.com/stillpoint-app/stillpoint-backend/internal/metrics"
	"github.com/stillpoint-app/stillpoint-backend/internal/services"
)

// RequireHome rejects coach requests from accounts that have not cleared the
// bootstrap gate. The gate fails closed: a resolution error denies access.
func RequireHome(bootstrap *services.BootstrapService, counters *metrics.Counters) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := UserID(c)
		if userID == uuid.Nil {
			return c.Status(fiber.StatusUnauthorized).JSON(
				dto.NewError(dto.CodeUnauthorized, "authentication required", RequestID(c)))
		}
		view, err := bootstrap.Resolve(userID)
		if err != nil || view.UIState != services.StateHome {
			counters.Increment("bootstrap_denied", map[string]string{"route": c.Route().Path}, 1)
			return c.Status(fiber.StatusForbidden).JSON(
				dto.NewError(dto.CodeBootstrapNotHome, "complete consent and onboarding first", RequestID(c)))
		}
		return c.Next()
	}
}
