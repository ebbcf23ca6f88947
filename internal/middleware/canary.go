package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/stillpoint-app/stillpoint-backend/internal/config"
	"github.com/stillpoint-app/stillpoint-backend/internal/dto"
)

// CanaryGate restricts the coach surface to the rollout allowlist. An empty
// allowlist opens the gate for everyone; entries match on email or user id.
func CanaryGate(cfg *config.Config) fiber.Handler {
	allowlist := parseCSV(cfg.CanaryAllowlist)

	return func(c *fiber.Ctx) error {
		if len(allowlist) == 0 {
			return c.Next()
		}
		if contains(allowlist, UserEmail(c)) || contains(allowlist, UserID(c).String()) {
			return c.Next()
		}
		return c.Status(fiber.StatusForbidden).JSON(
			dto.NewError(dto.CodeCanaryGated, "feature not enabled for this account", RequestID(c)))
	}
}
