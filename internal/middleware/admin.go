package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stillpoint-app/stillpoint-backend/internal/config"
	"github.com/stillpoint-app/stillpoint-backend/internal/dto"
	"github.com/stillpoint-app/stillpoint-backend/internal/models"
	"gorm.io/gorm"
)

// AdminAuth lets the operator token stand in for a JWT on the admin panel;
// every other caller must authenticate normally first.
func AdminAuth(cfg *config.Config) fiber.Handler {
	jwt := JWTProtected(cfg)
	return func(c *fiber.Ctx) error {
		if cfg.AdminToken != "" && c.Get("X-Admin-Token") == cfg.AdminToken {
			return c.Next()
		}
		return jwt(c)
	}
}

// AdminRequired is a unified admin middleware that checks:
// 1. Config-based admin emails/IDs/token
// 2. DB-based user Role field
func AdminRequired(db *gorm.DB, cfg *config.Config) fiber.Handler {
	adminEmails := parseCSV(cfg.AdminEmails)
	adminUserIDs := parseCSV(cfg.AdminUserIDs)

	return func(c *fiber.Ctx) error {
		// Check admin token header
		if cfg.AdminToken != "" {
			if c.Get("X-Admin-Token") == cfg.AdminToken {
				return c.Next()
			}
		}

		userID := UserID(c)
		if userID == uuid.Nil {
			return c.Status(fiber.StatusUnauthorized).JSON(
				dto.NewError(dto.CodeUnauthorized, "authentication required", RequestID(c)))
		}

		// Check config-based admin lists
		if contains(adminEmails, UserEmail(c)) || contains(adminUserIDs, userID.String()) {
			return c.Next()
		}

		// Check DB-based role
		var user models.User
		if err := db.First(&user, "id = ?", userID).Error; err == nil {
			if user.Role == "admin" {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(
			dto.NewError(dto.CodeForbidden, "admin access required", RequestID(c)))
	}
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
