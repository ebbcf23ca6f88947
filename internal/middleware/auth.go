package middleware

import (
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	golangjwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stillpoint-app/stillpoint-backend/internal/config"
	"github.com/stillpoint-app/stillpoint-backend/internal/dto"
)

func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(
				dto.NewError(dto.CodeUnauthorized, "invalid or expired token", RequestID(c)))
		},
	})
}

// UserID returns the authenticated user's id from the verified token.
// Must run behind JWTProtected; returns uuid.Nil otherwise.
func UserID(c *fiber.Ctx) uuid.UUID {
	token, ok := c.Locals("user").(*golangjwt.Token)
	if !ok || token == nil {
		return uuid.Nil
	}
	claims, ok := token.Claims.(golangjwt.MapClaims)
	if !ok {
		return uuid.Nil
	}
	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// UserEmail returns the email claim from the verified token, or "".
func UserEmail(c *fiber.Ctx) string {
	token, ok := c.Locals("user").(*golangjwt.Token)
	if !ok || token == nil {
		return ""
	}
	claims, ok := token.Claims.(golangjwt.MapClaims)
	if !ok {
		return ""
	}
	email, _ := claims["email"].(string)
	return email
}

// RequestID returns the request id set by the requestid middleware.
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}
