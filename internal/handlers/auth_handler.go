package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/stillpoint-app/stillpoint-backend/internal/dto"
	"github.com/stillpoint-app/stillpoint-backend/internal/middleware"
	"github.com/stillpoint-app/stillpoint-backend/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			return c.Status(fiber.StatusConflict).JSON(
				dto.NewError(dto.CodeInvalidRequest, err.Error(), middleware.RequestID(c)))
		}
		return badRequest(c, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(
				dto.NewError(dto.CodeUnauthorized, err.Error(), middleware.RequestID(c)))
		}
		return internalError(c)
	}

	return c.JSON(resp)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	resp, err := h.authService.Refresh(&req)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(
			dto.NewError(dto.CodeUnauthorized, "invalid or expired refresh token", middleware.RequestID(c)))
	}

	return c.JSON(resp)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.authService.Logout(&req); err != nil {
		return internalError(c)
	}

	return c.JSON(fiber.Map{"ok": true})
}

func (h *AuthHandler) DeleteAccount(c *fiber.Ctx) error {
	var req dto.DeleteAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	userID := middleware.UserID(c)
	if err := h.authService.DeleteAccount(userID, req.Password); err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(
				dto.NewError(dto.CodeUnauthorized, err.Error(), middleware.RequestID(c)))
		}
		return internalError(c)
	}

	return c.JSON(fiber.Map{"ok": true})
}
