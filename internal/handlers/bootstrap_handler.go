package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stillpoint-app/stillpoint-backend/internal/config"
	"github.com/stillpoint-app/stillpoint-backend/internal/dto"
	"github.com/stillpoint-app/stillpoint-backend/internal/middleware"
	"github.com/stillpoint-app/stillpoint-backend/internal/services"
)

type BootstrapHandler struct {
	cfg       *config.Config
	bootstrap *services.BootstrapService
	checkins  *services.CheckInService
}

func NewBootstrapHandler(cfg *config.Config, bootstrap *services.BootstrapService, checkins *services.CheckInService) *BootstrapHandler {
	return &BootstrapHandler{cfg: cfg, bootstrap: bootstrap, checkins: checkins}
}

// Get resolves the gate state. The route accepts anonymous callers, so the
// token is parsed here instead of behind the JWT middleware; a missing or
// bad token is just the login state, not an error.
func (h *BootstrapHandler) Get(c *fiber.Ctx) error {
	userID := h.optionalUserID(c)

	view, err := h.bootstrap.Resolve(userID)
	if err != nil {
		// Fail closed: the view already degraded to login.
		view.Authenticated = false
	}

	resp := dto.BootstrapResponse{
		OK:      true,
		UIState: string(view.UIState),
		Auth:    dto.BootstrapAuth{Authenticated: view.Authenticated},
		Consent: dto.BootstrapConsent{
			Accepted:        view.ConsentVersion >= view.RequiredVersion,
			AcceptedVersion: view.ConsentVersion,
			RequiredVersion: view.RequiredVersion,
		},
		Profile: dto.BootstrapProfile{
			Exists:     view.ProfileExists,
			HasCheckIn: view.HasCheckIn,
		},
		Now: time.Now().UTC().Format(time.RFC3339),
	}
	if view.Authenticated {
		resp.Auth.UserID = view.UserID.String()
	}
	return c.JSON(resp)
}

func (h *BootstrapHandler) AcceptConsent(c *fiber.Ctx) error {
	var req dto.ConsentAcceptRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	userID := middleware.UserID(c)
	if err := h.bootstrap.AcceptConsent(userID, req.Version); err != nil {
		if errors.Is(err, services.ErrConsentVersionStale) {
			return invalid(c, dto.CodeInvalidRequest, "consent version is below the required one")
		}
		return internalError(c)
	}
	return c.JSON(fiber.Map{"ok": true, "acceptedVersion": req.Version})
}

func (h *BootstrapHandler) CompleteOnboarding(c *fiber.Ctx) error {
	var req dto.OnboardRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	userID := middleware.UserID(c)
	profile, err := h.bootstrap.CompleteOnboarding(userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrProfileExists) {
			return c.Status(fiber.StatusConflict).JSON(
				dto.NewError(dto.CodeInvalidRequest, err.Error(), middleware.RequestID(c)))
		}
		return badRequest(c, err.Error())
	}

	if req.FirstCheckIn != nil {
		dateKey := services.DateKeyFor(time.Now(), profile.Timezone, profile.DayBoundaryHour)
		if _, err := h.checkins.Submit(userID, dateKey, *req.FirstCheckIn); err != nil {
			if errors.Is(err, services.ErrInvalidCheckIn) {
				return invalid(c, dto.CodeInvalidCheckin, "check-in values out of range")
			}
			return internalError(c)
		}
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true})
}

func (h *BootstrapHandler) optionalUserID(c *fiber.Ctx) uuid.UUID {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return uuid.Nil
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(h.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil
	}
	claims, ok := token.Claims.(jwt.MapClaims)
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
