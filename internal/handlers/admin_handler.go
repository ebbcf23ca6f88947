package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/stillpoint-app/stillpoint-backend/internal/dto"
	"github.com/stillpoint-app/stillpoint-backend/internal/engine"
	"github.com/stillpoint-app/stillpoint-backend/internal/metrics"
	"github.com/stillpoint-app/stillpoint-backend/internal/middleware"
	"github.com/stillpoint-app/stillpoint-backend/internal/services"
)

type AdminHandler struct {
	content  *services.ContentService
	counters *metrics.Counters
}

func NewAdminHandler(content *services.ContentService, counters *metrics.Counters) *AdminHandler {
	return &AdminHandler{content: content, counters: counters}
}

func (h *AdminHandler) GetToggles(c *fiber.Ctx) error {
	toggles, err := h.content.Toggles()
	if err != nil {
		return internalError(c)
	}
	return c.JSON(fiber.Map{"ok": true, "toggles": toggles})
}

type toggleUpdateRequest struct {
	Value bool `json:"value"`
}

func (h *AdminHandler) SetToggle(c *fiber.Ctx) error {
	key := c.Params("key", "")
	if key == "" {
		return badRequest(c, "key parameter is required")
	}
	var req toggleUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := h.content.SetToggle(key, req.Value); err != nil {
		return internalError(c)
	}
	return c.JSON(fiber.Map{"ok": true, "key": key, "value": req.Value})
}

func (h *AdminHandler) DeleteToggle(c *fiber.Ctx) error {
	key := c.Params("key", "")
	if key == "" {
		return badRequest(c, "key parameter is required")
	}
	deleted, err := h.content.DeleteToggle(key)
	if err != nil {
		return internalError(c)
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(
			dto.NewError(dto.CodeNotFound, "toggle not found", middleware.RequestID(c)))
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (h *AdminHandler) ListContent(c *fiber.Ctx) error {
	items, err := h.content.ListItems()
	if err != nil {
		return internalError(c)
	}
	return c.JSON(fiber.Map{"ok": true, "items": items})
}

type contentItemRequest struct {
	Kind              string   `json:"kind"`
	Title             string   `json:"title"`
	Tags              []string `json:"tags"`
	Minutes           int      `json:"minutes"`
	IntensityCost     int      `json:"intensityCost"`
	Priority          int      `json:"priority"`
	NoveltyGroup      string   `json:"noveltyGroup"`
	Steps             []string `json:"steps"`
	Bullets           []string `json:"bullets"`
	Equipment         []string `json:"equipment"`
	Contraindications []string `json:"contraindications"`
	Enabled           bool     `json:"enabled"`
}

func (h *AdminHandler) UpsertContent(c *fiber.Ctx) error {
	slug := c.Params("slug", "")
	if slug == "" {
		return badRequest(c, "slug parameter is required")
	}
	var req contentItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	err := h.content.UpsertItem(engine.Item{
		ID:                slug,
		Kind:              engine.Kind(req.Kind),
		Title:             req.Title,
		Tags:              req.Tags,
		Minutes:           req.Minutes,
		IntensityCost:     req.IntensityCost,
		Priority:          req.Priority,
		NoveltyGroup:      req.NoveltyGroup,
		Steps:             req.Steps,
		Bullets:           req.Bullets,
		Equipment:         req.Equipment,
		Contraindications: req.Contraindications,
		Enabled:           req.Enabled,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidContentItem) {
			return invalid(c, dto.CodeInvalidRequest, err.Error())
		}
		return internalError(c)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (h *AdminHandler) Metrics(c *fiber.Ctx) error {
	snapshot := h.counters.Snapshot()
	h.counters.Flush("admin_read")
	return c.JSON(fiber.Map{"ok": true, "counters": snapshot})
}
