package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/stillpoint-app/stillpoint-backend/internal/config"
	"github.com/stillpoint-app/stillpoint-backend/internal/dto"
	"github.com/stillpoint-app/stillpoint-backend/internal/metrics"
	"github.com/stillpoint-app/stillpoint-backend/internal/services"
)

// KillSwitch returns 503 with the given code while the switch is on. The
// switch is read per request so a config reload takes effect immediately.
func KillSwitch(code string, disabled func() bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if disabled() {
			return c.Status(fiber.StatusServiceUnavailable).JSON(
				dto.NewError(code, "writes are temporarily disabled", RequestID(c)))
		}
		return c.Next()
	}
}

// Idempotent wraps a write route with idempotency-key handling. A replayed
// key returns the stored response snapshot without re-running the handler;
// the same key with a different body is rejected. Requests without a key run
// unprotected and are counted.
func Idempotent(idem *services.IdempotencyService, counters *metrics.Counters) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("Idempotency-Key")
		route := c.Route().Path
		if key == "" {
			counters.Increment("idempotency_key_missing", map[string]string{"route": route}, 1)
			return c.Next()
		}

		userID := UserID(c)
		requestHash := services.RequestHash(c.Body())

		record, err := idem.Lookup(userID, route, key, requestHash)
		if errors.Is(err, services.ErrKeyConflict) {
			return c.Status(fiber.StatusConflict).JSON(
				dto.NewError(dto.CodeIdempotencyConflict, "idempotency key reused with a different body", RequestID(c)))
		}
		if err != nil {
			return err
		}
		if record != nil {
			counters.Increment("idempotent_replay", map[string]string{"route": route}, 1)
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(record.StatusCode).Send([]byte(record.Response))
		}

		if err := c.Next(); err != nil {
			return err
		}

		status := c.Response().StatusCode()
		if status >= 200 && status < 300 {
			body := make([]byte, len(c.Response().Body()))
			copy(body, c.Response().Body())
			if err := idem.Store(userID, route, key, requestHash, status, body); err != nil {
				return err
			}
		}
		return nil
	}
}

// WriteStorm throttles repeated unkeyed writes per user and route. Requests
// carrying an Idempotency-Key skip the guard entirely; a keyed retry is a
// deliberate replay, not a storm.
func WriteStorm(cfg *config.Config, counters *metrics.Counters) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:                    cfg.WriteStormLimit,
		Expiration:             cfg.WriteStormWindow,
		LimiterMiddleware:      limiter.SlidingWindow{},
		SkipSuccessfulRequests: false,
		Next: func(c *fiber.Ctx) bool {
			return c.Get("Idempotency-Key") != ""
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return UserID(c).String() + "|" + c.Route().Path
		},
		LimitReached: func(c *fiber.Ctx) error {
			counters.Increment("write_storm_throttled", map[string]string{"route": c.Route().Path}, 1)
			return c.Status(fiber.StatusTooManyRequests).JSON(
				dto.NewError(dto.CodeWriteStorm, "too many writes, slow down", RequestID(c)))
		},
	})
}
