package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/stillpoint-app/stillpoint-backend/internal/config"
	"github.com/stillpoint-app/stillpoint-backend/internal/dto"
	"github.com/stillpoint-app/stillpoint-backend/internal/handlers"
	"github.com/stillpoint-app/stillpoint-backend/internal/metrics"
	"github.com/stillpoint-app/stillpoint-backend/internal/middleware"
	"github.com/stillpoint-app/stillpoint-backend/internal/services"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	counters *metrics.Counters,
	bootstrapService *services.BootstrapService,
	idempotencyService *services.IdempotencyService,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	bootstrapHandler *handlers.BootstrapHandler,
	planHandler *handlers.PlanHandler,
	checkinHandler *handlers.CheckInHandler,
	outcomesHandler *handlers.OutcomesHandler,
	adminHandler *handlers.AdminHandler,
) {
	v1 := app.Group("/v1")

	// General API rate limiter: 60 req/min per IP
	v1.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	v1.Get("/health", healthHandler.Check)

	// Bootstrap accepts anonymous callers; it reports the login state itself.
	v1.Get("/bootstrap", bootstrapHandler.Get)

	// Auth routes: public, with a stricter per-IP limit.
	auth := v1.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	v1.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)
	v1.Delete("/auth/account", middleware.JWTProtected(cfg), authHandler.DeleteAccount)

	// Write guard stack, shared by every mutating route. Keyed retries replay;
	// unkeyed bursts throttle.
	killAll := middleware.KillSwitch(dto.CodeWritesDisabled, func() bool { return cfg.WritesDisabled })
	idem := middleware.Idempotent(idempotencyService, counters)
	storm := middleware.WriteStorm(cfg, counters)

	// Gate progression: authenticated but before home.
	v1.Post("/consent/accept", middleware.JWTProtected(cfg), killAll, storm, idem, bootstrapHandler.AcceptConsent)
	v1.Post("/onboard/complete", middleware.JWTProtected(cfg), killAll, storm, idem, bootstrapHandler.CompleteOnboarding)

	// Admin panel
	admin := v1.Group("/admin", middleware.AdminAuth(cfg), middleware.AdminRequired(db, cfg))
	admin.Get("/toggles", adminHandler.GetToggles)
	admin.Put("/toggles/:key", adminHandler.SetToggle)
	admin.Delete("/toggles/:key", adminHandler.DeleteToggle)
	admin.Get("/content", adminHandler.ListContent)
	admin.Put("/content/:slug", adminHandler.UpsertContent)
	admin.Get("/metrics", adminHandler.Metrics)

	// Coach surface: JWT, canary rollout, then the home gate, in that order.
	// Registered last: the group middleware matches the whole /v1 prefix, so
	// everything that must stay outside the gate is registered above it.
	coach := v1.Group("",
		middleware.JWTProtected(cfg),
		middleware.CanaryGate(cfg),
		middleware.RequireHome(bootstrapService, counters),
	)

	coach.Get("/rail/today", planHandler.RailToday)
	coach.Get("/plan/day", planHandler.PlanDay)
	coach.Get("/plan/week", planHandler.PlanWeek)
	coach.Get("/outcomes", outcomesHandler.Get)

	// Write routes additionally get the per-route kill switches.
	coach.Post("/checkin",
		killAll,
		middleware.KillSwitch(dto.CodeCheckinDisabled, func() bool { return cfg.DisableCheckinWrites }),
		storm, idem, checkinHandler.Submit)
	coach.Post("/quick",
		killAll,
		middleware.KillSwitch(dto.CodeQuickDisabled, func() bool { return cfg.DisableQuickWrites }),
		storm, idem, checkinHandler.Quick)
	coach.Post("/reset/complete",
		killAll,
		middleware.KillSwitch(dto.CodeResetDisabled, func() bool { return cfg.DisableResetWrites }),
		storm, idem, checkinHandler.CompleteReset)
	coach.Post("/feedback", killAll, storm, idem, checkinHandler.Feedback)
}
