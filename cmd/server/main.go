package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stillpoint-app/stillpoint-backend/internal/config"
	"github.com/stillpoint-app/stillpoint-backend/internal/database"
	"github.com/stillpoint-app/stillpoint-backend/internal/dto"
	"github.com/stillpoint-app/stillpoint-backend/internal/handlers"
	"github.com/stillpoint-app/stillpoint-backend/internal/logging"
	"github.com/stillpoint-app/stillpoint-backend/internal/metrics"
	"github.com/stillpoint-app/stillpoint-backend/internal/middleware"
	"github.com/stillpoint-app/stillpoint-backend/internal/routes"
	"github.com/stillpoint-app/stillpoint-backend/internal/services"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	if err := database.Migrate(db); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(db)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		pgLogHandler,
	)))

	// Log and idempotency-record cleanup
	cleanupDone := make(chan struct{})
	logging.StartCleanup(db, cleanupDone)

	// Monitoring counters, flushed to the log on an interval
	counters := metrics.New(cfg.MetricsFlushInterval)

	// Services
	authService := services.NewAuthService(db, cfg)
	bootstrapService := services.NewBootstrapService(db, cfg)
	idempotencyService := services.NewIdempotencyService(db, cfg.IdempotencyTTL)
	contentService := services.NewContentService(db)
	outcomeService := services.NewOutcomeService(db)
	checkinService := services.NewCheckInService(db, outcomeService)
	planService := services.NewPlanService(db, contentService, checkinService, counters)

	// Seed the starter catalog; existing rows are untouched.
	slog.Info("seeding content catalog defaults")
	if err := contentService.SeedDefaults(); err != nil {
		slog.Error("content seed failed", "error", err)
		os.Exit(1)
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	healthHandler := handlers.NewHealthHandler(db)
	bootstrapHandler := handlers.NewBootstrapHandler(cfg, bootstrapService, checkinService)
	planHandler := handlers.NewPlanHandler(planService, checkinService)
	checkinHandler := handlers.NewCheckInHandler(checkinService, planService)
	outcomesHandler := handlers.NewOutcomesHandler(outcomeService, planService)
	adminHandler := handlers.NewAdminHandler(contentService, counters)

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, db, counters, bootstrapService, idempotencyService,
		authHandler, healthHandler, bootstrapHandler, planHandler,
		checkinHandler, outcomesHandler, adminHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	close(cleanupDone)
	counters.Stop()
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "internal server error"
	}

	errCode := dto.CodeInternal
	if code < 500 {
		errCode = dto.CodeInvalidRequest
	}
	return c.Status(code).JSON(dto.NewError(errCode, message, middleware.RequestID(c)))
}
