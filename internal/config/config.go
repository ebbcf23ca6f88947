package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Consent document version; raising it sends users back to the consent gate.
	ConsentVersion int

	// Rollout
	CanaryAllowlist string

	// Kill switches
	WritesDisabled       bool
	DisableCheckinWrites bool
	DisableQuickWrites   bool
	DisableResetWrites   bool

	// Write-storm guard
	WriteStormLimit  int
	WriteStormWindow time.Duration

	// Idempotency record retention
	IdempotencyTTL time.Duration

	// Monitoring counters
	MetricsFlushInterval time.Duration

	// Admin
	AdminEmails  string
	AdminUserIDs string
	AdminToken   string

	// Server
	Port        string
	CORSOrigins string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "stillpoint_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m")),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h")),

		ConsentVersion: parseInt(getEnv("CONSENT_VERSION", "1"), 1),

		CanaryAllowlist: getEnv("CANARY_ALLOWLIST", ""),

		WritesDisabled:       parseBool(getEnv("WRITES_DISABLED", "false")),
		DisableCheckinWrites: parseBool(getEnv("DISABLE_CHECKIN_WRITES", "false")),
		DisableQuickWrites:   parseBool(getEnv("DISABLE_QUICK_WRITES", "false")),
		DisableResetWrites:   parseBool(getEnv("DISABLE_RESET_WRITES", "false")),

		WriteStormLimit:  parseInt(getEnv("WRITE_STORM_LIMIT", "10"), 10),
		WriteStormWindow: time.Duration(parseInt(getEnv("WRITE_STORM_WINDOW_SEC", "60"), 60)) * time.Second,

		IdempotencyTTL: parseDuration(getEnv("IDEMPOTENCY_TTL", "24h")),

		MetricsFlushInterval: parseDuration(getEnv("METRICS_FLUSH_INTERVAL", "60s")),

		AdminEmails:  getEnv("ADMIN_EMAILS", ""),
		AdminUserIDs: getEnv("ADMIN_USER_IDS", ""),
		AdminToken:   getEnv("ADMIN_TOKEN", ""),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}
