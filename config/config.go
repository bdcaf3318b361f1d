package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries process-level settings. Values come from the environment,
// with an optional .env file for local development.
type Config struct {
	DatabaseURL  string
	HTTPAddr     string
	JWTSecret    string
	TokenTTL     time.Duration
	OutboxCron   string
	ReminderCron string
	OutboxBatch  int
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
		JWTSecret:    getEnv("JWT_SECRET", "dev-secret"),
		TokenTTL:     getDuration("TOKEN_TTL", 24*time.Hour),
		OutboxCron:   getEnv("OUTBOX_CRON", "@every 1m"),
		ReminderCron: getEnv("REMINDER_CRON", "@hourly"),
		OutboxBatch:  getInt("OUTBOX_BATCH", 100),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
