// Package config loads engine configuration from the environment (with
// optional .env support), grounded on the teacher's internal/config/config.go
// Load()/getEnv* pattern: flat struct of typed fields, each with an
// explicit default, populated via small getEnv* helpers rather than a
// struct-tag-driven decoder.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/tradecore/engine/internal/risk"
)

// Config is the engine's top-level runtime configuration.
type Config struct {
	Mode  string
	Debug bool

	// Event ring
	RingSize      uint64
	RingBlockWait time.Duration

	// Venue dial options
	VenueName    string
	VenueWSURL   string
	VenueAPIURL  string
	VenueTimeout time.Duration

	// Persistence
	DatabaseDriver string // "sqlite" or "postgres"
	DatabasePath   string // sqlite file path
	DatabaseURL    string // postgres DSN, required when DatabaseDriver == "postgres"

	// Telegram notifications; notify.Notifier is a no-op when TelegramToken
	// is empty, so these are optional unlike the teacher's required token.
	TelegramToken  string
	TelegramChatID int64
	AlertCooldown  time.Duration

	// Risk limits, independently loaded (each field env-overridable, see
	// risk.DefaultLimits).
	Risk risk.Limits

	// Default execution-algorithm sizing, used by cmd/engine's demo wiring.
	DefaultMaxPositionSize decimal.Decimal
}

// Load reads Config from the environment, first loading a .env file from
// the working directory if one is present (silently ignored if absent,
// matching the teacher's optional-dotenv convention).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Mode:  getEnv("ENGINE_MODE", "sim"),
		Debug: getEnvBool("DEBUG", false),

		RingSize:      uint64(getEnvInt("RING_SIZE", 16384)),
		RingBlockWait: getEnvDuration("RING_BLOCK_WAIT", 50*time.Millisecond),

		VenueName:    getEnv("VENUE_NAME", "sim"),
		VenueWSURL:   getEnv("VENUE_WS_URL", "ws://127.0.0.1:8765/ws"),
		VenueAPIURL:  getEnv("VENUE_API_URL", ""),
		VenueTimeout: getEnvDuration("VENUE_TIMEOUT", 5*time.Second),

		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite"),
		DatabasePath:   getEnv("DATABASE_PATH", "data/engine.db"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		AlertCooldown: getEnvDuration("ALERT_COOLDOWN", 5*time.Minute),

		Risk: risk.DefaultLimits(),

		DefaultMaxPositionSize: getEnvDecimal("DEFAULT_MAX_POSITION_SIZE", decimal.NewFromInt(1000)),
	}

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if cfg.DatabaseDriver == "postgres" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when DATABASE_DRIVER=postgres")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
