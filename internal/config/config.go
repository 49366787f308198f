// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the application configuration. It is built once at startup
// and passed by reference to each component constructor.
type Config struct {
	TelegramBotToken string
	BotSecret        string
	DatabasePath     string
	LogLevel         string

	// Dispatcher settings.
	NumWorkers         int
	QueueSize          int
	PollTimeoutSeconds int

	// Scheduler settings.
	NumPollWorkers         int
	RefreshIntervalSeconds int
	MaxRecentItems         int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	secret := os.Getenv("BOT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("BOT_SECRET is required")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/bot.db"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	cfg := &Config{
		TelegramBotToken: token,
		BotSecret:        secret,
		DatabasePath:     dbPath,
		LogLevel:         logLevel,
	}

	var err error
	if cfg.NumWorkers, err = intEnv("NUM_WORKERS", 4, 1, 64); err != nil {
		return nil, err
	}
	if cfg.QueueSize, err = intEnv("QUEUE_SIZE", 1000, 1, 1<<20); err != nil {
		return nil, err
	}
	if cfg.PollTimeoutSeconds, err = intEnv("POLL_TIMEOUT_SECONDS", 60, 1, 900); err != nil {
		return nil, err
	}
	if cfg.NumPollWorkers, err = intEnv("NUM_POLL_WORKERS", 4, 1, 64); err != nil {
		return nil, err
	}
	if cfg.RefreshIntervalSeconds, err = intEnv("REFRESH_INTERVAL_SECONDS", 300, 1, 86400); err != nil {
		return nil, err
	}
	if cfg.MaxRecentItems, err = intEnv("MAX_RECENT_ITEMS", 500, 1, 100000); err != nil {
		return nil, err
	}

	return cfg, nil
}

func intEnv(key string, def, min, max int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%s must be between %d and %d, got %d", key, min, max, v)
	}
	return v, nil
}
