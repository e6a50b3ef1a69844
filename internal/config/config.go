// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	TelegramBotToken   string
	DatabaseURL        string
	LogLevel           string
	AllowedUserIDs     []int64
	AllowedUsernames   []string
	RemindersEnabled   bool
	ReminderHour       int
	ReminderTimezone   string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
	}

	cfg.RemindersEnabled = os.Getenv("REMINDERS_ENABLED") != "false"
	cfg.ReminderHour = 10
	if hourStr := os.Getenv("REMINDER_HOUR"); hourStr != "" {
		if h, err := strconv.Atoi(hourStr); err == nil && h >= 0 && h <= 23 {
			cfg.ReminderHour = h
		}
	}
	cfg.ReminderTimezone = "Europe/Moscow"
	if tz := os.Getenv("REMINDER_TIMEZONE"); tz != "" {
		if _, err := time.LoadLocation(tz); err == nil {
			cfg.ReminderTimezone = tz
		}
	}
	if idsStr := os.Getenv("ALLOWED_USER_IDS"); idsStr != "" {
		for idStr := range strings.SplitSeq(idsStr, ",") {
			idStr = strings.TrimSpace(idStr)
			if idStr == "" {
				continue
			}
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				continue
			}
			cfg.AllowedUserIDs = append(cfg.AllowedUserIDs, id)
		}
	}

	if namesStr := os.Getenv("ALLOWED_USERNAMES"); namesStr != "" {
		for username := range strings.SplitSeq(namesStr, ",") {
			username = strings.TrimSpace(username)
			if username == "" {
				continue
			}
			username = strings.TrimPrefix(username, "@")
			cfg.AllowedUsernames = append(cfg.AllowedUsernames, username)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that all required configuration is present.
func (c *Config) validate() error {
	var errs []string

	if c.TelegramBotToken == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN is required")
	}

	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsUserAllowed checks if a Telegram user ID or username may use the bot.
// An empty whitelist means the bot is open to everyone.
func (c *Config) IsUserAllowed(userID int64, username string) bool {
	if len(c.AllowedUserIDs) == 0 && len(c.AllowedUsernames) == 0 {
		return true
	}

	if slices.Contains(c.AllowedUserIDs, userID) {
		return true
	}

	if username != "" {
		username = strings.TrimPrefix(username, "@")
		for _, allowed := range c.AllowedUsernames {
			if strings.EqualFold(allowed, username) {
				return true
			}
		}
	}

	return false
}
