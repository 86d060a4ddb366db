package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the configuration for the planner API.
type Config struct {
	Port         string
	HealthAPIURL string // Base URL of the health service (draft, targets, save)
	JWTSecret    string // Optional; when set, bearer tokens are signature-checked locally

	// Reminders
	DBURL            string // Optional; empty keeps reminders in memory
	ReminderSchedule string

	// Telegram reminder sink (optional)
	TelegramBotToken string
	TelegramChatID   int64

	CORSOrigins []string
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	healthAPIURL := strings.TrimRight(strings.TrimSpace(os.Getenv("HEALTH_API_URL")), "/")
	if healthAPIURL == "" {
		return nil, fmt.Errorf("HEALTH_API_URL environment variable not set")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	schedule := strings.TrimSpace(os.Getenv("REMINDER_SCHEDULE"))
	if schedule == "" {
		schedule = "@every 1m"
	}

	var chatID int64
	if raw := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID must be an integer: %w", err)
		}
		chatID = id
	}
	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if botToken != "" && chatID == 0 {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID environment variable not set")
	}

	origins := []string{"*"}
	if raw := os.Getenv("CORS_ORIGINS"); strings.TrimSpace(raw) != "" {
		origins = origins[:0]
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	return &Config{
		Port:             port,
		HealthAPIURL:     healthAPIURL,
		JWTSecret:        os.Getenv("HEALTH_JWT_SECRET"),
		DBURL:            os.Getenv("DB_URL"),
		ReminderSchedule: schedule,
		TelegramBotToken: botToken,
		TelegramChatID:   chatID,
		CORSOrigins:      origins,
	}, nil
}

// TelegramEnabled reports whether reminders should also be pushed to Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}
