package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DatabaseURL   string
	SlackBotToken string
	WorkspaceID   string

	TickInterval   time.Duration
	SessionMaxIdle time.Duration
}

// Load reads configuration from the environment, pulling in a .env file when
// present. DATABASE_URL and SLACK_BOT_TOKEN are required.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		SlackBotToken: os.Getenv("SLACK_BOT_TOKEN"),
		WorkspaceID:   getEnv("SLACK_WORKSPACE_ID", "default"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is not set")
	}
	if cfg.SlackBotToken == "" {
		return Config{}, fmt.Errorf("SLACK_BOT_TOKEN is not set")
	}

	var err error
	cfg.TickInterval, err = getDuration("TICK_INTERVAL", 10*time.Minute)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionMaxIdle, err = getDuration("SESSION_MAX_IDLE", 12*time.Hour)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
