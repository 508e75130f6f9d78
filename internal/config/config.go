package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"todocat/internal/todo"
)

// Config keeps runtime settings for the server.
type Config struct {
	ListenAddr        string
	DatabaseURL       string
	JWTSecret         string
	TokenTTL          time.Duration
	AuthRequired      bool
	DefaultCategory   string
	DefaultCategories []string
	TelegramToken     string
	ReportInterval    time.Duration
	ReportTime        string
}

// Load reads configuration from a .env file, if any, and environment
// variables with sane defaults.
func Load() (Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	cfg := Config{
		ListenAddr:      get("LISTEN_ADDR"),
		DatabaseURL:     get("DATABASE_URL"),
		JWTSecret:       get("JWT_SECRET"),
		TokenTTL:        parseDuration(get("TOKEN_TTL")),
		DefaultCategory: get("DEFAULT_CATEGORY"),
		TelegramToken:   get("TELEGRAM_TOKEN"),
		ReportInterval:  parseInterval(get("REPORT_INTERVAL_HOURS")),
		ReportTime:      get("REPORT_TIME"),
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":5000"
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "todocat.db"
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.DefaultCategory == "" {
		cfg.DefaultCategory = todo.DefaultCategory
	}
	cfg.DefaultCategories = todo.DefaultCategories
	if raw := getenv("DEFAULT_CATEGORIES"); raw != "" {
		cfg.DefaultCategories = SplitList(raw)
	}

	if raw := get("AUTH_REQUIRED"); raw != "" {
		required, err := strconv.ParseBool(raw)
		if err != nil {
			return cfg, fmt.Errorf("AUTH_REQUIRED: %w", err)
		}
		cfg.AuthRequired = required
	}
	if cfg.AuthRequired && cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET is required when AUTH_REQUIRED is set")
	}

	return cfg, nil
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}

func parseDuration(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}
