package config

import (
	"reflect"
	"testing"
	"time"
)

func envFrom(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envFrom(nil))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != ":5000" || cfg.DatabaseURL != "todocat.db" || cfg.TokenTTL != 24*time.Hour {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.DefaultCategory != "General" || !reflect.DeepEqual(cfg.DefaultCategories, []string{"Work", "Study", "Personal"}) {
		t.Errorf("unexpected category defaults %+v", cfg)
	}
	if cfg.AuthRequired || cfg.ReportInterval != 0 {
		t.Errorf("unexpected flags %+v", cfg)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(envFrom(map[string]string{
		"LISTEN_ADDR":           "127.0.0.1:8080",
		"AUTH_REQUIRED":         "true",
		"JWT_SECRET":            "s3cret",
		"TOKEN_TTL":             "90m",
		"DEFAULT_CATEGORIES":    " Home, ,Errands ",
		"REPORT_INTERVAL_HOURS": "6",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.AuthRequired || cfg.TokenTTL != 90*time.Minute || cfg.ReportInterval != 6*time.Hour {
		t.Errorf("unexpected config %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.DefaultCategories, []string{"Home", "Errands"}) {
		t.Errorf("DefaultCategories = %v", cfg.DefaultCategories)
	}
}

func TestFromEnvRequiresSecret(t *testing.T) {
	if _, err := FromEnv(envFrom(map[string]string{"AUTH_REQUIRED": "1"})); err == nil {
		t.Error("missing JWT_SECRET accepted")
	}
	if _, err := FromEnv(envFrom(map[string]string{"AUTH_REQUIRED": "maybe"})); err == nil {
		t.Error("invalid AUTH_REQUIRED accepted")
	}
}
