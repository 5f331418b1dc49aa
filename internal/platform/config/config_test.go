package config

import (
	"os"
	"testing"
	"time"
)

const (
	testEnvPostgresDSN = "POSTGRES_DSN"
	testPostgresDSN    = "postgres://localhost/test"
)

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv(testEnvPostgresDSN)

	if _, err := Load(); err == nil {
		t.Error("expected error for missing required env vars")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(testEnvPostgresDSN, testPostgresDSN)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.AppEnv != "local" {
		t.Errorf("AppEnv = %q, want %q", cfg.AppEnv, "local")
	}

	if cfg.LLMModel != "gpt-4o-mini" {
		t.Errorf("LLMModel = %q, want %q", cfg.LLMModel, "gpt-4o-mini")
	}

	if cfg.DedupWindowDays != 7 {
		t.Errorf("DedupWindowDays = %d, want 7", cfg.DedupWindowDays)
	}

	if cfg.SimThreshold != 0.85 {
		t.Errorf("SimThreshold = %v, want 0.85", cfg.SimThreshold)
	}

	if cfg.MorningTime != "09:00" || cfg.EveningTime != "19:00" {
		t.Errorf("digest times = %q/%q, want 09:00/19:00", cfg.MorningTime, cfg.EveningTime)
	}

	if cfg.MaxItemsPerDigest != 10 || cfg.MaxItemsPerCategory != 3 {
		t.Errorf("digest caps = %d/%d, want 10/3", cfg.MaxItemsPerDigest, cfg.MaxItemsPerCategory)
	}

	if cfg.AutoPublishAfter != 120*time.Minute {
		t.Errorf("AutoPublishAfter = %v, want 120m", cfg.AutoPublishAfter)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv(testEnvPostgresDSN, testPostgresDSN)
	t.Setenv("SIM_THRESHOLD", "0.9")
	t.Setenv("ADMIN_IDS", "1,2,3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SimThreshold != 0.9 {
		t.Errorf("SimThreshold = %v, want 0.9", cfg.SimThreshold)
	}

	if len(cfg.AdminIDs) != 3 {
		t.Errorf("AdminIDs = %v, want 3 entries", cfg.AdminIDs)
	}
}
