package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PLUME_DB", "PLUME_USER", "GEMINI_API_KEY", "GEMINI_LLM_MODEL",
		"PLUME_LOG", "PLUME_LOG_MODE", "PLUME_CACHE_TTL", "PLUME_FIRST_NAME",
		"PLUME_BIRTH_DATE", "PLUME_IMAGE_MAX_EDGE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.UserID != DefaultUserID {
		t.Errorf("expected user %q, got %q", DefaultUserID, cfg.UserID)
	}
	if cfg.Gemini.LLMModel != DefaultLLMModel {
		t.Errorf("expected model %q, got %q", DefaultLLMModel, cfg.Gemini.LLMModel)
	}
	ttl, err := cfg.TTL()
	if err != nil || ttl != time.Hour {
		t.Errorf("expected 1h ttl, got %v (%v)", ttl, err)
	}
	if cfg.ImageTimeout() != DefaultImageTimeout {
		t.Errorf("expected default image timeout, got %v", cfg.ImageTimeout())
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{"user_id":"file-user","gemini":{"llm_model":"m1"},"cache_ttl":"2h"}`), 0o600)

	t.Setenv("PLUME_USER", "env-user")
	t.Setenv("GEMINI_API_KEY", "k")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.UserID != "env-user" {
		t.Errorf("expected env user, got %q", cfg.UserID)
	}
	if cfg.Gemini.LLMModel != "m1" {
		t.Errorf("expected file model, got %q", cfg.Gemini.LLMModel)
	}
	if cfg.Gemini.APIKey != "k" {
		t.Errorf("expected env api key")
	}
	if ttl, _ := cfg.TTL(); ttl != 2*time.Hour {
		t.Errorf("expected 2h, got %v", ttl)
	}
	if cfg.Redacted().Gemini.APIKey != "****" {
		t.Error("expected redacted key")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{not json`), 0o600)
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveAndSet(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	cfg, _ := Load(path)

	if err := cfg.Set("profile.first_name", "Jeanne"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := cfg.Set("cache_ttl", "forever"); err == nil {
		t.Error("expected invalid ttl to be rejected")
	}
	if err := cfg.Set("nope", "x"); err == nil {
		t.Error("expected unknown key error")
	}
	if err := Save(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected 0600, got %v", info.Mode().Perm())
	}

	again, _ := Load(path)
	if again.Profile.FirstName != "Jeanne" {
		t.Errorf("expected saved first name, got %q", again.Profile.FirstName)
	}
}

func TestReadFileSkipsEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{"user_id":"file-user"}`), 0o600)
	t.Setenv("GEMINI_API_KEY", "secret")

	cfg, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if cfg.UserID != "file-user" || cfg.Gemini.APIKey != "" || cfg.DBPath != "" {
		t.Errorf("expected file contents only, got %+v", cfg)
	}
}
