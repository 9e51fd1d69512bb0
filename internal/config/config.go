// Package config loads PLUME settings from ~/.plume/config.json and the
// environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rcliao/plume/internal/cache"
	"github.com/rcliao/plume/internal/model"
)

const (
	DefaultUserID   = "local"
	DefaultLLMModel = "gemini-2.5-flash"
	DefaultLogLevel = "warn"
	DefaultCacheTTL = "1h"

	DefaultImageTimeout = 15 * time.Second
	DefaultImageMaxEdge = 1600
)

// Config holds application configuration.
type Config struct {
	DBPath   string        `json:"db_path,omitempty"`
	UserID   string        `json:"user_id,omitempty"`
	Gemini   GeminiConfig  `json:"gemini,omitempty"`
	Log      LogConfig     `json:"log,omitempty"`
	CacheTTL string        `json:"cache_ttl,omitempty"`
	Profile  model.Profile `json:"profile,omitempty"`
	Images   ImageConfig   `json:"images,omitempty"`
}

// GeminiConfig holds text-generation settings.
type GeminiConfig struct {
	APIKey   string `json:"api_key,omitempty"`
	LLMModel string `json:"llm_model,omitempty"`
}

// LogConfig selects the log encoder and level.
type LogConfig struct {
	Mode  string `json:"mode,omitempty"`
	Level string `json:"level,omitempty"`
}

// ImageConfig bounds photo fetching during PDF export.
type ImageConfig struct {
	Timeout string `json:"timeout,omitempty"`
	MaxEdge int    `json:"max_edge,omitempty"`
}

// Dir returns the PLUME home directory (~/.plume).
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".plume")
}

// DefaultPath returns the config file path, honouring PLUME_CONFIG.
func DefaultPath() string {
	if p := os.Getenv("PLUME_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(Dir(), "config.json")
}

// Load reads the config file at path, applies environment overrides and
// fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// ReadFile reads the config file alone, without environment overrides or
// defaults. A missing file gives an empty config.
func ReadFile(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PLUME_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("PLUME_USER"); v != "" {
		c.UserID = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_LLM_MODEL"); v != "" {
		c.Gemini.LLMModel = v
	}
	if v := os.Getenv("PLUME_LOG"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PLUME_LOG_MODE"); v != "" {
		c.Log.Mode = v
	}
	if v := os.Getenv("PLUME_CACHE_TTL"); v != "" {
		c.CacheTTL = v
	}
	if v := os.Getenv("PLUME_FIRST_NAME"); v != "" {
		c.Profile.FirstName = v
	}
	if v := os.Getenv("PLUME_BIRTH_DATE"); v != "" {
		c.Profile.BirthDate = v
	}
	if v := os.Getenv("PLUME_IMAGE_MAX_EDGE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Images.MaxEdge = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(Dir(), "plume.db")
	}
	if c.UserID == "" {
		c.UserID = DefaultUserID
	}
	if c.Gemini.LLMModel == "" {
		c.Gemini.LLMModel = DefaultLLMModel
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.CacheTTL == "" {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.Images.MaxEdge <= 0 {
		c.Images.MaxEdge = DefaultImageMaxEdge
	}
}

// TTL returns the parsed generation cache TTL.
func (c *Config) TTL() (time.Duration, error) {
	return cache.ParseTTL(c.CacheTTL)
}

// ImageTimeout returns the per-image fetch timeout.
func (c *Config) ImageTimeout() time.Duration {
	if c.Images.Timeout == "" {
		return DefaultImageTimeout
	}
	d, err := time.ParseDuration(c.Images.Timeout)
	if err != nil || d <= 0 {
		return DefaultImageTimeout
	}
	return d
}

// Save writes cfg to path with owner-only permissions.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Set updates a single dotted key, as used by `plume config set`.
func (c *Config) Set(key, value string) error {
	switch key {
	case "db_path":
		c.DBPath = value
	case "user_id":
		c.UserID = value
	case "gemini.api_key":
		c.Gemini.APIKey = value
	case "gemini.llm_model":
		c.Gemini.LLMModel = value
	case "log.mode":
		c.Log.Mode = value
	case "log.level":
		c.Log.Level = value
	case "cache_ttl":
		if _, err := cache.ParseTTL(value); err != nil {
			return err
		}
		c.CacheTTL = value
	case "profile.first_name":
		c.Profile.FirstName = value
	case "profile.birth_date":
		c.Profile.BirthDate = value
	case "images.timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		c.Images.Timeout = value
	case "images.max_edge":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid max edge %q", value)
		}
		c.Images.MaxEdge = n
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Gemini.APIKey != "" {
		c.Gemini.APIKey = "****"
	}
	return c
}
