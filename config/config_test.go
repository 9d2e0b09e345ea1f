package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("ALLERGENSCAN_LLM_API_KEY", "test-key")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.OpenFoodFacts.BaseURL != "https://world.openfoodfacts.org" {
			t.Errorf("OpenFoodFacts.BaseURL = %s, want https://world.openfoodfacts.org", cfg.OpenFoodFacts.BaseURL)
		}
		if cfg.OpenFoodFacts.Timeout != 15*time.Second {
			t.Errorf("OpenFoodFacts.Timeout = %v, want 15s", cfg.OpenFoodFacts.Timeout)
		}
		if cfg.LLM.Timeout != 30*time.Second {
			t.Errorf("LLM.Timeout = %v, want 30s", cfg.LLM.Timeout)
		}
		if cfg.LLM.MaxToolRounds != 2 {
			t.Errorf("LLM.MaxToolRounds = %d, want 2", cfg.LLM.MaxToolRounds)
		}
		if cfg.Cache.Type != "memory" {
			t.Errorf("Cache.Type = %s, want memory", cfg.Cache.Type)
		}
		if cfg.Cache.TTL != 24*time.Hour {
			t.Errorf("Cache.TTL = %v, want 24h", cfg.Cache.TTL)
		}
		if cfg.Profile.Backend != "sqlite" {
			t.Errorf("Profile.Backend = %s, want sqlite", cfg.Profile.Backend)
		}
		if cfg.RateLimit.PerIP != 60 {
			t.Errorf("RateLimit.PerIP = %d, want 60", cfg.RateLimit.PerIP)
		}
		if cfg.Highlight.Mode != "first_token" {
			t.Errorf("Highlight.Mode = %s, want first_token", cfg.Highlight.Mode)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("ALLERGENSCAN_SERVER_PORT", "9090")
		t.Setenv("ALLERGENSCAN_SERVER_ENVIRONMENT", "production")
		t.Setenv("ALLERGENSCAN_LLM_API_KEY", "custom-api-key")
		t.Setenv("ALLERGENSCAN_LLM_MODEL", "claude-test")
		t.Setenv("ALLERGENSCAN_LLM_MAX_TOOL_ROUNDS", "1")
		t.Setenv("ALLERGENSCAN_OPENFOODFACTS_BASE_URL", "https://off.example.com")
		t.Setenv("ALLERGENSCAN_CACHE_TYPE", "none")
		t.Setenv("ALLERGENSCAN_CACHE_TTL", "1h")
		t.Setenv("ALLERGENSCAN_PROFILE_BACKEND", "memory")
		t.Setenv("ALLERGENSCAN_RATELIMIT_PER_IP", "200")
		t.Setenv("ALLERGENSCAN_HIGHLIGHT_MODE", "taxonomy")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if cfg.LLM.APIKey != "custom-api-key" {
			t.Errorf("LLM.APIKey = %s, want custom-api-key", cfg.LLM.APIKey)
		}
		if cfg.LLM.Model != "claude-test" {
			t.Errorf("LLM.Model = %s, want claude-test", cfg.LLM.Model)
		}
		if cfg.LLM.MaxToolRounds != 1 {
			t.Errorf("LLM.MaxToolRounds = %d, want 1", cfg.LLM.MaxToolRounds)
		}
		if cfg.OpenFoodFacts.BaseURL != "https://off.example.com" {
			t.Errorf("OpenFoodFacts.BaseURL = %s, want https://off.example.com", cfg.OpenFoodFacts.BaseURL)
		}
		if cfg.Cache.Type != "none" {
			t.Errorf("Cache.Type = %s, want none", cfg.Cache.Type)
		}
		if cfg.Cache.TTL != time.Hour {
			t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL)
		}
		if cfg.Profile.Backend != "memory" {
			t.Errorf("Profile.Backend = %s, want memory", cfg.Profile.Backend)
		}
		if cfg.RateLimit.PerIP != 200 {
			t.Errorf("RateLimit.PerIP = %d, want 200", cfg.RateLimit.PerIP)
		}
		if cfg.Highlight.Mode != "taxonomy" {
			t.Errorf("Highlight.Mode = %s, want taxonomy", cfg.Highlight.Mode)
		}
	})

	t.Run("fails validation when API key is missing", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("ALLERGENSCAN_LLM_API_KEY", "")

		_, err := Load()
		if err == nil {
			t.Fatal("Load() error = nil, want error for missing API key")
		}
		if err.Error() != "invalid configuration: LLM API key is required (set ALLERGENSCAN_LLM_API_KEY)" {
			t.Errorf("Load() error = %v, want 'LLM API key is required'", err)
		}
	})

	t.Run("offline load tolerates missing API key", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("ALLERGENSCAN_LLM_API_KEY", "")

		cfg, err := LoadWithoutLLM()
		if err != nil {
			t.Fatalf("LoadWithoutLLM() error = %v, want nil", err)
		}
		if cfg.Profile.Backend != "sqlite" {
			t.Errorf("Profile.Backend = %s, want sqlite", cfg.Profile.Backend)
		}
	})

	t.Run("offline load still validates settings", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("ALLERGENSCAN_LLM_API_KEY", "")
		t.Setenv("ALLERGENSCAN_PROFILE_BACKEND", "postgres")

		if _, err := LoadWithoutLLM(); err == nil {
			t.Error("LoadWithoutLLM() error = nil, want error for invalid profile backend")
		}
	})

	t.Run("fails validation for invalid cache type", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("ALLERGENSCAN_LLM_API_KEY", "test-key")
		t.Setenv("ALLERGENSCAN_CACHE_TYPE", "invalid")

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for invalid cache type")
		}
	})
}

func validConfig() *Config {
	return &Config{
		OpenFoodFacts: OpenFoodFactsConfig{Timeout: 15 * time.Second},
		LLM:           LLMConfig{APIKey: "test-key", Timeout: 30 * time.Second, MaxToolRounds: 2},
		Cache:         CacheConfig{Type: "memory"},
		Profile:       ProfileConfig{Backend: "sqlite", Path: "profile.db"},
		Log:           LogConfig{Level: "info", Format: "json"},
		Highlight:     HighlightConfig{Mode: "first_token"},
	}
}

func TestValidate(t *testing.T) {
	t.Run("validates successfully with all required fields", func(t *testing.T) {
		if err := validate(validConfig()); err != nil {
			t.Errorf("validate() error = %v, want nil", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty API key", func(c *Config) { c.LLM.APIKey = "" }},
		{"too many tool rounds", func(c *Config) { c.LLM.MaxToolRounds = 3 }},
		{"negative tool rounds", func(c *Config) { c.LLM.MaxToolRounds = -1 }},
		{"zero llm timeout", func(c *Config) { c.LLM.Timeout = 0 }},
		{"zero lookup timeout", func(c *Config) { c.OpenFoodFacts.Timeout = 0 }},
		{"invalid cache type", func(c *Config) { c.Cache.Type = "redis" }},
		{"invalid profile backend", func(c *Config) { c.Profile.Backend = "postgres" }},
		{"sqlite without path", func(c *Config) { c.Profile.Path = "" }},
		{"invalid highlight mode", func(c *Config) { c.Highlight.Mode = "exact" }},
		{"invalid log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run("fails for "+tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := validate(cfg); err == nil {
				t.Errorf("validate() error = nil, want error for %s", tt.name)
			}
		})
	}

	t.Run("memory profile backend needs no path", func(t *testing.T) {
		cfg := validConfig()
		cfg.Profile = ProfileConfig{Backend: "memory"}
		if err := validate(cfg); err != nil {
			t.Errorf("validate() error = %v, want nil", err)
		}
	})
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewTestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTestLogger(&buf, "warn")

	logger.Info("hidden")
	logger.Warn("shown", "barcode", "123")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %s", out)
	}
	if !strings.Contains(out, "barcode=123") {
		t.Errorf("warn message missing attributes: %s", out)
	}
}
