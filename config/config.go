package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig
	OpenFoodFacts OpenFoodFactsConfig
	LLM           LLMConfig
	Cache         CacheConfig
	Profile       ProfileConfig
	RateLimit     RateLimitConfig
	Log           LogConfig
	Highlight     HighlightConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// OpenFoodFactsConfig holds product database configuration
type OpenFoodFactsConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// LLMConfig holds reasoning backend configuration
type LLMConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	Model         string        `mapstructure:"model"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxToolRounds int           `mapstructure:"max_tool_rounds"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type string        `mapstructure:"type"` // "memory" or "none"
	TTL  time.Duration `mapstructure:"ttl"`
}

// ProfileConfig holds allergen profile persistence configuration
type ProfileConfig struct {
	Backend string `mapstructure:"backend"` // "sqlite" or "memory"
	Path    string `mapstructure:"path"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

// HighlightConfig selects how detected allergens are matched against the profile
type HighlightConfig struct {
	Mode string `mapstructure:"mode"` // "first_token" or "taxonomy"
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	return load(true)
}

// LoadWithoutLLM loads configuration for commands that never call the
// reasoning backend, so a missing API key is not an error.
func LoadWithoutLLM() (*Config, error) {
	return load(false)
}

func load(requireLLM bool) (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/allergenscan/")

	// Environment variable settings
	v.SetEnvPrefix("ALLERGENSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	check := validate
	if !requireLLM {
		check = validateSettings
	}
	if err := check(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key needs a default
// so AutomaticEnv can resolve it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Open Food Facts defaults
	v.SetDefault("openfoodfacts.base_url", "https://world.openfoodfacts.org")
	v.SetDefault("openfoodfacts.user_agent", "AllergenScan/1.0 (allergen-scanner)")
	v.SetDefault("openfoodfacts.timeout", "15s")
	v.SetDefault("openfoodfacts.requests_per_minute", 100) // OFF read quota for product queries

	// LLM defaults
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://api.anthropic.com")
	v.SetDefault("llm.model", "claude-sonnet-4-20250514")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.max_tool_rounds", 2)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "24h")

	// Profile defaults
	v.SetDefault("profile.backend", "sqlite")
	v.SetDefault("profile.path", "./data/profile.db")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("highlight.mode", "first_token")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key is required (set ALLERGENSCAN_LLM_API_KEY)")
	}
	return validateSettings(config)
}

// validateSettings checks everything except the API key
func validateSettings(config *Config) error {
	if config.LLM.MaxToolRounds < 0 || config.LLM.MaxToolRounds > 2 {
		return fmt.Errorf("llm.max_tool_rounds must be between 0 and 2, got: %d", config.LLM.MaxToolRounds)
	}

	if config.LLM.Timeout <= 0 || config.OpenFoodFacts.Timeout <= 0 {
		return fmt.Errorf("timeouts must be positive (llm=%s, openfoodfacts=%s)", config.LLM.Timeout, config.OpenFoodFacts.Timeout)
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "none" {
		return fmt.Errorf("cache type must be 'memory' or 'none', got: %s", config.Cache.Type)
	}

	if config.Profile.Backend != "sqlite" && config.Profile.Backend != "memory" {
		return fmt.Errorf("profile backend must be 'sqlite' or 'memory', got: %s", config.Profile.Backend)
	}

	if config.Profile.Backend == "sqlite" && config.Profile.Path == "" {
		return fmt.Errorf("profile path is required when profile backend is 'sqlite'")
	}

	if config.Highlight.Mode != "first_token" && config.Highlight.Mode != "taxonomy" {
		return fmt.Errorf("highlight mode must be 'first_token' or 'taxonomy', got: %s", config.Highlight.Mode)
	}

	if config.Log.Format != "json" && config.Log.Format != "text" {
		return fmt.Errorf("log format must be 'json' or 'text', got: %s", config.Log.Format)
	}

	return nil
}
