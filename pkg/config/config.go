package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/user/bizanalyzer/internal/entity"
)

// Config holds the application configuration.
type Config struct {
	LogLevel   string `mapstructure:"LOG_LEVEL"`
	ServerPort string `mapstructure:"SERVER_PORT"`

	AnthropicAPIKey     string  `mapstructure:"ANTHROPIC_API_KEY"`
	AnthropicModel      string  `mapstructure:"ANTHROPIC_MODEL"`
	AnthropicBaseURL    string  `mapstructure:"ANTHROPIC_BASE_URL"`
	AnalysisMaxTokens   int     `mapstructure:"ANALYSIS_MAX_TOKENS"`
	AnalysisTemperature float64 `mapstructure:"ANALYSIS_TEMPERATURE"`
	AnalysisMaxChars    int     `mapstructure:"ANALYSIS_MAX_CHARS"`

	StoreBackend  string `mapstructure:"STORE_BACKEND"`
	PostgresURL   string `mapstructure:"POSTGRES_URL"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	MaxConcurrency        int           `mapstructure:"MAX_CONCURRENCY"`
	MaxAttempts           int           `mapstructure:"MAX_ATTEMPTS"`
	RetryBaseDelay        time.Duration `mapstructure:"RETRY_BASE_DELAY"`
	RetryMaxDelay         time.Duration `mapstructure:"RETRY_MAX_DELAY"`
	PageLoadTimeout       time.Duration `mapstructure:"PAGE_LOAD_TIMEOUT"`
	RequestHandlerTimeout time.Duration `mapstructure:"REQUEST_HANDLER_TIMEOUT"`
	RunTimeout            time.Duration `mapstructure:"RUN_TIMEOUT"`
	Headless              bool          `mapstructure:"HEADLESS"`

	ProxyURLs          []string `mapstructure:"PROXY_URLS"`
	ExcludedExtensions []string `mapstructure:"EXCLUDED_EXTENSIONS"`
}

// defaults doubles as the key list: viper only consults the environment for keys it knows.
var defaults = map[string]any{
	"LOG_LEVEL":               "info",
	"SERVER_PORT":             "8080",
	"ANTHROPIC_API_KEY":       "",
	"ANTHROPIC_BASE_URL":      "",
	"ANTHROPIC_MODEL":         "claude-3-5-sonnet-latest",
	"ANALYSIS_MAX_TOKENS":     1024,
	"ANALYSIS_TEMPERATURE":    0.5,
	"ANALYSIS_MAX_CHARS":      15000,
	"STORE_BACKEND":           "memory",
	"POSTGRES_URL":            "",
	"REDIS_ADDR":              "localhost:6379",
	"REDIS_PASSWORD":          "",
	"REDIS_DB":                0,
	"MAX_CONCURRENCY":         3,
	"MAX_ATTEMPTS":            3,
	"RETRY_BASE_DELAY":        "1s",
	"RETRY_MAX_DELAY":         "30s",
	"PAGE_LOAD_TIMEOUT":       "60s",
	"REQUEST_HANDLER_TIMEOUT": "90s",
	"RUN_TIMEOUT":             "30m",
	"HEADLESS":                true,
	"PROXY_URLS":              "",
	"EXCLUDED_EXTENSIONS":     "jpg,jpeg,png,gif,pdf,doc,docx,zip",
}

// Load reads configuration from an optional env file and the environment.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		// A missing .env file is fine; production configures purely through the environment.
		_ = v.ReadInConfig()
	}
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ProxyURLs = splitList(cfg.ProxyURLs)
	cfg.ExcludedExtensions = splitList(cfg.ExcludedExtensions)
	return &cfg, nil
}

// Validate fails fast on settings that make a run impossible.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.AnthropicAPIKey) == "" {
		return &entity.ConfigurationError{Field: "ANTHROPIC_API_KEY", Reason: "must be set"}
	}
	if c.MaxConcurrency < 1 {
		return &entity.ConfigurationError{Field: "MAX_CONCURRENCY", Reason: "must be at least 1"}
	}
	if c.MaxAttempts < 1 {
		return &entity.ConfigurationError{Field: "MAX_ATTEMPTS", Reason: "must be at least 1"}
	}
	if c.AnalysisTemperature < 0 || c.AnalysisTemperature > 1 {
		return &entity.ConfigurationError{Field: "ANALYSIS_TEMPERATURE", Reason: "must be between 0 and 1"}
	}
	if c.AnalysisMaxChars < 1 {
		return &entity.ConfigurationError{Field: "ANALYSIS_MAX_CHARS", Reason: "must be at least 1"}
	}
	switch c.StoreBackend {
	case "memory":
	case "redis":
		if c.PostgresURL == "" {
			return &entity.ConfigurationError{Field: "POSTGRES_URL", Reason: "required by the redis backend"}
		}
	default:
		return &entity.ConfigurationError{Field: "STORE_BACKEND", Reason: fmt.Sprintf("unknown backend %q", c.StoreBackend)}
	}
	return nil
}

// splitList flattens comma separated entries, which is how list values arrive from the environment.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
