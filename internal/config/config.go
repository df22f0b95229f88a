// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Search   SearchConfig   `mapstructure:"search" yaml:"search"`
	History  HistoryConfig  `mapstructure:"history" yaml:"history"`
}

// LoggerConfig controls the zap logger setup.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// DatabaseConfig holds the PostgreSQL connection settings plus the key used
// to encrypt message and artifact content at rest.
type DatabaseConfig struct {
	URL           string `mapstructure:"url" yaml:"url"`
	EncryptionKey string `mapstructure:"encryption_key" yaml:"encryption_key"` // hex-encoded 32 bytes; set via SAGE_DATABASE_ENCRYPTION_KEY
}

// LLMModelConfig defines the configuration for a single model tier.
type LLMModelConfig struct {
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// LLMConfig wires the two model tiers. Analysis serves understanding,
// analysis and reflection; Coder serves code generation.
type LLMConfig struct {
	Analysis LLMModelConfig `mapstructure:"analysis" yaml:"analysis"`
	Coder    LLMModelConfig `mapstructure:"coder" yaml:"coder"`
}

// SearchConfig holds the web-search provider settings. An empty APIKey means
// the provider is unconfigured, which the pipeline treats as a degraded state
// rather than an error.
type SearchConfig struct {
	APIKey     string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint   string        `mapstructure:"endpoint" yaml:"endpoint"`
	Depth      string        `mapstructure:"depth" yaml:"depth"`
	MaxResults int           `mapstructure:"max_results" yaml:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RateLimit  float64       `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per second
}

// HistoryConfig bounds the conversation-history snapshot built before each
// run.
type HistoryConfig struct {
	WindowMessages int `mapstructure:"window_messages" yaml:"window_messages"`
	CharBudget     int `mapstructure:"char_budget" yaml:"char_budget"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "sage-cli")
	v.SetDefault("logger.log_file", "sage.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Database --
	v.SetDefault("database.url", "")
	v.SetDefault("database.encryption_key", "")

	// -- LLM tiers --
	v.SetDefault("llm.analysis.model", "gemini-2.5-pro")
	v.SetDefault("llm.analysis.api_timeout", "120s")
	v.SetDefault("llm.analysis.temperature", 0.7)
	v.SetDefault("llm.analysis.max_tokens", 8192)
	v.SetDefault("llm.coder.model", "gemini-2.5-flash")
	v.SetDefault("llm.coder.api_timeout", "120s")
	v.SetDefault("llm.coder.temperature", 0.2)
	v.SetDefault("llm.coder.max_tokens", 8192)

	// -- Search --
	v.SetDefault("search.endpoint", "https://api.tavily.com/search")
	v.SetDefault("search.depth", "advanced")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.timeout", "30s")
	v.SetDefault("search.rate_limit", 2.0)

	// -- History --
	v.SetDefault("history.window_messages", 10)
	v.SetDefault("history.char_budget", 200)
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Should not happen with defaults alone.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	v.BindEnv("llm.analysis.api_key", "SAGE_LLM_API_KEY")
	v.BindEnv("llm.coder.api_key", "SAGE_LLM_CODER_API_KEY")
	v.BindEnv("search.api_key", "SAGE_SEARCH_API_KEY")
	v.BindEnv("database.url", "SAGE_DATABASE_URL")
	v.BindEnv("database.encryption_key", "SAGE_DATABASE_ENCRYPTION_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// The coder tier shares the analysis key unless its own was supplied.
	if cfg.LLM.Coder.APIKey == "" {
		cfg.LLM.Coder.APIKey = cfg.LLM.Analysis.APIKey
	}
	if cfg.LLM.Analysis.APIKey == "" {
		cfg.LLM.Analysis.APIKey = os.Getenv("SAGE_LLM_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.History.WindowMessages <= 0 {
		return fmt.Errorf("history.window_messages must be a positive integer")
	}
	if c.History.CharBudget <= 0 {
		return fmt.Errorf("history.char_budget must be a positive integer")
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be a positive integer")
	}
	if c.LLM.Analysis.Model == "" || c.LLM.Coder.Model == "" {
		return fmt.Errorf("llm.analysis.model and llm.coder.model are required")
	}
	return nil
}
