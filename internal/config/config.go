// Package config loads application configuration from file and
// environment and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Provider  string          `yaml:"provider" mapstructure:"provider"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Ollama    OllamaConfig    `yaml:"ollama" mapstructure:"ollama"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Snippet   SnippetConfig   `yaml:"snippet" mapstructure:"snippet"`
	Answer    AnswerConfig    `yaml:"answer" mapstructure:"answer"`
	Grounding GroundingConfig `yaml:"grounding" mapstructure:"grounding"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// OpenAIConfig holds OpenAI-compatible API settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// OllamaConfig holds local Ollama endpoint settings.
type OllamaConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// SearchConfig configures the web search client.
type SearchConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SnippetConfig configures snippet fetching.
type SnippetConfig struct {
	MaxChars      int `yaml:"max_chars" mapstructure:"max_chars"`
	TimeoutSecs   int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// AnswerConfig configures answer generation.
type AnswerConfig struct {
	TimeoutSecs int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries     int  `yaml:"retries" mapstructure:"retries"`
	Compact     bool `yaml:"compact" mapstructure:"compact"`
}

// GroundingConfig holds the default budgets.
type GroundingConfig struct {
	MaxSearches int `yaml:"max_searches" mapstructure:"max_searches"`
	MaxSources  int `yaml:"max_sources" mapstructure:"max_sources"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks configuration bounds. Credentials are checked at
// generation time so a missing key degrades to the placeholder answer
// instead of failing startup.
func (c *Config) Validate() error {
	var errs []string

	switch c.Provider {
	case "", "placeholder", "openai", "anthropic", "ollama":
	default:
		errs = append(errs, "provider must be one of placeholder, openai, anthropic, ollama")
	}
	if c.Snippet.MaxChars <= 0 {
		errs = append(errs, "snippet.max_chars must be > 0")
	}
	if c.Snippet.MaxConcurrent < 1 || c.Snippet.MaxConcurrent > 16 {
		errs = append(errs, "snippet.max_concurrent must be between 1 and 16")
	}
	if c.Grounding.MaxSearches < 0 {
		errs = append(errs, "grounding.max_searches must be >= 0")
	}
	if c.Grounding.MaxSources < 0 {
		errs = append(errs, "grounding.max_sources must be >= 0")
	}
	if c.Answer.Retries < 0 {
		errs = append(errs, "answer.retries must be >= 0")
	}

	if len(errs) > 0 {
		return eris.New("invalid config: " + strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BRANDLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credentials also honor the providers' conventional variable names.
	_ = v.BindEnv("openai.key", "BRANDLENS_OPENAI_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("anthropic.key", "BRANDLENS_ANTHROPIC_KEY", "ANTHROPIC_API_KEY")

	// Defaults
	v.SetDefault("provider", "placeholder")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("ollama.base_url", "http://localhost:11434")
	v.SetDefault("ollama.model", "llama3.1")
	v.SetDefault("search.base_url", "https://html.duckduckgo.com/html/")
	v.SetDefault("search.timeout_secs", 15)
	v.SetDefault("snippet.max_chars", 500)
	v.SetDefault("snippet.timeout_secs", 15)
	v.SetDefault("snippet.max_concurrent", 1)
	v.SetDefault("answer.timeout_secs", 60)
	v.SetDefault("answer.retries", 2)
	v.SetDefault("grounding.max_searches", 1)
	v.SetDefault("grounding.max_sources", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
