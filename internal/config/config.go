package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// ProviderConfig holds one provider's credentials and throughput limits.
// A provider with an empty APIKey counts as unconfigured: its groups are
// filled with sentinel results instead of aborting the run.
type ProviderConfig struct {
	APIKey  string `envconfig:"API_KEY" default:""`
	BaseURL string `envconfig:"BASE_URL" default:""`
	Model   string `envconfig:"MODEL" default:""`

	BatchSize         int `envconfig:"BATCH_SIZE" default:"10"`
	ConcurrentBatches int `envconfig:"CONCURRENT_BATCHES" default:"3"`
	DelayMs           int `envconfig:"DELAY_MS" default:"1000"`
	TokensPerMinute   int `envconfig:"TOKENS_PER_MINUTE" default:"90000"`
}

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	OpenAI    ProviderConfig `envconfig:"OPENAI"`
	Gemini    ProviderConfig `envconfig:"GEMINI"`
	Anthropic ProviderConfig `envconfig:"ANTHROPIC"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	for name, pc := range c.Providers() {
		prefix := strings.ToUpper(name)
		if pc.BatchSize < 1 {
			return fmt.Errorf("%s_BATCH_SIZE must be >= 1", prefix)
		}
		if pc.ConcurrentBatches < 1 {
			return fmt.Errorf("%s_CONCURRENT_BATCHES must be >= 1", prefix)
		}
		if pc.DelayMs < 0 {
			return fmt.Errorf("%s_DELAY_MS must be >= 0", prefix)
		}
		if pc.TokensPerMinute < 1 {
			return fmt.Errorf("%s_TOKENS_PER_MINUTE must be >= 1", prefix)
		}
	}
	return nil
}

// Providers returns the per-provider configuration keyed by provider name.
func (c *Config) Providers() map[string]ProviderConfig {
	if c == nil {
		return nil
	}
	return map[string]ProviderConfig{
		"openai":    c.OpenAI,
		"gemini":    c.Gemini,
		"anthropic": c.Anthropic,
	}
}
