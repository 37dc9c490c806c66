package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mgpai22/verbatim/internal/validate"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Validation validate.Thresholds `yaml:"validation"`
	LLM        LLMConfig           `yaml:"llm"`
	Retry      RetryConfig         `yaml:"retry"`
	Workflow   WorkflowConfig      `yaml:"workflow"`
	Logging    LoggingConfig       `yaml:"logging"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	// second opinion in the acoustic audit; defaults to Provider/Model
	ReviewerProvider string   `yaml:"reviewer_provider"`
	ReviewerModel    string   `yaml:"reviewer_model"`
	Temperature      *float64 `yaml:"temperature"`
	// provider name -> keys, tried in order when one is rate limited
	APIKeys map[string][]string `yaml:"api_keys"`
}

type RetryConfig struct {
	MaxRetries     uint64        `yaml:"max_retries"`
	BaseDelay      time.Duration `yaml:"base_delay"`
	MaxDelay       time.Duration `yaml:"max_delay"`
	RateLimitDelay time.Duration `yaml:"rate_limit_delay"`
}

type WorkflowConfig struct {
	Concurrency int    `yaml:"concurrency"`
	OutputDir   string `yaml:"output_dir"`
	Language    string `yaml:"language"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func Default() *Config {
	return &Config{
		Validation: validate.DefaultThresholds(),
		LLM: LLMConfig{
			Provider: "gemini",
		},
		Retry: RetryConfig{
			MaxRetries:     4,
			BaseDelay:      time.Second,
			MaxDelay:       30 * time.Second,
			RateLimitDelay: 5 * time.Second,
		},
		Workflow: WorkflowConfig{
			Concurrency: 2,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults. Fields the file leaves out keep
// their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := c.Validation.Validate(); err != nil {
		return fmt.Errorf("validation: %w", err)
	}

	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = "gemini"
	}
	if !knownProvider(c.LLM.Provider) {
		return fmt.Errorf("llm.provider %q is not one of gemini, openai, anthropic", c.LLM.Provider)
	}

	c.LLM.ReviewerProvider = strings.ToLower(strings.TrimSpace(c.LLM.ReviewerProvider))
	if c.LLM.ReviewerProvider == "" {
		c.LLM.ReviewerProvider = c.LLM.Provider
		if c.LLM.ReviewerModel == "" {
			c.LLM.ReviewerModel = c.LLM.Model
		}
	}
	if !knownProvider(c.LLM.ReviewerProvider) {
		return fmt.Errorf("llm.reviewer_provider %q is not one of gemini, openai, anthropic", c.LLM.ReviewerProvider)
	}

	if t := c.LLM.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", *t)
	}

	if c.Retry.MaxDelay > 0 && c.Retry.BaseDelay > c.Retry.MaxDelay {
		return fmt.Errorf("retry.base_delay %s exceeds retry.max_delay %s", c.Retry.BaseDelay, c.Retry.MaxDelay)
	}
	if c.Retry.BaseDelay == 0 {
		c.Retry.BaseDelay = time.Second
	}

	if c.Workflow.Concurrency <= 0 {
		c.Workflow.Concurrency = 2
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	return nil
}

// APIKeys returns the configured keys for a provider followed by any found in
// the environment: <PROVIDER>_API_KEYS (comma separated) and <PROVIDER>_API_KEY.
// Duplicates are dropped, order is kept.
func (c *Config) APIKeys(provider string) []string {
	provider = strings.ToLower(provider)
	prefix := strings.ToUpper(provider)

	var keys []string
	seen := make(map[string]bool)
	add := func(k string) {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			return
		}
		seen[k] = true
		keys = append(keys, k)
	}

	for _, k := range c.LLM.APIKeys[provider] {
		add(k)
	}
	for _, k := range strings.Split(os.Getenv(prefix+"_API_KEYS"), ",") {
		add(k)
	}
	add(os.Getenv(prefix + "_API_KEY"))

	return keys
}

// LoadEnv loads dotenv files that exist. Variables already set in the
// process environment win.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if fi, err := os.Stat(p); err != nil || fi.IsDir() {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func knownProvider(p string) bool {
	switch p {
	case "gemini", "openai", "anthropic":
		return true
	}
	return false
}
