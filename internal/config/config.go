// Package config loads the pipeline configuration from a YAML file and
// applies environment overrides for credentials, which never belong in the
// file itself.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mgmancho/sumjudge/internal/batch"
	"github.com/mgmancho/sumjudge/internal/domain"
	"github.com/mgmancho/sumjudge/internal/llm"
	"github.com/mgmancho/sumjudge/internal/llm/cache"
	"github.com/mgmancho/sumjudge/internal/llm/ratelimit"
	"github.com/mgmancho/sumjudge/internal/llm/retry"
)

// Environment variable names for credential overrides.
const (
	apiKeyEnv        = "SUMJUDGE_API_KEY"
	judgeAPIKeyEnv   = "SUMJUDGE_JUDGE_API_KEY"
	redisAddrEnv     = "SUMJUDGE_REDIS_ADDR"
	redisPasswordEnv = "SUMJUDGE_REDIS_PASSWORD"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the root of the YAML configuration file.
type Config struct {
	Log      LogConfig                 `yaml:"log"`
	Client   ClientConfig              `yaml:"client"`
	Judge    JudgeConfig               `yaml:"judge"`
	Criteria []domain.JudgeCriterion   `yaml:"criteria"`
	Runs     []domain.RunConfiguration `yaml:"runs" validate:"required,min=1,dive"`
}

// LogConfig controls the slog handler installed by main.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// ClientConfig mirrors llm.Config with file-friendly units (seconds and
// milliseconds instead of duration strings).
type ClientConfig struct {
	HTTPTimeoutSecs int              `yaml:"httpTimeoutSecs"`
	MaxConcurrent   int              `yaml:"maxConcurrent"`
	Retry           RetryConfig      `yaml:"retry"`
	RateLimit       ratelimit.Config `yaml:"rateLimit"`
	Cache           CacheConfig      `yaml:"cache"`
}

// RetryConfig mirrors retry.Config in file-friendly units.
type RetryConfig struct {
	MaxAttempts int  `yaml:"maxAttempts"`
	BaseDelayMs int  `yaml:"baseDelayMs"`
	MaxDelayMs  int  `yaml:"maxDelayMs"`
	UseJitter   bool `yaml:"useJitter"`
}

// CacheConfig mirrors cache.Config in file-friendly units.
type CacheConfig struct {
	Enabled       bool   `yaml:"enabled"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"-"`
	RedisDB       int    `yaml:"redisDB"`
	TTLSecs       int    `yaml:"ttlSecs"`
}

// JudgeConfig names the dedicated judge endpoint. Leave empty to mirror
// each run configuration's own endpoint for its judge call.
type JudgeConfig struct {
	Provider  domain.ProviderKind `yaml:"provider"`
	Endpoint  string              `yaml:"endpoint"`
	Model     string              `yaml:"model"`
	MaxTokens int                 `yaml:"maxTokens"`
	apiKey    string
}

// Load reads and validates the configuration file, then applies
// environment overrides for credentials.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := validate.Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(apiKeyEnv); v != "" {
		for i := range c.Runs {
			if c.Runs[i].APIKey == "" {
				c.Runs[i].APIKey = v
			}
		}
		if c.Judge.apiKey == "" {
			c.Judge.apiKey = v
		}
	}
	if v := os.Getenv(judgeAPIKeyEnv); v != "" {
		c.Judge.apiKey = v
	}
	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Client.Cache.RedisAddr = v
	}
	if v := os.Getenv(redisPasswordEnv); v != "" {
		c.Client.Cache.RedisPassword = v
	}
}

// WeightWarning returns a non-empty message when criteria weights do not
// sum to 100. Advisory only; callers log it, nothing rejects the config.
func (c *Config) WeightWarning() string {
	if len(c.Criteria) == 0 {
		return ""
	}
	if total := domain.SumWeights(c.Criteria); total != 100 {
		return fmt.Sprintf("criteria weights sum to %d, expected 100", total)
	}
	return ""
}

// ClientConfig converts the file representation into llm.Config.
func (c *Config) ClientConfig() llm.Config {
	out := llm.DefaultConfig()
	if c.Client.HTTPTimeoutSecs > 0 {
		out.HTTPTimeout = time.Duration(c.Client.HTTPTimeoutSecs) * time.Second
	}
	if c.Client.MaxConcurrent > 0 {
		out.MaxConcurrent = c.Client.MaxConcurrent
	}
	if c.Client.Retry.MaxAttempts > 0 {
		out.Retry = retry.Config{
			MaxAttempts: c.Client.Retry.MaxAttempts,
			BaseDelay:   time.Duration(c.Client.Retry.BaseDelayMs) * time.Millisecond,
			MaxDelay:    time.Duration(c.Client.Retry.MaxDelayMs) * time.Millisecond,
			UseJitter:   c.Client.Retry.UseJitter,
		}
		if out.Retry.BaseDelay <= 0 {
			out.Retry.BaseDelay = time.Second
		}
		if out.Retry.MaxDelay < out.Retry.BaseDelay {
			out.Retry.MaxDelay = 30 * out.Retry.BaseDelay
		}
	}
	out.RateLimit = c.Client.RateLimit
	out.Cache = cache.Config{
		Enabled:       c.Client.Cache.Enabled,
		RedisAddr:     c.Client.Cache.RedisAddr,
		RedisPassword: c.Client.Cache.RedisPassword,
		RedisDB:       c.Client.Cache.RedisDB,
		TTL:           time.Duration(c.Client.Cache.TTLSecs) * time.Second,
	}
	return out
}

// JudgeSettings converts the judge section into orchestrator settings.
func (c *Config) JudgeSettings() batch.JudgeSettings {
	return batch.JudgeSettings{
		Provider:  c.Judge.Provider,
		Endpoint:  c.Judge.Endpoint,
		APIKey:    c.Judge.apiKey,
		Model:     c.Judge.Model,
		MaxTokens: c.Judge.MaxTokens,
	}
}
