package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	GenAI     GenAIConfig     `yaml:"genai" mapstructure:"genai"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Bedrock   BedrockConfig   `yaml:"bedrock" mapstructure:"bedrock"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver             string `yaml:"driver" mapstructure:"driver" validate:"oneof=postgres sqlite"`
	DatabaseURL        string `yaml:"database_url" mapstructure:"database_url"`
	ConnectTimeoutSecs int    `yaml:"connect_timeout_secs" mapstructure:"connect_timeout_secs" validate:"gte=0"`
	MaxConns           int32  `yaml:"max_conns" mapstructure:"max_conns" validate:"gte=0"`
	MinConns           int32  `yaml:"min_conns" mapstructure:"min_conns" validate:"gte=0,ltefield=MaxConns"`
}

// ConnectTimeout returns the connect timeout as a duration.
func (c StoreConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSecs) * time.Second
}

// GenAIConfig configures the generative service shared by all pipeline runs.
type GenAIConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider" validate:"oneof=anthropic bedrock"`
	MaxTokens         int64   `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=1"`
	Temperature       float64 `yaml:"temperature" mapstructure:"temperature" validate:"gte=0,lte=1"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=0"`
	BreakerThreshold  int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold" validate:"gte=1"`
	BreakerResetSecs  int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs" validate:"gte=1"`
}

// BreakerReset returns how long the circuit breaker stays open.
func (c GenAIConfig) BreakerReset() time.Duration {
	return time.Duration(c.BreakerResetSecs) * time.Second
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// BedrockConfig holds AWS Bedrock settings. Credentials fall back to the
// default AWS chain when the static keys are empty.
type BedrockConfig struct {
	Region          string `yaml:"region" mapstructure:"region"`
	ModelID         string `yaml:"model_id" mapstructure:"model_id"`
	AccessKeyID     string `yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" mapstructure:"secret_access_key"`
	Endpoint        string `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,url"`
}

// PipelineConfig selects the recommendation strategies.
type PipelineConfig struct {
	AffinityStrategy   string `yaml:"affinity_strategy" mapstructure:"affinity_strategy" validate:"oneof=cooccurrence generative"`
	ScoringStrategy    string `yaml:"scoring_strategy" mapstructure:"scoring_strategy" validate:"oneof=heuristic generative"`
	MaxRecommendations int    `yaml:"max_recommendations" mapstructure:"max_recommendations" validate:"gte=1,lte=5"`
	CatalogPath        string `yaml:"catalog_path" mapstructure:"catalog_path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port" validate:"gte=1,lte=65535"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute" validate:"gte=0"`
	CORSOrigins        []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs" validate:"gte=0"`
}

// RequestTimeout bounds a single recommendation request. Zero means no limit.
func (c ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OPPORTUNITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.connect_timeout_secs", 10)
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("genai.provider", "anthropic")
	v.SetDefault("genai.max_tokens", 2048)
	v.SetDefault("genai.temperature", 0.0)
	v.SetDefault("genai.requests_per_second", 5.0)
	v.SetDefault("genai.breaker_threshold", 5)
	v.SetDefault("genai.breaker_reset_secs", 30)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-3-haiku-20240307-v1:0")
	v.SetDefault("bedrock.access_key_id", "")
	v.SetDefault("bedrock.secret_access_key", "")
	v.SetDefault("bedrock.endpoint", "")
	v.SetDefault("pipeline.affinity_strategy", "cooccurrence")
	v.SetDefault("pipeline.scoring_strategy", "heuristic")
	v.SetDefault("pipeline.max_recommendations", 5)
	v.SetDefault("pipeline.catalog_path", "")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.rate_limit_per_minute", 60)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.request_timeout_secs", 120)
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

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks value ranges and enumerations, then the settings the given
// command mode needs. Modes: serve, recommend, seed, migrate, init-sql.
func (c *Config) Validate(mode string) error {
	var errs []string

	if err := getValidator().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return eris.Wrap(err, "config: validate")
		}
		for _, fe := range fieldErrs {
			errs = append(errs, describe(fe))
		}
	}

	switch mode {
	case "serve", "recommend":
		errs = append(errs, c.requireStore()...)
		errs = append(errs, c.requireGenAI()...)
	case "seed", "migrate":
		errs = append(errs, c.requireStore()...)
	case "init-sql":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := fieldPath(fe.Namespace())
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	case "ltefield":
		return fmt.Sprintf("%s must not exceed %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// fieldPath turns "Config.store.max_conns" into "store.max_conns".
func fieldPath(ns string) string {
	_, path, _ := strings.Cut(ns, ".")
	return path
}

func (c *Config) requireStore() []string {
	if c.Store.DatabaseURL == "" {
		return []string{"store.database_url is required"}
	}
	return nil
}

func (c *Config) requireGenAI() []string {
	var errs []string
	switch c.GenAI.Provider {
	case "anthropic":
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
		if c.Anthropic.Model == "" {
			errs = append(errs, "anthropic.model is required")
		}
	case "bedrock":
		if c.Bedrock.ModelID == "" {
			errs = append(errs, "bedrock.model_id is required")
		}
		if (c.Bedrock.AccessKeyID == "") != (c.Bedrock.SecretAccessKey == "") {
			errs = append(errs, "bedrock.access_key_id and bedrock.secret_access_key must be set together")
		}
	}
	return errs
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
