package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 10, cfg.Store.ConnectTimeoutSecs)
	assert.Equal(t, 10*time.Second, cfg.Store.ConnectTimeout())
	assert.Equal(t, "anthropic", cfg.GenAI.Provider)
	assert.Equal(t, int64(2048), cfg.GenAI.MaxTokens)
	assert.InDelta(t, 0.0, cfg.GenAI.Temperature, 0.001)
	assert.Equal(t, 5, cfg.GenAI.BreakerThreshold)
	assert.Equal(t, 30*time.Second, cfg.GenAI.BreakerReset())
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, "us-east-1", cfg.Bedrock.Region)
	assert.Equal(t, "cooccurrence", cfg.Pipeline.AffinityStrategy)
	assert.Equal(t, "heuristic", cfg.Pipeline.ScoringStrategy)
	assert.Equal(t, 5, cfg.Pipeline.MaxRecommendations)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 60, cfg.Server.RateLimitPerMinute)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 2*time.Minute, cfg.Server.RequestTimeout())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: opportunities.db
log:
  level: debug
  format: console
server:
  port: 9090
pipeline:
  affinity_strategy: generative
  max_recommendations: 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "opportunities.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "generative", cfg.Pipeline.AffinityStrategy)
	assert.Equal(t, 3, cfg.Pipeline.MaxRecommendations)
	// Defaults still apply for unset values
	assert.Equal(t, "heuristic", cfg.Pipeline.ScoringStrategy)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("OPPORTUNITY_STORE_DRIVER", "postgres")
	t.Setenv("OPPORTUNITY_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("OPPORTUNITY_SERVER_PORT", "3000")
	t.Setenv("OPPORTUNITY_ANTHROPIC_KEY", "sk-ant-key")
	t.Setenv("OPPORTUNITY_GENAI_PROVIDER", "bedrock")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "sk-ant-key", cfg.Anthropic.Key)
	assert.Equal(t, "bedrock", cfg.GenAI.Provider)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0o644))

	_, err := Load()
	assert.ErrorContains(t, err, "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "postgres"
	cfg.Store.ConnectTimeoutSecs = 10
	cfg.Store.MaxConns = 10
	cfg.Store.MinConns = 1
	cfg.GenAI.Provider = "anthropic"
	cfg.GenAI.MaxTokens = 2048
	cfg.GenAI.BreakerThreshold = 5
	cfg.GenAI.BreakerResetSecs = 30
	cfg.Anthropic.Model = "claude-haiku-4-5-20251001"
	cfg.Pipeline.AffinityStrategy = "cooccurrence"
	cfg.Pipeline.ScoringStrategy = "heuristic"
	cfg.Pipeline.MaxRecommendations = 5
	cfg.Server.Port = 8000
	cfg.Log.Format = "json"
	return cfg
}

func TestValidateServe_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = "postgres://localhost/test"
	cfg.Anthropic.Key = "sk-ant-key"

	assert.NoError(t, cfg.Validate("serve"))
	assert.NoError(t, cfg.Validate("recommend"))
}

func TestValidateServe_MissingFields(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
	assert.Contains(t, err.Error(), "anthropic.key is required")
}

func TestValidateSeed_NoGenAIRequired(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = "postgres://localhost/test"

	assert.NoError(t, cfg.Validate("seed"))
	assert.NoError(t, cfg.Validate("migrate"))
}

func TestValidateInitSQL_NoStoreRequired(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("init-sql"))
}

func TestValidateBedrock(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = "postgres://localhost/test"
	cfg.GenAI.Provider = "bedrock"

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bedrock.model_id is required")

	cfg.Bedrock.ModelID = "anthropic.claude-3-haiku-20240307-v1:0"
	cfg.Bedrock.AccessKeyID = "AKIA"
	err = cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be set together")

	cfg.Bedrock.SecretAccessKey = "secret"
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateEnumerations(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	cfg.Pipeline.ScoringStrategy = "random"

	err := cfg.Validate("init-sql")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `store.driver must be one of [postgres sqlite], got "mysql"`)
	assert.Contains(t, err.Error(), "pipeline.scoring_strategy must be one of")
}

func TestValidateBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Pipeline.MaxRecommendations = 6
	err := cfg.Validate("init-sql")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.max_recommendations must be <= 5")

	cfg.Pipeline.MaxRecommendations = 0
	err = cfg.Validate("init-sql")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.max_recommendations must be >= 1")

	cfg.Pipeline.MaxRecommendations = 5
	cfg.Server.Port = 0
	err = cfg.Validate("init-sql")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be >= 1")

	cfg.Server.Port = 8000
	cfg.GenAI.Temperature = 1.5
	err = cfg.Validate("init-sql")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "genai.temperature must be <= 1")

	cfg.GenAI.Temperature = 0
	cfg.Store.MinConns = 20
	err = cfg.Validate("init-sql")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.min_conns must not exceed")

	cfg.Store.MinConns = 1
	assert.NoError(t, cfg.Validate("init-sql"))
}
