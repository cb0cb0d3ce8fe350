package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "", cfg.DataDir)
	assert.Equal(t, "", cfg.DBURL)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "pretty", cfg.LogFormat)
	assert.False(t, cfg.DisableTelemetry)
	assert.Equal(t, "", cfg.APIKeys)
	assert.Equal(t, 1, cfg.WorkerCount)
	assert.Equal(t, 10, cfg.SearchLimit)
	assert.Equal(t, 8000, cfg.RetrievalBudget)
	assert.Equal(t, 60.0, cfg.PipelineCooldownSeconds)
	assert.Equal(t, "auto_deny", cfg.LiveDataConfirmMode)
}

func TestEnvDefaults_MatchConfigDefaults(t *testing.T) {
	// This test verifies that struct tag defaults in env.go match the constants in config.go.
	// Go's struct tag defaults must be literals, so this test ensures they stay in sync.
	clearEnvVars(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.Host, "Host struct tag default should match DefaultHost")
	assert.Equal(t, DefaultPort, cfg.Port, "Port struct tag default should match DefaultPort")
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel, "LogLevel struct tag default should match DefaultLogLevel")
	assert.Equal(t, DefaultWorkerCount, cfg.WorkerCount, "WorkerCount struct tag default should match DefaultWorkerCount")
	assert.Equal(t, DefaultSearchLimit, cfg.SearchLimit, "SearchLimit struct tag default should match DefaultSearchLimit")
	assert.Equal(t, DefaultRetrievalBudget, cfg.RetrievalBudget, "RetrievalBudget struct tag default should match DefaultRetrievalBudget")
	assert.Equal(t, DefaultPipelineCooldown.Seconds(), cfg.PipelineCooldownSeconds, "PipelineCooldownSeconds struct tag default should match DefaultPipelineCooldown")
	assert.Equal(t, DefaultLiveDataConfirmMode, cfg.LiveDataConfirmMode, "LiveDataConfirmMode struct tag default should match DefaultLiveDataConfirmMode")

	assert.Equal(t, DefaultEndpointParallelTasks, cfg.EmbeddingEndpoint.NumParallelTasks, "NumParallelTasks struct tag default should match DefaultEndpointParallelTasks")
	assert.Equal(t, DefaultEndpointMaxRetries, cfg.EmbeddingEndpoint.MaxRetries, "MaxRetries struct tag default should match DefaultEndpointMaxRetries")
	assert.Equal(t, DefaultEndpointInitialDelay.Seconds(), cfg.EmbeddingEndpoint.InitialDelay, "InitialDelay struct tag default should match DefaultEndpointInitialDelay")
	assert.Equal(t, DefaultEndpointBackoffFactor, cfg.EmbeddingEndpoint.BackoffFactor, "BackoffFactor struct tag default should match DefaultEndpointBackoffFactor")
	assert.Equal(t, DefaultEndpointMaxBatchSize, cfg.EmbeddingEndpoint.MaxBatchSize, "MaxBatchSize struct tag default should match DefaultEndpointMaxBatchSize")
}

func TestLoadFromEnv_OverrideValues(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9000")
	t.Setenv("DATA_DIR", "/custom/data")
	t.Setenv("DB_URL", "postgres://localhost/kodex")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("DISABLE_TELEMETRY", "true")
	t.Setenv("API_KEYS", "key1,key2,key3")
	t.Setenv("RETRIEVAL_BUDGET", "4000")
	t.Setenv("PIPELINE_COOLDOWN_SECONDS", "30")
	t.Setenv("LIVE_DATA_CONFIRM_MODE", "auto_approve")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "/custom/data", cfg.DataDir)
	assert.Equal(t, "postgres://localhost/kodex", cfg.DBURL)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.DisableTelemetry)
	assert.Equal(t, "key1,key2,key3", cfg.APIKeys)
	assert.Equal(t, 4000, cfg.RetrievalBudget)
	assert.Equal(t, 30.0, cfg.PipelineCooldownSeconds)
	assert.Equal(t, "auto_approve", cfg.LiveDataConfirmMode)
}

func TestLoadFromEnv_EmbeddingEndpoint(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("EMBEDDING_ENDPOINT_BASE_URL", "https://api.openai.com/v1")
	t.Setenv("EMBEDDING_ENDPOINT_MODEL", "text-embedding-3-small")
	t.Setenv("EMBEDDING_ENDPOINT_API_KEY", "sk-test-key")
	t.Setenv("EMBEDDING_ENDPOINT_NUM_PARALLEL_TASKS", "5")
	t.Setenv("EMBEDDING_ENDPOINT_MAX_RETRIES", "3")
	t.Setenv("EMBEDDING_ENDPOINT_INITIAL_DELAY", "1.5")
	t.Setenv("EMBEDDING_ENDPOINT_BACKOFF_FACTOR", "1.5")
	t.Setenv("EMBEDDING_ENDPOINT_MAX_BATCH_SIZE", "32")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.EmbeddingEndpoint.IsConfigured())
	assert.Equal(t, "https://api.openai.com/v1", cfg.EmbeddingEndpoint.BaseURL)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingEndpoint.Model)
	assert.Equal(t, "sk-test-key", cfg.EmbeddingEndpoint.APIKey)
	assert.Equal(t, 5, cfg.EmbeddingEndpoint.NumParallelTasks)
	assert.Equal(t, 3, cfg.EmbeddingEndpoint.MaxRetries)
	assert.Equal(t, 1.5, cfg.EmbeddingEndpoint.InitialDelay)
	assert.Equal(t, 1.5, cfg.EmbeddingEndpoint.BackoffFactor)
	assert.Equal(t, 32, cfg.EmbeddingEndpoint.MaxBatchSize)
}

func TestLoadFromEnv_WorkerCountAndSearchLimit(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("WORKER_COUNT", "4")
	t.Setenv("SEARCH_LIMIT", "25")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 25, cfg.SearchLimit)
}

func TestEnvConfig_ToAppConfig(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("DATA_DIR", "/test/data")
	t.Setenv("DB_URL", "postgres://test/db")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("DISABLE_TELEMETRY", "true")
	t.Setenv("API_KEYS", "key1,key2")
	t.Setenv("EMBEDDING_ENDPOINT_MODEL", "text-embedding-3-small")
	t.Setenv("RETRIEVAL_BUDGET", "5000")
	t.Setenv("PIPELINE_COOLDOWN_SECONDS", "120")
	t.Setenv("LIVE_DATA_CONFIRM_MODE", "callback")

	envCfg, err := LoadFromEnv()
	require.NoError(t, err)

	cfg := envCfg.ToAppConfig()

	assert.Equal(t, "/test/data", cfg.DataDir())
	assert.Equal(t, "postgres://test/db", cfg.DBURL())
	assert.Equal(t, "DEBUG", cfg.LogLevel())
	assert.Equal(t, LogFormatJSON, cfg.LogFormat())
	assert.True(t, cfg.DisableTelemetry())
	assert.Equal(t, []string{"key1", "key2"}, cfg.APIKeys())
	assert.NotNil(t, cfg.EmbeddingEndpoint())
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingEndpoint().Model())
	assert.Equal(t, 5000, cfg.RetrievalBudget())
	assert.Equal(t, 120*time.Second, cfg.PipelineCooldown())
	assert.Equal(t, "callback", cfg.LiveDataConfirmMode())
}

func TestEndpointEnv_ToEndpoint(t *testing.T) {
	env := EndpointEnv{
		BaseURL:          "https://api.example.com",
		Model:            "test-model",
		APIKey:           "test-key",
		NumParallelTasks: 5,
		MaxRetries:       3,
		InitialDelay:     1.5,
		BackoffFactor:    1.5,
		MaxBatchSize:     32,
	}

	endpoint := env.ToEndpoint()

	assert.Equal(t, "https://api.example.com", endpoint.BaseURL())
	assert.Equal(t, "test-model", endpoint.Model())
	assert.Equal(t, "test-key", endpoint.APIKey())
	assert.Equal(t, 5, endpoint.NumParallelTasks())
	assert.Equal(t, 3, endpoint.MaxRetries())
	assert.Equal(t, time.Duration(1.5*float64(time.Second)), endpoint.InitialDelay())
	assert.Equal(t, 1.5, endpoint.BackoffFactor())
	assert.Equal(t, 32, endpoint.MaxBatchSize())
}

func TestParseLogFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected LogFormat
	}{
		{"json", LogFormatJSON},
		{"JSON", LogFormatJSON},
		{"pretty", LogFormatPretty},
		{"PRETTY", LogFormatPretty},
		{"", LogFormatPretty},
		{"invalid", LogFormatPretty},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, parseLogFormat(tc.input))
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	content := `DATA_DIR=/from/dotenv
LOG_LEVEL=DEBUG
API_KEYS=key1,key2
`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	clearEnvVars(t)

	err = LoadDotEnv(envFile)
	require.NoError(t, err)

	assert.Equal(t, "/from/dotenv", os.Getenv("DATA_DIR"))
	assert.Equal(t, "DEBUG", os.Getenv("LOG_LEVEL"))
	assert.Equal(t, "key1,key2", os.Getenv("API_KEYS"))
}

func TestLoadDotEnv_NonExistent(t *testing.T) {
	clearEnvVars(t)

	err := LoadDotEnv("/nonexistent/.env")
	assert.NoError(t, err)
}

func TestMustLoadDotEnv_NonExistent(t *testing.T) {
	clearEnvVars(t)

	err := MustLoadDotEnv("/nonexistent/.env")
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	content := `DATA_DIR=/config/data
LOG_LEVEL=WARN
EMBEDDING_ENDPOINT_MODEL=test-embedding
`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	clearEnvVars(t)

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)

	assert.Equal(t, "/config/data", cfg.DataDir())
	assert.Equal(t, "WARN", cfg.LogLevel())
	assert.NotNil(t, cfg.EmbeddingEndpoint())
	assert.Equal(t, "test-embedding", cfg.EmbeddingEndpoint().Model())
}

func TestLoadConfig_YAMLOverlay(t *testing.T) {
	tmpDir := t.TempDir()
	yamlFile := filepath.Join(tmpDir, "kodex.yaml")
	content := `data_dir: /yaml/data
log_level: WARN
retrieval_budget: 3000
pipeline_cooldown_seconds: 45
embedding_endpoint:
  model: yaml-embedding
  base_url: https://api.example.com/v1
`
	err := os.WriteFile(yamlFile, []byte(content), 0o644)
	require.NoError(t, err)

	clearEnvVars(t)

	cfg, err := LoadConfig(yamlFile)
	require.NoError(t, err)

	assert.Equal(t, "/yaml/data", cfg.DataDir())
	assert.Equal(t, "WARN", cfg.LogLevel())
	assert.Equal(t, 3000, cfg.RetrievalBudget())
	assert.Equal(t, 45*time.Second, cfg.PipelineCooldown())
	require.NotNil(t, cfg.EmbeddingEndpoint())
	assert.Equal(t, "yaml-embedding", cfg.EmbeddingEndpoint().Model())
	assert.Equal(t, "https://api.example.com/v1", cfg.EmbeddingEndpoint().BaseURL())
}

func TestLoadDotEnvFromFiles(t *testing.T) {
	tmpDir := t.TempDir()

	env1 := filepath.Join(tmpDir, ".env")
	err := os.WriteFile(env1, []byte("KEY1=value1\nKEY2=value2\n"), 0o644)
	require.NoError(t, err)

	env2 := filepath.Join(tmpDir, ".env.local")
	err = os.WriteFile(env2, []byte("KEY2=override\nKEY3=value3\n"), 0o644)
	require.NoError(t, err)

	clearEnvVars(t)

	// Load multiple files - note: godotenv.Load does NOT override existing values
	// so KEY2 keeps its value from env1
	err = LoadDotEnvFromFiles(env1, env2)
	require.NoError(t, err)

	assert.Equal(t, "value1", os.Getenv("KEY1"))
	assert.Equal(t, "value2", os.Getenv("KEY2")) // First file wins
	assert.Equal(t, "value3", os.Getenv("KEY3"))
}

func TestOverloadDotEnvFromFiles(t *testing.T) {
	tmpDir := t.TempDir()

	env1 := filepath.Join(tmpDir, ".env")
	err := os.WriteFile(env1, []byte("KEY1=value1\nKEY2=value2\n"), 0o644)
	require.NoError(t, err)

	env2 := filepath.Join(tmpDir, ".env.local")
	err = os.WriteFile(env2, []byte("KEY2=override\nKEY3=value3\n"), 0o644)
	require.NoError(t, err)

	clearEnvVars(t)

	// Overload multiple files - later files override earlier values
	err = OverloadDotEnvFromFiles(env1, env2)
	require.NoError(t, err)

	assert.Equal(t, "value1", os.Getenv("KEY1"))
	assert.Equal(t, "override", os.Getenv("KEY2")) // Second file wins with Overload
	assert.Equal(t, "value3", os.Getenv("KEY3"))
}

// clearEnvVars unsets all config-related environment variables
func clearEnvVars(t *testing.T) {
	t.Helper()

	vars := []string{
		"HOST",
		"PORT",
		"DATA_DIR",
		"DB_URL",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"DISABLE_TELEMETRY",
		"API_KEYS",
		"EMBEDDING_ENDPOINT_BASE_URL",
		"EMBEDDING_ENDPOINT_MODEL",
		"EMBEDDING_ENDPOINT_API_KEY",
		"EMBEDDING_ENDPOINT_NUM_PARALLEL_TASKS",
		"EMBEDDING_ENDPOINT_MAX_RETRIES",
		"EMBEDDING_ENDPOINT_INITIAL_DELAY",
		"EMBEDDING_ENDPOINT_BACKOFF_FACTOR",
		"EMBEDDING_ENDPOINT_MAX_BATCH_SIZE",
		"WORKER_COUNT",
		"SEARCH_LIMIT",
		"RETRIEVAL_BUDGET",
		"PIPELINE_COOLDOWN_SECONDS",
		"LIVE_DATA_CONFIRM_MODE",
		"KEY1",
		"KEY2",
		"KEY3",
	}

	for _, v := range vars {
		_ = os.Unsetenv(v)
	}
}
