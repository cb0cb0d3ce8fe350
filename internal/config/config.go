// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultHost                      = "0.0.0.0"
	DefaultPort                      = 8080
	DefaultLogLevel                  = "INFO"
	DefaultWorkerCount               = 1
	DefaultSearchLimit               = 10
	DefaultEndpointParallelTasks     = 1
	DefaultEndpointMaxRetries        = 5
	DefaultEndpointInitialDelay      = 2 * time.Second
	DefaultEndpointBackoffFactor     = 2.0
	DefaultEndpointMaxBatchSize      = 96
	DefaultRetrievalBudget           = 8000
	DefaultPipelineCooldown          = 60 * time.Second
	DefaultLiveDataConfirmMode       = "auto_deny"
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// Endpoint configures the embedding AI service.
type Endpoint struct {
	baseURL          string
	model            string
	apiKey           string
	numParallelTasks int
	maxRetries       int
	initialDelay     time.Duration
	backoffFactor    float64
	maxBatchSize     int
}

// NewEndpoint creates a new Endpoint with defaults.
func NewEndpoint() Endpoint {
	return Endpoint{
		numParallelTasks: DefaultEndpointParallelTasks,
		maxRetries:       DefaultEndpointMaxRetries,
		initialDelay:     DefaultEndpointInitialDelay,
		backoffFactor:    DefaultEndpointBackoffFactor,
		maxBatchSize:     DefaultEndpointMaxBatchSize,
	}
}

// BaseURL returns the base URL for the endpoint.
func (e Endpoint) BaseURL() string { return e.baseURL }

// Model returns the model identifier.
func (e Endpoint) Model() string { return e.model }

// APIKey returns the API key.
func (e Endpoint) APIKey() string { return e.apiKey }

// NumParallelTasks returns the number of concurrent embedding sub-batch
// requests the provider is allowed to have in flight at once.
func (e Endpoint) NumParallelTasks() int { return e.numParallelTasks }

// MaxRetries returns the maximum retry count.
func (e Endpoint) MaxRetries() int { return e.maxRetries }

// InitialDelay returns the initial retry delay.
func (e Endpoint) InitialDelay() time.Duration { return e.initialDelay }

// BackoffFactor returns the retry backoff multiplier.
func (e Endpoint) BackoffFactor() float64 { return e.backoffFactor }

// MaxBatchSize returns the maximum number of texts embedded in a single
// provider request.
func (e Endpoint) MaxBatchSize() int { return e.maxBatchSize }

// IsConfigured returns true if the endpoint has required configuration.
func (e Endpoint) IsConfigured() bool {
	return e.model != ""
}

// EndpointOption is a functional option for Endpoint.
type EndpointOption func(*Endpoint)

// WithBaseURL sets the base URL.
func WithBaseURL(url string) EndpointOption {
	return func(e *Endpoint) { e.baseURL = url }
}

// WithModel sets the model.
func WithModel(model string) EndpointOption {
	return func(e *Endpoint) { e.model = model }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) EndpointOption {
	return func(e *Endpoint) { e.apiKey = key }
}

// WithNumParallelTasks sets the concurrent sub-batch request limit.
func WithNumParallelTasks(n int) EndpointOption {
	return func(e *Endpoint) { e.numParallelTasks = n }
}

// WithMaxRetries sets the maximum retry count.
func WithMaxRetries(n int) EndpointOption {
	return func(e *Endpoint) { e.maxRetries = n }
}

// WithInitialDelay sets the initial retry delay.
func WithInitialDelay(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.initialDelay = d }
}

// WithBackoffFactor sets the retry backoff multiplier.
func WithBackoffFactor(f float64) EndpointOption {
	return func(e *Endpoint) { e.backoffFactor = f }
}

// WithMaxBatchSize sets the maximum number of texts embedded in a single
// provider request.
func WithMaxBatchSize(n int) EndpointOption {
	return func(e *Endpoint) { e.maxBatchSize = n }
}

// NewEndpointWithOptions creates an Endpoint with functional options.
func NewEndpointWithOptions(opts ...EndpointOption) Endpoint {
	e := NewEndpoint()
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// AppConfig holds the main application configuration.
type AppConfig struct {
	host                   string
	port                   int
	dataDir                string
	dbURL                  string
	logLevel               string
	logFormat              LogFormat
	disableTelemetry       bool
	skipProviderValidation bool
	embeddingEndpoint      *Endpoint
	apiKeys                []string
	workerCount            int
	searchLimit            int
	retrievalBudget        int
	pipelineCooldown       time.Duration
	liveDataConfirmMode    string
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kodex"
	}
	return filepath.Join(home, ".kodex")
}

// DefaultLogger returns the default slog logger for library consumers.
func DefaultLogger() *slog.Logger {
	return slog.Default()
}

// PrepareDataDir creates the data directory if it does not exist and returns it.
func PrepareDataDir(dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dataDir, nil
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		host:                DefaultHost,
		port:                DefaultPort,
		dataDir:             dataDir,
		dbURL:               "sqlite:///" + filepath.Join(dataDir, "kodex.db"),
		logLevel:            DefaultLogLevel,
		logFormat:           LogFormatPretty,
		disableTelemetry:    false,
		apiKeys:             []string{},
		workerCount:         DefaultWorkerCount,
		searchLimit:         DefaultSearchLimit,
		retrievalBudget:     DefaultRetrievalBudget,
		pipelineCooldown:    DefaultPipelineCooldown,
		liveDataConfirmMode: DefaultLiveDataConfirmMode,
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// DisableTelemetry returns whether telemetry is disabled.
func (c AppConfig) DisableTelemetry() bool { return c.disableTelemetry }

// SkipProviderValidation returns whether to skip provider validation at startup.
// This is intended for testing only.
func (c AppConfig) SkipProviderValidation() bool { return c.skipProviderValidation }

// EmbeddingEndpoint returns the embedding endpoint config.
func (c AppConfig) EmbeddingEndpoint() *Endpoint { return c.embeddingEndpoint }

// APIKeys returns the configured API keys.
func (c AppConfig) APIKeys() []string {
	keys := make([]string, len(c.apiKeys))
	copy(keys, c.apiKeys)
	return keys
}

// WorkerCount returns the number of background workers.
func (c AppConfig) WorkerCount() int { return c.workerCount }

// SearchLimit returns the default search result limit.
func (c AppConfig) SearchLimit() int { return c.searchLimit }

// RetrievalBudget returns the default token budget ContextAssembler uses
// when a caller does not override it per-request.
func (c AppConfig) RetrievalBudget() int { return c.retrievalBudget }

// PipelineCooldown returns the minimum interval PipelineGuard enforces
// between successive runs of the same operation kind.
func (c AppConfig) PipelineCooldown() time.Duration { return c.pipelineCooldown }

// LiveDataConfirmMode returns the configured live.ConfirmationMode string
// ("auto_approve", "auto_deny", or "callback") for the LiveDataServer's
// Tier-4 confirmation gate. A caller that needs ModeCallback still supplies
// its own callback programmatically; this only selects the mode.
func (c AppConfig) LiveDataConfirmMode() string { return c.liveDataConfirmMode }

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		c.dataDir = dir
		// Update default DB URL when data dir changes
		if c.dbURL == "" || strings.Contains(c.dbURL, "kodex.db") {
			c.dbURL = "sqlite:///" + filepath.Join(dir, "kodex.db")
		}
	}
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithDisableTelemetry sets telemetry state.
func WithDisableTelemetry(disabled bool) AppConfigOption {
	return func(c *AppConfig) { c.disableTelemetry = disabled }
}

// WithSkipProviderValidation sets whether to skip provider validation.
// WARNING: For testing only. kodex requires an embedding provider for
// vector-strategy search.
func WithSkipProviderValidation(skip bool) AppConfigOption {
	return func(c *AppConfig) { c.skipProviderValidation = skip }
}

// WithEmbeddingEndpoint sets the embedding endpoint.
func WithEmbeddingEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.embeddingEndpoint = &e }
}

// WithAPIKeys sets the API keys.
func WithAPIKeys(keys []string) AppConfigOption {
	return func(c *AppConfig) {
		c.apiKeys = make([]string, len(keys))
		copy(c.apiKeys, keys)
	}
}

// WithWorkerCount sets the number of background workers.
func WithWorkerCount(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.workerCount = n
		}
	}
}

// WithSearchLimit sets the default search result limit.
func WithSearchLimit(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.searchLimit = n
		}
	}
}

// WithRetrievalBudget sets the default ContextAssembler token budget.
func WithRetrievalBudget(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.retrievalBudget = n
		}
	}
}

// WithPipelineCooldown sets PipelineGuard's minimum interval between runs
// of the same operation kind.
func WithPipelineCooldown(d time.Duration) AppConfigOption {
	return func(c *AppConfig) {
		if d > 0 {
			c.pipelineCooldown = d
		}
	}
}

// WithLiveDataConfirmMode sets the LiveDataServer's Confirmation mode
// string ("auto_approve", "auto_deny", or "callback").
func WithLiveDataConfirmMode(mode string) AppConfigOption {
	return func(c *AppConfig) {
		if mode != "" {
			c.liveDataConfirmMode = mode
		}
	}
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a new AppConfig with the given options applied.
// This copies all fields from the receiver and then applies the options,
// making it safe to use when adding new fields to AppConfig.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes for logging the configuration.
// Sensitive values like API keys are masked or shown as counts.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("data_dir", c.dataDir),
		slog.String("log_level", c.logLevel),
		slog.String("db_url", c.maskedDBURL()),
		slog.String("embedding_base_url", c.endpointBaseURL(c.embeddingEndpoint)),
		slog.String("embedding_model", c.endpointModel(c.embeddingEndpoint)),
		slog.Int("api_keys_count", len(c.apiKeys)),
		slog.Bool("skip_provider_validation", c.skipProviderValidation),
		slog.Int("worker_count", c.workerCount),
		slog.Int("search_limit", c.searchLimit),
		slog.Int("retrieval_budget", c.retrievalBudget),
		slog.Duration("pipeline_cooldown", c.pipelineCooldown),
		slog.String("live_data_confirm_mode", c.liveDataConfirmMode),
	}
}

func (c AppConfig) maskedDBURL() string {
	if c.dbURL == "" {
		return "(default)"
	}
	if len(c.dbURL) >= 7 && c.dbURL[:7] == "sqlite:" {
		return c.dbURL
	}
	return "postgres://***@***"
}

func (c AppConfig) endpointBaseURL(e *Endpoint) string {
	if e == nil {
		return "(not configured)"
	}
	return e.BaseURL()
}

func (c AppConfig) endpointModel(e *Endpoint) string {
	if e == nil {
		return "(not configured)"
	}
	return e.Model()
}

// ParseAPIKeys parses a comma-separated string of API keys.
func ParseAPIKeys(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			keys = append(keys, trimmed)
		}
	}
	return keys
}
