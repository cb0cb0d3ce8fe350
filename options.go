package kodex

import (
	"database/sql"

	domainbreaker "github.com/kodexhq/kodex/domain/breaker"
	"github.com/kodexhq/kodex/domain/live"
	"github.com/kodexhq/kodex/domain/store"
	"github.com/kodexhq/kodex/infrastructure/embedding"
	"github.com/kodexhq/kodex/infrastructure/livedata"
	"github.com/kodexhq/kodex/internal/config"
)

// clientConfig accumulates every New option before Client assembly. Zero
// value fields fall back to in-memory stores and a conservative default
// everywhere a store or path is not supplied.
type clientConfig struct {
	appConfig config.AppConfig

	vector   store.VectorStore
	metadata store.MetadataStore
	graph    store.GraphStore

	sqlDSN string

	openAIAPIKey     string
	embeddingOptions []embedding.Option

	breakerConfig domainbreaker.Config

	manifestPath string
	guardPath    string
	feedbackPath string

	toolDeadlineMs int

	liveDataEnabled     bool
	liveDataModels      map[string][]string
	liveDataRedacted    []string
	liveDataAuditPath   string
	liveDataConfirmMode live.ConfirmationMode
	liveDataConfirmHook live.Callback
	liveDataBridgeURL   string
	liveDataEmbeddedDB  *sql.DB
	liveDataDialect     string
}

func newClientConfig() clientConfig {
	return clientConfig{
		appConfig:           config.NewAppConfig(),
		breakerConfig:       domainbreaker.DefaultConfig(),
		manifestPath:        "manifest.json",
		guardPath:           "pipeline-guard.json",
		feedbackPath:        "feedback.jsonl",
		liveDataConfirmMode: live.ModeAutoDeny,
		liveDataDialect:     string(livedata.DialectSQLite),
	}
}

// Option configures a Client at construction time.
type Option func(*clientConfig)

// WithAppConfig overrides the embedded internal/config.AppConfig (host,
// port, data dir, log level/format, worker/search-limit defaults).
func WithAppConfig(cfg config.AppConfig) Option {
	return func(c *clientConfig) { c.appConfig = cfg }
}

// WithVectorStore overrides the default in-memory VectorStore.
func WithVectorStore(s store.VectorStore) Option {
	return func(c *clientConfig) { c.vector = s }
}

// WithMetadataStore overrides the default in-memory MetadataStore.
func WithMetadataStore(s store.MetadataStore) Option {
	return func(c *clientConfig) { c.metadata = s }
}

// WithGraphStore overrides the default in-memory GraphStore.
func WithGraphStore(s store.GraphStore) Option {
	return func(c *clientConfig) { c.graph = s }
}

// WithSQLite selects the GORM/SQLite-backed VectorStore/MetadataStore/
// GraphStore (infrastructure/store/sql) over the given file path, applying
// schema migrations at construction. Overridden by an explicit
// WithVectorStore/WithMetadataStore/WithGraphStore for the store it covers.
func WithSQLite(path string) Option {
	return func(c *clientConfig) { c.sqlDSN = "sqlite:///" + path }
}

// WithPostgres selects the GORM/Postgres-backed VectorStore/MetadataStore/
// GraphStore (infrastructure/store/sql) over the given connection URL,
// applying schema migrations at construction.
func WithPostgres(url string) Option {
	return func(c *clientConfig) { c.sqlDSN = url }
}

// WithOpenAIEmbedding configures the OpenAIProvider embedder with apiKey
// and any additional infrastructure/embedding.Option values.
func WithOpenAIEmbedding(apiKey string, opts ...embedding.Option) Option {
	return func(c *clientConfig) {
		c.openAIAPIKey = apiKey
		c.embeddingOptions = opts
	}
}

// WithBreakerConfig overrides the default circuit breaker threshold/reset
// timeout applied to every store and the embedding provider.
func WithBreakerConfig(cfg domainbreaker.Config) Option {
	return func(c *clientConfig) { c.breakerConfig = cfg }
}

// WithManifestPath sets the ChangeManifest file path (default
// "manifest.json").
func WithManifestPath(path string) Option {
	return func(c *clientConfig) { c.manifestPath = path }
}

// WithPipelineGuardPath sets the PipelineGuard's backing JSON file path
// (default "pipeline-guard.json").
func WithPipelineGuardPath(path string) Option {
	return func(c *clientConfig) { c.guardPath = path }
}

// WithFeedbackLogPath sets the FeedbackStore's JSON-lines log path
// (default "feedback.jsonl").
func WithFeedbackLogPath(path string) Option {
	return func(c *clientConfig) { c.feedbackPath = path }
}

// WithToolDeadline bounds every toolserver.Registry dispatch call, in
// milliseconds. Zero (the default) disables the hard deadline.
func WithToolDeadline(ms int) Option {
	return func(c *clientConfig) { c.toolDeadlineMs = ms }
}

// WithLiveData enables the LiveDataServer console with the given
// model/column registry (the same registry a ModelValidator checks
// against) and the list of column names Redact must mask in every result
// row. One of WithLiveDataBridge or WithLiveDataEmbedded must also be
// supplied to select an Adapter, or New returns an error.
func WithLiveData(modelRegistry map[string][]string, redactedColumns []string) Option {
	return func(c *clientConfig) {
		c.liveDataEnabled = true
		c.liveDataModels = modelRegistry
		c.liveDataRedacted = redactedColumns
	}
}

// WithLiveDataAuditPath sets the LiveDataServer's AuditLogger path
// (required once WithLiveData is used; New returns an error otherwise).
func WithLiveDataAuditPath(path string) Option {
	return func(c *clientConfig) { c.liveDataAuditPath = path }
}

// WithLiveDataConfirmation sets the LiveDataServer's Confirmation mode
// and, for ModeCallback, the decision callback.
func WithLiveDataConfirmation(mode live.ConfirmationMode, callback live.Callback) Option {
	return func(c *clientConfig) {
		c.liveDataConfirmMode = mode
		c.liveDataConfirmHook = callback
	}
}

// WithLiveDataBridge points the LiveDataServer at an out-of-process target
// application's tool server "bridge" construction mode.
func WithLiveDataBridge(endpoint string) Option {
	return func(c *clientConfig) { c.liveDataBridgeURL = endpoint }
}

// WithLiveDataEmbedded runs the LiveDataServer's Tier-1 primitives
// in-process against db;
// dialect selects the statement-timeout pragma SafeContext applies.
func WithLiveDataEmbedded(db *sql.DB, dialect string) Option {
	return func(c *clientConfig) {
		c.liveDataEmbeddedDB = db
		c.liveDataDialect = dialect
	}
}
