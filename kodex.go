// Package kodex wires the retrieval engine's domain and application layers
// behind a single constructible Client, generalized from the teacher's
// repo-indexing Client assembly (store handles, embedding provider,
// functional options) onto a search/rank/assemble pipeline.
package kodex

import (
	"context"
	"fmt"
	"time"

	"github.com/kodexhq/kodex/application/feedback"
	"github.com/kodexhq/kodex/application/invalidate"
	"github.com/kodexhq/kodex/application/rank"
	"github.com/kodexhq/kodex/application/retriever"
	"github.com/kodexhq/kodex/application/searchexec"
	"github.com/kodexhq/kodex/application/assemble"
	"github.com/kodexhq/kodex/domain/embedding"
	"github.com/kodexhq/kodex/domain/live"
	"github.com/kodexhq/kodex/domain/pipeline"
	"github.com/kodexhq/kodex/domain/retrieval"
	"github.com/kodexhq/kodex/domain/store"
	"github.com/kodexhq/kodex/domain/unit"
	infrabreaker "github.com/kodexhq/kodex/infrastructure/breaker"
	infraembedding "github.com/kodexhq/kodex/infrastructure/embedding"
	"github.com/kodexhq/kodex/infrastructure/livedata"
	"github.com/kodexhq/kodex/infrastructure/persistence"
	"github.com/kodexhq/kodex/infrastructure/store/memory"
	sqlstore "github.com/kodexhq/kodex/infrastructure/store/sql"
	"github.com/kodexhq/kodex/infrastructure/toolhandlers"
	"github.com/kodexhq/kodex/infrastructure/toolserver"
	"github.com/kodexhq/kodex/internal/config"
	"github.com/kodexhq/kodex/internal/database"
	"github.com/kodexhq/kodex/internal/log"
)

// structuralUnitTypes is the fixed scan order used to derive the
// Retriever's structural overview text from whatever the MetadataStore
// currently holds, since domain/manifest's ChangeManifest tracks
// added/modified/deleted identifiers rather than per-type unit counts.
var structuralUnitTypes = []unit.Type{
	unit.TypeModel, unit.TypeController, unit.TypeService, unit.TypeJob,
	unit.TypeMailer, unit.TypeComponent, unit.TypeGraphQLMutation,
	unit.TypeGraphQLResolver, unit.TypeGraphQLType, unit.TypeDecorator,
	unit.TypeConcern, unit.TypePolicy, unit.TypeValidator, unit.TypeManager,
}

// Client is the assembled retrieval engine: stores wrapped in circuit
// breakers, the Retriever façade, the write-side invalidation pipeline, and
// a toolserver.Registry exposing every tool. LiveData is nil
// unless WithLiveData was supplied.
type Client struct {
	Logger *log.Logger

	AppConfig config.AppConfig

	Vector   store.VectorStore
	Metadata store.MetadataStore
	Graph    store.GraphStore
	Embedder embedding.Provider

	Breakers *infrabreaker.Registry

	Retriever   *retriever.Retriever
	Invalidator *invalidate.Invalidator
	Indexer     *invalidate.IncrementalIndexer

	Manifest *persistence.ManifestStore
	Guard    *pipeline.Guard
	Reporter *pipeline.Reporter
	Feedback *feedback.Service

	Tools    *toolserver.Registry
	LiveData *livedata.Server

	sqlDB *database.Database
}

// Close releases resources held by the Client, currently the SQL store's
// connection pool when WithSQLite/WithPostgres selected one. Safe to call
// on a Client constructed without a SQL store.
func (c *Client) Close() error {
	if c.sqlDB == nil {
		return nil
	}
	return c.sqlDB.Close()
}

// New assembles a Client from the supplied Options. Stores default to the
// in-memory implementations; an embedding provider is only configured when
// WithOpenAIEmbedding is supplied, in which case vector-strategy search is
// available, otherwise the Executor still serves keyword/graph/direct
// strategies (degrading vector requests with a clear error).
func New(opts ...Option) (*Client, error) {
	cfg := newClientConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := log.Configure(cfg.appConfig)

	var sqlDB *database.Database
	if cfg.sqlDSN != "" && (cfg.vector == nil || cfg.metadata == nil || cfg.graph == nil) {
		ctx := context.Background()
		db, err := database.NewDatabase(ctx, cfg.sqlDSN)
		if err != nil {
			return nil, fmt.Errorf("kodex: open sql store: %w", err)
		}
		if err := sqlstore.Migrate(ctx, db); err != nil {
			return nil, fmt.Errorf("kodex: migrate sql store: %w", err)
		}
		sqlDB = &db
	}

	vector := cfg.vector
	if vector == nil {
		if sqlDB != nil {
			vector = sqlstore.NewVectorStore(*sqlDB)
		} else {
			vector = memory.NewVectorStore()
		}
	}
	metadata := cfg.metadata
	if metadata == nil {
		if sqlDB != nil {
			metadata = sqlstore.NewMetadataStore(*sqlDB)
		} else {
			metadata = memory.NewMetadataStore()
		}
	}
	graph := cfg.graph
	if graph == nil {
		if sqlDB != nil {
			graph = sqlstore.NewGraphStore(*sqlDB)
		} else {
			graph = memory.NewGraphStore()
		}
	}

	var provider embedding.Provider
	if cfg.openAIAPIKey != "" {
		provider = infraembedding.NewOpenAIProvider(cfg.openAIAPIKey, cfg.embeddingOptions...)
	}

	breakers := infrabreaker.NewRegistry(cfg.breakerConfig)
	wrappedVector := infrabreaker.WrapVectorStore(vector, breakers.For("vector_store"))
	wrappedMetadata := infrabreaker.WrapMetadataStore(metadata, breakers.For("metadata_store"))
	wrappedGraph := infrabreaker.WrapGraphStore(graph, breakers.For("graph_store"))
	var wrappedEmbedder embedding.Provider
	if provider != nil {
		wrappedEmbedder = infrabreaker.WrapEmbedder(provider, breakers.For("embedding_provider"))
	}

	executor := searchexec.New(wrappedVector, wrappedMetadata, wrappedGraph, wrappedEmbedder)
	ranker := rank.New(wrappedMetadata)
	assembler := assemble.New(wrappedMetadata)

	manifestStore := persistence.NewManifestStore(cfg.manifestPath)
	structuralText := func(ctx context.Context) string {
		return buildStructuralText(ctx, wrappedMetadata)
	}
	r := retriever.New(executor, ranker, assembler, structuralText)

	guard, err := pipeline.NewGuard(cfg.guardPath, cfg.appConfig.PipelineCooldown())
	if err != nil {
		return nil, fmt.Errorf("kodex: init pipeline guard: %w", err)
	}
	reporter := pipeline.NewReporter(map[string]pipeline.HealthPing{
		"vector_store":   func() error { _, err := wrappedVector.Count(context.Background()); return err },
		"metadata_store": func() error { _, err := wrappedMetadata.Count(context.Background()); return err },
	})

	feedbackStore, err := persistence.NewFeedbackStore(cfg.feedbackPath)
	if err != nil {
		return nil, fmt.Errorf("kodex: init feedback log: %w", err)
	}
	feedbackService := feedback.New(feedbackStore)

	invalidator := &invalidate.Invalidator{}
	indexer := invalidate.New(wrappedVector, wrappedMetadata, wrappedEmbedder)

	tools := toolserver.NewRegistry(time.Duration(cfg.toolDeadlineMs) * time.Millisecond)
	handlers := &toolhandlers.Handlers{
		Retriever: r,
		Metadata:  wrappedMetadata,
		Graph:     wrappedGraph,
		Manifest:  manifestStore,
		Guard:     guard,
		Reporter:  reporter,
		Indexer:   indexer,
		Feedback:  feedbackService,
	}
	handlers.Register(tools)

	client := &Client{
		Logger:      logger,
		AppConfig:   cfg.appConfig,
		Vector:      wrappedVector,
		Metadata:    wrappedMetadata,
		Graph:       wrappedGraph,
		Embedder:    wrappedEmbedder,
		Breakers:    breakers,
		Retriever:   r,
		Invalidator: invalidator,
		Indexer:     indexer,
		Manifest:    manifestStore,
		Guard:       guard,
		Reporter:    reporter,
		Feedback:    feedbackService,
		Tools:       tools,
		sqlDB:       sqlDB,
	}

	if cfg.liveDataEnabled {
		liveServer, err := buildLiveData(cfg)
		if err != nil {
			return nil, err
		}
		liveServer.Register(tools)
		client.LiveData = liveServer
	}

	return client, nil
}

func buildLiveData(cfg clientConfig) (*livedata.Server, error) {
	if cfg.liveDataAuditPath == "" {
		return nil, fmt.Errorf("kodex: WithLiveData requires WithLiveDataAuditPath")
	}
	var adapter livedata.Adapter
	switch {
	case cfg.liveDataBridgeURL != "":
		adapter = livedata.NewBridgeAdapter(cfg.liveDataBridgeURL)
	case cfg.liveDataEmbeddedDB != nil:
		models := make([]string, 0, len(cfg.liveDataModels))
		for m := range cfg.liveDataModels {
			models = append(models, m)
		}
		sc := livedata.New(cfg.liveDataEmbeddedDB, livedata.Dialect(cfg.liveDataDialect))
		adapter = livedata.NewEmbeddedAdapter(sc, cfg.liveDataDialect, models)
	default:
		return nil, fmt.Errorf("kodex: WithLiveData requires WithLiveDataBridge or WithLiveDataEmbedded")
	}

	validator := live.NewModelValidator(cfg.liveDataModels)
	confirmation := live.NewConfirmation(cfg.liveDataConfirmMode, cfg.liveDataConfirmHook)
	audit, err := persistence.NewAuditLogger(cfg.liveDataAuditPath)
	if err != nil {
		return nil, fmt.Errorf("kodex: init live-data audit log: %w", err)
	}

	srv := livedata.NewServer(validator, confirmation, audit, cfg.liveDataRedacted, adapter)
	return srv, nil
}

// Retrieve is a convenience wrapper over Retriever.Retrieve using the
// format named by formatName ("markdown", "claude", "plain", "json"; any
// other value falls back to markdown).
func (c *Client) Retrieve(ctx context.Context, query string, budget int, formatName string) (retrieval.RetrievalResult, error) {
	if budget <= 0 {
		budget = c.AppConfig.RetrievalBudget()
	}
	formatter := retriever.FormatterFor(retriever.FormatName(formatName))
	return c.Retriever.Retrieve(ctx, query, budget, formatter)
}

func buildStructuralText(ctx context.Context, metadata store.MetadataStore) string {
	var b []byte
	b = append(b, "Codebase structure:\n"...)
	found := false
	for _, t := range structuralUnitTypes {
		units, err := metadata.FindByType(ctx, string(t))
		if err != nil || len(units) == 0 {
			continue
		}
		found = true
		b = append(b, fmt.Sprintf("- %s: %d\n", t, len(units))...)
	}
	if !found {
		return ""
	}
	return string(b)
}
