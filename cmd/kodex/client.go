package main

import (
	"path/filepath"
	"strings"

	"github.com/kodexhq/kodex"
	"github.com/kodexhq/kodex/infrastructure/embedding"
	"github.com/kodexhq/kodex/internal/config"
)

// buildClient assembles a kodex.Client from the layered AppConfig: a SQL
// store selected from DBURL (SQLite by default, Postgres for any other
// scheme), an OpenAI embedding provider when EMBEDDING_ENDPOINT_* is
// configured, and manifest/guard/feedback state under the index dir.
func buildClient(cfg config.AppConfig) (*kodex.Client, error) {
	opts := []kodex.Option{
		kodex.WithAppConfig(cfg),
		kodex.WithManifestPath(filepath.Join(cfg.DataDir(), "manifest.json")),
		kodex.WithPipelineGuardPath(filepath.Join(cfg.DataDir(), "pipeline-guard.json")),
		kodex.WithFeedbackLogPath(filepath.Join(cfg.DataDir(), "feedback.jsonl")),
	}

	dbURL := cfg.DBURL()
	switch {
	case dbURL == "":
		opts = append(opts, kodex.WithSQLite(filepath.Join(cfg.DataDir(), "kodex.db")))
	case strings.HasPrefix(dbURL, "sqlite://"):
		opts = append(opts, kodex.WithSQLite(strings.TrimPrefix(strings.TrimPrefix(dbURL, "sqlite:///"), "sqlite://")))
	default:
		opts = append(opts, kodex.WithPostgres(dbURL))
	}

	if ep := cfg.EmbeddingEndpoint(); ep != nil && ep.IsConfigured() {
		var embOpts []embedding.Option
		if ep.Model() != "" {
			embOpts = append(embOpts, embedding.WithModel(ep.Model()))
		}
		if ep.BaseURL() != "" {
			embOpts = append(embOpts, embedding.WithBaseURL(ep.BaseURL()))
		}
		if ep.MaxRetries() > 0 {
			embOpts = append(embOpts, embedding.WithMaxRetries(ep.MaxRetries()))
		}
		if ep.InitialDelay() > 0 {
			embOpts = append(embOpts, embedding.WithInitialDelay(ep.InitialDelay()))
		}
		if ep.BackoffFactor() > 0 {
			embOpts = append(embOpts, embedding.WithBackoffFactor(ep.BackoffFactor()))
		}
		if ep.MaxBatchSize() > 0 {
			embOpts = append(embOpts, embedding.WithBatchSize(ep.MaxBatchSize()))
		}
		if ep.NumParallelTasks() > 0 {
			embOpts = append(embOpts, embedding.WithMaxParallelTasks(ep.NumParallelTasks()))
		}
		opts = append(opts, kodex.WithOpenAIEmbedding(ep.APIKey(), embOpts...))
	}

	client, err := kodex.New(opts...)
	if err != nil {
		return nil, runtimeErrorf("create kodex client: %v", err)
	}
	return client, nil
}
