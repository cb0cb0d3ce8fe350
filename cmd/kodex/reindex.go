package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
)

func reindexCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Re-embed the units in the last recorded manifest",
		Long: `Replay the last extraction's ChangeManifest through the
IncrementalIndexer, re-embedding added/modified units. Useful
after switching embedding providers or recovering a partially-applied run;
does not re-diff content hashes -- run extract for that.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReindex(flags)
		},
	}
}

func runReindex(flags *globalFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	client, err := buildClient(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			client.Logger.Error("failed to close kodex client", slog.Any("error", err))
		}
	}()
	slogger := client.Logger.Slog()
	slogger.LogAttrs(context.Background(), slog.LevelDebug, "active configuration", cfg.LogAttrs()...)

	if client.Embedder == nil {
		return configErrorf("reindex requires an embedding provider; configure EMBEDDING_ENDPOINT_*")
	}
	if !client.Manifest.Exists() {
		return configErrorf("no manifest found at %s; run extract first", cfg.DataDir())
	}

	changeManifest, err := client.Manifest.Read()
	if err != nil {
		return runtimeErrorf("read manifest: %v", err)
	}

	ctx := context.Background()
	toLoad := append(append([]string{}, changeManifest.Changes.Added...), changeManifest.Changes.Modified...)
	units, err := client.Metadata.FindBatch(ctx, toLoad)
	if err != nil {
		return runtimeErrorf("load units: %v", err)
	}

	result, err := client.Indexer.Reindex(ctx, changeManifest.Changes, units)
	if err != nil {
		return runtimeErrorf("reindex: %v", err)
	}
	slogger.Info("reindex complete",
		slog.Int("embedded", result.Embedded), slog.Int("deleted", result.Deleted), slog.Int("skipped", result.Skipped))
	return nil
}
