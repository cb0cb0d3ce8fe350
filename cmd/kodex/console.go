package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/kodexhq/kodex"
	"github.com/kodexhq/kodex/domain/live"
	"github.com/kodexhq/kodex/infrastructure/toolserver"
)

func consoleCmd(flags *globalFlags) *cobra.Command {
	var (
		modelsPath string
		redact     []string
		auditPath  string
		bridgeURL  string
		embeddedDB string
		dialect    string
	)

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Start the stdio live-data console server",
		Long: `Start the stdio Tier 1-4 live-data console: safe, read-mostly
introspection of a target application's database, either bridged to that
application's own tool server (--live-data-bridge) or run directly over a
database connection in this process (--live-data-db).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(flags, modelsPath, redact, auditPath, bridgeURL, embeddedDB, dialect)
		},
	}

	cmd.Flags().StringVar(&modelsPath, "live-data-models", "", "Path to a JSON file mapping model name to allowed column names (required)")
	cmd.Flags().StringSliceVar(&redact, "live-data-redact", nil, "Column names to redact in every returned row")
	cmd.Flags().StringVar(&auditPath, "live-data-audit-log", "", "Path to the live-data audit log (default: <index-dir>/live-audit.jsonl)")
	cmd.Flags().StringVar(&bridgeURL, "live-data-bridge", "", "Bridge mode: URL of the target application's own tool server")
	cmd.Flags().StringVar(&embeddedDB, "live-data-db", "", "Embedded mode: sqlite DSN of the target application's database")
	cmd.Flags().StringVar(&dialect, "live-data-dialect", "sqlite", "Embedded mode dialect: sqlite or postgres")

	return cmd
}

func runConsole(flags *globalFlags, modelsPath string, redact []string, auditPath, bridgeURL, embeddedDB, dialect string) error {
	if modelsPath == "" {
		return usageErrorf("--live-data-models is required")
	}
	models, err := loadModelRegistry(modelsPath)
	if err != nil {
		return configErrorf("load live-data model registry: %v", err)
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if auditPath == "" {
		auditPath = cfg.DataDir() + "/live-audit.jsonl"
	}

	opts := []kodex.Option{
		kodex.WithAppConfig(cfg),
		kodex.WithLiveData(models, redact),
		kodex.WithLiveDataAuditPath(auditPath),
		kodex.WithLiveDataConfirmation(live.ConfirmationMode(cfg.LiveDataConfirmMode()), nil),
	}

	switch {
	case bridgeURL != "":
		opts = append(opts, kodex.WithLiveDataBridge(bridgeURL))
	case embeddedDB != "":
		driver := "sqlite3"
		if dialect == "postgres" {
			driver = "pgx"
		}
		db, err := sql.Open(driver, embeddedDB)
		if err != nil {
			return runtimeErrorf("open live-data database: %v", err)
		}
		defer func() { _ = db.Close() }()
		opts = append(opts, kodex.WithLiveDataEmbedded(db, dialect))
	default:
		return usageErrorf("one of --live-data-bridge or --live-data-db is required")
	}

	client, err := kodex.New(opts...)
	if err != nil {
		return runtimeErrorf("create kodex client: %v", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			client.Logger.Error("failed to close kodex client", slog.Any("error", err))
		}
	}()

	slogger := client.Logger.Slog()
	slogger.Info("starting kodex live-data console", slog.String("version", version))
	slogger.LogAttrs(context.Background(), slog.LevelDebug, "active configuration", cfg.LogAttrs()...)

	// WithLiveData already registered the live-data tools onto client.Tools
	// alongside the retrieval tools (see kodex.New), so the console serves
	// the same combined registry stdio uses.
	if err := toolserver.ServeStdio(context.Background(), client.Tools, os.Stdin, os.Stdout, slogger); err != nil {
		return runtimeErrorf("console server error: %v", err)
	}
	return nil
}

func loadModelRegistry(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var models map[string][]string
	if err := json.Unmarshal(data, &models); err != nil {
		return nil, err
	}
	return models, nil
}
