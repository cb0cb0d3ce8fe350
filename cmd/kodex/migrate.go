package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	sqlstore "github.com/kodexhq/kodex/infrastructure/store/sql"
	"github.com/kodexhq/kodex/internal/database"
)

func migrateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the SQL store's schema migrations",
		Long: `Open the configured database (DB_URL, defaulting to sqlite under the
index dir) and bring the codebase_units/codebase_edges/codebase_embeddings
tables up to date.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(flags)
		},
	}
}

func runMigrate(flags *globalFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	dsn := cfg.DBURL()
	if dsn == "" {
		dsn = "sqlite:///" + filepath.Join(cfg.DataDir(), "kodex.db")
	} else if !strings.Contains(dsn, "://") {
		dsn = "sqlite:///" + dsn
	}

	ctx := context.Background()
	db, err := database.NewDatabase(ctx, dsn)
	if err != nil {
		return configErrorf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := sqlstore.Migrate(ctx, db); err != nil {
		return runtimeErrorf("apply migrations: %v", err)
	}
	fmt.Println("migrations applied")
	return nil
}
