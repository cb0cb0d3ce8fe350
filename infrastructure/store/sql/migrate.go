package sql

import (
	"context"
	"fmt"

	"github.com/kodexhq/kodex/internal/database"
)

// migration is one forward-only schema step, tracked in
// codebase_index_schema_migrations. Migrations are additive
// only -- they may add tables/columns/indexes, never drop data.
type migration struct {
	version int
	apply   func(ctx context.Context, db database.Database) error
}

var migrations = []migration{
	{
		version: 1,
		apply: func(ctx context.Context, db database.Database) error {
			return db.Session(ctx).AutoMigrate(&unitModel{}, &edgeModel{}, &embeddingModel{})
		},
	},
}

// Migrate applies every migration newer than the highest recorded version,
// recording each as it succeeds. It is safe to call on every startup.
func Migrate(ctx context.Context, db database.Database) error {
	sess := db.Session(ctx)
	if err := sess.AutoMigrate(&migrationModel{}); err != nil {
		return fmt.Errorf("sql store: migrate bookkeeping table: %w", err)
	}

	var applied []migrationModel
	if result := sess.Find(&applied); result.Error != nil {
		return fmt.Errorf("sql store: load applied migrations: %w", result.Error)
	}
	seen := make(map[int]bool, len(applied))
	for _, m := range applied {
		seen[m.Version] = true
	}

	for _, m := range migrations {
		if seen[m.version] {
			continue
		}
		if err := m.apply(ctx, db); err != nil {
			return fmt.Errorf("sql store: apply migration %d: %w", m.version, err)
		}
		if result := sess.Create(&migrationModel{Version: m.version}); result.Error != nil {
			return fmt.Errorf("sql store: record migration %d: %w", m.version, result.Error)
		}
	}
	return nil
}
