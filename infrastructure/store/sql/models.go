// Package sql provides GORM-backed VectorStore/MetadataStore/GraphStore
// implementations over SQLite or Postgres, generalized from the teacher's
// embedding_store_sqlite.go + internal/database.Repository idiom onto the
// ExtractedUnit/Candidate model.
package sql

import "time"

// unitModel is the GORM entity behind the codebase_units table.
type unitModel struct {
	ID           string `gorm:"column:id;primaryKey"`
	UnitType     string `gorm:"column:unit_type;index"`
	Namespace    string `gorm:"column:namespace;index"`
	FilePath     string `gorm:"column:file_path"`
	SourceCode   string `gorm:"column:source_code"`
	HasSource    bool   `gorm:"column:has_source"`
	Metadata     string `gorm:"column:metadata"`
	Dependencies string `gorm:"column:dependencies"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName pins the GORM table name for this store's schema.
func (unitModel) TableName() string { return "codebase_units" }

// edgeModel is the GORM entity behind the codebase_edges table.
type edgeModel struct {
	SourceID     string `gorm:"column:source_id;uniqueIndex:idx_codebase_edge"`
	TargetID     string `gorm:"column:target_id;uniqueIndex:idx_codebase_edge"`
	Relationship string `gorm:"column:relationship;uniqueIndex:idx_codebase_edge"`
	Via          string `gorm:"column:via"`
	DepType      string `gorm:"column:dep_type"`
}

// TableName pins the GORM table name for this store's schema.
func (edgeModel) TableName() string { return "codebase_edges" }

// embeddingModel is the GORM entity behind the codebase_embeddings table.
type embeddingModel struct {
	ID        string `gorm:"column:id;primaryKey"`
	Embedding string `gorm:"column:embedding"`
	Metadata  string `gorm:"column:metadata"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the GORM table name for this store's schema.
func (embeddingModel) TableName() string { return "codebase_embeddings" }

// migrationModel is the GORM entity behind the forward-only
// codebase_index_schema_migrations table.
type migrationModel struct {
	Version   int       `gorm:"column:version;primaryKey"`
	AppliedAt time.Time `gorm:"column:applied_at"`
}

// TableName pins the GORM table name for this store's schema.
func (migrationModel) TableName() string { return "codebase_index_schema_migrations" }
