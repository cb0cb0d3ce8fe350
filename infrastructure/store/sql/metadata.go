package sql

import (
	"context"
	"errors"
	"strings"

	"github.com/kodexhq/kodex/domain/store"
	"github.com/kodexhq/kodex/domain/unit"
	"github.com/kodexhq/kodex/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MetadataStore is a GORM-backed MetadataStore over the codebase_units
// table, grounded on the teacher's Repository[D,E] generic CRUD
// idiom (internal/database/repository.go).
type MetadataStore struct {
	repo database.Repository[unit.ExtractedUnit, unitModel]
	db   database.Database
}

// NewMetadataStore constructs a MetadataStore over db.
func NewMetadataStore(db database.Database) *MetadataStore {
	return &MetadataStore{
		repo: database.NewRepository[unit.ExtractedUnit, unitModel](db, unitMapper{}, "codebase unit"),
		db:   db,
	}
}

// Store upserts u by identifier.
func (s *MetadataStore) Store(ctx context.Context, u unit.ExtractedUnit) error {
	m := unitMapper{}.ToModel(u)
	result := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"unit_type", "namespace", "file_path", "source_code", "has_source", "metadata", "dependencies", "updated_at"}),
	}).Create(&m)
	if result.Error != nil {
		return store.NewMetadataError("store", result.Error)
	}
	return nil
}

// Find looks up a single unit by identifier. The repository-level
// store.With* helpers assume "identifier"/"type" column names; this store's
// columns follow the codebase_units schema (id, unit_type) verbatim, so lookups
// build their Where clause directly rather than through those helpers.
func (s *MetadataStore) Find(ctx context.Context, id string) (unit.ExtractedUnit, bool, error) {
	var row unitModel
	result := s.db.Session(ctx).Where("id = ?", id).First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return unit.ExtractedUnit{}, false, nil
		}
		return unit.ExtractedUnit{}, false, store.NewMetadataError("find", result.Error)
	}
	return unitMapper{}.ToDomain(row), true, nil
}

// FindBatch looks up several identifiers at once, silently omitting any not
// found.
func (s *MetadataStore) FindBatch(ctx context.Context, ids []string) (map[string]unit.ExtractedUnit, error) {
	var rows []unitModel
	if result := s.db.Session(ctx).Where("id IN ?", ids).Find(&rows); result.Error != nil {
		return nil, store.NewMetadataError("find_batch", result.Error)
	}
	out := make(map[string]unit.ExtractedUnit, len(rows))
	for _, r := range rows {
		u := unitMapper{}.ToDomain(r)
		out[u.Identifier()] = u
	}
	return out, nil
}

// FindByType returns every unit of the given type, ordered by identifier.
func (s *MetadataStore) FindByType(ctx context.Context, t string) ([]unit.ExtractedUnit, error) {
	var rows []unitModel
	if result := s.db.Session(ctx).Where("unit_type = ?", t).Order("id ASC").Find(&rows); result.Error != nil {
		return nil, store.NewMetadataError("find_by_type", result.Error)
	}
	out := make([]unit.ExtractedUnit, len(rows))
	for i, r := range rows {
		out[i] = unitMapper{}.ToDomain(r)
	}
	return out, nil
}

// Search performs a case-insensitive substring match across the named
// metadata string fields (identifier, file_path, source_code, metadata-
// as-json), falling back to identifier+file_path when fields is empty.
func (s *MetadataStore) Search(ctx context.Context, query string, fields []string, limit int) ([]unit.ExtractedUnit, error) {
	if len(fields) == 0 {
		fields = []string{"identifier", "file_path"}
	}
	columns := make(map[string]string, len(fields))
	columns["identifier"] = "id"
	columns["file_path"] = "file_path"
	columns["source_code"] = "source_code"
	columns["metadata"] = "metadata"

	needle := "%" + strings.ToLower(query) + "%"
	db := s.db.Session(ctx).Model(&unitModel{})
	var clauses []string
	var args []any
	for _, f := range fields {
		col, ok := columns[f]
		if !ok {
			continue
		}
		clauses = append(clauses, "LOWER("+col+") LIKE ?")
		args = append(args, needle)
	}
	if len(clauses) == 0 {
		return nil, nil
	}
	db = db.Where(strings.Join(clauses, " OR "), args...).Order("id ASC")
	if limit > 0 {
		db = db.Limit(limit)
	}

	var rows []unitModel
	if result := db.Find(&rows); result.Error != nil {
		return nil, store.NewMetadataError("search", result.Error)
	}
	out := make([]unit.ExtractedUnit, len(rows))
	for i, r := range rows {
		out[i] = unitMapper{}.ToDomain(r)
	}
	return out, nil
}

// Delete removes the unit for id, if present.
func (s *MetadataStore) Delete(ctx context.Context, id string) error {
	if result := s.db.Session(ctx).Where("id = ?", id).Delete(&unitModel{}); result.Error != nil {
		return store.NewMetadataError("delete", result.Error)
	}
	return nil
}

// Count returns the number of stored units.
func (s *MetadataStore) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, store.NewMetadataError("count", err)
	}
	return int(n), nil
}

var _ store.MetadataStore = (*MetadataStore)(nil)
