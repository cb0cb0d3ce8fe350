package sql

import (
	"context"

	"github.com/kodexhq/kodex/domain/manifest"
	"github.com/kodexhq/kodex/domain/store"
	"github.com/kodexhq/kodex/domain/unit"
	"github.com/kodexhq/kodex/internal/database"
	"gorm.io/gorm/clause"
)

// GraphStore is a GORM-backed GraphStore over the codebase_edges table.
// Forward edges persist one row per (source, target,
// relationship) tuple. DependentsOf queries that table by target_id, so
// dependents are never a stored back-reference; ByType queries
// codebase_units by unit_type; AffectedBy and PageRank load the edge set
// into a domain/manifest.DependencyGraph and delegate.
type GraphStore struct {
	db database.Database
}

// NewGraphStore constructs a GraphStore over db.
func NewGraphStore(db database.Database) *GraphStore {
	return &GraphStore{db: db}
}

// Register persists u's forward edges, replacing any previously stored for
// the same source.
func (s *GraphStore) Register(ctx context.Context, u unit.ExtractedUnit) error {
	sess := s.db.Session(ctx)
	if result := sess.Where("source_id = ?", u.Identifier()).Delete(&edgeModel{}); result.Error != nil {
		return store.NewGraphError("register", result.Error)
	}
	deps := u.Dependencies()
	if len(deps) == 0 {
		return nil
	}
	rows := make([]edgeModel, len(deps))
	for i, d := range deps {
		rows[i] = edgeModel{
			SourceID:     u.Identifier(),
			TargetID:     d.Target,
			Relationship: string(d.Via),
			Via:          string(d.Via),
			DepType:      d.Type,
		}
	}
	if result := sess.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows); result.Error != nil {
		return store.NewGraphError("register", result.Error)
	}
	return nil
}

// DependenciesOf returns id's forward edges.
func (s *GraphStore) DependenciesOf(ctx context.Context, id string) ([]unit.Dependency, error) {
	var rows []edgeModel
	if result := s.db.Session(ctx).Where("source_id = ?", id).Find(&rows); result.Error != nil {
		return nil, store.NewGraphError("dependencies_of", result.Error)
	}
	return toDependencies(rows, func(r edgeModel) string { return r.TargetID }), nil
}

// DependentsOf returns id's reverse edges, reconstructed from the forward
// table by querying target_id.
func (s *GraphStore) DependentsOf(ctx context.Context, id string) ([]unit.Dependency, error) {
	var rows []edgeModel
	if result := s.db.Session(ctx).Where("target_id = ?", id).Find(&rows); result.Error != nil {
		return nil, store.NewGraphError("dependents_of", result.Error)
	}
	return toDependencies(rows, func(r edgeModel) string { return r.SourceID }), nil
}

// ByType returns identifiers registered under type tag t.
func (s *GraphStore) ByType(ctx context.Context, t string) ([]string, error) {
	var rows []unitModel
	if result := s.db.Session(ctx).Where("unit_type = ?", t).Select("id").Find(&rows); result.Error != nil {
		return nil, store.NewGraphError("by_type", result.Error)
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out, nil
}

// AffectedBy returns every identifier whose file path is in paths, plus
// everything transitively dependent on them.
func (s *GraphStore) AffectedBy(ctx context.Context, paths []string) ([]string, error) {
	g, pathOf, err := s.loadGraph(ctx)
	if err != nil {
		return nil, store.NewGraphError("affected_by", err)
	}
	return g.AffectedBy(paths, pathOf), nil
}

// PageRank computes PageRank over the whole persisted edge set with the
// default damping factor (0.85), iteration cap (30), and
// convergence epsilon (1e-6).
func (s *GraphStore) PageRank(ctx context.Context) (map[string]float64, error) {
	g, _, err := s.loadGraph(ctx)
	if err != nil {
		return nil, store.NewGraphError("pagerank", err)
	}
	return g.PageRank(0.85, 30, 1e-6), nil
}

// loadGraph reconstructs an in-memory DependencyGraph from the codebase_units
// and codebase_edges tables.
func (s *GraphStore) loadGraph(ctx context.Context) (*manifest.DependencyGraph, map[string]string, error) {
	var units []unitModel
	if result := s.db.Session(ctx).Find(&units); result.Error != nil {
		return nil, nil, result.Error
	}
	var edges []edgeModel
	if result := s.db.Session(ctx).Find(&edges); result.Error != nil {
		return nil, nil, result.Error
	}

	depsBySource := make(map[string][]unit.Dependency)
	for _, e := range edges {
		depsBySource[e.SourceID] = append(depsBySource[e.SourceID], unit.Dependency{
			Target: e.TargetID,
			Type:   e.DepType,
			Via:    unit.DependencyVia(e.Via),
		})
	}

	g := manifest.NewDependencyGraph()
	pathOf := make(map[string]string, len(units))
	for _, row := range units {
		u, err := unit.New(row.ID, unit.Type(row.UnitType), row.Namespace, row.FilePath, nil, nil, depsBySource[row.ID])
		if err != nil {
			continue
		}
		g.Register(u)
		pathOf[row.ID] = row.FilePath
	}
	return g, pathOf, nil
}

func toDependencies(rows []edgeModel, other func(edgeModel) string) []unit.Dependency {
	out := make([]unit.Dependency, len(rows))
	for i, r := range rows {
		out[i] = unit.Dependency{Target: other(r), Type: r.DepType, Via: unit.DependencyVia(r.Via)}
	}
	return out
}

var _ store.GraphStore = (*GraphStore)(nil)
