package sql

import (
	"encoding/json"

	"github.com/kodexhq/kodex/domain/unit"
)

// unitMapper implements internal/database.EntityMapper[unit.ExtractedUnit,
// unitModel], following the teacher's ToDomain/ToModel convention.
type unitMapper struct{}

func (unitMapper) ToDomain(m unitModel) unit.ExtractedUnit {
	var metadata map[string]any
	if m.Metadata != "" {
		_ = json.Unmarshal([]byte(m.Metadata), &metadata)
	}
	var deps []unit.Dependency
	if m.Dependencies != "" {
		_ = json.Unmarshal([]byte(m.Dependencies), &deps)
	}
	var source *string
	if m.HasSource {
		s := m.SourceCode
		source = &s
	}
	u, err := unit.New(m.ID, unit.Type(m.UnitType), m.Namespace, m.FilePath, source, metadata, deps)
	if err != nil {
		// The row was written by this same mapper, so a construction error
		// here means stored data has been corrupted out of band; surface an
		// empty-but-identified unit rather than panicking the caller.
		u, _ = unit.New(m.ID, unit.TypeRubyClass, m.Namespace, m.FilePath, nil, nil, nil)
	}
	return u
}

func (unitMapper) ToModel(u unit.ExtractedUnit) unitModel {
	metadataJSON, _ := json.Marshal(u.Metadata())
	depsJSON, _ := json.Marshal(u.Dependencies())

	m := unitModel{
		ID:           u.Identifier(),
		UnitType:     string(u.Type()),
		Namespace:    u.Namespace(),
		FilePath:     u.FilePath(),
		Metadata:     string(metadataJSON),
		Dependencies: string(depsJSON),
	}
	if src := u.SourceCode(); src != nil {
		m.SourceCode = *src
		m.HasSource = true
	}
	return m
}
