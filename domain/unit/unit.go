// Package unit defines ExtractedUnit and Chunk, the indivisible objects of
// retrieval, and the closed vocabularies they are tagged with.
package unit

import "fmt"

// Type is the closed tag set an ExtractedUnit's type must belong to.
type Type string

// Closed set of unit types.
const (
	TypeModel          Type = "model"
	TypeController     Type = "controller"
	TypeService        Type = "service"
	TypeJob            Type = "job"
	TypeMailer         Type = "mailer"
	TypeComponent      Type = "component"
	TypeGraphQLMutation Type = "graphql_mutation"
	TypeGraphQLResolver Type = "graphql_resolver"
	TypeGraphQLType     Type = "graphql_type"
	TypeRailsSource     Type = "rails_source"
	TypeDecorator       Type = "decorator"
	TypeConcern         Type = "concern"
	TypePolicy          Type = "policy"
	TypeValidator       Type = "validator"
	TypeManager         Type = "manager"
	TypeRubyClass       Type = "ruby_class"
	TypeRubyMethod      Type = "ruby_method"
)

var validTypes = map[Type]struct{}{
	TypeModel: {}, TypeController: {}, TypeService: {}, TypeJob: {},
	TypeMailer: {}, TypeComponent: {}, TypeGraphQLMutation: {},
	TypeGraphQLResolver: {}, TypeGraphQLType: {}, TypeRailsSource: {},
	TypeDecorator: {}, TypeConcern: {}, TypePolicy: {}, TypeValidator: {},
	TypeManager: {}, TypeRubyClass: {}, TypeRubyMethod: {},
}

// Valid reports whether t belongs to the closed type set.
func (t Type) Valid() bool {
	_, ok := validTypes[t]
	return ok
}

// IsGraphQL reports whether t is one of the graphql_* tags.
func (t Type) IsGraphQL() bool {
	switch t {
	case TypeGraphQLMutation, TypeGraphQLResolver, TypeGraphQLType:
		return true
	default:
		return false
	}
}

// DependencyVia is the closed set of relationship kinds a Dependency may
// carry.
type DependencyVia string

// Closed set of dependency relationship kinds.
const (
	ViaAssociation   DependencyVia = "association"
	ViaCodeReference DependencyVia = "code_reference"
	ViaMethodCall    DependencyVia = "method_call"
	ViaInheritance   DependencyVia = "inheritance"
	ViaInclude       DependencyVia = "include"
	ViaExtend        DependencyVia = "extend"
	ViaReference     DependencyVia = "reference"
)

var validVia = map[DependencyVia]struct{}{
	ViaAssociation: {}, ViaCodeReference: {}, ViaMethodCall: {},
	ViaInheritance: {}, ViaInclude: {}, ViaExtend: {}, ViaReference: {},
}

// Valid reports whether v belongs to the closed via set.
func (v DependencyVia) Valid() bool {
	_, ok := validVia[v]
	return ok
}

// Dependency is a directed edge from one unit to another, annotated with the
// relationship kind and the literal construct that produced it.
type Dependency struct {
	Target string        `json:"target"`
	Type   string        `json:"type"`
	Via    DependencyVia `json:"via"`
}

// ChunkType is the closed set of semantic labels a Chunk may carry.
type ChunkType string

// Closed set of chunk types. The action_* family is open-ended (one chunk
// type per controller action); ActionPrefix identifies the family.
const (
	ChunkSummary     ChunkType = "summary"
	ChunkAssociations ChunkType = "associations"
	ChunkValidations  ChunkType = "validations"
	ChunkCallbacks    ChunkType = "callbacks"
	ChunkMethods      ChunkType = "methods"
	ChunkScopes       ChunkType = "scopes"
	ChunkWhole        ChunkType = "whole"
	ActionPrefix                = "action_"
)

// IsAction reports whether t is an action_* chunk type.
func (t ChunkType) IsAction() bool {
	return len(t) > len(ActionPrefix) && string(t[:len(ActionPrefix)]) == ActionPrefix
}

// Chunk is a semantically-labeled fragment of a unit's source, embedded and
// retrieved independently of its parent.
type Chunk struct {
	identifier string
	unitID     string
	chunkType  ChunkType
	sourceCode string
}

// NewChunk constructs a Chunk parent-linked to unitID.
func NewChunk(identifier, unitID string, chunkType ChunkType, sourceCode string) Chunk {
	return Chunk{identifier: identifier, unitID: unitID, chunkType: chunkType, sourceCode: sourceCode}
}

// Identifier returns the chunk's own identifier, distinct from its parent unit.
func (c Chunk) Identifier() string { return c.identifier }

// UnitID returns the parent unit's identifier.
func (c Chunk) UnitID() string { return c.unitID }

// ChunkType returns the chunk's semantic label.
func (c Chunk) ChunkType() ChunkType { return c.chunkType }

// SourceCode returns the chunk's source fragment.
func (c Chunk) SourceCode() string { return c.sourceCode }

// ExtractedUnit is a named, typed program element extracted from the
// repository -- the indivisible object of retrieval.
type ExtractedUnit struct {
	identifier   string
	unitType     Type
	namespace    string
	filePath     string
	sourceCode   *string
	metadata     map[string]any
	dependencies []Dependency
	dependents   []Dependency
	chunks       []Chunk
}

// New constructs an ExtractedUnit. metadata is copied defensively.
func New(identifier string, unitType Type, namespace, filePath string, sourceCode *string, metadata map[string]any, dependencies []Dependency) (ExtractedUnit, error) {
	if identifier == "" {
		return ExtractedUnit{}, fmt.Errorf("unit: identifier must not be empty")
	}
	if !unitType.Valid() {
		return ExtractedUnit{}, fmt.Errorf("unit: invalid type %q for %s", unitType, identifier)
	}
	for _, d := range dependencies {
		if !d.Via.Valid() {
			return ExtractedUnit{}, fmt.Errorf("unit: dependency of %s has invalid via %q", identifier, d.Via)
		}
	}
	u := ExtractedUnit{
		identifier: identifier,
		unitType:   unitType,
		namespace:  namespace,
		filePath:   filePath,
		sourceCode: sourceCode,
	}
	if metadata != nil {
		u.metadata = make(map[string]any, len(metadata))
		for k, v := range metadata {
			u.metadata[k] = v
		}
	}
	if dependencies != nil {
		u.dependencies = append([]Dependency(nil), dependencies...)
	}
	return u, nil
}

// Identifier returns the unit's globally unique identifier.
func (u ExtractedUnit) Identifier() string { return u.identifier }

// Type returns the unit's closed-set type tag.
func (u ExtractedUnit) Type() Type { return u.unitType }

// Namespace returns the unit's namespace.
func (u ExtractedUnit) Namespace() string { return u.namespace }

// FilePath returns the source file path the unit was extracted from.
func (u ExtractedUnit) FilePath() string { return u.filePath }

// SourceCode returns the raw source text, or nil if extraction omitted it.
func (u ExtractedUnit) SourceCode() *string { return u.sourceCode }

// Metadata returns a defensive copy of the unit's open metadata map.
func (u ExtractedUnit) Metadata() map[string]any {
	if u.metadata == nil {
		return nil
	}
	result := make(map[string]any, len(u.metadata))
	for k, v := range u.metadata {
		result[k] = v
	}
	return result
}

// MetadataString reads a string-valued metadata key, returning "" if absent
// or of the wrong type.
func (u ExtractedUnit) MetadataString(key string) string {
	v, ok := u.metadata[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Dependencies returns a defensive copy of the unit's forward edges.
func (u ExtractedUnit) Dependencies() []Dependency {
	return append([]Dependency(nil), u.dependencies...)
}

// Dependents returns a defensive copy of the unit's reverse edges, computed
// and attached by the GraphStore on load -- never persisted on the unit
// itself.
func (u ExtractedUnit) Dependents() []Dependency {
	return append([]Dependency(nil), u.dependents...)
}

// WithDependents returns a copy of u with its reverse edges populated.
func (u ExtractedUnit) WithDependents(dependents []Dependency) ExtractedUnit {
	u.dependents = append([]Dependency(nil), dependents...)
	return u
}

// Chunks returns the unit's sub-fragments, if extraction produced any.
func (u ExtractedUnit) Chunks() []Chunk {
	return append([]Chunk(nil), u.chunks...)
}

// WithChunks returns a copy of u with chunks attached.
func (u ExtractedUnit) WithChunks(chunks []Chunk) ExtractedUnit {
	u.chunks = append([]Chunk(nil), chunks...)
	return u
}
