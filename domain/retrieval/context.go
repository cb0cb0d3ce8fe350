// Package retrieval holds the output value types of a retrieval pipeline
// run: AssembledContext, RetrievalResult, and RetrievalTrace.
package retrieval

// Section names the budgeted regions of an assembled context, in the order
// they are emitted.
type Section string

// Closed set of sections.
const (
	SectionStructural Section = "structural"
	SectionPrimary    Section = "primary"
	SectionSupporting Section = "supporting"
	SectionFramework  Section = "framework"
)

// AllSections is the canonical section order.
var AllSections = []Section{SectionStructural, SectionPrimary, SectionSupporting, SectionFramework}

// SourceEntry records one unit's contribution to an AssembledContext. A unit
// appearing in two sections (never possible with the current membership
// rules but left general ) is entered once per section.
type SourceEntry struct {
	Identifier string
	Type       string
	Score      float64
	FilePath   string
	Truncated  bool
}

// AssembledContext is the token-budgeted text produced by the
// ContextAssembler.
type AssembledContext struct {
	Text       string
	TokensUsed int
	Budget     int
	Sources    []SourceEntry
	Sections   []Section
}
