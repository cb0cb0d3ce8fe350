// Package assemble implements the ContextAssembler: a token-budgeted,
// section-structured text builder over ranked candidates. Assembly is a
// deliberately non-backtracking single pass: it over-reserves per section
// and rolls unused budget forward, so the algorithm is O(n) in candidates.
package assemble

import (
	"context"
	"fmt"
	"strings"

	"github.com/kodexhq/kodex/domain/retrieval"
	"github.com/kodexhq/kodex/domain/search"
	"github.com/kodexhq/kodex/domain/store"
	"github.com/kodexhq/kodex/domain/unit"
)

// DefaultBudget is the hard token budget used when the caller does not
// override it.
const DefaultBudget = 8000

// HeaderAllowance is the per-unit header token reservation subtracted from
// a section's remaining budget when deciding whether to truncate.
const HeaderAllowance = 50

// MinUsefulTokens is the minimum body size (beyond the header allowance) a
// truncated unit must retain to be worth including at all.
const MinUsefulTokens = 200

// sectionOrder is the order in which sections are filled.
var sectionOrder = []retrieval.Section{
	retrieval.SectionStructural, retrieval.SectionPrimary, retrieval.SectionSupporting, retrieval.SectionFramework,
}

// sectionFractions are the budget allocation fractions, summing to 1.0;
// unused fraction in an earlier section rolls forward additively.
var sectionFractions = map[retrieval.Section]float64{
	retrieval.SectionStructural: 0.10,
	retrieval.SectionPrimary:    0.45,
	retrieval.SectionSupporting: 0.25,
	retrieval.SectionFramework:  0.20,
}

// EstimateTokens is a deterministic token estimator: ceil(bytes/4.0),
// never a real tokenizer.
func EstimateTokens(s string) int {
	if len(s) == 0 {
		return 0
	}
	return (len(s) + 3) / 4
}

// Assembler builds an AssembledContext from ranked candidates.
type Assembler struct {
	Metadata store.MetadataStore
}

// New constructs an Assembler over the given MetadataStore.
func New(metadata store.MetadataStore) *Assembler {
	return &Assembler{Metadata: metadata}
}

// Assemble builds a budgeted context. structuralText is caller-provided
// overview text (e.g. unit counts by type); it is included as-is if
// non-empty.
func (a *Assembler) Assemble(ctx context.Context, candidates []search.Candidate, classification search.Classification, structuralText string, budget int) (retrieval.AssembledContext, error) {
	if budget <= 0 {
		budget = DefaultBudget
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.Identifier
	}
	units, err := a.Metadata.FindBatch(ctx, ids)
	if err != nil {
		return retrieval.AssembledContext{}, store.NewMetadataError("find_batch", err)
	}

	primary, supporting, framework := partition(candidates, units, classification)

	var b strings.Builder
	var sources []retrieval.SourceEntry
	var activeSections []retrieval.Section
	totalUsed := 0
	carry := 0.0

	emit := func(section retrieval.Section, frac float64, body func(remaining int) (int, []retrieval.SourceEntry, string)) {
		sectionBudget := int((frac)*float64(budget) + carry)
		if sectionBudget < 0 {
			sectionBudget = 0
		}
		used, entries, text := body(sectionBudget)
		unused := sectionBudget - used
		if unused > 0 {
			carry = float64(unused)
		} else {
			carry = 0
		}
		if text != "" {
			if b.Len() > 0 {
				b.WriteString("\n---\n")
			}
			b.WriteString(text)
			activeSections = append(activeSections, section)
		}
		totalUsed += used
		sources = append(sources, entries...)
	}

	emit(retrieval.SectionStructural, sectionFractions[retrieval.SectionStructural], func(remaining int) (int, []retrieval.SourceEntry, string) {
		if structuralText == "" {
			return 0, nil, ""
		}
		tokens := EstimateTokens(structuralText)
		if tokens > remaining {
			return 0, nil, ""
		}
		return tokens, nil, structuralText
	})

	emit(retrieval.SectionPrimary, sectionFractions[retrieval.SectionPrimary], func(remaining int) (int, []retrieval.SourceEntry, string) {
		return renderSection(primary, units, remaining, &totalUsed, budget)
	})

	emit(retrieval.SectionSupporting, sectionFractions[retrieval.SectionSupporting], func(remaining int) (int, []retrieval.SourceEntry, string) {
		return renderSection(supporting, units, remaining, &totalUsed, budget)
	})

	emit(retrieval.SectionFramework, sectionFractions[retrieval.SectionFramework], func(remaining int) (int, []retrieval.SourceEntry, string) {
		return renderSection(framework, units, remaining, &totalUsed, budget)
	})

	return retrieval.AssembledContext{
		Text:       b.String(),
		TokensUsed: totalUsed,
		Budget:     budget,
		Sources:    sources,
		Sections:   activeSections,
	}, nil
}

func partition(candidates []search.Candidate, units map[string]unit.ExtractedUnit, classification search.Classification) (primary, supporting, framework []search.Candidate) {
	for _, c := range candidates {
		u, ok := units[c.Identifier]
		if ok && u.Type() == unit.TypeRailsSource && classification.FrameworkContext {
			framework = append(framework, c)
			continue
		}
		if c.Source == search.SourceGraphExpansion {
			supporting = append(supporting, c)
			continue
		}
		primary = append(primary, c)
	}
	return
}

// renderSection formats candidates in ranked order until the section's
// remaining budget and the overall budget are exhausted. It respects the
// invariant tokens_used <= budget + header overhead: once totalUsed would
// exceed the overall budget, later candidates are dropped wholesale, never
// partially included.
func renderSection(candidates []search.Candidate, units map[string]unit.ExtractedUnit, sectionRemaining int, totalUsedSoFar *int, overallBudget int) (int, []retrieval.SourceEntry, string) {
	var b strings.Builder
	var entries []retrieval.SourceEntry
	used := 0

	for i, c := range candidates {
		u, ok := units[c.Identifier]
		if !ok {
			continue
		}
		if *totalUsedSoFar+used >= overallBudget {
			break
		}

		header := fmt.Sprintf("## %s (%s)\n%s\n", u.Identifier(), u.Type(), u.FilePath())
		headerTokens := EstimateTokens(header)

		source := ""
		if u.SourceCode() != nil {
			source = *u.SourceCode()
		}
		bodyTokens := EstimateTokens(source)

		remaining := sectionRemaining - used
		entry := retrieval.SourceEntry{Identifier: u.Identifier(), Type: string(u.Type()), Score: c.Score, FilePath: u.FilePath()}

		if headerTokens+bodyTokens <= remaining {
			if i > 0 {
				b.WriteString("---\n")
			}
			b.WriteString(header)
			b.WriteString(source)
			b.WriteString("\n")
			used += headerTokens + bodyTokens
			entries = append(entries, entry)
			continue
		}

		availableForBody := remaining - headerTokens - HeaderAllowance
		if availableForBody < MinUsefulTokens {
			continue // skip entirely: not even the minimum useful body fits
		}
		truncatedBytes := availableForBody * 4
		if truncatedBytes > len(source) {
			truncatedBytes = len(source)
		}
		truncated := source[:truncatedBytes] + "\n… [truncated]"
		truncatedTokens := EstimateTokens(truncated)

		if i > 0 {
			b.WriteString("---\n")
		}
		b.WriteString(header)
		b.WriteString(truncated)
		b.WriteString("\n")
		used += headerTokens + truncatedTokens
		entry.Truncated = true
		entries = append(entries, entry)
	}

	return used, entries, b.String()
}
