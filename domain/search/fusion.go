package search

import "sort"

// FusionK is the Reciprocal Rank Fusion damping constant.
const FusionK = 60.0

// Fuse merges candidates from one or more sources via Reciprocal Rank
// Fusion. Ranks are 1-based: for each source, candidates are sorted by
// per-source score descending, and an identifier at rank r within that
// source contributes 1/(K+r) to its fused score, so an identifier present
// in only one source gets that single term. When the candidates span fewer
// than two sources, no fusion happens: duplicates are collapsed and scores
// pass through unchanged.
// Output has exactly one Candidate per identifier; Source is the strongest
// original source for that id (highest original score); Metadata is merged,
// last-write-wins for scalars, concatenated for slices, in source-processing
// order (sources sorted for determinism).
func Fuse(candidates []Candidate) []Candidate {
	bySource := make(map[Source][]Candidate)
	var sourceOrder []Source
	for _, c := range candidates {
		if _, ok := bySource[c.Source]; !ok {
			sourceOrder = append(sourceOrder, c.Source)
		}
		bySource[c.Source] = append(bySource[c.Source], c)
	}
	sort.Slice(sourceOrder, func(i, j int) bool { return sourceOrder[i] < sourceOrder[j] })

	if len(sourceOrder) < 2 {
		return dedupeSingleSource(candidates)
	}

	type accum struct {
		fused       float64
		best        Candidate
		bestScore   float64
		metadata    map[string]any
	}
	acc := make(map[string]*accum)
	var order []string

	for _, src := range sourceOrder {
		list := append([]Candidate(nil), bySource[src]...)
		sort.SliceStable(list, func(i, j int) bool { return list[i].Score > list[j].Score })
		for rank, c := range list {
			r := rank + 1 // 1-based
			a, ok := acc[c.Identifier]
			if !ok {
				a = &accum{metadata: map[string]any{}}
				acc[c.Identifier] = a
				order = append(order, c.Identifier)
			}
			a.fused += 1.0 / (FusionK + float64(r))
			if c.Score > a.bestScore || a.best.Identifier == "" {
				a.bestScore = c.Score
				a.best = c
			}
			mergeMetadata(a.metadata, c.Metadata)
		}
	}

	out := make([]Candidate, 0, len(order))
	for _, id := range order {
		a := acc[id]
		out = append(out, Candidate{
			Identifier: id,
			Score:      a.fused,
			Source:     a.best.Source,
			Metadata:   a.metadata,
		})
	}
	return out
}

// dedupeSingleSource handles the zero- or one-source case: no RRF applies,
// but duplicate identifiers (possible even within a single strategy, e.g.
// direct plus a fallthrough) still collapse to one candidate, keeping the
// highest-scoring occurrence.
func dedupeSingleSource(candidates []Candidate) []Candidate {
	best := make(map[string]Candidate)
	var order []string
	for _, c := range candidates {
		existing, ok := best[c.Identifier]
		if !ok {
			order = append(order, c.Identifier)
			best[c.Identifier] = c.Clone()
			continue
		}
		merged := existing
		if c.Score > merged.Score {
			merged.Score = c.Score
			merged.Source = c.Source
		}
		if merged.Metadata == nil {
			merged.Metadata = map[string]any{}
		}
		mergeMetadata(merged.Metadata, c.Metadata)
		best[c.Identifier] = merged
	}
	out := make([]Candidate, 0, len(order))
	for _, id := range order {
		out = append(out, best[id])
	}
	return out
}

// mergeMetadata merges src into dst: scalars are last-write-wins, slice
// values are concatenated.
func mergeMetadata(dst map[string]any, src map[string]any) {
	for k, v := range src {
		existing, ok := dst[k]
		if !ok {
			dst[k] = v
			continue
		}
		if es, ok := existing.([]any); ok {
			if vs, ok := v.([]any); ok {
				dst[k] = append(append([]any(nil), es...), vs...)
				continue
			}
		}
		dst[k] = v
	}
}
