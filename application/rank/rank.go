// Package rank implements the Ranker: RRF fusion, six-signal weighted
// scoring, diversity penalty, and a final stable sort.
package rank

import (
	"context"
	"sort"

	"github.com/kodexhq/kodex/domain/search"
	"github.com/kodexhq/kodex/domain/store"
	"github.com/kodexhq/kodex/domain/unit"
)

// Weights for the weighted-scoring stage; they sum to 1.0.
const (
	WeightSemantic  = 0.40
	WeightKeyword   = 0.10
	WeightRecency   = 0.10
	WeightImportance = 0.15
	WeightTypeMatch = 0.15
	WeightDiversity = 0.10
)

// Ranker merges, scores, and orders search candidates.
type Ranker struct {
	Metadata store.MetadataStore
}

// New constructs a Ranker over the given MetadataStore, used to materialize
// signals via a single FindBatch call.
func New(metadata store.MetadataStore) *Ranker {
	return &Ranker{Metadata: metadata}
}

// Rank fuses candidates (if they span >=2 sources), scores survivors, and
// returns them sorted by weighted score descending, ties broken by
// identifier ascending.
func (r *Ranker) Rank(ctx context.Context, ctxClassification search.Classification, candidates []search.Candidate) ([]search.Candidate, error) {
	fused := search.Fuse(candidates)
	if len(fused) == 0 {
		return fused, nil
	}

	ids := make([]string, len(fused))
	for i, c := range fused {
		ids[i] = c.Identifier
	}
	units, err := r.Metadata.FindBatch(ctx, ids)
	if err != nil {
		return nil, store.NewMetadataError("find_batch", err)
	}

	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].Identifier < fused[j].Identifier
	})

	diversitySeen := make(map[string]int)
	scored := make([]scoredCandidate, 0, len(fused))
	for _, c := range fused {
		u, ok := units[c.Identifier]
		diversityKey := ""
		if ok {
			diversityKey = u.Namespace() + "::" + string(u.Type())
		}
		count := diversitySeen[diversityKey]
		diversitySeen[diversityKey] = count + 1

		semantic := c.Score
		keyword := 0.3
		if c.Source == search.SourceKeyword {
			keyword = semantic
		}
		recency := recencySignal(u, ok)
		importance := importanceSignal(u, ok)
		typeMatch := typeMatchSignal(u, ok, ctxClassification.TargetType)
		penalty := diversityPenalty(count)
		diversity := 1.0 - penalty

		weighted := WeightSemantic*semantic + WeightKeyword*keyword + WeightRecency*recency +
			WeightImportance*importance + WeightTypeMatch*typeMatch + WeightDiversity*diversity

		scored = append(scored, scoredCandidate{candidate: c, weighted: weighted})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].weighted != scored[j].weighted {
			return scored[i].weighted > scored[j].weighted
		}
		return scored[i].candidate.Identifier < scored[j].candidate.Identifier
	})

	out := make([]search.Candidate, len(scored))
	for i, s := range scored {
		out[i] = s.candidate
		out[i].Score = s.weighted
	}
	return out, nil
}

type scoredCandidate struct {
	candidate search.Candidate
	weighted  float64
}

// diversityPenalty caps at 0.5, growing 0.15 per prior occurrence of the
// same (namespace,type) pair.
func diversityPenalty(countSeenBefore int) float64 {
	p := 0.15 * float64(countSeenBefore)
	if p > 0.5 {
		return 0.5
	}
	return p
}

func recencySignal(u unit.ExtractedUnit, ok bool) float64 {
	if !ok {
		return 0.5
	}
	switch u.MetadataString("change_frequency") {
	case "hot":
		return 1.0
	case "warm":
		return 0.7
	case "dormant":
		return 0.3
	default:
		return 0.5
	}
}

func importanceSignal(u unit.ExtractedUnit, ok bool) float64 {
	if !ok {
		return 0.5
	}
	switch u.MetadataString("importance") {
	case "high":
		return 1.0
	case "medium":
		return 0.7
	case "low":
		return 0.3
	default:
		return 0.5
	}
}

func typeMatchSignal(u unit.ExtractedUnit, ok bool, targetType string) float64 {
	if targetType == "" {
		return 0.5
	}
	if !ok {
		return 0.0
	}
	if string(u.Type()) == targetType {
		return 1.0
	}
	return 0.0
}
