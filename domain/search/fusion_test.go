package search

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuseRRFScore(t *testing.T) {
	candidates := []Candidate{
		{Identifier: "User", Score: 0.9, Source: SourceVector},
		{Identifier: "Post", Score: 0.8, Source: SourceVector},
		{Identifier: "User", Score: 0.95, Source: SourceKeyword},
		{Identifier: "Comment", Score: 0.7, Source: SourceKeyword},
	}

	fused := Fuse(candidates)

	var userScore float64
	found := false
	for _, c := range fused {
		if c.Identifier == "User" {
			userScore = c.Score
			found = true
		}
	}
	require.True(t, found)

	// User is rank 1 in both vector and keyword.
	expected := 1.0/(FusionK+1) + 1.0/(FusionK+1)
	assert.InDelta(t, expected, userScore, 1e-9)
}

func TestFuseDedupesIdentifiers(t *testing.T) {
	candidates := []Candidate{
		{Identifier: "A", Score: 0.5, Source: SourceVector},
		{Identifier: "A", Score: 0.4, Source: SourceKeyword},
		{Identifier: "B", Score: 0.3, Source: SourceVector},
	}
	fused := Fuse(candidates)
	seen := map[string]int{}
	for _, c := range fused {
		seen[c.Identifier]++
	}
	for id, count := range seen {
		assert.Equalf(t, 1, count, "identifier %s appeared %d times", id, count)
	}
}

func TestFuseSingleSourcePassesThroughUnchanged(t *testing.T) {
	candidates := []Candidate{
		{Identifier: "A", Score: 0.42, Source: SourceVector},
	}
	fused := Fuse(candidates)
	require.Len(t, fused, 1)
	assert.Equal(t, 0.42, fused[0].Score)
	assert.Equal(t, SourceVector, fused[0].Source)
}

func TestFuseMultiSourceScoreFormula(t *testing.T) {
	candidates := []Candidate{
		{Identifier: "X", Score: 1.0, Source: SourceVector},
		{Identifier: "Y", Score: 0.5, Source: SourceVector},
		{Identifier: "X", Score: 0.2, Source: SourceGraph},
	}
	fused := Fuse(candidates)
	var xScore float64
	for _, c := range fused {
		if c.Identifier == "X" {
			xScore = c.Score
		}
	}
	want := 1.0/(FusionK+1) + 1.0/(FusionK+1)
	if math.Abs(xScore-want) > 1e-9 {
		t.Fatalf("X fused score = %v, want %v", xScore, want)
	}
}
