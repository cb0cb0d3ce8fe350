package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectRepeatedLowScores(t *testing.T) {
	records := []Record{
		NewRating("how does authentication work", 1, ""),
		NewRating("authentication flow for login", 2, ""),
		NewRating("debug authentication failure", 1, ""),
		NewRating("great result", 5, ""),
	}
	d := NewDetector()
	issues := d.Detect(records)

	found := false
	for _, iss := range issues {
		if iss.Kind == IssueRepeatedLowScores && iss.Key == "authentication" {
			found = true
			assert.Equal(t, 3, iss.Count)
		}
	}
	assert.True(t, found)
}

func TestDetectFrequentlyMissing(t *testing.T) {
	records := []Record{
		NewGap("where is the rate limiter", "RateLimiter", "service"),
		NewGap("rate limiter implementation", "RateLimiter", "service"),
		NewGap("rate limiting logic", "RateLimiter", "service"),
	}
	d := NewDetector()
	issues := d.Detect(records)

	require := assert.New(t)
	require.Len(issues, 1)
	require.Equal(IssueFrequentlyMissing, issues[0].Kind)
	require.Equal("RateLimiter", issues[0].Key)
	require.Equal(3, issues[0].Count)
}

func TestAverageScore(t *testing.T) {
	records := []Record{NewRating("q1", 4, ""), NewRating("q2", 2, "")}
	assert.Equal(t, 3.0, AverageScore(records))
}

func TestAverageScoreEmpty(t *testing.T) {
	assert.Equal(t, 0.0, AverageScore(nil))
}
