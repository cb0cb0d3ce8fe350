package feedback

import (
	"sort"
	"strings"
)

// IssueKind is the closed set of gap-detector findings.
type IssueKind string

// Closed set of issue kinds.
const (
	IssueRepeatedLowScores  IssueKind = "repeated_low_scores"
	IssueFrequentlyMissing  IssueKind = "frequently_missing"
)

// Issue is one finding from a GapDetector scan.
type Issue struct {
	Kind    IssueKind
	Key     string
	Count   int
	Samples []string
}

// Detector mines recurring patterns out of a feedback log.
type Detector struct {
	// LowScoreThreshold is the max score (inclusive) counted as "low".
	LowScoreThreshold int
	// MinQueriesForKeyword is N: a keyword must appear in >= N low-scoring
	// queries to be reported.
	MinQueriesForKeyword int
	// MinMissingReports is M: a missing unit name must be reported >= M
	// times to be reported.
	MinMissingReports int
}

// NewDetector returns a Detector with the default thresholds (N=3, M=3,
// low score <= 2).
func NewDetector() Detector {
	return Detector{LowScoreThreshold: 2, MinQueriesForKeyword: 3, MinMissingReports: 3}
}

// Detect scans records and returns repeated_low_scores and
// frequently_missing issues.
func (d Detector) Detect(records []Record) []Issue {
	var issues []Issue

	keywordQueries := make(map[string]map[string]struct{})
	for _, r := range Ratings(records) {
		if r.Score > d.LowScoreThreshold {
			continue
		}
		for _, kw := range tokenizeKeywords(r.Query) {
			set, ok := keywordQueries[kw]
			if !ok {
				set = make(map[string]struct{})
				keywordQueries[kw] = set
			}
			set[r.Query] = struct{}{}
		}
	}
	keywords := make([]string, 0, len(keywordQueries))
	for kw := range keywordQueries {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)
	for _, kw := range keywords {
		queries := keywordQueries[kw]
		if len(queries) < d.MinQueriesForKeyword {
			continue
		}
		samples := make([]string, 0, len(queries))
		for q := range queries {
			samples = append(samples, q)
		}
		sort.Strings(samples)
		issues = append(issues, Issue{
			Kind:    IssueRepeatedLowScores,
			Key:     kw,
			Count:   len(queries),
			Samples: firstN(samples, 3),
		})
	}

	missingCounts := make(map[string]int)
	missingSamples := make(map[string][]string)
	for _, r := range Gaps(records) {
		missingCounts[r.MissingUnit]++
		missingSamples[r.MissingUnit] = append(missingSamples[r.MissingUnit], r.Query)
	}
	missing := make([]string, 0, len(missingCounts))
	for m := range missingCounts {
		missing = append(missing, m)
	}
	sort.Strings(missing)
	for _, m := range missing {
		count := missingCounts[m]
		if count < d.MinMissingReports {
			continue
		}
		issues = append(issues, Issue{
			Kind:    IssueFrequentlyMissing,
			Key:     m,
			Count:   count,
			Samples: firstN(missingSamples[m], 3),
		})
	}

	return issues
}

var stopWords = map[string]struct{}{
	"the": {}, "is": {}, "a": {}, "an": {}, "of": {}, "to": {}, "and": {},
	"in": {}, "on": {}, "for": {}, "how": {}, "does": {}, "what": {}, "are": {},
}

func tokenizeKeywords(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	seen := make(map[string]struct{})
	var out []string
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, ok := stopWords[f]; ok {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
