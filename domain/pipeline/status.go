package pipeline

import "time"

// HealthPing is a minimal liveness probe a store backend can answer without
// a full query.
type HealthPing func() error

// Status is the snapshot StatusReporter returns, combining manifest state
// with a live health check against each configured store.
type Status struct {
	Status          string         `json:"status"`
	ExtractedAt     time.Time      `json:"extracted_at"`
	TotalUnits      int            `json:"total_units"`
	CountsByType    map[string]int `json:"counts_by_type"`
	GitSHA          string         `json:"git_sha"`
	GitBranch       string         `json:"git_branch"`
	StalenessSeconds float64       `json:"staleness_seconds"`
}

// ManifestSnapshot is the subset of manifest data StatusReporter consumes,
// kept decoupled from the manifest package to avoid a pipeline->manifest
// compile-time dependency.
type ManifestSnapshot struct {
	ExtractedAt  time.Time
	TotalUnits   int
	CountsByType map[string]int
	GitSHA       string
	GitBranch    string
}

// Reporter reads the current manifest snapshot plus each store's health
// ping and produces a Status.
type Reporter struct {
	pings map[string]HealthPing
}

// NewReporter constructs a Reporter over the given named health pings.
func NewReporter(pings map[string]HealthPing) *Reporter {
	return &Reporter{pings: pings}
}

// Report produces a Status from the given manifest snapshot, running every
// configured health ping. "healthy" if all pings succeed, "degraded" if any
// fail, "unknown" if snap is zero-valued (no manifest present).
func (r *Reporter) Report(snap ManifestSnapshot) Status {
	healthy := true
	for _, ping := range r.pings {
		if err := ping(); err != nil {
			healthy = false
			break
		}
	}
	status := "healthy"
	if !healthy {
		status = "degraded"
	}
	if snap.ExtractedAt.IsZero() {
		status = "unknown"
	}
	var staleness float64
	if !snap.ExtractedAt.IsZero() {
		staleness = time.Since(snap.ExtractedAt).Seconds()
	}
	return Status{
		Status:           status,
		ExtractedAt:      snap.ExtractedAt,
		TotalUnits:       snap.TotalUnits,
		CountsByType:     snap.CountsByType,
		GitSHA:           snap.GitSHA,
		GitBranch:        snap.GitBranch,
		StalenessSeconds: staleness,
	}
}
