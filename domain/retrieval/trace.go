package retrieval

import "time"

// StageEvent records one pipeline stage's outcome for diagnostics.
type StageEvent struct {
	Stage     string
	Status    string
	ElapsedMS int64
	Counts    map[string]int
	Extra     map[string]any
}

// RetrievalTrace is the ordered diagnostic record of a single retrieval run.
type RetrievalTrace struct {
	Events      []StageEvent
	startedAt   time.Time
	TotalMS     int64
	Degraded    bool
	Degradation string
}

// NewTrace starts a trace clock.
func NewTrace() *RetrievalTrace {
	return &RetrievalTrace{startedAt: time.Now()}
}

// Record appends a stage event with elapsed time measured from trace start.
func (t *RetrievalTrace) Record(stage, status string, counts map[string]int, extra map[string]any) {
	t.Events = append(t.Events, StageEvent{
		Stage:     stage,
		Status:    status,
		ElapsedMS: time.Since(t.startedAt).Milliseconds(),
		Counts:    counts,
		Extra:     extra,
	})
}

// Degrade marks the trace degraded with a human-readable reason.
func (t *RetrievalTrace) Degrade(reason string) {
	t.Degraded = true
	t.Degradation = reason
}

// Finish stamps the trace's total elapsed duration.
func (t *RetrievalTrace) Finish() {
	t.TotalMS = time.Since(t.startedAt).Milliseconds()
}
