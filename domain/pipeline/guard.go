// Package pipeline implements write-side pipeline throttling (PipelineGuard)
// and read-side health snapshotting (StatusReporter), grounded on the
// teacher's interval-gated cooldown tracker generalized from per-status
// delivery throttling to per-operation-kind rate limiting.
package pipeline

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// Kind is the closed set of pipeline operations the Guard tracks.
type Kind string

// Closed set of guarded operation kinds.
const (
	KindExtraction Kind = "extraction"
	KindEmbedding  Kind = "embedding"
)

// DefaultCooldown is the guard's default minimum interval between runs of
// the same kind.
const DefaultCooldown = 60 * time.Second

// Guard tracks last-run timestamps per operation kind in a small JSON file
// so operator tools can check allow? before spawning background work.
type Guard struct {
	path     string
	cooldown time.Duration
	mu       sync.Mutex
	lastRun  map[Kind]time.Time
}

// NewGuard loads (or initializes) a Guard backed by path.
func NewGuard(path string, cooldown time.Duration) (*Guard, error) {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	g := &Guard{path: path, cooldown: cooldown, lastRun: make(map[Kind]time.Time)}
	if err := g.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return g, nil
}

func (g *Guard) load() error {
	data, err := os.ReadFile(g.path)
	if err != nil {
		return err
	}
	raw := make(map[string]time.Time)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		g.lastRun[Kind(k)] = v
	}
	return nil
}

func (g *Guard) persistLocked() error {
	raw := make(map[string]time.Time, len(g.lastRun))
	for k, v := range g.lastRun {
		raw[string(k)] = v
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(g.path, data, 0o644)
}

// Allow reports whether an operation of the given kind may start now.
func (g *Guard) Allow(kind Kind) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	last, ok := g.lastRun[kind]
	if !ok {
		return true
	}
	return time.Since(last) >= g.cooldown
}

// Record marks kind as having started now, persisting to the backing file.
func (g *Guard) Record(kind Kind) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastRun[kind] = time.Now()
	return g.persistLocked()
}
