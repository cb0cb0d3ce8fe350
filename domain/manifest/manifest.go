// Package manifest holds the ChangeManifest and DependencyGraph value types
// used to drive incremental re-embedding and transitive invalidation.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Summary is the aggregate counts of a ChangeManifest.
type Summary struct {
	Added     int `json:"added"`
	Modified  int `json:"modified"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
	Total     int `json:"total"`
}

// Changes holds the identifier lists behind a Summary.
type Changes struct {
	Added     []string `json:"added"`
	Modified  []string `json:"modified"`
	Deleted   []string `json:"deleted"`
	Unchanged []string `json:"unchanged"`
}

// ChangeManifest is the content-hash diff between two extraction runs.
type ChangeManifest struct {
	GeneratedAt     time.Time `json:"generated_at"`
	GitSHA          string    `json:"git_sha"`
	PreviousGitSHA  string    `json:"previous_git_sha,omitempty"`
	Summary         Summary   `json:"summary"`
	Changes         Changes   `json:"changes"`
}

// NewChangeManifest builds a manifest from the four disjoint identifier
// partitions, filling in the derived Summary.
func NewChangeManifest(gitSHA, previousGitSHA string, changes Changes) ChangeManifest {
	total := len(changes.Added) + len(changes.Modified) + len(changes.Deleted) + len(changes.Unchanged)
	return ChangeManifest{
		GeneratedAt:    time.Now().UTC(),
		GitSHA:         gitSHA,
		PreviousGitSHA: previousGitSHA,
		Summary: Summary{
			Added:     len(changes.Added),
			Modified:  len(changes.Modified),
			Deleted:   len(changes.Deleted),
			Unchanged: len(changes.Unchanged),
			Total:     total,
		},
		Changes: changes,
	}
}

// Validate enforces the ChangeManifest invariant: the four partitions are
// pairwise disjoint.
func (m ChangeManifest) Validate() error {
	seen := make(map[string]string, m.Summary.Total)
	check := func(bucket string, ids []string) error {
		for _, id := range ids {
			if prior, ok := seen[id]; ok {
				return fmt.Errorf("manifest: identifier %q present in both %q and %q", id, prior, bucket)
			}
			seen[id] = bucket
		}
		return nil
	}
	if err := check("added", m.Changes.Added); err != nil {
		return err
	}
	if err := check("modified", m.Changes.Modified); err != nil {
		return err
	}
	if err := check("deleted", m.Changes.Deleted); err != nil {
		return err
	}
	if err := check("unchanged", m.Changes.Unchanged); err != nil {
		return err
	}
	return nil
}

// WriteAtomic serializes m as JSON and writes it to path via write-to-temp
// then rename, so readers never observe a partial manifest.
func WriteAtomic(path string, m ChangeManifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: marshal: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".manifest-*.tmp")
	if err != nil {
		return fmt.Errorf("manifest: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("manifest: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("manifest: close temp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("manifest: rename: %w", err)
	}
	return nil
}

// Read loads a ChangeManifest from path. Absence of the file is reported via
// os.IsNotExist on the returned error so callers can force a full
// re-embedding.
func Read(path string) (ChangeManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ChangeManifest{}, err
	}
	var m ChangeManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return ChangeManifest{}, fmt.Errorf("manifest: unmarshal: %w", err)
	}
	return m, nil
}
