package persistence

import (
	"os"

	"github.com/kodexhq/kodex/domain/manifest"
)

// ManifestStore wraps domain/manifest's package-level atomic read/write
// functions behind a small type so callers needing a single injected
// collaborator (e.g. the recent_changes/pipeline_status tool handlers) don't reach
// into the domain package directly.
type ManifestStore struct {
	path string
}

// NewManifestStore points a ManifestStore at path.
func NewManifestStore(path string) *ManifestStore {
	return &ManifestStore{path: path}
}

// Write atomically persists m.
func (s *ManifestStore) Write(m manifest.ChangeManifest) error {
	return manifest.WriteAtomic(s.path, m)
}

// Read loads the current manifest. Absence is reported via os.IsNotExist on
// the returned error, signaling callers to force a full re-embedding.
func (s *ManifestStore) Read() (manifest.ChangeManifest, error) {
	return manifest.Read(s.path)
}

// Exists reports whether a manifest has ever been written to path.
func (s *ManifestStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}
