// Package invalidate implements the Invalidator (content-hash diffing plus
// transitive invalidation rules) and the IncrementalIndexer that consumes
// its ChangeManifest to drive re-embedding.
package invalidate

import (
	"github.com/kodexhq/kodex/domain/manifest"
	"github.com/kodexhq/kodex/domain/unit"
)

// Invalidator compares a new extraction pass against the previous
// manifest's content hashes and produces a ChangeManifest.
type Invalidator struct {
	// ConcernIncluders maps a concern's identifier to every unit that
	// includes it, used by the transitive "concern changed" rule.
	ConcernIncluders map[string][]string
	// MigrationModels maps a migration's identifier to the models whose
	// tables it affects, used by the transitive "migration changed" rule.
	MigrationModels map[string][]string
}

// PreviousHashes is the previous run's identifier -> content hash map.
type PreviousHashes map[string]string

// Diff computes added/modified/deleted/unchanged against previous, then
// applies transitive invalidation: a changed concern invalidates every unit
// that includes it (moving it from unchanged to modified); a changed
// migration invalidates every model on its affected tables.
func (inv *Invalidator) Diff(current []unit.ExtractedUnit, previous PreviousHashes, gitSHA, previousGitSHA string) manifest.ChangeManifest {
	currentHashes := make(map[string]string, len(current))
	for _, u := range current {
		currentHashes[u.Identifier()] = manifest.ContentHash(u)
	}

	var added, modified, unchanged []string
	for id, hash := range currentHashes {
		prevHash, existed := previous[id]
		switch {
		case !existed:
			added = append(added, id)
		case prevHash != hash:
			modified = append(modified, id)
		default:
			unchanged = append(unchanged, id)
		}
	}
	var deleted []string
	for id := range previous {
		if _, ok := currentHashes[id]; !ok {
			deleted = append(deleted, id)
		}
	}

	modifiedSet := toSet(modified)
	unchangedSet := toSet(unchanged)
	promote := func(id string) {
		if _, already := modifiedSet[id]; already {
			return
		}
		if _, isUnchanged := unchangedSet[id]; !isUnchanged {
			return
		}
		modifiedSet[id] = struct{}{}
		modified = append(modified, id)
	}

	for _, id := range append([]string(nil), modified...) {
		for _, includer := range inv.ConcernIncluders[id] {
			promote(includer)
		}
		for _, model := range inv.MigrationModels[id] {
			promote(model)
		}
	}

	unchanged = subtract(unchanged, modifiedSet)

	return manifest.NewChangeManifest(gitSHA, previousGitSHA, manifest.Changes{
		Added:     added,
		Modified:  modified,
		Deleted:   deleted,
		Unchanged: unchanged,
	})
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func subtract(ids []string, remove map[string]struct{}) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := remove[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
