package invalidate

import (
	"context"

	"github.com/kodexhq/kodex/domain/embedding"
	"github.com/kodexhq/kodex/domain/manifest"
	"github.com/kodexhq/kodex/domain/store"
	"github.com/kodexhq/kodex/domain/unit"
)

// IndexResult reports what an incremental indexing pass did.
type IndexResult struct {
	Embedded int
	Deleted  int
	Skipped  int
}

// IncrementalIndexer consumes a ChangeManifest and re-embeds only what
// changed: added and modified units are (re)embedded as one vector stored
// under the unit identifier, modified units have that existing vector
// removed first, and deleted units have their
// vectors and metadata removed entirely. No per-chunk vectors are written or
// removed.
type IncrementalIndexer struct {
	Vector   store.VectorStore
	Metadata store.MetadataStore
	Embedder embedding.Provider
}

// New constructs an IncrementalIndexer over its collaborators.
func New(vector store.VectorStore, metadata store.MetadataStore, embedder embedding.Provider) *IncrementalIndexer {
	return &IncrementalIndexer{Vector: vector, Metadata: metadata, Embedder: embedder}
}

// Reindex applies changes. units must contain every added/modified
// identifier's current ExtractedUnit; entries missing from units are
// skipped rather than erroring, since a caller that only diffed manifests
// (without re-extracting) may not have them yet.
func (idx *IncrementalIndexer) Reindex(ctx context.Context, changes manifest.Changes, units map[string]unit.ExtractedUnit) (IndexResult, error) {
	var result IndexResult

	for _, id := range changes.Deleted {
		if err := idx.Vector.Delete(ctx, id); err != nil {
			return result, err
		}
		if err := idx.Metadata.Delete(ctx, id); err != nil {
			return result, err
		}
		result.Deleted++
	}

	for _, id := range changes.Modified {
		if err := idx.Vector.Delete(ctx, id); err != nil {
			return result, err
		}
	}

	toEmbed := append(append([]string{}, changes.Added...), changes.Modified...)
	for _, id := range toEmbed {
		u, ok := units[id]
		if !ok || u.SourceCode() == nil {
			result.Skipped++
			continue
		}
		vec, err := idx.Embedder.Embed(ctx, *u.SourceCode())
		if err != nil {
			return result, err
		}
		rec := store.VectorRecord{ID: id, Vector: vec, Metadata: map[string]any{"namespace": u.Namespace(), "type": string(u.Type())}}
		if err := idx.Vector.Store(ctx, rec); err != nil {
			return result, err
		}
		if err := idx.Metadata.Store(ctx, u); err != nil {
			return result, err
		}
		result.Embedded++
	}

	return result, nil
}
