// Package embedding defines the EmbeddingProvider contract: text in,
// fixed-dimension unit vectors out.
package embedding

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is fatal for embedding: the indexer refuses to write
// and surfaces a clear instruction to re-index.
var ErrDimensionMismatch = errors.New("embedding: dimension mismatch, re-index required")

// Provider maps text to a fixed-dimension embedding vector, with a batch
// entry point so callers can amortize provider round-trips.
type Provider interface {
	// Embed embeds a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch embeds multiple texts in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the fixed vector dimensionality this provider
	// produces.
	Dimensions() int
}
