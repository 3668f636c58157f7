package storage

import (
	"context"

	"github.com/MereWhiplash/ikc-search/internal/types"
)

// Storage defines the interface for chunk and embedding persistence.
// Similarity search itself is delegated to the backing vector database.
type Storage interface {
	// Upsert stores chunks with their embeddings, replacing any chunk with the same ID
	Upsert(ctx context.Context, chunks []types.Chunk, embeddings [][]float32) error
	// Search returns the chunks nearest to embedding, best first.
	// An empty collection yields an empty slice, not an error.
	Search(ctx context.Context, embedding []float32, opts types.SearchOpts) ([]types.Hit, error)
	// Count returns the number of stored chunks
	Count(ctx context.Context) (int, error)
	// Reset removes every chunk from the collection
	Reset(ctx context.Context) error
	Close() error
}
