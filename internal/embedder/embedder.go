package embedder

import "context"

// Embedder generates vector embeddings for text
type Embedder interface {
	// EmbedForStorage creates an embedding optimized for document storage
	EmbedForStorage(ctx context.Context, text string) ([]float32, error)
	// EmbedForSearch creates an embedding optimized for search queries
	EmbedForSearch(ctx context.Context, query string) ([]float32, error)
	// Dimensions returns the vector size, or 0 before the first embedding
	Dimensions() int
}

// BatchEmbedder is implemented by embedders that can embed many documents per call
type BatchEmbedder interface {
	EmbedBatchForStorage(ctx context.Context, texts []string) ([][]float32, error)
}

// Pinger is implemented by embedders that can verify the model is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}
