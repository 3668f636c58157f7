// Package types contains shared data types that have no CGO dependencies.
// This allows packages like the MCP tools and the API client to use Chunk and Hit
// without pulling in sqlite-vec.
package types

import "errors"

var (
	// ErrEmptyQuery is returned when a search query is blank after trimming
	ErrEmptyQuery = errors.New("no query provided")
	// ErrNoChunks is returned when a knowledge base yields no usable chunks
	ErrNoChunks = errors.New("no chunks extracted from knowledge base")
	// ErrDimensionMismatch is returned when an embedding does not fit the store
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// DefaultSource is the metadata tag attached to chunks built from the IKC file
const DefaultSource = "IKC"

// DefaultLimit is the number of neighbours returned when a caller does not ask
const DefaultLimit = 3

// Chunk is one retrievable unit of the knowledge base
type Chunk struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

// Hit is a chunk returned by a similarity search.
// Score is cosine similarity: higher means closer.
type Hit struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// SearchOpts configures search behavior
type SearchOpts struct {
	Limit  int
	Source string
}

// EffectiveLimit returns Limit, or DefaultLimit when it is not positive
func (o SearchOpts) EffectiveLimit() int {
	if o.Limit <= 0 {
		return DefaultLimit
	}
	return o.Limit
}

// SearchResult is the outcome of a query against the knowledge base
type SearchResult struct {
	Query string `json:"query"`
	Hits  []Hit  `json:"hits"`
}

// Found reports whether the search returned at least one chunk
func (r *SearchResult) Found() bool {
	return r != nil && len(r.Hits) > 0
}

// Top returns the best hit. Callers must check Found first.
func (r *SearchResult) Top() Hit {
	return r.Hits[0]
}
