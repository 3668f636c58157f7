// internal/service/service.go
package service

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MereWhiplash/ikc-search/internal/chunker"
	"github.com/MereWhiplash/ikc-search/internal/embedder"
	"github.com/MereWhiplash/ikc-search/internal/storage"
	"github.com/MereWhiplash/ikc-search/internal/types"
)

// ProgressEvery is how many embedded chunks pass between progress reports
const ProgressEvery = 10

// DefaultBatchSize is the number of chunks embedded and upserted together
const DefaultBatchSize = 32

// Service contains the business logic for building and searching the knowledge base
type Service struct {
	storage  storage.Storage
	embedder embedder.Embedder
}

// New creates a new Service
func New(store storage.Storage, emb embedder.Embedder) *Service {
	return &Service{
		storage:  store,
		embedder: emb,
	}
}

// Search embeds query and returns its nearest chunks
func (s *Service) Search(ctx context.Context, query string, limit int) (*types.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, types.ErrEmptyQuery
	}

	embedding, err := s.embedder.EmbedForSearch(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	hits, err := s.storage.Search(ctx, embedding, types.SearchOpts{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to search collection: %w", err)
	}

	return &types.SearchResult{Query: query, Hits: hits}, nil
}

// BuildOpts configures a knowledge-base build
type BuildOpts struct {
	IDPrefix string
	Source   string
	// Reset clears the collection once embedding has succeeded, before storing
	Reset bool
	// Concurrency bounds in-flight embedding calls (default: NumCPU)
	Concurrency int
	// BatchSize is the number of chunks per embedding batch and upsert (default: 32)
	BatchSize int
	// OnChunked is called with the chunk count before embedding starts
	OnChunked func(total int)
	// OnProgress is called every ProgressEvery chunks and once at the end
	OnProgress func(done, total int)
}

// BuildStats summarises a finished build
type BuildStats struct {
	Chunks   int
	Stored   int
	Duration time.Duration
}

// Build chunks text, embeds every chunk and stores the result
func (s *Service) Build(ctx context.Context, text string, opts BuildOpts) (BuildStats, error) {
	start := time.Now()

	chunks := chunker.Chunks(text, opts.IDPrefix, opts.Source)
	if len(chunks) == 0 {
		return BuildStats{}, types.ErrNoChunks
	}
	if opts.OnChunked != nil {
		opts.OnChunked(len(chunks))
	}

	embeddings, err := s.embedAll(ctx, chunks, opts)
	if err != nil {
		return BuildStats{}, err
	}

	// the existing collection stays searchable until every chunk is embedded
	if opts.Reset {
		if err := s.storage.Reset(ctx); err != nil {
			return BuildStats{}, fmt.Errorf("failed to reset collection: %w", err)
		}
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	for lo := 0; lo < len(chunks); lo += batchSize {
		hi := min(lo+batchSize, len(chunks))
		if err := s.storage.Upsert(ctx, chunks[lo:hi], embeddings[lo:hi]); err != nil {
			return BuildStats{}, fmt.Errorf("failed to store chunks %d-%d: %w", lo, hi-1, err)
		}
	}

	stored, err := s.storage.Count(ctx)
	if err != nil {
		return BuildStats{}, fmt.Errorf("failed to count collection: %w", err)
	}

	return BuildStats{
		Chunks:   len(chunks),
		Stored:   stored,
		Duration: time.Since(start),
	}, nil
}

func (s *Service) embedAll(ctx context.Context, chunks []types.Chunk, opts BuildOpts) ([][]float32, error) {
	batcher, err := embedder.Batch(ctx, s.embedder)
	if err != nil {
		return nil, err
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	total := len(chunks)
	embeddings := make([][]float32, total)

	var mu sync.Mutex
	done := 0
	report := func(n int) {
		mu.Lock()
		defer mu.Unlock()
		before := done
		done += n
		if opts.OnProgress != nil && (done/ProgressEvery > before/ProgressEvery || done == total) {
			opts.OnProgress(done, total)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	if batcher != nil {
		for lo := 0; lo < total; lo += batchSize {
			lo, hi := lo, min(lo+batchSize, total)
			g.Go(func() error {
				texts := make([]string, 0, hi-lo)
				for _, c := range chunks[lo:hi] {
					texts = append(texts, c.Content)
				}
				vecs, err := batcher.EmbedBatchForStorage(gctx, texts)
				if err != nil {
					return fmt.Errorf("failed to embed chunks %d-%d: %w", lo, hi-1, err)
				}
				if len(vecs) != len(texts) {
					return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vecs), len(texts))
				}
				copy(embeddings[lo:hi], vecs)
				report(hi - lo)
				return nil
			})
		}
	} else {
		for i := range chunks {
			i := i
			g.Go(func() error {
				vec, err := s.embedder.EmbedForStorage(gctx, chunks[i].Content)
				if err != nil {
					return fmt.Errorf("failed to embed chunk %s: %w", chunks[i].ID, err)
				}
				embeddings[i] = vec
				report(1)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return embeddings, nil
}

// Count returns the number of stored chunks
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.storage.Count(ctx)
}

// ModelLoaded reports whether the embedding model is ready.
// Embedders without deferred loading are always ready.
func (s *Service) ModelLoaded() bool {
	if l, ok := s.embedder.(interface{ Loaded() bool }); ok {
		return l.Loaded()
	}
	return true
}

// Preload loads a deferred embedding model now instead of on the first query
func (s *Service) Preload(ctx context.Context) error {
	if l, ok := s.embedder.(*embedder.Lazy); ok {
		_, err := l.Get(ctx)
		return err
	}
	return nil
}

// Close cleans up resources
func (s *Service) Close() error {
	return s.storage.Close()
}
