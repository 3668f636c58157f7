package storage

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/MereWhiplash/ikc-search/internal/types"
)

const metaSource = "source"

var errNoEmbeddingFunc = errors.New("chromem collection only accepts precomputed embeddings")

// Chromem implements Storage using a persistent chromem-go database directory
type Chromem struct {
	db   *chromem.DB
	name string

	mu   sync.RWMutex
	coll *chromem.Collection
}

// NewChromem opens (or creates) the database at path and its collection
func NewChromem(path, collection string, compress bool) (*Chromem, error) {
	db, err := chromem.NewPersistentDB(path, compress)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store %s: %w", path, err)
	}

	c := &Chromem{db: db, name: collection}
	if err := c.open(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Chromem) open() error {
	coll, err := c.db.GetOrCreateCollection(c.name, nil, precomputedOnly)
	if err != nil {
		return fmt.Errorf("failed to open collection %s: %w", c.name, err)
	}
	c.coll = coll
	return nil
}

// precomputedOnly stops chromem from calling out to a hosted model when a
// document arrives without an embedding
func precomputedOnly(context.Context, string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

func (c *Chromem) collection() *chromem.Collection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.coll
}

func (c *Chromem) Close() error {
	return nil
}

func (c *Chromem) Upsert(ctx context.Context, chunks []types.Chunk, embeddings [][]float32) error {
	if err := checkUpsert(chunks, embeddings); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, ch := range chunks {
		docs[i] = chromem.Document{
			ID:        ch.ID,
			Content:   ch.Content,
			Metadata:  map[string]string{metaSource: ch.Source},
			Embedding: embeddings[i],
		}
	}

	if err := c.collection().AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

func (c *Chromem) Search(ctx context.Context, embedding []float32, opts types.SearchOpts) ([]types.Hit, error) {
	coll := c.collection()

	count := coll.Count()
	if count == 0 {
		return []types.Hit{}, nil
	}

	limit := opts.EffectiveLimit()
	if limit > count {
		limit = count
	}

	var where map[string]string
	if opts.Source != "" {
		where = map[string]string{metaSource: opts.Source}
	}

	results, err := coll.QueryEmbedding(ctx, embedding, limit, where, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	hits := make([]types.Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, types.Hit{
			Chunk: types.Chunk{
				ID:      r.ID,
				Content: r.Content,
				Source:  r.Metadata[metaSource],
			},
			Score: float64(r.Similarity),
		})
	}
	return hits, nil
}

func (c *Chromem) Count(ctx context.Context) (int, error) {
	return c.collection().Count(), nil
}

func (c *Chromem) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.db.DeleteCollection(c.name); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", c.name, err)
	}
	return c.open()
}
