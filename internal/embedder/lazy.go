package embedder

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Loader constructs the underlying embedder on first use
type Loader func(ctx context.Context) (Embedder, error)

// Lazy defers loading the model until it is first needed.
// The load runs once under mu; after that the handle is read through the
// loaded flag without taking the lock. A failed load is not remembered.
type Lazy struct {
	load   Loader
	mu     sync.Mutex
	loaded atomic.Bool
	emb    Embedder
}

// NewLazy wraps load in a load-once handle
func NewLazy(load Loader) *Lazy {
	return &Lazy{load: load}
}

// Get returns the loaded embedder, loading it if needed
func (l *Lazy) Get(ctx context.Context) (Embedder, error) {
	if l.loaded.Load() {
		return l.emb, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loaded.Load() {
		return l.emb, nil
	}

	emb, err := l.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedding model: %w", err)
	}

	l.emb = emb
	l.loaded.Store(true)
	return emb, nil
}

// Loaded reports whether the model has been loaded
func (l *Lazy) Loaded() bool {
	return l.loaded.Load()
}

func (l *Lazy) EmbedForStorage(ctx context.Context, text string) ([]float32, error) {
	emb, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	return emb.EmbedForStorage(ctx, text)
}

func (l *Lazy) EmbedForSearch(ctx context.Context, query string) ([]float32, error) {
	emb, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	return emb.EmbedForSearch(ctx, query)
}

func (l *Lazy) Dimensions() int {
	if !l.loaded.Load() {
		return 0
	}
	return l.emb.Dimensions()
}

// Batch returns e's batch interface, looking through a Lazy handle.
// It returns nil when the embedder only embeds one text per call.
func Batch(ctx context.Context, e Embedder) (BatchEmbedder, error) {
	if l, ok := e.(*Lazy); ok {
		inner, err := l.Get(ctx)
		if err != nil {
			return nil, err
		}
		e = inner
	}
	if b, ok := e.(BatchEmbedder); ok {
		return b, nil
	}
	return nil, nil
}
