package storage_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/MereWhiplash/ikc-search/internal/storage"
	"github.com/MereWhiplash/ikc-search/internal/types"
)

const testDim = 8

// unit returns the i-th basis vector, optionally leaning towards the next axis
func unit(i int, lean float32) []float32 {
	v := make([]float32, testDim)
	v[i%testDim] = 1
	v[(i+1)%testDim] = lean
	return v
}

func testChunks(n int, source string) ([]types.Chunk, [][]float32) {
	chunks := make([]types.Chunk, n)
	embs := make([][]float32, n)
	for i := range chunks {
		chunks[i] = types.Chunk{
			ID:      fmt.Sprintf("ikc_%d", i),
			Content: fmt.Sprintf("policy paragraph number %d about the internal knowledge center", i),
			Source:  source,
		}
		embs[i] = unit(i, 0)
	}
	return chunks, embs
}

// exerciseStorage runs the behaviour every backend must share
func exerciseStorage(t *testing.T, store storage.Storage) {
	t.Helper()
	ctx := context.Background()

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	t.Run("empty collection", func(t *testing.T) {
		hits, err := store.Search(ctx, unit(0, 0), types.SearchOpts{})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(hits) != 0 {
			t.Errorf("expected no hits, got %d", len(hits))
		}
	})

	chunks, embs := testChunks(5, types.DefaultSource)
	if err := store.Upsert(ctx, chunks, embs); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	t.Run("nearest first", func(t *testing.T) {
		hits, err := store.Search(ctx, unit(2, 0.1), types.SearchOpts{})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(hits) != types.DefaultLimit {
			t.Fatalf("expected %d hits, got %d", types.DefaultLimit, len(hits))
		}
		if hits[0].Chunk.ID != "ikc_2" {
			t.Errorf("expected ikc_2 first, got %s", hits[0].Chunk.ID)
		}
		if hits[0].Chunk.Content != chunks[2].Content {
			t.Errorf("expected content %q, got %q", chunks[2].Content, hits[0].Chunk.Content)
		}
		if hits[0].Chunk.Source != types.DefaultSource {
			t.Errorf("expected source %q, got %q", types.DefaultSource, hits[0].Chunk.Source)
		}
		if hits[0].Score < 0.9 {
			t.Errorf("expected score near 1, got %f", hits[0].Score)
		}
		if hits[1].Chunk.ID != "ikc_3" {
			t.Errorf("expected ikc_3 second, got %s", hits[1].Chunk.ID)
		}
		for i := 1; i < len(hits); i++ {
			if hits[i].Score > hits[i-1].Score {
				t.Errorf("hits not sorted by score: %f > %f", hits[i].Score, hits[i-1].Score)
			}
		}
	})

	t.Run("limit clamped", func(t *testing.T) {
		hits, err := store.Search(ctx, unit(0, 0), types.SearchOpts{Limit: 50})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(hits) != 5 {
			t.Errorf("expected 5 hits, got %d", len(hits))
		}
	})

	t.Run("upsert is idempotent", func(t *testing.T) {
		chunks[1].Content = "rewritten paragraph about expense approval thresholds"
		if err := store.Upsert(ctx, chunks, embs); err != nil {
			t.Fatalf("second Upsert failed: %v", err)
		}
		n, err := store.Count(ctx)
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 5 {
			t.Errorf("expected 5 chunks after re-upsert, got %d", n)
		}

		hits, err := store.Search(ctx, unit(1, 0), types.SearchOpts{Limit: 1})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(hits) != 1 || hits[0].Chunk.Content != chunks[1].Content {
			t.Errorf("expected updated content, got %+v", hits)
		}
	})

	t.Run("source filter", func(t *testing.T) {
		other := []types.Chunk{{ID: "faq_0", Content: "frequently asked question about badge pickup hours", Source: "FAQ"}}
		if err := store.Upsert(ctx, other, [][]float32{unit(6, 0)}); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}

		hits, err := store.Search(ctx, unit(6, 0), types.SearchOpts{Limit: 1, Source: types.DefaultSource})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		for _, h := range hits {
			if h.Chunk.Source != types.DefaultSource {
				t.Errorf("expected only %s hits, got %s", types.DefaultSource, h.Chunk.Source)
			}
		}
	})

	t.Run("reset", func(t *testing.T) {
		if err := store.Reset(ctx); err != nil {
			t.Fatalf("Reset failed: %v", err)
		}
		n, err := store.Count(ctx)
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 0 {
			t.Errorf("expected empty collection after reset, got %d", n)
		}
	})

	t.Run("length mismatch", func(t *testing.T) {
		err := store.Upsert(ctx, chunks, embs[:1])
		if err == nil {
			t.Error("expected error for mismatched lengths")
		}
	})
}

func assertDimensionMismatch(t *testing.T, store storage.Storage) {
	t.Helper()
	ctx := context.Background()
	chunks, _ := testChunks(1, types.DefaultSource)

	err := store.Upsert(ctx, chunks, [][]float32{{1, 2, 3}})
	if !errors.Is(err, types.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}
