package storage

import (
	"errors"
	"math"
	"testing"

	"github.com/MereWhiplash/ikc-search/internal/types"
)

func TestEmbeddingRoundTrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3, 0}
	out, err := decodeEmbedding(encodeEmbedding(in))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("index %d: expected %f, got %f", i, in[i], out[i])
		}
	}

	if _, err := decodeEmbedding([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}

func TestCosineSimilarity(t *testing.T) {
	got, err := cosineSimilarity([]float32{1, 0}, []float32{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-1/math.Sqrt2) > 1e-9 {
		t.Errorf("expected %f, got %f", 1/math.Sqrt2, got)
	}

	got, _ = cosineSimilarity([]float32{0, 0}, []float32{1, 1})
	if got != 0 {
		t.Errorf("expected 0 for zero vector, got %f", got)
	}

	_, err = cosineSimilarity([]float32{1}, []float32{1, 2})
	if !errors.Is(err, types.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestRankExact(t *testing.T) {
	candidates := []scoredChunk{
		{chunk: types.Chunk{ID: "a"}, embedding: []float32{0, 1}},
		{chunk: types.Chunk{ID: "b"}, embedding: []float32{1, 0}},
		{chunk: types.Chunk{ID: "c"}, embedding: []float32{1, 1}},
	}

	hits, err := rankExact([]float32{1, 0}, candidates, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Chunk.ID != "b" || hits[1].Chunk.ID != "c" {
		t.Errorf("unexpected order: %s, %s", hits[0].Chunk.ID, hits[1].Chunk.ID)
	}
}

func TestTableName(t *testing.T) {
	tests := map[string]string{
		"ikc_kb":   "ikc_kb",
		"ikc-kb.1": "ikc_kb_1",
		"1kb":      "c_1kb",
		"":         "c_",
	}
	for in, want := range tests {
		if got := tableName(in); got != want {
			t.Errorf("tableName(%q) = %q, want %q", in, got, want)
		}
	}
}
