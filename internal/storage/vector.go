package storage

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/MereWhiplash/ikc-search/internal/types"
)

// encodeEmbedding packs a vector as little-endian float32s for BLOB columns
func encodeEmbedding(vec []float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func decodeEmbedding(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d (not multiple of 4)", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}

// cosineSimilarity returns 0 for zero-magnitude vectors
func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", types.ErrDimensionMismatch, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		va, vb := float64(a[i]), float64(b[i])
		dot += va * vb
		na += va * va
		nb += vb * vb
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

type scoredChunk struct {
	chunk     types.Chunk
	embedding []float32
}

// rankExact scores every candidate against query and keeps the best limit
func rankExact(query []float32, candidates []scoredChunk, limit int) ([]types.Hit, error) {
	hits := make([]types.Hit, 0, len(candidates))
	for _, c := range candidates {
		score, err := cosineSimilarity(query, c.embedding)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", c.chunk.ID, err)
		}
		hits = append(hits, types.Hit{Chunk: c.chunk, Score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}
