package embedder

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"math"
	"strings"
	"unicode"
)

// DefaultHashDimensions matches all-MiniLM-L6-v2 so stores built offline keep their schema
const DefaultHashDimensions = 384

// Hash is a deterministic, model-free embedder. Each lowercase token is hashed
// into a bucket of the vector (feature hashing) and the result is L2-normalized,
// so texts sharing words land close together. It needs no network and is meant
// for offline smoke tests and CI.
type Hash struct {
	dim int
}

// NewHash creates a hash embedder producing vectors of size dim
func NewHash(dim int) *Hash {
	if dim <= 0 {
		dim = DefaultHashDimensions
	}
	return &Hash{dim: dim}
}

func (h *Hash) EmbedForStorage(_ context.Context, text string) ([]float32, error) {
	return h.vector(text), nil
}

func (h *Hash) EmbedForSearch(_ context.Context, query string) ([]float32, error) {
	return h.vector(query), nil
}

func (h *Hash) EmbedBatchForStorage(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = h.vector(t)
	}
	return vecs, nil
}

func (h *Hash) Dimensions() int {
	return h.dim
}

func (h *Hash) vector(text string) []float32 {
	vec := make([]float32, h.dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(tokens) == 0 {
		// keep the vector non-zero so cosine similarity stays defined
		tokens = []string{text}
	}

	for _, tok := range tokens {
		sum := sha1.Sum([]byte(tok))
		bucket := binary.BigEndian.Uint32(sum[:4]) % uint32(h.dim)
		sign := float32(1)
		if sum[4]&1 == 1 {
			sign = -1
		}
		vec[bucket] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
