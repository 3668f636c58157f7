package embedder_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MereWhiplash/ikc-search/internal/embedder"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHash_Deterministic(t *testing.T) {
	e := embedder.NewHash(32)
	ctx := context.Background()

	v1, err := e.EmbedForStorage(ctx, "hello world")
	require.NoError(t, err)
	v2, err := e.EmbedForSearch(ctx, "hello world")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Len(t, v1, 32)
}

func TestHash_SharedWordsScoreHigher(t *testing.T) {
	e := embedder.NewHash(embedder.DefaultHashDimensions)
	ctx := context.Background()

	doc, _ := e.EmbedForStorage(ctx, "Expense claims need approval from a cost center owner")
	near, _ := e.EmbedForSearch(ctx, "who gives approval for expense claims")
	far, _ := e.EmbedForSearch(ctx, "badge pickup at reception")

	assert.Greater(t, cosine(doc, near), cosine(doc, far))
}

func TestHash_NonZeroForPunctuation(t *testing.T) {
	v, err := embedder.NewHash(8).EmbedForSearch(context.Background(), "???")
	require.NoError(t, err)

	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestHash_DefaultDimensions(t *testing.T) {
	assert.Equal(t, embedder.DefaultHashDimensions, embedder.NewHash(0).Dimensions())
}
