package embedder

import (
	"context"
	"fmt"
	"sync/atomic"

	langchainembeddings "github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// DefaultOpenAIModel is the hosted embedding model used when none is configured
const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAI implements Embedder using the OpenAI embeddings API through langchaingo
type OpenAI struct {
	emb  langchainembeddings.Embedder
	dims atomic.Int64
}

// NewOpenAI creates an OpenAI embedder. baseURL may point at any
// OpenAI-compatible endpoint; empty uses the public API.
func NewOpenAI(apiKey, model, baseURL string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI LLM: %w", err)
	}

	emb, err := langchainembeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return &OpenAI{emb: emb}, nil
}

func (o *OpenAI) EmbedForStorage(ctx context.Context, text string) ([]float32, error) {
	vecs, err := o.EmbedBatchForStorage(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (o *OpenAI) EmbedForSearch(ctx context.Context, query string) ([]float32, error) {
	vec, err := o.emb.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	o.dims.Store(int64(len(vec)))
	return vec, nil
}

func (o *OpenAI) EmbedBatchForStorage(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := o.emb.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed documents: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("received %d embeddings for %d documents", len(vecs), len(texts))
	}
	if len(vecs) > 0 {
		o.dims.Store(int64(len(vecs[0])))
	}
	return vecs, nil
}

func (o *OpenAI) Dimensions() int {
	return int(o.dims.Load())
}
