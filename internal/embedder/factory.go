package embedder

import (
	"context"
	"fmt"
)

// Config holds embedder configuration
type Config struct {
	Provider string // "ollama", "openai", "hash"

	Model   string
	BaseURL string

	// OpenAI
	APIKey string

	// Hash
	Dimensions int
}

// New creates an Embedder implementation based on config
func New(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "ollama", "":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultOllamaURL
		}
		return NewOllama(baseURL, cfg.Model), nil

	case "openai":
		return NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL)

	case "hash":
		return NewHash(cfg.Dimensions), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

// knownDimensions maps provider/model to the vector size the model returns
var knownDimensions = map[string]int{
	"ollama/" + DefaultOllamaModel:  384,
	"ollama/nomic-embed-text":       768,
	"ollama/mxbai-embed-large":      1024,
	"openai/" + DefaultOpenAIModel:  1536,
	"openai/text-embedding-3-large": 3072,
	"openai/text-embedding-ada-002": 1536,
	"hash/":                         DefaultHashDimensions,
}

// DefaultModel returns the model a provider uses when none is configured
func DefaultModel(provider string) string {
	switch provider {
	case "ollama", "":
		return DefaultOllamaModel
	case "openai":
		return DefaultOpenAIModel
	}
	return ""
}

// ModelDimensions returns the output size of a provider's model, applying the
// provider's default model when model is empty. It returns 0 for unknown models.
func ModelDimensions(provider, model string) int {
	if provider == "" {
		provider = "ollama"
	}
	if provider == "hash" {
		model = ""
	} else if model == "" {
		model = DefaultModel(provider)
	}
	return knownDimensions[provider+"/"+model]
}

// NewLazyFromConfig returns a Lazy handle that builds the embedder from cfg on
// first use and, when the embedder supports it, checks the model is reachable
func NewLazyFromConfig(cfg Config) *Lazy {
	return NewLazy(func(ctx context.Context) (Embedder, error) {
		emb, err := New(cfg)
		if err != nil {
			return nil, err
		}
		if p, ok := emb.(Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				return nil, err
			}
		}
		return emb, nil
	})
}
