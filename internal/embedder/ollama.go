package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// DefaultOllamaURL is the address of a local Ollama server
const DefaultOllamaURL = "http://localhost:11434"

// DefaultOllamaModel is all-MiniLM-L6-v2 as published by Ollama (384 dimensions)
const DefaultOllamaModel = "all-minilm"

// Ollama implements Embedder using Ollama API
type Ollama struct {
	baseURL string
	model   string
	http    *http.Client
	dims    atomic.Int64
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

type showRequest struct {
	Model string `json:"model"`
}

// NewOllama creates a new Ollama embedder
func NewOllama(baseURL, model string) *Ollama {
	if model == "" {
		model = DefaultOllamaModel
	}
	return &Ollama{
		baseURL: baseURL,
		model:   model,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (o *Ollama) post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Ollama: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(msg))
	}

	return resp, nil
}

func (o *Ollama) embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.post(ctx, "/api/embeddings", embeddingRequest{
		Model:  o.model,
		Prompt: text,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var embResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(embResp.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding for model %s", o.model)
	}

	o.dims.Store(int64(len(embResp.Embedding)))
	return embResp.Embedding, nil
}

// Ping checks that the model is present on the Ollama server
func (o *Ollama) Ping(ctx context.Context) error {
	resp, err := o.post(ctx, "/api/show", showRequest{Model: o.model})
	if err != nil {
		return fmt.Errorf("model %s unavailable: %w", o.model, err)
	}
	resp.Body.Close()
	return nil
}

func (o *Ollama) EmbedForStorage(ctx context.Context, text string) ([]float32, error) {
	if o.model == "nomic-embed-text" {
		return o.embed(ctx, "search_document: "+text)
	}
	return o.embed(ctx, text)
}

func (o *Ollama) EmbedForSearch(ctx context.Context, query string) ([]float32, error) {
	if o.model == "nomic-embed-text" {
		return o.embed(ctx, "search_query: "+query)
	}
	return o.embed(ctx, query)
}

func (o *Ollama) Dimensions() int {
	return int(o.dims.Load())
}
