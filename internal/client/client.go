// internal/client/client.go
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MereWhiplash/ikc-search/internal/apitypes"
	"github.com/MereWhiplash/ikc-search/internal/types"
)

// APIError is a non-2xx answer from the search API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Unwrap lets callers match types.ErrEmptyQuery on a rejected query
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusBadRequest && e.Message == apitypes.MsgNoQuery {
		return types.ErrEmptyQuery
	}
	return nil
}

// Client is an HTTP client for the search API
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a new API client
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	return c.http.Do(req)
}

func decodeError(resp *http.Response) error {
	var errResp apitypes.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error == "" {
		errResp.Error = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
}

// Ask sends query to POST /ikc_search and returns the raw response
func (c *Client) Ask(ctx context.Context, query string, limit int) (*apitypes.SearchResponse, error) {
	req := apitypes.SearchRequest{
		Query: query,
		Limit: limit,
	}

	resp, err := c.doRequest(ctx, "POST", "/ikc_search", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var result apitypes.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// Search finds the nearest chunks through the API
func (c *Client) Search(ctx context.Context, query string, limit int) (*types.SearchResult, error) {
	resp, err := c.Ask(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	hits := make([]types.Hit, 0, len(resp.Results))
	for _, m := range resp.Results {
		hits = append(hits, types.Hit{
			Chunk: types.Chunk{ID: m.ID, Content: m.Content, Source: m.Source},
			Score: m.Score,
		})
	}

	return &types.SearchResult{Query: strings.TrimSpace(query), Hits: hits}, nil
}

// Health calls GET /health
func (c *Client) Health(ctx context.Context) (*apitypes.HealthResponse, error) {
	resp, err := c.doRequest(ctx, "GET", "/health", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result apitypes.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &result, &APIError{StatusCode: resp.StatusCode, Message: result.Status}
	}

	return &result, nil
}
