// Package apitypes contains the request and response bodies of the HTTP API.
// It has no storage or CGO dependencies so the client and MCP packages can share it.
package apitypes

import "fmt"

// Message texts returned by POST /ikc_search
const (
	MsgNoQuery  = "No query provided"
	MsgNotFound = "❌ No relevant info found in IKC"
	msgFound    = "✅ Related info found in IKC (score: %.4f)"
)

// FoundMessage formats the message for a successful match
func FoundMessage(score float64) string {
	return fmt.Sprintf(msgFound, score)
}

// SearchRequest is the body of POST /ikc_search
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Match is one ranked chunk in a search response
type Match struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Source  string  `json:"source,omitempty"`
	Score   float64 `json:"score"`
}

// SearchResponse is returned by POST /ikc_search.
// TopSnippet is null when nothing was found.
type SearchResponse struct {
	Found      bool     `json:"found"`
	Message    string   `json:"message"`
	TopSnippet *string  `json:"top_snippet"`
	Score      *float64 `json:"score,omitempty"`
	Results    []Match  `json:"results,omitempty"`
}

// ErrorResponse is returned for any failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by GET / and GET /health
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Collection  string `json:"collection,omitempty"`
	Documents   int    `json:"documents"`
}
