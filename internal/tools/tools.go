package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MereWhiplash/ikc-search/internal/apitypes"
	"github.com/MereWhiplash/ikc-search/internal/chunker"
	"github.com/MereWhiplash/ikc-search/internal/types"
)

// DefaultSnippetLength is the number of runes of each chunk shown in the text result
const DefaultSnippetLength = 400

// Searcher is satisfied by the local service and the remote API client
type Searcher interface {
	Search(ctx context.Context, query string, limit int) (*types.SearchResult, error)
}

// Handler holds dependencies for tool handlers
type Handler struct {
	searcher      Searcher
	snippetLength int
}

// NewHandler creates a tool handler; snippetLength <= 0 uses the default
func NewHandler(s Searcher, snippetLength int) *Handler {
	if snippetLength <= 0 {
		snippetLength = DefaultSnippetLength
	}
	return &Handler{searcher: s, snippetLength: snippetLength}
}

// SearchInput defines the input schema for ikc_search
type SearchInput struct {
	Query string `json:"query" jsonschema:"Question or keywords to look up in the internal knowledge center"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of chunks (default: 3)"`
}

// SearchOutput defines the output schema for ikc_search
type SearchOutput struct {
	Found      bool        `json:"found"`
	Message    string      `json:"message"`
	TopSnippet string      `json:"top_snippet,omitempty"`
	Hits       []types.Hit `json:"hits"`
}

// SearchTool is the tool definition shared by the local and proxy servers
var SearchTool = &mcp.Tool{
	Name:        "ikc_search",
	Description: "Search the internal knowledge center by semantic similarity",
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// Register adds the IKC tools to the MCP server
func Register(server *mcp.Server, h *Handler) {
	mcp.AddTool(server, SearchTool, h.Search)
}

func (h *Handler) Search(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	result, err := h.searcher.Search(ctx, input.Query, input.Limit)
	if errors.Is(err, types.ErrEmptyQuery) {
		return errorResult("query is required"), SearchOutput{}, nil
	}
	if err != nil {
		return errorResult(fmt.Sprintf("failed to search: %v", err)), SearchOutput{}, nil
	}

	if !result.Found() {
		return textResult(apitypes.MsgNotFound), SearchOutput{Message: apitypes.MsgNotFound, Hits: []types.Hit{}}, nil
	}

	top := result.Top()
	out := SearchOutput{
		Found:      true,
		Message:    apitypes.FoundMessage(top.Score),
		TopSnippet: chunker.Truncate(top.Chunk.Content, h.snippetLength),
		Hits:       result.Hits,
	}

	var b strings.Builder
	b.WriteString(out.Message)
	for _, hit := range result.Hits {
		fmt.Fprintf(&b, "\n\n[%s, score %.4f]\n%s", hit.Chunk.ID, hit.Score, chunker.Truncate(hit.Chunk.Content, h.snippetLength))
	}

	return textResult(b.String()), out, nil
}
