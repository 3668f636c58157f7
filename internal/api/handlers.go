// internal/api/handlers.go
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/MereWhiplash/ikc-search/internal/chunker"
	"github.com/MereWhiplash/ikc-search/internal/service"
	"github.com/MereWhiplash/ikc-search/internal/types"
)

// DefaultSnippetLength is the number of runes of the best chunk returned as top_snippet
const DefaultSnippetLength = 400

// MaxResults caps the limit a client may request
const MaxResults = 50

// Config holds handler settings
type Config struct {
	// Collection is reported by the health endpoint
	Collection string
	// SnippetLength in runes (default: 400)
	SnippetLength int
	// Limit is the number of matches when the request does not set one (default: 3)
	Limit int
}

// Handlers holds HTTP handler dependencies
type Handlers struct {
	svc         *service.Service
	cfg         Config
	healthCheck func() error
}

// NewHandlers creates new API handlers
func NewHandlers(svc *service.Service, cfg Config) *Handlers {
	if cfg.SnippetLength <= 0 {
		cfg.SnippetLength = DefaultSnippetLength
	}
	if cfg.Limit <= 0 {
		cfg.Limit = types.DefaultLimit
	}
	return &Handlers{svc: svc, cfg: cfg}
}

// SetHealthCheck installs a dependency probe run by the health endpoint
func (h *Handlers) SetHealthCheck(check func() error) {
	h.healthCheck = check
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, ErrorResponse{Error: msg})
}

// Health handles GET / and GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "ok",
		ModelLoaded: h.svc.ModelLoaded(),
		Collection:  h.cfg.Collection,
	}

	if h.healthCheck != nil {
		if err := h.healthCheck(); err != nil {
			resp.Status = "unhealthy"
			respondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	n, err := h.svc.Count(r.Context())
	if err != nil {
		log.Printf("failed to count documents: %v", err)
	}
	resp.Documents = n

	respondJSON(w, http.StatusOK, resp)
}

// Search handles POST /ikc_search
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = h.cfg.Limit
	}
	if limit > MaxResults {
		limit = MaxResults
	}

	result, err := h.svc.Search(r.Context(), req.Query, limit)
	if errors.Is(err, types.ErrEmptyQuery) {
		respondError(w, http.StatusBadRequest, MsgNoQuery)
		return
	}
	if err != nil {
		log.Printf("search failed: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, h.searchResponse(result))
}

func (h *Handlers) searchResponse(result *types.SearchResult) SearchResponse {
	if !result.Found() {
		return SearchResponse{Found: false, Message: MsgNotFound}
	}

	top := result.Top()
	snippet := chunker.Truncate(top.Chunk.Content, h.cfg.SnippetLength)
	score := top.Score

	matches := make([]Match, len(result.Hits))
	for i, hit := range result.Hits {
		matches[i] = Match{
			ID:      hit.Chunk.ID,
			Content: hit.Chunk.Content,
			Source:  hit.Chunk.Source,
			Score:   hit.Score,
		}
	}

	return SearchResponse{
		Found:      true,
		Message:    FoundMessage(score),
		TopSnippet: &snippet,
		Score:      &score,
		Results:    matches,
	}
}
