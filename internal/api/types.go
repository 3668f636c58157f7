// internal/api/types.go
package api

import "github.com/MereWhiplash/ikc-search/internal/apitypes"

// Re-export types from internal/apitypes so handlers and tests read naturally.
type (
	SearchRequest  = apitypes.SearchRequest
	SearchResponse = apitypes.SearchResponse
	Match          = apitypes.Match
	ErrorResponse  = apitypes.ErrorResponse
	HealthResponse = apitypes.HealthResponse
)

const (
	MsgNoQuery  = apitypes.MsgNoQuery
	MsgNotFound = apitypes.MsgNotFound
)

// FoundMessage formats the message for a successful match
var FoundMessage = apitypes.FoundMessage
