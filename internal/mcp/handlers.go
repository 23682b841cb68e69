package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/relicdex/internal/config"
	"github.com/hpungsan/relicdex/internal/errors"
	"github.com/hpungsan/relicdex/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config) *Handlers {
	return &Handlers{db: db, cfg: cfg}
}

// SearchRequest represents the arguments for kb_search.
type SearchRequest struct {
	Collection   string   `json:"collection"`
	Query        string   `json:"query"`
	Limit        int      `json:"limit,omitempty"`
	MinRelevance *float64 `json:"min_relevance,omitempty"`
}

// FetchRequest represents the arguments for kb_fetch.
type FetchRequest struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

// ChunksRequest represents the arguments for kb_chunks.
type ChunksRequest struct {
	Collection string `json:"collection"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// HandleSearch handles the kb_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Search(ctx, h.db, h.cfg, ops.SearchInput{
		Collection:   input.Collection,
		Query:        input.Query,
		Limit:        input.Limit,
		MinRelevance: input.MinRelevance,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFetch handles the kb_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.FetchChunk(ctx, h.db, ops.FetchChunkInput{
		Collection: input.Collection,
		ID:         input.ID,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCollections handles the kb_collections tool call.
func (h *Handlers) HandleCollections(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.ListCollections(ctx, h.db)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleChunks handles the kb_chunks tool call.
func (h *Handlers) HandleChunks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ChunksRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.ListChunks(ctx, h.db, ops.ListChunksInput{
		Collection: input.Collection,
		Limit:      input.Limit,
		Offset:     input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Internal error details are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var rErr *errors.RelicError
	if stderrors.As(err, &rErr) && rErr.Code != errors.ErrInternal {
		// Keep wrapper context such as "sheet Act1: " in front of the message.
		msg := rErr.Message
		if prefix := strings.TrimSuffix(err.Error(), rErr.Error()); prefix != err.Error() {
			msg = prefix + msg
		}
		errorObj := map[string]any{
			"code":    rErr.Code,
			"message": msg,
			"status":  rErr.Status,
		}
		if rErr.Details != nil {
			errorObj["details"] = rErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
