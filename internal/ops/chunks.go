package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/relicdex/internal/db"
	"github.com/hpungsan/relicdex/internal/errors"
	"github.com/hpungsan/relicdex/internal/record"
)

// FetchChunkInput contains parameters for the FetchChunk operation.
type FetchChunkInput struct {
	Collection string // required
	ID         string // required
}

// FetchChunkOutput is one stored chunk.
type FetchChunkOutput struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Position   int    `json:"position"`
	Text       string `json:"text"`
	Chars      int    `json:"chars"`
	Tokens     int    `json:"tokens_estimate"`
}

// FetchChunk retrieves a single chunk by id.
func FetchChunk(ctx context.Context, database *sql.DB, input FetchChunkInput) (*FetchChunkOutput, error) {
	name, err := ValidateCollectionName(input.Collection)
	if err != nil {
		return nil, err
	}
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	// Distinguish a missing collection from a missing chunk.
	if _, err := db.GetCollection(ctx, database, name); err != nil {
		return nil, err
	}
	c, err := db.GetChunk(ctx, database, name, id)
	if err != nil {
		return nil, err
	}

	return &FetchChunkOutput{
		Collection: name,
		ID:         c.ID,
		Position:   c.Position,
		Text:       c.Text,
		Chars:      c.Chars,
		Tokens:     record.EstimateTokens(c.Text),
	}, nil
}

// ListChunksInput contains parameters for the ListChunks operation.
type ListChunksInput struct {
	Collection string // required
	Limit      int    // default: 20, max: 100
	Offset     int    // default: 0
}

// ChunkSummary is a chunk without its text.
type ChunkSummary struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
	Chars    int    `json:"chars"`
}

// ListChunksOutput contains the result of the ListChunks operation.
type ListChunksOutput struct {
	Collection string         `json:"collection"`
	Items      []ChunkSummary `json:"items"`
	Pagination Pagination     `json:"pagination"`
	Sort       string         `json:"sort"` // "position"
}

// ListChunks returns chunk summaries of a collection in emission order.
func ListChunks(ctx context.Context, database *sql.DB, input ListChunksInput) (*ListChunksOutput, error) {
	name, err := ValidateCollectionName(input.Collection)
	if err != nil {
		return nil, err
	}

	limit := clampLimit(input.Limit, DefaultListLimit, MaxListLimit)
	offset := max(input.Offset, 0)

	if _, err := db.GetCollection(ctx, database, name); err != nil {
		return nil, err
	}
	total, err := db.CountChunks(ctx, database, name)
	if err != nil {
		return nil, err
	}
	chunks, err := db.ListChunks(ctx, database, name, limit, offset)
	if err != nil {
		return nil, err
	}

	items := make([]ChunkSummary, 0, len(chunks))
	for _, c := range chunks {
		items = append(items, ChunkSummary{ID: c.ID, Position: c.Position, Chars: c.Chars})
	}

	return &ListChunksOutput{
		Collection: name,
		Items:      items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "position",
	}, nil
}
