// Package ops implements the relicdex operations shared by the CLI, the MCP
// server and the web UI.
package ops

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/hpungsan/relicdex/internal/chunk"
	"github.com/hpungsan/relicdex/internal/config"
	"github.com/hpungsan/relicdex/internal/errors"
	"github.com/hpungsan/relicdex/internal/extract"
	"github.com/hpungsan/relicdex/internal/pipeline"
	"github.com/hpungsan/relicdex/internal/vector"
)

// Pagination limits
const (
	DefaultListLimit   = 20
	MaxListLimit       = 100
	DefaultSearchLimit = 5
	MaxSearchLimit     = 50
	MaxQueryLength     = 1000
	MaxCollectionName  = 64
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

var collectionNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidateCollectionName trims and lowercases name and checks it is a safe
// identifier (letters, digits, '-' and '_').
func ValidateCollectionName(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", errors.NewInvalidRequest("collection is required")
	}
	if len(name) > MaxCollectionName {
		return "", errors.NewInvalidRequest(fmt.Sprintf("collection name exceeds %d characters", MaxCollectionName))
	}
	if !collectionNamePattern.MatchString(name) {
		return "", errors.NewInvalidRequest("collection name may only contain letters, digits, '-' and '_'")
	}
	return name, nil
}

// NewPipeline builds the extraction pipeline described by cfg.
func NewPipeline(cfg *config.Config, log *slog.Logger) (*pipeline.Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	counter := chunk.CharCounter
	if cfg.TokenCounter == config.CounterWords {
		counter = chunk.WordCounter
	}

	return pipeline.NewFromOptions(pipeline.Options{
		Extract: extract.Options{
			ExcludedSheet: cfg.ExcludedSheet,
			Workers:       cfg.ExtractWorkers,
		},
		Chunk: chunk.Options{
			MaxChunkSize: cfg.MaxChunkSize,
			LineBudget:   cfg.LineTokenBudget,
			Splitter:     chunk.NewTextSplitter(counter),
		},
		Logger: log,
	})
}

// NewEmbedder returns the embedder used for collections of the given dimensions.
func NewEmbedder(dimensions int) vector.Embedder {
	return vector.NewHashEmbedder(dimensions)
}

func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		limit = def
	}
	return min(limit, maxLimit)
}

func orDiscard(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return log
}
