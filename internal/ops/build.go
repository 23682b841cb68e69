package ops

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/relicdex/internal/config"
	"github.com/hpungsan/relicdex/internal/db"
	"github.com/hpungsan/relicdex/internal/errors"
	"github.com/hpungsan/relicdex/internal/record"
	"github.com/hpungsan/relicdex/internal/vector"
)

// BuildInput contains parameters for the Build operation.
type BuildInput struct {
	Source     string // required, path to the workbook
	Collection string // required
	Rebuild    bool   // replace an existing collection
}

// BuildOutput contains the result of the Build operation.
type BuildOutput struct {
	Collection string `json:"collection"`
	RunID      string `json:"run_id"`
	Source     string `json:"source"`
	Records    int    `json:"records"`
	Chunks     int    `json:"chunks"`
	Replaced   bool   `json:"replaced"`
	BuiltAt    int64  `json:"built_at"`
}

// Build extracts, chunks and embeds a workbook and stores the result as a
// collection. An existing collection is only replaced when Rebuild is set; the
// replacement is atomic.
func Build(ctx context.Context, database *sql.DB, cfg *config.Config, log *slog.Logger, input BuildInput) (*BuildOutput, error) {
	log = orDiscard(log)
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	name, err := ValidateCollectionName(input.Collection)
	if err != nil {
		return nil, err
	}
	source := strings.TrimSpace(input.Source)
	if source == "" {
		return nil, errors.NewInvalidRequest("source is required")
	}
	if abs, err := filepath.Abs(source); err == nil {
		source = abs
	}

	exists, err := db.CollectionExists(ctx, database, name)
	if err != nil {
		return nil, err
	}
	if exists && !input.Rebuild {
		return nil, errors.NewCollectionExists(name)
	}

	p, err := NewPipeline(cfg, log)
	if err != nil {
		return nil, err
	}

	idx := &embeddingIndexer{embedder: NewEmbedder(cfg.EmbeddingDimensions)}
	res, err := p.Index(ctx, source, idx)
	if err != nil {
		var rErr *errors.RelicError
		if stderrors.As(err, &rErr) {
			return nil, err
		}
		return nil, errors.NewInternal(err)
	}

	now := time.Now()
	coll := &db.Collection{
		Name:         name,
		SourcePath:   source,
		RunID:        ulid.Make().String(),
		RecordCount:  len(res.Records),
		Dimensions:   cfg.EmbeddingDimensions,
		MaxChunkSize: cfg.MaxChunkSize,
		CreatedAt:    now.Unix(),
	}
	if err := db.ReplaceCollection(ctx, database, coll, idx.chunks); err != nil {
		return nil, err
	}

	log.Info("collection built",
		"collection", name,
		"run_id", coll.RunID,
		"records", coll.RecordCount,
		"chunks", coll.ChunkCount,
		"replaced", exists,
	)

	return &BuildOutput{
		Collection: name,
		RunID:      coll.RunID,
		Source:     source,
		Records:    coll.RecordCount,
		Chunks:     coll.ChunkCount,
		Replaced:   exists,
		BuiltAt:    coll.CreatedAt,
	}, nil
}

// embeddingIndexer embeds chunks as the pipeline emits them.
type embeddingIndexer struct {
	embedder vector.Embedder
	chunks   []db.Chunk
}

func (e *embeddingIndexer) Add(ctx context.Context, id, text string) error {
	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed chunk %q: %w", id, err)
	}
	e.chunks = append(e.chunks, db.Chunk{
		Position:  len(e.chunks),
		ID:        id,
		Text:      text,
		Chars:     record.CountChars(text),
		Embedding: vec,
	})
	return nil
}
