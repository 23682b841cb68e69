// Package pipeline wires extraction, formatting and chunking into one run and
// hands the resulting chunks to an indexer.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/hpungsan/relicdex/internal/chunk"
	"github.com/hpungsan/relicdex/internal/extract"
	"github.com/hpungsan/relicdex/internal/format"
	"github.com/hpungsan/relicdex/internal/record"
)

// Extractor reads records from a tabular source.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]record.Record, error)
}

// Indexer receives chunks in emission order.
type Indexer interface {
	Add(ctx context.Context, id, text string) error
}

// IndexerFunc adapts a function to Indexer.
type IndexerFunc func(ctx context.Context, id, text string) error

// Add implements Indexer.
func (f IndexerFunc) Add(ctx context.Context, id, text string) error { return f(ctx, id, text) }

// Result is the output of one pipeline run.
type Result struct {
	Records []record.Record
	Text    string
	Chunks  *chunk.Chunks
}

// Pipeline runs Extractor -> Format -> Chunker. Stages run in sequence since each
// consumes the previous stage's whole output.
type Pipeline struct {
	extractor Extractor
	chunker   *chunk.Chunker
	log       *slog.Logger
}

// New creates a Pipeline. A nil logger discards.
func New(extractor Extractor, chunker *chunk.Chunker, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{extractor: extractor, chunker: chunker, log: logger}
}

// Options configures NewFromOptions.
type Options struct {
	Extract extract.Options
	Chunk   chunk.Options
	Logger  *slog.Logger
}

// NewFromOptions builds the default extractor and chunker. Invalid chunk options
// fail here, before any source is read.
func NewFromOptions(opts Options) (*Pipeline, error) {
	if opts.Extract.Logger == nil {
		opts.Extract.Logger = opts.Logger
	}
	if opts.Chunk.Logger == nil {
		opts.Chunk.Logger = opts.Logger
	}
	chunker, err := chunk.New(opts.Chunk)
	if err != nil {
		return nil, err
	}
	return New(extract.New(opts.Extract), chunker, opts.Logger), nil
}

// Run extracts, formats and chunks the source at path.
// Zero records is not an error; it yields an empty chunk set.
func (p *Pipeline) Run(ctx context.Context, path string) (*Result, error) {
	start := time.Now()

	records, err := p.extractor.Extract(ctx, path)
	if err != nil {
		return nil, err
	}

	text := format.Format(records)
	chunks, err := p.chunker.Chunk(text, format.Separator)
	if err != nil {
		return nil, err
	}

	p.log.Info("pipeline run complete",
		"path", path,
		"records", len(records),
		"chunks", chunks.Len(),
		"max_chunk_size", p.chunker.MaxChunkSize(),
		"line_budget", p.chunker.LineBudget(),
		"elapsed", time.Since(start),
	)
	return &Result{Records: records, Text: text, Chunks: chunks}, nil
}

// Index runs the pipeline and hands every chunk to idx in order. It stops at the
// first indexer error.
func (p *Pipeline) Index(ctx context.Context, path string, idx Indexer) (*Result, error) {
	res, err := p.Run(ctx, path)
	if err != nil {
		return nil, err
	}
	err = res.Chunks.Each(func(id, text string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return idx.Add(ctx, id, text)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
