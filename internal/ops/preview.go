package ops

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hpungsan/relicdex/internal/chunk"
	"github.com/hpungsan/relicdex/internal/config"
	"github.com/hpungsan/relicdex/internal/errors"
)

// PreviewInput contains parameters for the Preview operation.
type PreviewInput struct {
	Source string // required
}

// PreviewOutput contains the chunks a build would store.
type PreviewOutput struct {
	Source  string        `json:"source"`
	Records int           `json:"records"`
	Chunks  *chunk.Chunks `json:"chunks"`
}

// Preview runs the pipeline without touching the index.
func Preview(ctx context.Context, cfg *config.Config, log *slog.Logger, input PreviewInput) (*PreviewOutput, error) {
	source := strings.TrimSpace(input.Source)
	if source == "" {
		return nil, errors.NewInvalidRequest("source is required")
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	p, err := NewPipeline(cfg, orDiscard(log))
	if err != nil {
		return nil, err
	}
	res, err := p.Run(ctx, source)
	if err != nil {
		return nil, err
	}

	return &PreviewOutput{
		Source:  source,
		Records: len(res.Records),
		Chunks:  res.Chunks,
	}, nil
}
