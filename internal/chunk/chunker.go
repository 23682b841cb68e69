// Package chunk splits the formatted record stream into bounded, self-describing
// chunks keyed by a stable identifier.
//
// Records that fit MaxChunkSize are emitted whole under their ItemID. Larger
// records are split into parts that each repeat the "Item:" header and the
// "ItemID:" footer so every part can be retrieved and attributed on its own.
package chunk

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hpungsan/relicdex/internal/errors"
	"github.com/hpungsan/relicdex/internal/format"
	"github.com/hpungsan/relicdex/internal/record"
)

// Defaults
const (
	DefaultMaxChunkSize = 1024 // characters
	DefaultLineBudget   = 128  // tokens per line and per part
)

// Options configures a Chunker.
type Options struct {
	MaxChunkSize int
	LineBudget   int
	Splitter     Splitter
	Logger       *slog.Logger
}

// Chunker turns a formatted record stream into chunks. It holds only configuration
// and is safe for concurrent use.
type Chunker struct {
	maxChunkSize int
	lineBudget   int
	splitter     Splitter
	log          *slog.Logger
}

// DefaultOptions returns the default chunking configuration.
func DefaultOptions() Options {
	return Options{
		MaxChunkSize: DefaultMaxChunkSize,
		LineBudget:   DefaultLineBudget,
	}
}

// New validates opts and creates a Chunker. Non-positive sizes are a CONFIGURATION
// error. A nil Splitter counts characters; a nil Logger discards.
func New(opts Options) (*Chunker, error) {
	if opts.MaxChunkSize <= 0 {
		return nil, errors.NewConfiguration(fmt.Sprintf("max chunk size must be positive, got %d", opts.MaxChunkSize))
	}
	if opts.LineBudget <= 0 {
		return nil, errors.NewConfiguration(fmt.Sprintf("line token budget must be positive, got %d", opts.LineBudget))
	}
	if opts.Splitter == nil {
		opts.Splitter = NewTextSplitter(CharCounter)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Chunker{
		maxChunkSize: opts.MaxChunkSize,
		lineBudget:   opts.LineBudget,
		splitter:     opts.Splitter,
		log:          opts.Logger,
	}, nil
}

// MaxChunkSize returns the whole-record threshold in characters.
func (c *Chunker) MaxChunkSize() int { return c.maxChunkSize }

// LineBudget returns the per-line and per-part token budget.
func (c *Chunker) LineBudget() int { return c.lineBudget }

// Chunk splits text on separator and returns the chunks in input order.
// Only an empty separator is an error; malformed blocks fall back to positional
// ids ("item{i}").
func (c *Chunker) Chunk(text, separator string) (*Chunks, error) {
	if separator == "" {
		return nil, errors.NewConfiguration("separator must not be empty")
	}

	out := newChunks()
	for i, block := range splitBlocks(text, separator) {
		itemID := lineValue(block, format.ItemIDPrefix)
		itemName := lineValue(block, format.ItemPrefix)

		base := itemID
		if base == "" {
			base = fmt.Sprintf("item%d", i)
		}

		if record.CountChars(block) <= c.maxChunkSize {
			c.add(out, base, block)
			continue
		}

		parts := c.splitBlock(block, itemName, itemID)
		c.log.Debug("split oversized record", "id", base, "chars", record.CountChars(block), "parts", len(parts))
		for j, part := range parts {
			c.add(out, fmt.Sprintf("%s_part%d", base, j), part)
		}
	}
	return out, nil
}

// add stores text under id, suffixing "_2", "_3", ... when id is already taken.
func (c *Chunker) add(out *Chunks, id, text string) {
	if !out.Has(id) {
		out.set(id, text)
		return
	}
	n := 2
	for out.Has(fmt.Sprintf("%s_%d", id, n)) {
		n++
	}
	unique := fmt.Sprintf("%s_%d", id, n)
	c.log.Warn("duplicate chunk id", "id", id, "renamed", unique)
	out.set(unique, text)
}

// splitBlock splits an oversized block into parts that each carry the header and
// footer. Each part stays within the line budget unless header and footer alone
// exceed it.
func (c *Chunker) splitBlock(block, itemName, itemID string) []string {
	header := ""
	if itemName != "" {
		header = format.ItemPrefix + " " + itemName + "\n"
	}
	footer := ""
	if itemID != "" {
		footer = "\n" + format.ItemIDPrefix + " " + itemID
	}

	budget := c.lineBudget - c.splitter.Count(header) - c.splitter.Count(footer)
	if budget <= 0 {
		c.log.Warn("record header exceeds line budget", "item", itemName, "budget", c.lineBudget)
		budget = c.lineBudget
	}

	lines := c.splitter.SplitLines(strings.Join(bodyLines(block), "\n"), budget)
	paragraphs := c.splitter.SplitParagraphs(lines, budget)
	if len(paragraphs) == 0 {
		return []string{strings.TrimSuffix(header, "\n") + footer}
	}

	parts := make([]string, len(paragraphs))
	for i, p := range paragraphs {
		parts[i] = header + p + footer
	}
	return parts
}

// splitBlocks splits text on separator and drops blank pieces.
func splitBlocks(text, separator string) []string {
	var blocks []string
	for _, piece := range strings.Split(text, separator) {
		if piece = strings.TrimSpace(piece); piece != "" {
			blocks = append(blocks, piece)
		}
	}
	return blocks
}

// lineValue returns the trimmed remainder of the first line starting with prefix.
func lineValue(block, prefix string) string {
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return ""
}

// bodyLines returns the block's lines without a leading "Item:" line and a
// trailing "ItemID:" line; both are re-added to every part.
func bodyLines(block string) []string {
	lines := strings.Split(block, "\n")
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[0]), format.ItemPrefix) {
		lines = lines[1:]
	}
	if n := len(lines); n > 0 && strings.HasPrefix(strings.TrimSpace(lines[n-1]), format.ItemIDPrefix) {
		lines = lines[:n-1]
	}
	return lines
}
