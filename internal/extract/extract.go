// Package extract reads catalog records out of a spreadsheet workbook.
//
// Every sheet except the excluded one is read independently: the first row is a
// header, rows with a blank first cell are skipped, and columns A-G map to name,
// rarity, type, properties, area, location and description. The sheet name is the
// record's source. A failing sheet is logged and dropped; a failing cell reads as "".
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/relicdex/internal/errors"
	"github.com/hpungsan/relicdex/internal/record"
)

// DefaultExcludedSheet is the table-of-contents sheet skipped by default.
const DefaultExcludedSheet = "Index"

// Column positions (0-based) of the record attributes.
const (
	colName = iota
	colRarity
	colCategory
	colProperties
	colArea
	colLocation
	colDescription
)

// Options configures an Extractor.
type Options struct {
	// ExcludedSheet is skipped (compared case-insensitively). Empty skips nothing.
	ExcludedSheet string
	// Workers bounds parallel sheet extraction. Values below 2 read sheets sequentially.
	Workers int
	// Open opens the source. Defaults to OpenXLSX.
	Open   Opener
	Logger *slog.Logger
}

// Extractor turns a workbook into deduplicated records.
type Extractor struct {
	excluded string
	workers  int
	open     Opener
	log      *slog.Logger
}

// New creates an Extractor.
func New(opts Options) *Extractor {
	if opts.Open == nil {
		opts.Open = OpenXLSX
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{
		excluded: record.Normalize(strings.TrimSpace(opts.ExcludedSheet)),
		workers:  max(opts.Workers, 1),
		open:     opts.Open,
		log:      opts.Logger,
	}
}

// Extract reads all eligible sheets at path and returns records in sheet and row
// order, deduplicated by identity key. It fails with a SOURCE_READ error when the
// workbook cannot be opened.
func (e *Extractor) Extract(ctx context.Context, path string) ([]record.Record, error) {
	wb, err := e.open(path)
	if err != nil {
		return nil, errors.NewSourceRead(path, err)
	}
	defer wb.Close()

	var sheets []string
	for _, name := range wb.SheetNames() {
		if e.excluded != "" && record.Normalize(strings.TrimSpace(name)) == e.excluded {
			e.log.Debug("skipping excluded sheet", "sheet", name)
			continue
		}
		sheets = append(sheets, name)
	}

	// Indexed results keep sheet order regardless of completion order.
	results := make([][]record.Record, len(sheets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, sheet := range sheets {
		g.Go(func() error {
			recs, err := e.extractSheet(gctx, wb, sheet)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				e.log.Warn("dropping sheet", "error", errors.NewSubTableProcessing(sheet, err))
				return nil
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []record.Record
	for _, recs := range results {
		all = append(all, recs...)
	}
	records := record.Dedupe(all)
	e.log.Info("extracted records", "path", path, "sheets", len(sheets), "rows", len(all), "records", len(records))
	return records, nil
}

// extractSheet reads one sheet. Panics from the underlying reader are turned into
// errors so one bad sheet cannot take down the whole extraction.
func (e *Extractor) extractSheet(ctx context.Context, wb Workbook, sheet string) (recs []record.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			recs, err = nil, fmt.Errorf("panic reading sheet: %v", r)
		}
	}()

	rows, err := wb.Rows(sheet)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for row := 0; rows.Next(); row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if row == 0 {
			continue
		}

		name := e.cell(rows, sheet, row, colName)
		if name == "" {
			continue
		}
		recs = append(recs, record.New(record.Fields{
			Name:        name,
			Rarity:      e.cell(rows, sheet, row, colRarity),
			Category:    e.cell(rows, sheet, row, colCategory),
			Properties:  e.cell(rows, sheet, row, colProperties),
			Area:        e.cell(rows, sheet, row, colArea),
			Location:    e.cell(rows, sheet, row, colLocation),
			Description: e.cell(rows, sheet, row, colDescription),
			Source:      sheet,
		}))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	e.log.Debug("read sheet", "sheet", sheet, "records", len(recs))
	return recs, nil
}

// cell reads a trimmed cell value; read failures become "".
func (e *Extractor) cell(rows RowIterator, sheet string, row, col int) string {
	v, err := rows.Cell(col)
	if err != nil {
		e.log.Debug("unreadable cell", "error", errors.NewCellRead(sheet, row, col, err))
		return ""
	}
	return strings.TrimSpace(v)
}
