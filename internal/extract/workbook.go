package extract

import (
	"github.com/xuri/excelize/v2"
)

// Workbook is a tabular source made of named sheets.
type Workbook interface {
	// SheetNames returns the sheet names in workbook order.
	SheetNames() []string
	// Rows opens an iterator over the named sheet.
	Rows(sheet string) (RowIterator, error)
	Close() error
}

// RowIterator walks a sheet's rows in order.
type RowIterator interface {
	Next() bool
	// Cell returns the value of the 0-based column in the current row.
	// Columns past the end of the row are empty, not an error.
	Cell(col int) (string, error)
	Err() error
	Close() error
}

// Opener opens a workbook by path.
type Opener func(path string) (Workbook, error)

// OpenXLSX opens an .xlsx workbook with excelize.
func OpenXLSX(path string) (Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return &xlsxWorkbook{f: f}, nil
}

type xlsxWorkbook struct {
	f *excelize.File
}

func (w *xlsxWorkbook) SheetNames() []string { return w.f.GetSheetList() }

func (w *xlsxWorkbook) Rows(sheet string) (RowIterator, error) {
	rows, err := w.f.Rows(sheet)
	if err != nil {
		return nil, err
	}
	return &xlsxRows{rows: rows}, nil
}

func (w *xlsxWorkbook) Close() error { return w.f.Close() }

// xlsxRows decodes the current row lazily on the first Cell call.
type xlsxRows struct {
	rows    *excelize.Rows
	cols    []string
	colsErr error
	loaded  bool
}

func (r *xlsxRows) Next() bool {
	r.cols, r.colsErr, r.loaded = nil, nil, false
	return r.rows.Next()
}

func (r *xlsxRows) Cell(col int) (string, error) {
	if !r.loaded {
		r.cols, r.colsErr = r.rows.Columns()
		r.loaded = true
	}
	if r.colsErr != nil {
		return "", r.colsErr
	}
	if col < 0 || col >= len(r.cols) {
		return "", nil
	}
	return r.cols[col], nil
}

func (r *xlsxRows) Err() error { return r.rows.Error() }

func (r *xlsxRows) Close() error { return r.rows.Close() }
