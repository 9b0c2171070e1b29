package source

import (
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/xuri/excelize/v2"
)

// XLSXReader streams rows from one worksheet of an Excel workbook. The first
// row of the sheet is the header.
type XLSXReader struct {
	file   *excelize.File
	rows   *excelize.Rows
	sheet  string
	header []string
}

// NewXLSXReader opens the workbook and positions the row cursor after the
// header. An empty sheet name selects the first sheet.
func NewXLSXReader(r io.Reader, sheet string) (*XLSXReader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open workbook: %w", ErrSourceUnavailable, err)
	}
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		f.Close()
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrSourceUnavailable)
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: failed to open sheet %q: %w", ErrSourceUnavailable, sheet, err)
	}

	x := &XLSXReader{file: f, rows: rows, sheet: sheet}
	if !rows.Next() {
		err := rows.Error()
		x.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read sheet %q: %w", ErrSourceUnavailable, sheet, err)
		}
		return nil, fmt.Errorf("%w: sheet %q is empty", ErrSourceUnavailable, sheet)
	}
	raw, err := rows.Columns()
	if err != nil {
		x.Close()
		return nil, fmt.Errorf("%w: failed to read header of sheet %q: %w", ErrSourceUnavailable, sheet, err)
	}
	x.header = CleanHeader(raw)
	if err := checkHeader(x.header); err != nil {
		x.Close()
		return nil, err
	}
	return x, nil
}

func (x *XLSXReader) Header() []string {
	return x.header
}

func (x *XLSXReader) Records() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for x.rows.Next() {
			cells, err := x.rows.Columns()
			if err != nil {
				yield(nil, fmt.Errorf("%w: failed to read row of sheet %q: %w", ErrSourceUnavailable, x.sheet, err))
				return
			}
			if isBlankRow(cells) {
				continue
			}
			if !yield(toRecord(x.header, cells), nil) {
				return
			}
		}
		if err := x.rows.Error(); err != nil {
			yield(nil, fmt.Errorf("%w: failed to iterate sheet %q: %w", ErrSourceUnavailable, x.sheet, err))
		}
	}
}

func (x *XLSXReader) Close() error {
	var errs []error
	if x.rows != nil {
		errs = append(errs, x.rows.Close())
	}
	if x.file != nil {
		errs = append(errs, x.file.Close())
	}
	return errors.Join(errs...)
}
