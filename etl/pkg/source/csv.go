package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
)

// CSVReader decodes a comma-separated dataset whose first row is the header.
type CSVReader struct {
	r      *csv.Reader
	header []string
}

// NewCSVReader reads and validates the header row immediately; data rows are
// decoded as the sequence is consumed.
func NewCSVReader(r io.Reader) (*CSVReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	raw, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty csv", ErrSourceUnavailable)
		}
		return nil, fmt.Errorf("%w: failed to read csv header: %w", ErrSourceUnavailable, err)
	}
	header := CleanHeader(raw)
	if err := checkHeader(header); err != nil {
		return nil, err
	}
	return &CSVReader{r: cr, header: header}, nil
}

func (c *CSVReader) Header() []string {
	return c.header
}

func (c *CSVReader) Records() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for {
			cells, err := c.r.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("%w: failed to read csv row: %w", ErrSourceUnavailable, err))
				return
			}
			if isBlankRow(cells) {
				continue
			}
			if !yield(toRecord(c.header, cells), nil) {
				return
			}
		}
	}
}
