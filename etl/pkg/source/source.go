package source

import (
	"errors"
	"fmt"
	"iter"
	"strings"
)

// ErrSourceUnavailable is returned when the dataset cannot be opened, cannot
// be decoded, or carries no header row.
var ErrSourceUnavailable = errors.New("source unavailable")

// Column names of the order dataset, as they appear in the header row once
// encoding artifacts are stripped.
const (
	ColState          = "State"
	ColCity           = "City"
	ColLocation       = "Location"
	ColRestaurantName = "Restaurant Name"
	ColCategory       = "Category"
	ColDishName       = "Dish Name"
	ColPrice          = "Price (INR)"
	ColRating         = "Rating"
	ColRatingCount    = "Rating Count"
	ColOrderDate      = "Order Date"
)

// RequiredColumns lists every column the normalizer reads.
var RequiredColumns = []string{
	ColState,
	ColCity,
	ColLocation,
	ColRestaurantName,
	ColCategory,
	ColDishName,
	ColPrice,
	ColRating,
	ColRatingCount,
	ColOrderDate,
}

// Record is one raw row: column name to cell text, untouched apart from
// header cleanup.
type Record map[string]string

// Reader yields the records of one dataset. The sequence reads the
// underlying source lazily and cannot be restarted; iteration stops at the
// first error.
type Reader interface {
	Header() []string
	Records() iter.Seq2[Record, error]
}

// bomArtifacts are the prefixes some encoders prepend to the first header
// cell: the UTF-8 byte-order mark itself, and the same three bytes decoded as
// Latin-1.
var bomArtifacts = []string{"\ufeff", "\u00ef\u00bb\u00bf"}

// CleanHeader strips byte-order-mark artifacts and surrounding whitespace from
// header names.
func CleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, name := range header {
		for {
			trimmed := name
			for _, bom := range bomArtifacts {
				trimmed = strings.TrimPrefix(trimmed, bom)
			}
			if trimmed == name {
				break
			}
			name = trimmed
		}
		out[i] = strings.TrimSpace(name)
	}
	return out
}

// checkHeader fails with ErrSourceUnavailable when a required column is
// absent.
func checkHeader(header []string) error {
	if len(header) == 0 {
		return fmt.Errorf("%w: no header row", ErrSourceUnavailable)
	}
	present := make(map[string]struct{}, len(header))
	for _, name := range header {
		present[name] = struct{}{}
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing columns %s", ErrSourceUnavailable, strings.Join(missing, ", "))
	}
	return nil
}

// toRecord pairs cells with header names. Short rows are padded with empty
// strings; cells past the header are dropped.
func toRecord(header, cells []string) Record {
	rec := make(Record, len(header))
	for i, name := range header {
		if i < len(cells) {
			rec[name] = cells[i]
		} else {
			rec[name] = ""
		}
	}
	return rec
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
