package orders

import (
	"github.com/malbeclabs/orderlake/etl/pkg/source"
)

// order builds a raw record with sensible defaults; overrides replace single
// columns.
func order(overrides map[string]string) source.Record {
	rec := source.Record{
		source.ColState:          "Karnataka",
		source.ColCity:           "Bengaluru",
		source.ColLocation:       "Koramangala",
		source.ColRestaurantName: "Truffles",
		source.ColCategory:       "Burgers",
		source.ColDishName:       "Classic Burger",
		source.ColPrice:          "249.00",
		source.ColRating:         "4.4",
		source.ColRatingCount:    "120",
		source.ColOrderDate:      "05-03-2025",
	}
	for k, v := range overrides {
		rec[k] = v
	}
	return rec
}

func normalizeAll(raws ...source.Record) []NormalizedRecord {
	out := make([]NormalizedRecord, len(raws))
	for i, r := range raws {
		out[i] = Normalize(r)
	}
	return out
}
