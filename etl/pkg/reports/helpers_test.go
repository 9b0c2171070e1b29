package reports

import (
	"testing"

	"github.com/malbeclabs/orderlake/etl/pkg/orders"
	"github.com/malbeclabs/orderlake/etl/pkg/source"
	"github.com/stretchr/testify/require"
)

func row(overrides map[string]string) source.Record {
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

func newModel(t *testing.T, rows ...source.Record) *orders.Model {
	t.Helper()
	records := make([]orders.NormalizedRecord, len(rows))
	for i, r := range rows {
		records[i] = orders.Normalize(r)
	}
	dims := orders.BuildDimensions(records)
	facts, err := orders.LinkFacts(records, dims)
	require.NoError(t, err)
	m := &orders.Model{Dimensions: dims, Facts: facts}
	require.NoError(t, m.Check())
	return m
}

func prices(t *testing.T, ps ...string) *orders.Model {
	t.Helper()
	rows := make([]source.Record, len(ps))
	for i, p := range ps {
		rows[i] = row(map[string]string{source.ColPrice: p})
	}
	return newModel(t, rows...)
}
