package orders

import (
	"testing"

	"github.com/malbeclabs/orderlake/etl/pkg/source"
	"github.com/stretchr/testify/require"
)

func TestOrderLake_Orders_Validator(t *testing.T) {
	t.Parallel()

	t.Run("counts valid, invalid and missing fields", func(t *testing.T) {
		t.Parallel()
		v := NewValidator()
		for _, r := range normalizeAll(
			order(nil),
			order(map[string]string{source.ColRating: ""}),
			order(map[string]string{source.ColOrderDate: "bad", source.ColCity: ""}),
			order(map[string]string{source.ColPrice: "", source.ColDishName: "Fries"}),
			order(map[string]string{source.ColRestaurantName: "", source.ColRating: "x"}),
		) {
			v.Observe(r)
		}

		s := v.Summary()
		require.Equal(t, 5, s.TotalRecords)
		require.Equal(t, 2, s.ValidRecords)
		require.Equal(t, 3, s.InvalidRecords)
		require.Equal(t, 1, s.MissingCount(FieldOrderDate))
		require.Equal(t, 1, s.MissingCount(FieldCity))
		require.Equal(t, 1, s.MissingCount(FieldPrice))
		require.Equal(t, 1, s.MissingCount(FieldRestaurantName))
		require.Equal(t, 2, s.MissingCount(FieldRating))
		require.Equal(t, 0, s.MissingCount(FieldState))
		require.Equal(t, 1, s.Violations[FieldOrderDate])
		require.Equal(t, 1, s.Violations[FieldCity])
		require.Equal(t, 1, s.Violations[FieldPrice])
		require.Equal(t, 1, s.Violations[FieldRestaurantName])
		require.Zero(t, s.Violations[FieldRating])
	})

	t.Run("negative price is a violation but not missing", func(t *testing.T) {
		t.Parallel()
		v := NewValidator()
		v.Observe(Normalize(order(map[string]string{source.ColPrice: "-1"})))
		s := v.Summary()
		require.Equal(t, 1, s.Violations[FieldPrice])
		require.Equal(t, 1, s.MissingCount(FieldPrice))
	})

	t.Run("counts duplicates without dropping them", func(t *testing.T) {
		t.Parallel()
		v := NewValidator()
		for _, r := range normalizeAll(
			order(nil),
			order(map[string]string{source.ColCategory: " Burgers "}),
			order(nil),
			order(map[string]string{source.ColPrice: "250"}),
		) {
			v.Observe(r)
		}
		s := v.Summary()
		require.Equal(t, 2, s.DuplicateRecords)
		require.Equal(t, 4, s.ValidRecords)
	})

	t.Run("summary is a snapshot", func(t *testing.T) {
		t.Parallel()
		v := NewValidator()
		v.Observe(Normalize(order(map[string]string{source.ColCity: ""})))
		s := v.Summary()
		v.Observe(Normalize(order(map[string]string{source.ColCity: ""})))
		require.Equal(t, 1, s.MissingCount(FieldCity))
		require.Equal(t, 2, v.Summary().MissingCount(FieldCity))
	})
}
