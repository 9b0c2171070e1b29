package orders

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/malbeclabs/orderlake/etl/pkg/source"
	laketesting "github.com/malbeclabs/orderlake/utils/pkg/testing"
	"github.com/stretchr/testify/require"
)

type sliceReader struct {
	records []source.Record
	err     error
}

func (r *sliceReader) Header() []string { return source.RequiredColumns }

func (r *sliceReader) Records() iter.Seq2[source.Record, error] {
	return func(yield func(source.Record, error) bool) {
		for _, rec := range r.records {
			if !yield(rec, nil) {
				return
			}
		}
		if r.err != nil {
			yield(nil, r.err)
		}
	}
}

func TestOrderLake_Orders_NewPipeline(t *testing.T) {
	t.Parallel()

	_, err := NewPipeline(PipelineConfig{})
	require.EqualError(t, err, "logger is required")

	p, err := NewPipeline(PipelineConfig{Logger: laketesting.NewLogger()})
	require.NoError(t, err)
	require.NotNil(t, p.cfg.Clock)
}

func TestOrderLake_Orders_Pipeline_Run(t *testing.T) {
	t.Parallel()

	t.Run("builds the star schema and validation summary", func(t *testing.T) {
		t.Parallel()
		clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
		p, err := NewPipeline(PipelineConfig{Logger: laketesting.NewLogger(), Clock: clock})
		require.NoError(t, err)

		raws := []source.Record{
			order(nil),
			order(map[string]string{source.ColDishName: "Veg Burger", source.ColRating: ""}),
			order(map[string]string{source.ColPrice: "free"}),
			order(map[string]string{source.ColCity: "Mysuru", source.ColRestaurantName: "MTR"}),
			order(nil),
		}
		res, err := p.Run(context.Background(), &sliceReader{records: raws})
		require.NoError(t, err)

		require.NotEqual(t, uuid.Nil, res.RunID)
		require.Equal(t, clock.Now(), res.StartedAt)
		require.Equal(t, res.StartedAt, res.FinishedAt)

		v := res.Validation
		require.Equal(t, 5, v.TotalRecords)
		require.Equal(t, 4, v.ValidRecords)
		require.Equal(t, 1, v.InvalidRecords)
		require.Equal(t, 1, v.DuplicateRecords)
		require.Equal(t, 1, v.MissingCount(FieldPrice))
		require.Equal(t, 1, v.MissingCount(FieldRating))

		m := res.Model
		require.Len(t, m.Facts, v.TotalRecords-v.InvalidRecords)
		require.NoError(t, m.Check())
		require.Equal(t, 2, m.Dimensions.Locations.Len())
		require.Equal(t, 2, m.Dimensions.Restaurants.Len())
		require.Equal(t, 1, m.Dimensions.Categories.Len())
		require.Equal(t, 2, m.Dimensions.Dishes.Len())
	})

	t.Run("each run gets a fresh id", func(t *testing.T) {
		t.Parallel()
		p, err := NewPipeline(PipelineConfig{Logger: laketesting.NewLogger()})
		require.NoError(t, err)
		a, err := p.Run(context.Background(), &sliceReader{records: []source.Record{order(nil)}})
		require.NoError(t, err)
		b, err := p.Run(context.Background(), &sliceReader{records: []source.Record{order(nil)}})
		require.NoError(t, err)
		require.NotEqual(t, a.RunID, b.RunID)
	})

	t.Run("empty input yields an empty model", func(t *testing.T) {
		t.Parallel()
		p, err := NewPipeline(PipelineConfig{Logger: laketesting.NewLogger()})
		require.NoError(t, err)
		res, err := p.Run(context.Background(), &sliceReader{})
		require.NoError(t, err)
		require.Empty(t, res.Model.Facts)
		require.Zero(t, res.Validation.TotalRecords)
	})

	t.Run("read failure aborts the run", func(t *testing.T) {
		t.Parallel()
		p, err := NewPipeline(PipelineConfig{Logger: laketesting.NewLogger()})
		require.NoError(t, err)
		readErr := errors.New("disk went away")
		res, err := p.Run(context.Background(), &sliceReader{
			records: []source.Record{order(nil)},
			err:     readErr,
		})
		require.ErrorIs(t, err, readErr)
		require.Nil(t, res)
	})

	t.Run("cancelled context aborts long reads", func(t *testing.T) {
		t.Parallel()
		p, err := NewPipeline(PipelineConfig{Logger: laketesting.NewLogger()})
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		recs := make([]source.Record, cancelCheckInterval)
		for i := range recs {
			recs[i] = order(nil)
		}
		_, err = p.Run(ctx, &sliceReader{records: recs})
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("runs end to end from csv", func(t *testing.T) {
		t.Parallel()
		data := "\ufeffState,City,Location,Restaurant Name,Category,Dish Name,Price (INR),Rating,Rating Count,Order Date\n" +
			"Goa,Panaji,Miramar,Ritz Classic,Seafood,Fish Thali,450,4.6,900,14-08-2025\n" +
			"Goa,Panaji,Miramar,Ritz Classic,Seafood,Prawn Curry,520,,,15-08-2025\n" +
			"Goa,,Miramar,Ritz Classic,Seafood,Prawn Curry,520,,,15-08-2025\n"
		r, err := source.NewCSVReader(strings.NewReader(data))
		require.NoError(t, err)

		p, err := NewPipeline(PipelineConfig{Logger: laketesting.NewLogger()})
		require.NoError(t, err)
		res, err := p.Run(context.Background(), r)
		require.NoError(t, err)
		require.Len(t, res.Model.Facts, 2)
		require.Equal(t, 1, res.Validation.MissingCount(FieldCity))
		require.Equal(t, 1, res.Model.Dimensions.Locations.Len())
	})
}
