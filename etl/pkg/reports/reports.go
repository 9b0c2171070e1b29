// Package reports computes the fixed set of business reports over a linked
// order model. Every report is a pure function of the model; none of them
// mutates it, so they may run in any order or concurrently.
package reports

import (
	"cmp"
	"context"
	"slices"

	"github.com/malbeclabs/orderlake/etl/pkg/orders"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	TopCitiesLimit      = 10
	TopCategoriesLimit  = 10
	TopDishesLimit      = 5
	TopRestaurantsLimit = 10
)

var million = decimal.NewFromInt(1_000_000)

// Reports holds the ten result sets of one run.
type Reports struct {
	KPI                 KPISummary          `json:"kpi_summary"`
	MonthlyTrend        []MonthlyTrendRow   `json:"monthly_trend"`
	TopCities           []CityRow           `json:"top_cities"`
	SpendingBuckets     []BucketRow         `json:"spending_buckets"`
	CategoryPerformance []CategoryRow       `json:"category_performance"`
	RatingDistribution  []RatingRow         `json:"rating_distribution"`
	TopDishes           []DishRow           `json:"top_dishes"`
	TopRestaurants      []RestaurantRow     `json:"top_restaurants"`
	QuarterlyTrend      []QuarterlyTrendRow `json:"quarterly_trend"`
	DayOfWeek           []DayOfWeekRow      `json:"day_of_week"`
}

// Compute runs every report concurrently over m.
func Compute(ctx context.Context, m *orders.Model) (*Reports, error) {
	var r Reports
	g, ctx := errgroup.WithContext(ctx)
	run := func(fn func()) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn()
			return nil
		})
	}

	run(func() { r.KPI = ComputeKPISummary(m) })
	run(func() { r.MonthlyTrend = ComputeMonthlyTrend(m) })
	run(func() { r.TopCities = ComputeTopCities(m) })
	run(func() { r.SpendingBuckets = ComputeSpendingBuckets(m) })
	run(func() { r.CategoryPerformance = ComputeCategoryPerformance(m) })
	run(func() { r.RatingDistribution = ComputeRatingDistribution(m) })
	run(func() { r.TopDishes = ComputeTopDishes(m) })
	run(func() { r.TopRestaurants = ComputeTopRestaurants(m) })
	run(func() { r.QuarterlyTrend = ComputeQuarterlyTrend(m) })
	run(func() { r.DayOfWeek = ComputeDayOfWeek(m) })

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &r, nil
}

type ranked struct {
	key     string
	orders  int
	revenue decimal.Decimal
	ratings ratingAvg
}

// rankByOrders groups facts by key and orders groups by descending order
// count, then ascending key so ties are reproducible. limit <= 0 keeps all.
func rankByOrders(m *orders.Model, key func(orders.Fact) string, limit int) []ranked {
	groups := make(map[string]*ranked)
	for _, f := range m.Facts {
		k := key(f)
		g, ok := groups[k]
		if !ok {
			g = &ranked{key: k}
			groups[k] = g
		}
		g.orders++
		g.revenue = g.revenue.Add(f.Price)
		g.ratings.add(f.Rating)
	}

	out := make([]ranked, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	slices.SortFunc(out, func(a, b ranked) int {
		if c := cmp.Compare(b.orders, a.orders); c != 0 {
			return c
		}
		return cmp.Compare(a.key, b.key)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ratingAvg averages ratings, skipping absent ones.
type ratingAvg struct {
	sum   decimal.Decimal
	count int64
}

func (a *ratingAvg) add(r decimal.NullDecimal) {
	if !r.Valid {
		return
	}
	a.sum = a.sum.Add(r.Decimal)
	a.count++
}

// value returns the average rounded to two places, or an invalid value when
// no rating was present.
func (a ratingAvg) value() decimal.NullDecimal {
	if a.count == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: a.sum.Div(decimal.NewFromInt(a.count)).Round(2), Valid: true}
}
