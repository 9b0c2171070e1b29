package reports

import (
	"github.com/malbeclabs/orderlake/etl/pkg/orders"
	"github.com/shopspring/decimal"
)

type KPISummary struct {
	TotalOrders int `json:"total_orders"`
	// TotalRevenueMillions is sum(price) / 1e6 with exactly two decimals.
	TotalRevenueMillions string              `json:"total_revenue_inr_million"`
	AvgDishPrice         decimal.Decimal     `json:"avg_dish_price"`
	AvgRating            decimal.NullDecimal `json:"avg_rating"`
}

func ComputeKPISummary(m *orders.Model) KPISummary {
	var (
		revenue decimal.Decimal
		ratings ratingAvg
	)
	for _, f := range m.Facts {
		revenue = revenue.Add(f.Price)
		ratings.add(f.Rating)
	}

	kpi := KPISummary{
		TotalOrders:          len(m.Facts),
		TotalRevenueMillions: revenue.Div(million).StringFixed(2),
		AvgDishPrice:         decimal.Zero,
		AvgRating:            ratings.value(),
	}
	if n := len(m.Facts); n > 0 {
		kpi.AvgDishPrice = revenue.Div(decimal.NewFromInt(int64(n))).Round(2)
	}
	return kpi
}
