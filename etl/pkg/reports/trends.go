package reports

import (
	"slices"
	"time"

	"github.com/malbeclabs/orderlake/etl/pkg/orders"
	"github.com/shopspring/decimal"
)

type MonthlyTrendRow struct {
	Month       int             `json:"month"`
	MonthName   string          `json:"month_name"`
	TotalOrders int             `json:"total_orders"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type QuarterlyTrendRow struct {
	Quarter     int             `json:"quarter"`
	TotalOrders int             `json:"total_orders"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// DayOfWeekRow uses index 1 for Sunday through 7 for Saturday.
type DayOfWeekRow struct {
	DayIndex    int    `json:"day_index"`
	DayName     string `json:"day_name"`
	TotalOrders int    `json:"total_orders"`
}

type periodTotals struct {
	orders  int
	revenue decimal.Decimal
}

// totalsBy groups facts by an integer period and returns the periods present
// in ascending order.
func totalsBy(m *orders.Model, period func(time.Time) int) ([]int, map[int]*periodTotals) {
	totals := make(map[int]*periodTotals)
	for _, f := range m.Facts {
		p := period(f.OrderDate)
		t, ok := totals[p]
		if !ok {
			t = &periodTotals{}
			totals[p] = t
		}
		t.orders++
		t.revenue = t.revenue.Add(f.Price)
	}
	keys := make([]int, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, totals
}

// ComputeMonthlyTrend groups by calendar month across years.
func ComputeMonthlyTrend(m *orders.Model) []MonthlyTrendRow {
	keys, totals := totalsBy(m, func(t time.Time) int { return int(t.Month()) })
	rows := make([]MonthlyTrendRow, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, MonthlyTrendRow{
			Month:       k,
			MonthName:   time.Month(k).String(),
			TotalOrders: totals[k].orders,
			Revenue:     totals[k].revenue,
		})
	}
	return rows
}

func ComputeQuarterlyTrend(m *orders.Model) []QuarterlyTrendRow {
	keys, totals := totalsBy(m, quarter)
	rows := make([]QuarterlyTrendRow, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, QuarterlyTrendRow{
			Quarter:     k,
			TotalOrders: totals[k].orders,
			Revenue:     totals[k].revenue,
		})
	}
	return rows
}

func ComputeDayOfWeek(m *orders.Model) []DayOfWeekRow {
	keys, totals := totalsBy(m, dayIndex)
	rows := make([]DayOfWeekRow, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, DayOfWeekRow{
			DayIndex:    k,
			DayName:     time.Weekday(k - 1).String(),
			TotalOrders: totals[k].orders,
		})
	}
	return rows
}

func quarter(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

func dayIndex(t time.Time) int {
	return int(t.Weekday()) + 1
}
