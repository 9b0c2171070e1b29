package reports

import (
	"cmp"
	"slices"

	"github.com/malbeclabs/orderlake/etl/pkg/orders"
	"github.com/shopspring/decimal"
)

type BucketRow struct {
	Bucket      string `json:"bucket"`
	TotalOrders int    `json:"total_orders"`
}

type RatingRow struct {
	Stars       int `json:"stars"`
	TotalOrders int `json:"total_orders"`
}

type spendBucket struct {
	label string
	lower decimal.Decimal
}

// spendBuckets are ordered by lower bound. A price belongs to the last bucket
// whose lower bound it reaches, so fractional prices such as 199.5 stay in
// "100-199".
var spendBuckets = []spendBucket{
	{label: "Under 100", lower: decimal.Zero},
	{label: "100-199", lower: decimal.NewFromInt(100)},
	{label: "200-299", lower: decimal.NewFromInt(200)},
	{label: "300-499", lower: decimal.NewFromInt(300)},
	{label: "500+", lower: decimal.NewFromInt(500)},
}

// BucketFor returns the spending bucket label of price.
func BucketFor(price decimal.Decimal) string {
	label := spendBuckets[0].label
	for _, b := range spendBuckets {
		if price.LessThan(b.lower) {
			break
		}
		label = b.label
	}
	return label
}

// ComputeSpendingBuckets always returns all five buckets in fixed order,
// including empty ones.
func ComputeSpendingBuckets(m *orders.Model) []BucketRow {
	counts := make(map[string]int, len(spendBuckets))
	for _, f := range m.Facts {
		counts[BucketFor(f.Price)]++
	}
	rows := make([]BucketRow, len(spendBuckets))
	for i, b := range spendBuckets {
		rows[i] = BucketRow{Bucket: b.label, TotalOrders: counts[b.label]}
	}
	return rows
}

// ComputeRatingDistribution counts facts per whole-star level, highest first.
// Facts without a rating are left out entirely.
func ComputeRatingDistribution(m *orders.Model) []RatingRow {
	counts := make(map[int]int)
	for _, f := range m.Facts {
		if !f.Rating.Valid {
			continue
		}
		counts[int(f.Rating.Decimal.Floor().IntPart())]++
	}
	rows := make([]RatingRow, 0, len(counts))
	for stars, n := range counts {
		rows = append(rows, RatingRow{Stars: stars, TotalOrders: n})
	}
	slices.SortFunc(rows, func(a, b RatingRow) int {
		return cmp.Compare(b.Stars, a.Stars)
	})
	return rows
}
