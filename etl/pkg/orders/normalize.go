package orders

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/malbeclabs/orderlake/etl/pkg/source"
	"github.com/shopspring/decimal"
)

// OrderDateLayout is the day-month-year layout of the Order Date column.
// Day and month must be two digits, the year four.
const OrderDateLayout = "02-01-2006"

var (
	minRating = decimal.Zero
	maxRating = decimal.NewFromInt(5)
)

// Normalize converts one raw record into typed fields. Missing or unparseable
// price, order date, city or restaurant name invalidate the record; a bad
// rating or rating count only leaves that field absent.
func Normalize(raw source.Record) NormalizedRecord {
	rec := NormalizedRecord{
		State:          clean(raw[source.ColState]),
		City:           clean(raw[source.ColCity]),
		Location:       clean(raw[source.ColLocation]),
		RestaurantName: clean(raw[source.ColRestaurantName]),
		Category:       clean(raw[source.ColCategory]),
		DishName:       clean(raw[source.ColDishName]),
	}

	if rec.City == "" {
		rec.flag(FieldCity)
	}
	if rec.RestaurantName == "" {
		rec.flag(FieldRestaurantName)
	}

	if price, ok := parsePrice(raw[source.ColPrice]); ok {
		rec.Price = decimal.NullDecimal{Decimal: price, Valid: true}
	} else {
		rec.flag(FieldPrice)
	}

	if rating, ok := parseRating(raw[source.ColRating]); ok {
		rec.Rating = decimal.NullDecimal{Decimal: rating, Valid: true}
	}

	if n, ok := parseCount(raw[source.ColRatingCount]); ok {
		rec.RatingCount = sql.NullInt64{Int64: n, Valid: true}
	}

	if d, ok := ParseOrderDate(raw[source.ColOrderDate]); ok {
		rec.OrderDate = sql.NullTime{Time: d, Valid: true}
	} else {
		rec.flag(FieldOrderDate)
	}

	return rec
}

// ParseOrderDate parses a dd-mm-yyyy date as midnight UTC.
func ParseOrderDate(s string) (time.Time, bool) {
	s = clean(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(OrderDateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func clean(s string) string {
	return strings.TrimSpace(s)
}

func parsePrice(s string) (decimal.Decimal, bool) {
	d, ok := parseDecimal(s)
	if !ok || d.IsNegative() {
		return decimal.Decimal{}, false
	}
	return d, true
}

func parseRating(s string) (decimal.Decimal, bool) {
	d, ok := parseDecimal(s)
	if !ok || d.LessThan(minRating) || d.GreaterThan(maxRating) {
		return decimal.Decimal{}, false
	}
	return d, true
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	s = clean(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// parseCount accepts integers and integral decimals such as "12.0", which
// spreadsheet exports produce for numeric cells.
func parseCount(s string) (int64, bool) {
	s = clean(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, n >= 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() || d.IsNegative() {
		return 0, false
	}
	return d.IntPart(), true
}
