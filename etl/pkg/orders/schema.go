package orders

import (
	"github.com/shopspring/decimal"

	"github.com/malbeclabs/orderlake/etl/pkg/clickhouse/dataset"
)

type locationSchema struct{}

func (locationSchema) Name() string     { return string(KindLocation) }
func (locationSchema) IDColumn() string { return "location_id:Int64" }
func (locationSchema) NaturalKeyColumns() []string {
	return []string{"state:String", "city:String", "location:String"}
}
func (locationSchema) PayloadColumns() []string { return nil }

// nameSchema covers the dimensions identified by a single name.
type nameSchema struct {
	kind Kind
}

func (s nameSchema) Name() string     { return string(s.kind) }
func (s nameSchema) IDColumn() string { return string(s.kind) + "_id:Int64" }
func (s nameSchema) NaturalKeyColumns() []string {
	return []string{string(s.kind) + "_name:String"}
}
func (nameSchema) PayloadColumns() []string { return nil }

type ordersSchema struct{}

func (ordersSchema) Name() string { return "orders" }
func (ordersSchema) Columns() []string {
	return []string{
		"order_id:Int64",
		"location_id:Int64",
		"restaurant_id:Int64",
		"category_id:Int64",
		"dish_id:Int64",
		"price:Decimal(18,4)",
		"rating:Nullable(Decimal(9,4))",
		"rating_count:Nullable(Int64)",
		"order_date:Date",
	}
}

var (
	_ dataset.DimensionSchema = locationSchema{}
	_ dataset.DimensionSchema = nameSchema{}
	_ dataset.FactSchema      = ordersSchema{}
)

// OrderID is the stable identifier of the fact at index i of a run.
func OrderID(i int) int64 {
	return int64(i) + 1
}

func locationRow(id int64, k LocationKey) []any {
	return []any{id, k.State, k.City, k.Location}
}

func nameRow(id int64, name string) []any {
	return []any{id, name}
}

// dimensionRows materializes a table in id order using row to flatten keys.
func dimensionRows[K comparable](t *Table[K], row func(int64, K) []any) [][]any {
	rows := make([][]any, 0, t.Len())
	for id, k := range t.All() {
		rows = append(rows, row(id, k))
	}
	return rows
}

// factRow flattens a fact for the ClickHouse orders table. Absent values
// become nil pointers, which the driver writes as NULL.
func factRow(i int, f Fact) []any {
	var rating *decimal.Decimal
	if f.Rating.Valid {
		r := f.Rating.Decimal
		rating = &r
	}
	var ratingCount *int64
	if f.RatingCount.Valid {
		n := f.RatingCount.Int64
		ratingCount = &n
	}
	return []any{
		OrderID(i),
		f.LocationID,
		f.RestaurantID,
		f.CategoryID,
		f.DishID,
		f.Price,
		rating,
		ratingCount,
		f.OrderDate,
	}
}
