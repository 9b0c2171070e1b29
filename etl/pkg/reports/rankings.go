package reports

import (
	"github.com/malbeclabs/orderlake/etl/pkg/orders"
	"github.com/shopspring/decimal"
)

type CityRow struct {
	City        string          `json:"city"`
	TotalOrders int             `json:"total_orders"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type CategoryRow struct {
	Category    string              `json:"category"`
	TotalOrders int                 `json:"total_orders"`
	AvgRating   decimal.NullDecimal `json:"avg_rating"`
}

type DishRow struct {
	Dish        string `json:"dish"`
	TotalOrders int    `json:"total_orders"`
}

type RestaurantRow struct {
	Restaurant  string `json:"restaurant"`
	TotalOrders int    `json:"total_orders"`
}

func ComputeTopCities(m *orders.Model) []CityRow {
	groups := rankByOrders(m, m.City, TopCitiesLimit)
	rows := make([]CityRow, len(groups))
	for i, g := range groups {
		rows[i] = CityRow{City: g.key, TotalOrders: g.orders, Revenue: g.revenue}
	}
	return rows
}

func ComputeCategoryPerformance(m *orders.Model) []CategoryRow {
	groups := rankByOrders(m, m.Category, TopCategoriesLimit)
	rows := make([]CategoryRow, len(groups))
	for i, g := range groups {
		rows[i] = CategoryRow{Category: g.key, TotalOrders: g.orders, AvgRating: g.ratings.value()}
	}
	return rows
}

func ComputeTopDishes(m *orders.Model) []DishRow {
	groups := rankByOrders(m, m.Dish, TopDishesLimit)
	rows := make([]DishRow, len(groups))
	for i, g := range groups {
		rows[i] = DishRow{Dish: g.key, TotalOrders: g.orders}
	}
	return rows
}

// ComputeTopRestaurants ranks restaurants by name; outlets sharing a name in
// different cities count as one restaurant.
func ComputeTopRestaurants(m *orders.Model) []RestaurantRow {
	groups := rankByOrders(m, m.Restaurant, TopRestaurantsLimit)
	rows := make([]RestaurantRow, len(groups))
	for i, g := range groups {
		rows[i] = RestaurantRow{Restaurant: g.key, TotalOrders: g.orders}
	}
	return rows
}
