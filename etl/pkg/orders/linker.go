package orders

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Fact is one valid order referencing one entity per dimension.
type Fact struct {
	LocationID   int64
	RestaurantID int64
	CategoryID   int64
	DishID       int64

	Price       decimal.Decimal
	Rating      decimal.NullDecimal
	RatingCount sql.NullInt64
	OrderDate   time.Time
}

// LinkFacts resolves the natural keys of every valid record against dims,
// which must already be fully built over the same records. Any key that does
// not resolve fails the whole call with ErrDanglingReference.
func LinkFacts(records []NormalizedRecord, dims *Dimensions) ([]Fact, error) {
	facts := make([]Fact, 0, len(records))
	for i, r := range records {
		if !r.Valid() {
			continue
		}

		locID, ok := dims.Locations.Lookup(r.LocationKey())
		if !ok {
			return nil, danglingErr(i, KindLocation, r.LocationKey())
		}
		restID, ok := dims.Restaurants.Lookup(r.RestaurantKey())
		if !ok {
			return nil, danglingErr(i, KindRestaurant, r.RestaurantKey())
		}
		catID, ok := dims.Categories.Lookup(r.CategoryKey())
		if !ok {
			return nil, danglingErr(i, KindCategory, r.CategoryKey())
		}
		dishID, ok := dims.Dishes.Lookup(r.DishKey())
		if !ok {
			return nil, danglingErr(i, KindDish, r.DishKey())
		}

		facts = append(facts, Fact{
			LocationID:   locID,
			RestaurantID: restID,
			CategoryID:   catID,
			DishID:       dishID,
			Price:        r.Price.Decimal,
			Rating:       r.Rating,
			RatingCount:  r.RatingCount,
			OrderDate:    r.OrderDate.Time,
		})
	}
	return facts, nil
}

func danglingErr(index int, kind Kind, key any) error {
	return fmt.Errorf("%w: record %d: %s %+v", ErrDanglingReference, index, kind, key)
}
