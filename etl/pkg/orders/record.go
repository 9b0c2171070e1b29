package orders

import (
	"database/sql"
	"errors"
	"slices"

	"github.com/malbeclabs/orderlake/etl/pkg/source"
	"github.com/shopspring/decimal"
)

var (
	// ErrSourceUnavailable aborts a run before any record is processed.
	ErrSourceUnavailable = source.ErrSourceUnavailable

	// ErrDanglingReference means a fact referenced a dimension key that was
	// never built. Correct sequencing makes this impossible, so it signals a
	// bug rather than bad input.
	ErrDanglingReference = errors.New("dangling dimension reference")
)

// Field names a normalized attribute. Values match the source column names so
// validation output reads the same as the dataset header.
type Field string

const (
	FieldState          Field = source.ColState
	FieldCity           Field = source.ColCity
	FieldLocation       Field = source.ColLocation
	FieldRestaurantName Field = source.ColRestaurantName
	FieldCategory       Field = source.ColCategory
	FieldDishName       Field = source.ColDishName
	FieldPrice          Field = source.ColPrice
	FieldRating         Field = source.ColRating
	FieldRatingCount    Field = source.ColRatingCount
	FieldOrderDate      Field = source.ColOrderDate
)

// NormalizedRecord is one order with typed fields. Empty strings mean the
// attribute was absent in the source.
type NormalizedRecord struct {
	State          string
	City           string
	Location       string
	RestaurantName string
	Category       string
	DishName       string

	Price       decimal.NullDecimal
	Rating      decimal.NullDecimal
	RatingCount sql.NullInt64
	OrderDate   sql.NullTime

	// Violations lists the fields that make the record unusable as a fact.
	Violations []Field
}

// Valid reports whether the record can be loaded as a fact.
func (r NormalizedRecord) Valid() bool {
	return len(r.Violations) == 0
}

func (r NormalizedRecord) Violates(f Field) bool {
	return slices.Contains(r.Violations, f)
}

func (r *NormalizedRecord) flag(f Field) {
	if !r.Violates(f) {
		r.Violations = append(r.Violations, f)
	}
}

func (r NormalizedRecord) LocationKey() LocationKey {
	return LocationKey{State: r.State, City: r.City, Location: r.Location}
}

func (r NormalizedRecord) RestaurantKey() RestaurantKey {
	return RestaurantKey{Name: r.RestaurantName}
}

func (r NormalizedRecord) CategoryKey() CategoryKey {
	return CategoryKey{Name: r.Category}
}

func (r NormalizedRecord) DishKey() DishKey {
	return DishKey{Name: r.DishName}
}
