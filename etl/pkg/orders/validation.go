package orders

import (
	"maps"
	"time"
)

// ValidationSummary aggregates data-quality counts over a whole batch.
type ValidationSummary struct {
	TotalRecords   int `json:"total_records"`
	ValidRecords   int `json:"valid_records"`
	InvalidRecords int `json:"invalid_records"`

	// DuplicateRecords counts records identical on every field to an earlier
	// record. Duplicates are reported, not removed.
	DuplicateRecords int `json:"duplicate_records"`

	// Missing counts records where a field was absent or unparseable.
	Missing map[Field]int `json:"missing"`

	// Violations counts records excluded from fact loading, per offending
	// field. A record with two bad fields is counted under both.
	Violations map[Field]int `json:"violations"`
}

// MissingCount returns the missing count for f, zero when never seen.
func (s ValidationSummary) MissingCount(f Field) int {
	return s.Missing[f]
}

type recordKey struct {
	state, city, location, restaurant, category, dish string
	price, rating                                     string
	ratingCount                                       int64
	hasRatingCount                                    bool
	orderDate                                         time.Time
}

func keyOf(r NormalizedRecord) recordKey {
	k := recordKey{
		state:          r.State,
		city:           r.City,
		location:       r.Location,
		restaurant:     r.RestaurantName,
		category:       r.Category,
		dish:           r.DishName,
		ratingCount:    r.RatingCount.Int64,
		hasRatingCount: r.RatingCount.Valid,
		orderDate:      r.OrderDate.Time,
	}
	if r.Price.Valid {
		k.price = r.Price.Decimal.String()
	}
	if r.Rating.Valid {
		k.rating = r.Rating.Decimal.String()
	}
	return k
}

// Validator accumulates a ValidationSummary as records are observed.
type Validator struct {
	summary ValidationSummary
	seen    map[recordKey]struct{}
}

func NewValidator() *Validator {
	return &Validator{
		summary: ValidationSummary{
			Missing:    make(map[Field]int),
			Violations: make(map[Field]int),
		},
		seen: make(map[recordKey]struct{}),
	}
}

func (v *Validator) Observe(r NormalizedRecord) {
	s := &v.summary
	s.TotalRecords++
	if r.Valid() {
		s.ValidRecords++
	} else {
		s.InvalidRecords++
		for _, f := range r.Violations {
			s.Violations[f]++
		}
	}

	for f, absent := range map[Field]bool{
		FieldState:          r.State == "",
		FieldCity:           r.City == "",
		FieldLocation:       r.Location == "",
		FieldRestaurantName: r.RestaurantName == "",
		FieldCategory:       r.Category == "",
		FieldDishName:       r.DishName == "",
		FieldPrice:          !r.Price.Valid,
		FieldRating:         !r.Rating.Valid,
		FieldRatingCount:    !r.RatingCount.Valid,
		FieldOrderDate:      !r.OrderDate.Valid,
	} {
		if absent {
			s.Missing[f]++
		}
	}

	k := keyOf(r)
	if _, dup := v.seen[k]; dup {
		s.DuplicateRecords++
	} else {
		v.seen[k] = struct{}{}
	}
}

// Summary returns a copy of the counts so far.
func (v *Validator) Summary() ValidationSummary {
	out := v.summary
	out.Missing = maps.Clone(v.summary.Missing)
	out.Violations = maps.Clone(v.summary.Violations)
	return out
}
