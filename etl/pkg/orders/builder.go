package orders

// Dimensions holds the four dimension tables of one run.
type Dimensions struct {
	Locations   *Table[LocationKey]
	Restaurants *Table[RestaurantKey]
	Categories  *Table[CategoryKey]
	Dishes      *Table[DishKey]
}

func NewDimensions() *Dimensions {
	return &Dimensions{
		Locations:   NewTable[LocationKey](KindLocation),
		Restaurants: NewTable[RestaurantKey](KindRestaurant),
		Categories:  NewTable[CategoryKey](KindCategory),
		Dishes:      NewTable[DishKey](KindDish),
	}
}

// BuildDimensions interns the natural keys of every valid record in input
// order. Invalid records are skipped so that every built entity is referenced
// by at least one fact. Keys with empty components are kept as entities of
// their own.
func BuildDimensions(records []NormalizedRecord) *Dimensions {
	d := NewDimensions()
	for _, r := range records {
		if !r.Valid() {
			continue
		}
		d.Locations.Intern(r.LocationKey())
		d.Restaurants.Intern(r.RestaurantKey())
		d.Categories.Intern(r.CategoryKey())
		d.Dishes.Intern(r.DishKey())
	}
	return d
}

// Sizes returns the entity count per dimension.
func (d *Dimensions) Sizes() map[Kind]int {
	return map[Kind]int{
		KindLocation:   d.Locations.Len(),
		KindRestaurant: d.Restaurants.Len(),
		KindCategory:   d.Categories.Len(),
		KindDish:       d.Dishes.Len(),
	}
}
