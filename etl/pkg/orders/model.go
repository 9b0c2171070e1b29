package orders

import "fmt"

// Model is the star schema of one run. It is not modified after the pipeline
// returns it, so any number of readers may share it.
type Model struct {
	Dimensions *Dimensions
	Facts      []Fact
}

// Check verifies that every fact reference resolves in its dimension table.
func (m *Model) Check() error {
	d := m.Dimensions
	for i, f := range m.Facts {
		switch {
		case !d.Locations.Contains(f.LocationID):
			return fmt.Errorf("%w: fact %d: location id %d", ErrDanglingReference, i, f.LocationID)
		case !d.Restaurants.Contains(f.RestaurantID):
			return fmt.Errorf("%w: fact %d: restaurant id %d", ErrDanglingReference, i, f.RestaurantID)
		case !d.Categories.Contains(f.CategoryID):
			return fmt.Errorf("%w: fact %d: category id %d", ErrDanglingReference, i, f.CategoryID)
		case !d.Dishes.Contains(f.DishID):
			return fmt.Errorf("%w: fact %d: dish id %d", ErrDanglingReference, i, f.DishID)
		}
	}
	return nil
}

func (m *Model) Location(f Fact) LocationKey {
	k, _ := m.Dimensions.Locations.Key(f.LocationID)
	return k
}

func (m *Model) City(f Fact) string {
	return m.Location(f).City
}

func (m *Model) Restaurant(f Fact) string {
	k, _ := m.Dimensions.Restaurants.Key(f.RestaurantID)
	return k.Name
}

func (m *Model) Category(f Fact) string {
	k, _ := m.Dimensions.Categories.Key(f.CategoryID)
	return k.Name
}

func (m *Model) Dish(f Fact) string {
	k, _ := m.Dimensions.Dishes.Key(f.DishID)
	return k.Name
}
