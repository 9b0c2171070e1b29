package orders

import "iter"

// Kind identifies one of the four dimensions of the order star schema.
type Kind string

const (
	KindLocation   Kind = "location"
	KindRestaurant Kind = "restaurant"
	KindCategory   Kind = "category"
	KindDish       Kind = "dish"
)

// Kinds lists the dimensions in a fixed order.
var Kinds = []Kind{KindLocation, KindRestaurant, KindCategory, KindDish}

// LocationKey is the natural key of a location: the state, city and locality
// triple.
type LocationKey struct {
	State    string
	City     string
	Location string
}

type RestaurantKey struct {
	Name string
}

type CategoryKey struct {
	Name string
}

type DishKey struct {
	Name string
}

// Table maps natural keys to surrogate ids. Ids start at 1 and follow first
// observation order; keys are stored in an arena indexed by id-1, so both
// directions resolve in constant time.
type Table[K comparable] struct {
	kind Kind
	ids  map[K]int64
	keys []K
}

func NewTable[K comparable](kind Kind) *Table[K] {
	return &Table[K]{
		kind: kind,
		ids:  make(map[K]int64),
	}
}

func (t *Table[K]) Kind() Kind {
	return t.kind
}

// Intern returns the id of k, assigning the next id when k is new.
func (t *Table[K]) Intern(k K) int64 {
	if id, ok := t.ids[k]; ok {
		return id
	}
	t.keys = append(t.keys, k)
	id := int64(len(t.keys))
	t.ids[k] = id
	return id
}

// Lookup returns the id of k without assigning one.
func (t *Table[K]) Lookup(k K) (int64, bool) {
	id, ok := t.ids[k]
	return id, ok
}

// Key returns the natural key for id.
func (t *Table[K]) Key(id int64) (K, bool) {
	if id < 1 || id > int64(len(t.keys)) {
		var zero K
		return zero, false
	}
	return t.keys[id-1], true
}

func (t *Table[K]) Contains(id int64) bool {
	return id >= 1 && id <= int64(len(t.keys))
}

func (t *Table[K]) Len() int {
	return len(t.keys)
}

// All yields (id, key) pairs in id order.
func (t *Table[K]) All() iter.Seq2[int64, K] {
	return func(yield func(int64, K) bool) {
		for i, k := range t.keys {
			if !yield(int64(i+1), k) {
				return
			}
		}
	}
}
