package dataset

// DimensionSchema describes one dimension table. Column definitions use the
// "name:Type" form.
type DimensionSchema interface {
	// Name returns the dimension name, e.g. "location".
	Name() string
	// IDColumn returns the surrogate id column definition.
	IDColumn() string
	// NaturalKeyColumns returns the columns that identify an entity; their
	// values are hashed into key_hash.
	NaturalKeyColumns() []string
	// PayloadColumns returns any remaining attribute columns.
	PayloadColumns() []string
}

// FactSchema describes one fact table.
type FactSchema interface {
	// Name returns the fact name, e.g. "orders".
	Name() string
	// Columns returns every column written per row, excluding run_id and
	// ingested_at.
	Columns() []string
}
