package lightrecord

// Base is the mapped structure a query reads from.
//
// Name identifies the structure and keys the record type cache together with
// the result Signature. PrimaryKey may be empty. Columns is the declared
// column list, used when no query-specific shape is available.
type Base interface {
	Name() string
	PrimaryKey() string
	Columns() []string
}

// Table is a plain [Base] for callers without their own model types.
type Table struct {
	name       string
	primaryKey string
	columns    []string
}

// NewTable describes a structure called name with the given primary key
// (empty for none) and declared columns.
func NewTable(name, primaryKey string, columns ...string) *Table {
	return &Table{
		name:       name,
		primaryKey: primaryKey,
		columns:    append([]string(nil), columns...),
	}
}

// Name returns the structure name.
func (t *Table) Name() string { return t.name }

// PrimaryKey returns the primary key column, or "" when there is none.
func (t *Table) PrimaryKey() string { return t.primaryKey }

// Columns returns a copy of the declared columns.
func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }
