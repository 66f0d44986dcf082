package lightrecord

import "database/sql"

// cursor turns *sql.Rows into records of one resolved type. It keeps a
// single scan buffer; each record gets its own copy of the values.
type cursor struct {
	rows *sql.Rows
	typ  *RecordType
	pos  []int
	raw  []any
	ptrs []any
}

// openCursor resolves the record type from the result metadata, before the
// first row is read.
func openCursor(rows *sql.Rows, reg *Registry, base Base) (*cursor, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	typ := reg.Resolve(base, NewSignature(cols))
	c := &cursor{
		rows: rows,
		typ:  typ,
		pos:  typ.positions(cols),
		raw:  make([]any, len(cols)),
		ptrs: make([]any, len(cols)),
	}
	for i := range c.raw {
		c.ptrs[i] = &c.raw[i]
	}
	return c, nil
}

// next reads one row. It returns (nil, nil) once the result is exhausted.
func (c *cursor) next() (*Record, error) {
	if !c.rows.Next() {
		return nil, c.rows.Err()
	}
	if err := c.rows.Scan(c.ptrs...); err != nil {
		return nil, err
	}
	rec := c.typ.fromRaw(c.pos, c.raw)
	clear(c.raw)
	return rec, nil
}
