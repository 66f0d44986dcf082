package lightrecord

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Attributes is the read-only capability set generic display and
// serialization code needs from a row. *Record implements it.
type Attributes interface {
	Get(name string) (any, bool)
	HasAttribute(name string) bool
	ColumnNames() []string
	Identity() (any, bool)
}

var _ Attributes = (*Record)(nil)

// Record is one result row shaped by its [RecordType].
//
// Values are the driver's decoded values with no further conversion. Reads
// are safe from multiple goroutines as long as nobody calls Set.
type Record struct {
	typ    *RecordType
	values []any // aligned with typ.sig
}

// Type returns the record's type.
func (r *Record) Type() *RecordType { return r.typ }

// Get returns the value of column name and whether the column exists.
func (r *Record) Get(name string) (any, bool) {
	i, ok := r.typ.index[name]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Value returns the value of column name, or nil when there is no such column.
func (r *Record) Value(name string) any {
	v, _ := r.Get(name)
	return v
}

// Set replaces the in-memory value of column name. Nothing is written to
// the database.
func (r *Record) Set(name string, v any) error {
	i, ok := r.typ.index[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	r.values[i] = v
	return nil
}

// HasAttribute reports whether name is a column of the record.
func (r *Record) HasAttribute(name string) bool { return r.typ.HasAttribute(name) }

// ColumnNames lists the record's columns in result order.
func (r *Record) ColumnNames() []string { return r.typ.ColumnNames() }

// Identity returns the primary key value. ok is false when the base has no
// primary key or the query did not select it.
func (r *Record) Identity() (v any, ok bool) {
	if r.typ.identity < 0 {
		return nil, false
	}
	return r.values[r.typ.identity], true
}

// Values returns a copy of the values in column order.
func (r *Record) Values() []any { return append([]any(nil), r.values...) }

// Map returns a copy of the record as column name → value.
func (r *Record) Map() map[string]any {
	m := make(map[string]any, len(r.values))
	for i, c := range r.typ.sig {
		m[c] = r.values[i]
	}
	return m
}

// MarshalJSON encodes the record as an object with keys in column order.
// []byte values are emitted as strings.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.typ.sig {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')

		v := r.values[i]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		enc, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("lightrecord: encode column %q: %w", c, err)
		}
		buf.Write(enc)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Record) String() string {
	var b strings.Builder
	b.WriteString(r.typ.String())
	b.WriteByte('{')
	for i, c := range r.typ.sig {
		if i > 0 {
			b.WriteString(", ")
		}
		v := r.values[i]
		if raw, ok := v.([]byte); ok {
			v = string(raw)
		}
		fmt.Fprintf(&b, "%s: %v", c, v)
	}
	b.WriteByte('}')
	return b.String()
}
